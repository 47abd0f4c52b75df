// Package export turns floor plans into downloadable documents.
// JSON is produced locally; PDF and PNG are delegated to a renderer.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/expohall/expohall/internal/floorplan"
)

// Format names a supported export format.
type Format string

const (
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
)

// Valid reports whether f is a supported export format.
func (f Format) Valid() bool {
	switch f {
	case FormatJSON, FormatPDF, FormatPNG:
		return true
	}
	return false
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// Default deadline for a single render call.
const DefaultRenderTimeout = 10 * time.Second

// ErrUnsupportedFormat is returned for formats the gateway does not know.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ErrRenderTimeout is returned when the renderer misses the deadline.
var ErrRenderTimeout = errors.New("render timed out")

// ErrRenderFailure is returned when the renderer fails for any other reason.
var ErrRenderFailure = errors.New("render failed")

// RenderRequest carries one plan to the renderer.
type RenderRequest struct {
	Format Format               `json:"format"`
	Plan   *floorplan.FloorPlan `json:"plan"`
}

// Renderer produces binary documents from floor plans. Implementations
// should honor ctx cancellation.
type Renderer interface {
	Render(ctx context.Context, req *RenderRequest) ([]byte, error)
}

// Result is one finished export.
type Result struct {
	ContentType string
	Data        []byte
}

// Gateway routes export requests by format.
type Gateway struct {
	renderer Renderer
	timeout  time.Duration
}

// NewGateway creates an export gateway. A non-positive timeout falls back
// to DefaultRenderTimeout. The renderer may be nil when only JSON exports
// are needed.
func NewGateway(renderer Renderer, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return &Gateway{renderer: renderer, timeout: timeout}
}

// Export produces the plan in the requested format. The JSON path never
// touches the renderer and serializes the plan as stored. Renderer errors
// map to ErrRenderTimeout on deadline expiry and ErrRenderFailure otherwise.
func (g *Gateway) Export(ctx context.Context, plan *floorplan.FloorPlan, format Format) (*Result, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if format == FormatJSON {
		data, err := json.Marshal(plan)
		if err != nil {
			return nil, fmt.Errorf("marshal floor plan: %w", err)
		}
		return &Result{ContentType: format.ContentType(), Data: data}, nil
	}

	if g.renderer == nil {
		return nil, fmt.Errorf("%w: no renderer configured", ErrRenderFailure)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	data, err := g.renderer.Render(ctx, &RenderRequest{Format: format, Plan: plan})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrRenderTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	return &Result{ContentType: format.ContentType(), Data: data}, nil
}

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Renderer responses are capped to keep a misbehaving service from
// exhausting memory.
const maxRenderResponseBytes = 64 << 20

// HTTPRenderer calls an external rendering service over HTTP. The service
// accepts a POST with a JSON RenderRequest body and answers with the binary
// document.
type HTTPRenderer struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPRenderer creates a renderer client for the given base URL.
// The client's own timeout is left to the caller; the gateway applies the
// per-render deadline through the request context.
func NewHTTPRenderer(baseURL string, client *http.Client, logger *slog.Logger) *HTTPRenderer {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPRenderer{baseURL: baseURL, client: client, logger: logger}
}

// Render posts the request to the rendering service and returns the
// document bytes.
func (r *HTTPRenderer) Render(ctx context.Context, req *RenderRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call renderer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("renderer returned non-200",
			"status", resp.StatusCode,
			"format", req.Format,
		)
		return nil, fmt.Errorf("renderer returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRenderResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read render response: %w", err)
	}
	return data, nil
}

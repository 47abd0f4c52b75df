// Package image sanitizes uploaded floor-plan background images.
// Backgrounds come from exhibitor uploads, so they are re-encoded and
// stripped of metadata before being served.
package image

import (
	"bytes"
	"fmt"
	"io"

	"github.com/h2non/bimg"
)

// Background images larger than this are scaled down on either axis.
const (
	DefaultMaxWidth  = 4096
	DefaultMaxHeight = 4096
)

// SanitizerConfig holds configuration for background image sanitization.
type SanitizerConfig struct {
	// Quality for JPEG/WebP encoding (1-100, default: 85)
	Quality int
	// OutputFormat specifies the output format (jpeg, webp, png)
	OutputFormat string
	// StripMetadata removes all EXIF/metadata (default: true)
	StripMetadata bool
	// MaxWidth limits image width (0 = no limit)
	MaxWidth int
	// MaxHeight limits image height (0 = no limit)
	MaxHeight int
}

// DefaultConfig returns the defaults used for floor-plan backgrounds.
func DefaultConfig() SanitizerConfig {
	return SanitizerConfig{
		Quality:       85,
		OutputFormat:  "jpeg",
		StripMetadata: true,
		MaxWidth:      DefaultMaxWidth,
		MaxHeight:     DefaultMaxHeight,
	}
}

// Sanitize reads an uploaded background image, strips all EXIF metadata,
// re-encodes it, and caps its dimensions.
func Sanitize(r io.Reader) ([]byte, error) {
	return SanitizeWithConfig(r, DefaultConfig())
}

// SanitizeWithConfig sanitizes an image with custom configuration.
func SanitizeWithConfig(r io.Reader, config SanitizerConfig) ([]byte, error) {
	inputBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input image: %w", err)
	}

	img := bimg.NewImage(inputBytes)
	metadata, err := img.Metadata()
	if err != nil {
		return nil, fmt.Errorf("failed to read image metadata: %w", err)
	}

	options := bimg.Options{
		Quality:       config.Quality,
		StripMetadata: config.StripMetadata,
		// Auto-orient from the EXIF orientation tag before stripping, so
		// images display correctly after EXIF removal.
		Rotate: bimg.Angle(0),
	}

	switch config.OutputFormat {
	case "jpeg", "jpg":
		options.Type = bimg.JPEG
	case "webp":
		options.Type = bimg.WEBP
	case "png":
		options.Type = bimg.PNG
	default:
		options.Type = imageType(metadata.Type)
	}

	if config.MaxWidth > 0 && metadata.Size.Width > config.MaxWidth {
		options.Width = config.MaxWidth
	}
	if config.MaxHeight > 0 && metadata.Size.Height > config.MaxHeight {
		options.Height = config.MaxHeight
	}

	outputBytes, err := img.Process(options)
	if err != nil {
		return nil, fmt.Errorf("failed to process image: %w", err)
	}
	return outputBytes, nil
}

// SanitizeBytes is a convenience wrapper for sanitizing image bytes directly.
func SanitizeBytes(inputBytes []byte) ([]byte, error) {
	return SanitizeWithConfig(bytes.NewReader(inputBytes), DefaultConfig())
}

// imageType maps bimg's string type to a bimg.ImageType constant.
func imageType(typeStr string) bimg.ImageType {
	switch typeStr {
	case "jpeg":
		return bimg.JPEG
	case "png":
		return bimg.PNG
	case "webp":
		return bimg.WEBP
	default:
		return bimg.JPEG
	}
}

// VerifyNoEXIF checks if the image has EXIF metadata.
// Returns true if no EXIF data is present, false otherwise.
func VerifyNoEXIF(imageBytes []byte) (bool, error) {
	img := bimg.NewImage(imageBytes)
	metadata, err := img.Metadata()
	if err != nil {
		return false, fmt.Errorf("failed to read image metadata: %w", err)
	}

	exif := metadata.EXIF
	hasEXIF := exif.Make != "" || exif.Model != "" ||
		exif.GPSLatitude != "" || exif.GPSLongitude != "" ||
		exif.DateTimeOriginal != "" || exif.Software != ""

	return !hasEXIF, nil
}

// Package color validates the hex colors carried on shape visuals.
package color

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// hexColorPattern matches #RRGGBB hex color codes, case insensitive.
var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ErrInvalidHexFormat is returned when a color is not in #RRGGBB format.
var ErrInvalidHexFormat = errors.New("invalid hex color format, expected #RRGGBB")

// IsValidHexColor reports whether the color string is in #RRGGBB format.
func IsValidHexColor(color string) bool {
	return hexColorPattern.MatchString(color)
}

// ValidateHexColor returns an error wrapping ErrInvalidHexFormat if the
// color is not in #RRGGBB format.
func ValidateHexColor(color string) error {
	if !IsValidHexColor(color) {
		return fmt.Errorf("%w: got %q", ErrInvalidHexFormat, color)
	}
	return nil
}

// Normalize trims whitespace and lowercases a hex color so stored plans
// carry a canonical form. Returns the empty string if the input is not a
// valid hex color.
func Normalize(color string) string {
	trimmed := strings.TrimSpace(color)
	if !IsValidHexColor(trimmed) {
		return ""
	}
	return strings.ToLower(trimmed)
}

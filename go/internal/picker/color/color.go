package color

import (
	"fmt"
	"strconv"
	"strings"
)

// RGB is an opaque 24-bit display color.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

var (
	// Cyan and Magenta are the fixed team colors used by group mode.
	Cyan    = RGB{R: 0, G: 255, B: 255}
	Magenta = RGB{R: 255, G: 0, B: 255}

	// LightGray is the neutral color fingers get in group mode until the split.
	LightGray = RGB{R: 204, G: 204, B: 204}

	// Background is the default canvas color.
	Background = RGB{R: 0x2C, G: 0x2C, B: 0x2C}
)

// Luminance returns the relative luminance of c on the 0-255 scale.
func (c RGB) Luminance() float64 {
	return 0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)
}

// Distance is the component-wise absolute difference sum of a and b.
func Distance(a, b RGB) int {
	return absDiff(a.R, b.R) + absDiff(a.G, b.G) + absDiff(a.B, b.B)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// Hex renders c as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return c.Hex()
}

// ParseHex parses "#rrggbb" or "rrggbb".
func ParseHex(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("invalid color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MarshalText implements encoding.TextMarshaler so colors read naturally in JSON and YAML.
func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *RGB) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

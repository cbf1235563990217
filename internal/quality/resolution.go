package quality

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultResolution is the Full HD fallback used when a display profile is
// absent or malformed.
var DefaultResolution = Resolution{Width: 1920, Height: 1080}

// Resolution is a target display resolution in pixels.
type Resolution struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are positive.
func (r Resolution) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Even returns the resolution adjusted to even dimensions, as required by
// H.264-class encoders. Odd values are decremented by one, never incremented.
func (r Resolution) Even() Resolution {
	out := r
	if out.Width%2 != 0 {
		out.Width--
	}
	if out.Height%2 != 0 {
		out.Height--
	}
	return out
}

// Pixels returns the total pixel count.
func (r Resolution) Pixels() int {
	return r.Width * r.Height
}

// String formats the resolution as "WxH".
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution parses a device profile value of the form "WxH".
// Empty, "Unknown" and malformed values fall back to DefaultResolution.
func ParseResolution(s string) Resolution {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unknown") {
		return DefaultResolution
	}

	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return DefaultResolution
	}

	w, werr := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, herr := strconv.Atoi(strings.TrimSpace(parts[1]))
	if werr != nil || herr != nil || w <= 0 || h <= 0 {
		return DefaultResolution
	}

	return Resolution{Width: w, Height: h}
}

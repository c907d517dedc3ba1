package model

import "fmt"

// Size is a display size in points. Pixels are Size multiplied by the device scale.
type Size struct {
	Width  float64
	Height float64
}

func (s Size) IsZero() bool { return s.Width <= 0 || s.Height <= 0 }

// LongestEdgePx returns max(width, height) * scale rounded down, at least 1.
func (s Size) LongestEdgePx(scale float64) int {
	px := int(max(s.Width, s.Height) * scale)
	if px < 1 {
		return 1
	}
	return px
}

func (s Size) String() string { return fmt.Sprintf("%gx%g", s.Width, s.Height) }

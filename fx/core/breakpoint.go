package core

import "github.com/go-gl/mathgl/mgl32"

// ScaleSelector picks one of two scales from the viewport width. Widths at or
// under the breakpoint select Small.
type ScaleSelector struct {
	Breakpoint float32
	Small      mgl32.Vec3
	Base       mgl32.Vec3

	base bool
}

func NewScaleSelector(breakpoint float32, small, base mgl32.Vec3, width float32) *ScaleSelector {
	return &ScaleSelector{
		Breakpoint: breakpoint,
		Small:      small,
		Base:       base,
		base:       width > breakpoint,
	}
}

// Current returns the scale selected by the last width seen.
func (s *ScaleSelector) Current() mgl32.Vec3 {
	if s.base {
		return s.Base
	}
	return s.Small
}

// IsBase reports whether the base scale is selected.
func (s *ScaleSelector) IsBase() bool { return s.base }

// Resize reports the new scale and whether it changed. It changes only when
// width crosses the breakpoint.
func (s *ScaleSelector) Resize(width float32) (mgl32.Vec3, bool) {
	wantBase := width > s.Breakpoint
	if wantBase == s.base {
		return s.Current(), false
	}
	s.base = wantBase
	return s.Current(), true
}

package lumen

import (
	"github.com/gekko3d/lumen/fx/pipeline"
)

// Viewport is the logical drawable size and the clamped device pixel ratio.
// Changed is set for the tick in which either changed.
type Viewport struct {
	Width      float32
	Height     float32
	PixelRatio float32
	MaxRatio   float32
	Changed    bool
}

// Set records a new size; it reports whether anything changed.
func (v *Viewport) Set(width, height, ratio float32) bool {
	if v.MaxRatio > 0 && ratio > v.MaxRatio {
		ratio = v.MaxRatio
	}
	if ratio <= 0 {
		ratio = 1
	}
	if width == v.Width && height == v.Height && ratio == v.PixelRatio {
		return false
	}
	v.Width, v.Height, v.PixelRatio = width, height, ratio
	v.Changed = true
	return true
}

// DevicePixels is the offscreen target size.
func (v *Viewport) DevicePixels() (uint32, uint32) {
	return pipeline.DevicePixels(v.Width, v.Height, v.PixelRatio)
}

type ViewportModule struct {
	Width    float32
	Height   float32
	MaxRatio float32
}

func (mod ViewportModule) Install(app *App, cmd *Commands) {
	vp := &Viewport{MaxRatio: mod.MaxRatio}
	vp.Set(mod.Width, mod.Height, 1)
	vp.Changed = false
	cmd.AddResources(vp)
	// the flag lives for exactly one tick
	app.UseSystem(
		System(func(v *Viewport) { v.Changed = false }).
			InStage(Finale).
			RunAlways(),
	)
}

package pipeline

import (
	"fmt"
	"math"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/gpu"
)

// DevicePixels converts a logical size to device pixels, at least 1x1.
func DevicePixels(width, height, pixelRatio float32) (uint32, uint32) {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	w := math.Round(float64(width * pixelRatio))
	h := math.Round(float64(height * pixelRatio))
	return uint32(max(w, 1)), uint32(max(h, 1))
}

// OffscreenCompositor renders every pairing into its own target once per
// tick.
type OffscreenCompositor struct {
	dev      gpu.Device
	programs *Programs
	log      Logger

	pairings []*Pairing
	width    uint32
	height   uint32
	logicalW float32
	compiled bool
}

func NewOffscreenCompositor(dev gpu.Device, programs *Programs, log Logger) *OffscreenCompositor {
	return &OffscreenCompositor{dev: dev, programs: programs, log: orNop(log)}
}

func (o *OffscreenCompositor) Add(p *Pairing) {
	o.pairings = append(o.pairings, p)
}

func (o *OffscreenCompositor) Len() int { return len(o.pairings) }

func (o *OffscreenCompositor) Pairing(i int) *Pairing { return o.pairings[i] }

// Target returns the offscreen target of pairing i.
func (o *OffscreenCompositor) Target(i int) gpu.RenderTarget { return o.pairings[i].Target() }

// Labels lists the pairing labels in index order.
func (o *OffscreenCompositor) Labels() []string {
	out := make([]string, len(o.pairings))
	for i, p := range o.pairings {
		out[i] = p.Label
	}
	return out
}

// Size is the current target size in device pixels.
func (o *OffscreenCompositor) Size() (uint32, uint32) { return o.width, o.height }

// CompileAll warms every program and allocates every target at the current
// viewport size.
func (o *OffscreenCompositor) CompileAll(width, height, pixelRatio float32) error {
	o.width, o.height = DevicePixels(width, height, pixelRatio)
	o.logicalW = width
	for _, p := range o.pairings {
		if err := p.Compile(o.dev, o.programs, o.width, o.height); err != nil {
			return err
		}
	}
	o.compiled = true
	o.log.Infof("compiled %d scenes, %d programs, targets %dx%d", len(o.pairings), o.programs.Compiled(), o.width, o.height)
	return nil
}

// Resize moves every target to the new device size in one pass. It reports
// whether anything changed; identical arguments are a no-op.
func (o *OffscreenCompositor) Resize(width, height, pixelRatio float32) (bool, error) {
	w, h := DevicePixels(width, height, pixelRatio)
	if !o.compiled || (w == o.width && h == o.height && width == o.logicalW) {
		return false, nil
	}
	for _, p := range o.pairings {
		if err := p.Resize(w, h, width); err != nil {
			return false, err
		}
	}
	o.log.Debugf("resized %d targets %dx%d -> %dx%d", len(o.pairings), o.width, o.height, w, h)
	o.width, o.height = w, h
	o.logicalW = width
	return true, nil
}

// Step advances every pairing's simulation.
func (o *OffscreenCompositor) Step(enc gpu.Encoder, tick core.Tick) error {
	for _, p := range o.pairings {
		if err := p.Compute.Step(enc, tick.Delta, tick.Elapsed); err != nil {
			return err
		}
	}
	return nil
}

// Animate runs every pairing's per-frame update.
func (o *OffscreenCompositor) Animate(tick core.Tick, pointer core.Pointer) {
	for _, p := range o.pairings {
		p.Animate(tick, pointer)
	}
}

// RenderAllOffscreen renders each pairing exactly once. No pass is left open
// when it returns.
func (o *OffscreenCompositor) RenderAllOffscreen(enc gpu.Encoder, cam *core.Camera) error {
	for _, p := range o.pairings {
		if err := p.Render(o.dev, enc, cam); err != nil {
			return err
		}
		if _, open := enc.Active(); open {
			return fmt.Errorf("scene %q left its target bound: %w", p.Label, gpu.ErrPassActive)
		}
	}
	return nil
}

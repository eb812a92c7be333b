package lumen

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/fx/core"
)

const (
	Key1 int = iota
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyLeft
	KeyRight
	KeyEscape
	keyCount
)

// Input is the raw per-tick device state, filled by the window module.
type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	CursorX, CursorY          float64
	CursorInside              bool
	WindowWidth, WindowHeight int
	CloseRequested            bool
}

// SetKey records the pressed state of key for this tick.
func (in *Input) SetKey(key int, down bool) {
	in.JustPressed[key] = down && !in.Pressed[key]
	in.JustReleased[key] = !down && in.Pressed[key]
	in.Pressed[key] = down
}

// normalizedCursor maps the cursor to [-1,1] with +Y up.
func (in *Input) normalizedCursor() (mgl32.Vec2, bool) {
	if in.WindowWidth <= 0 || in.WindowHeight <= 0 || !in.CursorInside {
		return mgl32.Vec2{}, false
	}
	x := float32(in.CursorX/float64(in.WindowWidth))*2 - 1
	y := 1 - float32(in.CursorY/float64(in.WindowHeight))*2
	return mgl32.Vec2{x, y}, true
}

// Pointer smooths the cursor into the sample animation strategies read.
type Pointer struct {
	core.Pointer
	raw  mgl32.Vec2
	seen bool
}

const (
	// per 60 Hz frame
	pointerSmoothing = 0.1
	pointerTrailing  = 0.05
	maxPointerSpeed  = 4
)

type InputModule struct{}

func (mod InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Input{}, &Pointer{})
	app.UseSystem(
		System(pointerSystem).
			InStage(Prelude).
			RunAlways(),
	)
}

func pointerSystem(t *Time, in *Input, p *Pointer) {
	samplePointer(p, in, float32(t.Dt.Seconds()))
}

func samplePointer(p *Pointer, in *Input, dt float32) {
	raw, ok := in.normalizedCursor()
	if !ok {
		raw = p.raw
	}
	if !p.seen {
		p.raw, p.Smoothed, p.Trailing = raw, raw, raw
		p.seen = ok
		return
	}
	if dt <= 0 {
		return
	}

	speed := raw.Sub(p.raw).Len() / dt
	p.raw = raw

	a := frameBlend(pointerSmoothing, dt)
	p.Smoothed = p.Smoothed.Add(raw.Sub(p.Smoothed).Mul(a))
	p.Trailing = p.Trailing.Add(p.Smoothed.Sub(p.Trailing).Mul(frameBlend(pointerTrailing, dt)))
	p.Velocity += (min(speed, maxPointerSpeed) - p.Velocity) * a
}

// frameBlend converts a per-frame lerp factor at 60 Hz into one for dt.
func frameBlend(factor, dt float32) float32 {
	return 1 - float32(math.Pow(float64(1-factor), float64(dt*60)))
}

package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Tick is one clock step in seconds.
type Tick struct {
	Delta   float32
	Elapsed float32
}

// Pointer is the smoothed pointer sample handed to animation strategies.
// Coordinates are normalized to [-1,1] with +Y up.
type Pointer struct {
	Smoothed mgl32.Vec2
	Trailing mgl32.Vec2
	Velocity float32
}

// Animator reorients an object once per tick.
type Animator interface {
	Animate(tr *Transform, tick Tick, pointer Pointer)
}

// Still leaves the transform untouched.
type Still struct{}

func (Still) Animate(*Transform, Tick, Pointer) {}

// Tumble rotates continuously at a rate in radians per second on each axis.
type Tumble struct {
	Rate mgl32.Vec3
}

func (a Tumble) Animate(tr *Transform, tick Tick, _ Pointer) {
	tr.Rotation = tr.Rotation.Add(a.Rate.Mul(tick.Delta))
}

// Spin rotates by a fixed step per tick regardless of delta.
type Spin struct {
	Step mgl32.Vec3
}

func (a Spin) Animate(tr *Transform, _ Tick, _ Pointer) {
	tr.Rotation = tr.Rotation.Add(a.Step)
}

// Sway sets the X rotation to Amplitude*sin(Elapsed*Frequency).
type Sway struct {
	Amplitude float32
	Frequency float32
}

func (a Sway) Animate(tr *Transform, tick Tick, _ Pointer) {
	tr.Rotation[0] = a.Amplitude * float32(math.Sin(float64(tick.Elapsed*a.Frequency)))
}

// PointerTilt leans towards the trailing pointer position, up to MaxAngle
// radians, on top of an optional base animator.
type PointerTilt struct {
	MaxAngle float32
	Base     Animator
}

func (a PointerTilt) Animate(tr *Transform, tick Tick, pointer Pointer) {
	if a.Base != nil {
		a.Base.Animate(tr, tick, pointer)
	}
	tr.Rotation[0] = -pointer.Trailing.Y() * a.MaxAngle
	tr.Rotation[1] = pointer.Trailing.X() * a.MaxAngle
}

package core

import (
	"fmt"
	"time"
)

// Ease maps linear progress in [0,1] to eased progress in [0,1]. Every Ease
// here is non-decreasing.
type Ease func(t float32) float32

func Linear(t float32) float32 { return t }

// Power1InOut is quadratic in-out.
func Power1InOut(t float32) float32 {
	if t < 0.5 {
		return 2 * t * t
	}
	u := -2*t + 2
	return 1 - u*u/2
}

// Power2InOut is cubic in-out.
func Power2InOut(t float32) float32 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// Power3InOut is quartic in-out.
func Power3InOut(t float32) float32 {
	if t < 0.5 {
		return 8 * t * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u*u/2
}

var easings = map[string]Ease{
	"linear":       Linear,
	"power1.inOut": Power1InOut,
	"power2.inOut": Power2InOut,
	"power3.inOut": Power3InOut,
}

// ParseEase resolves an easing by name.
func ParseEase(name string) (Ease, error) {
	if e, ok := easings[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("unknown easing %q", name)
}

// Tween drives a value from 0 to 1 over Duration.
type Tween struct {
	Duration time.Duration
	Ease     Ease

	elapsed time.Duration
	running bool
}

func NewTween(duration time.Duration, ease Ease) *Tween {
	if ease == nil {
		ease = Linear
	}
	return &Tween{Duration: duration, Ease: ease}
}

// Start restarts the tween from 0.
func (tw *Tween) Start() {
	tw.elapsed = 0
	tw.running = true
}

func (tw *Tween) Running() bool { return tw.running }

// Advance moves the tween forward and returns the eased value and whether the
// tween finished on this call.
func (tw *Tween) Advance(dt time.Duration) (value float32, done bool) {
	if !tw.running {
		return 0, false
	}
	if dt > 0 {
		tw.elapsed += dt
	}
	if tw.Duration <= 0 || tw.elapsed >= tw.Duration {
		tw.running = false
		return 1, true
	}
	t := float32(tw.elapsed.Seconds() / tw.Duration.Seconds())
	return tw.Ease(t), false
}

package lumen

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestInput_SetKeyEdges(t *testing.T) {
	var in Input
	in.SetKey(Key1, true)
	assert.True(t, in.JustPressed[Key1])
	assert.True(t, in.Pressed[Key1])

	in.SetKey(Key1, true)
	assert.False(t, in.JustPressed[Key1])

	in.SetKey(Key1, false)
	assert.True(t, in.JustReleased[Key1])
	assert.False(t, in.Pressed[Key1])
}

func TestInput_NormalizedCursor(t *testing.T) {
	in := Input{WindowWidth: 200, WindowHeight: 100, CursorInside: true, CursorX: 150, CursorY: 25}
	p, ok := in.normalizedCursor()
	assert.True(t, ok)
	assert.InDelta(t, 0.5, p.X(), 1e-6)
	assert.InDelta(t, 0.5, p.Y(), 1e-6)

	in.CursorInside = false
	_, ok = in.normalizedCursor()
	assert.False(t, ok)
}

func TestPointer_SmoothsAndTrails(t *testing.T) {
	in := Input{WindowWidth: 100, WindowHeight: 100, CursorInside: true, CursorX: 50, CursorY: 50}
	var p Pointer
	samplePointer(&p, &in, 1.0/60)
	assert.Equal(t, mgl32.Vec2{0, 0}, p.Smoothed)
	assert.Zero(t, p.Velocity)

	in.CursorX = 100
	samplePointer(&p, &in, 1.0/60)
	assert.InDelta(t, 0.1, p.Smoothed.X(), 1e-5)
	assert.InDelta(t, 0.005, p.Trailing.X(), 1e-5)
	assert.Greater(t, p.Velocity, float32(0))
	assert.LessOrEqual(t, p.Velocity, float32(maxPointerSpeed))

	for range 600 {
		samplePointer(&p, &in, 1.0/60)
	}
	assert.InDelta(t, 1, p.Smoothed.X(), 1e-3)
	assert.InDelta(t, 1, p.Trailing.X(), 1e-2)
	assert.InDelta(t, 0, p.Velocity, 1e-3)
}

func TestPointer_HoldsWhenCursorLeaves(t *testing.T) {
	in := Input{WindowWidth: 100, WindowHeight: 100, CursorInside: true, CursorX: 100, CursorY: 0}
	var p Pointer
	samplePointer(&p, &in, 1.0/60)
	in.CursorInside = false
	samplePointer(&p, &in, 1.0/60)
	assert.InDelta(t, 1, p.Smoothed.X(), 1e-6)
	assert.InDelta(t, 1, p.Smoothed.Y(), 1e-6)
}

package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is the perspective viewer shared by every scene.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32 // degrees
	Near     float32
	Far      float32
	Aspect   float32
}

func NewCamera() *Camera {
	return &Camera{
		Position: mgl32.Vec3{0, 0, 1.5},
		Target:   mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     35,
		Near:     0.1,
		Far:      100,
		Aspect:   1,
	}
}

// SetViewport updates the aspect ratio from a logical size.
func (c *Camera) SetViewport(width, height float32) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = width / height
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) Projection() mgl32.Mat4 {
	aspect := c.Aspect
	if aspect == 0 {
		aspect = 1
	}
	return depthZeroToOne.Mul4(mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far))
}

// depthZeroToOne remaps GL clip depth [-1,1] to the [0,1] range WebGPU clips against.
var depthZeroToOne = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

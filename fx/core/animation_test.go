package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestTumbleScalesWithDelta(t *testing.T) {
	tr := NewTransform()
	Tumble{Rate: mgl32.Vec3{0.05, -0.05, 0}}.Animate(tr, Tick{Delta: 2}, Pointer{})
	assert.InDelta(t, 0.1, tr.Rotation.X(), 1e-6)
	assert.InDelta(t, -0.1, tr.Rotation.Y(), 1e-6)
}

func TestSpinIgnoresDelta(t *testing.T) {
	tr := NewTransform()
	a := Spin{Step: mgl32.Vec3{0, 0.001, 0}}
	a.Animate(tr, Tick{Delta: 5}, Pointer{})
	a.Animate(tr, Tick{Delta: 0}, Pointer{})
	assert.InDelta(t, 0.002, tr.Rotation.Y(), 1e-7)
}

func TestSway(t *testing.T) {
	tr := NewTransform()
	Sway{Amplitude: 0.23, Frequency: 0.5}.Animate(tr, Tick{Elapsed: math.Pi}, Pointer{})
	assert.InDelta(t, 0.23, tr.Rotation.X(), 1e-5)
}

func TestPointerTilt(t *testing.T) {
	tr := NewTransform()
	a := PointerTilt{MaxAngle: 0.5, Base: Still{}}
	a.Animate(tr, Tick{}, Pointer{Trailing: mgl32.Vec2{1, 0.5}})
	assert.InDelta(t, -0.25, tr.Rotation.X(), 1e-6)
	assert.InDelta(t, 0.5, tr.Rotation.Y(), 1e-6)
}

func TestObjectToWorldAppliesScaleThenTranslate(t *testing.T) {
	tr := NewTransform()
	tr.Position = mgl32.Vec3{1, 0, 0}
	tr.Scale = mgl32.Vec3{2, 2, 2}
	p := tr.ObjectToWorld().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 3, p.X(), 1e-6)
}

func TestCameraProjectsIntoZeroToOneDepth(t *testing.T) {
	c := NewCamera()
	c.SetViewport(1920, 1080)
	assert.InDelta(t, 1920.0/1080.0, c.Aspect, 1e-6)

	clip := c.ViewProjection().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	depth := clip.Z() / clip.W()
	assert.Greater(t, depth, float32(0))
	assert.Less(t, depth, float32(1))
}

func TestGeometryTriangleList(t *testing.T) {
	g := &Geometry{
		Vertices: []mgl32.Vec3{{0, 0, 2}, {1, 0, 0}, {0, 1, 0}},
		Normals:  []mgl32.Vec3{{0, 0, 1}},
		Indices:  []uint32{0, 1, 2, 2, 1, 0},
	}
	assert.True(t, g.Usable())
	out := g.TriangleList()
	assert.Len(t, out, 6*MeshStride)
	assert.Equal(t, []float32{0, 0, 2, 0, 0, 1}, out[:MeshStride])
	// vertex 1 has no normal: normalized position
	assert.Equal(t, []float32{1, 0, 0, 1, 0, 0}, out[MeshStride:2*MeshStride])

	var empty *Geometry
	assert.False(t, empty.Usable())
}

func TestTextRendererLayout(t *testing.T) {
	tr, err := NewTextRenderer(nil, 24)
	assert.NoError(t, err)

	w, h := tr.MeasureText("ab", 1)
	assert.Greater(t, w, float32(0))
	assert.Greater(t, h, float32(0))

	verts := tr.BuildVertices([]TextItem{{Text: "ab", Scale: 1, Color: [4]float32{1, 1, 1, 1}}}, 800, 600)
	assert.Len(t, verts, 2*6*TextVertexStride)
	assert.Empty(t, tr.BuildVertices([]TextItem{{Text: "a"}}, 0, 600))
}

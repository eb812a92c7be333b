package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MeshStride is the float count per expanded mesh vertex: position, normal.
const MeshStride = 6

// Geometry is a decoded source mesh.
type Geometry struct {
	Name     string
	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
	Indices  []uint32
}

// Usable reports whether the geometry can seed particles and be drawn.
func (g *Geometry) Usable() bool {
	return g != nil && len(g.Vertices) > 0
}

// TriangleList expands the indexed mesh into interleaved position/normal
// floats, one entry per triangle corner. Missing normals fall back to the
// normalized position.
func (g *Geometry) TriangleList() []float32 {
	corner := func(out []float32, i uint32) []float32 {
		p := g.Vertices[i]
		var n mgl32.Vec3
		if int(i) < len(g.Normals) {
			n = g.Normals[i]
		} else if p.Len() > 0 {
			n = p.Normalize()
		}
		return append(out, p.X(), p.Y(), p.Z(), n.X(), n.Y(), n.Z())
	}

	if len(g.Indices) == 0 {
		out := make([]float32, 0, len(g.Vertices)*MeshStride)
		for i := range g.Vertices {
			out = corner(out, uint32(i))
		}
		return out
	}
	out := make([]float32, 0, len(g.Indices)*MeshStride)
	for _, i := range g.Indices {
		out = corner(out, i)
	}
	return out
}

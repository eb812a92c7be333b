package lumen

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/fx/core"
)

// Icosphere subdivides an icosahedron subdivisions times and projects every
// vertex onto a sphere of radius. Shared edges are split once, so the mesh
// stays indexed.
func Icosphere(name string, radius float32, subdivisions int) (*core.Geometry, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("icosphere %q: radius %v must be positive", name, radius)
	}
	if subdivisions < 0 || subdivisions > 7 {
		return nil, fmt.Errorf("icosphere %q: %d subdivisions out of range [0,7]", name, subdivisions)
	}

	t := float32((1 + math.Sqrt(5)) / 2)
	verts := []mgl32.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range verts {
		verts[i] = verts[i].Normalize()
	}
	faces := []uint32{
		0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
		1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
		3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
		4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
	}

	for range subdivisions {
		mid := make(map[[2]uint32]uint32, len(faces))
		midpoint := func(a, b uint32) uint32 {
			key := [2]uint32{min(a, b), max(a, b)}
			if i, ok := mid[key]; ok {
				return i
			}
			verts = append(verts, verts[a].Add(verts[b]).Normalize())
			i := uint32(len(verts) - 1)
			mid[key] = i
			return i
		}
		next := make([]uint32, 0, len(faces)*4)
		for f := 0; f < len(faces); f += 3 {
			a, b, c := faces[f], faces[f+1], faces[f+2]
			ab, bc, ca := midpoint(a, b), midpoint(b, c), midpoint(c, a)
			next = append(next, a, ab, ca, b, bc, ab, c, ca, bc, ab, bc, ca)
		}
		faces = next
	}

	g := &core.Geometry{Name: name, Indices: faces}
	g.Vertices = make([]mgl32.Vec3, len(verts))
	g.Normals = make([]mgl32.Vec3, len(verts))
	for i, v := range verts {
		g.Normals[i] = v
		g.Vertices[i] = v.Mul(radius)
	}
	return g, nil
}

// Box builds an axis-aligned box centered on the origin with flat normals,
// four vertices per face.
func Box(name string, size mgl32.Vec3) (*core.Geometry, error) {
	if size.X() <= 0 || size.Y() <= 0 || size.Z() <= 0 {
		return nil, fmt.Errorf("box %q: size %v must be positive", name, size)
	}
	h := size.Mul(0.5)
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	g := &core.Geometry{Name: name}
	for _, f := range faces {
		base := uint32(len(g.Vertices))
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := f.normal.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1]))
			g.Vertices = append(g.Vertices, mgl32.Vec3{p.X() * h.X(), p.Y() * h.Y(), p.Z() * h.Z()})
			g.Normals = append(g.Normals, f.normal)
		}
		g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return g, nil
}

// TorusKnotParams follow the usual (p, q) torus knot parametrization.
type TorusKnotParams struct {
	Radius          float32
	Tube            float32
	TubularSegments int
	RadialSegments  int
	P, Q            int
}

// TorusKnot sweeps a tube of radius Tube along a (P, Q) knot on a torus of
// radius Radius.
func TorusKnot(name string, k TorusKnotParams) (*core.Geometry, error) {
	if k.Radius <= 0 || k.Tube <= 0 || k.TubularSegments < 3 || k.RadialSegments < 3 {
		return nil, fmt.Errorf("torus knot %q: invalid parameters %+v", name, k)
	}
	if k.P == 0 || k.Q == 0 {
		return nil, fmt.Errorf("torus knot %q: p and q must be non-zero", name)
	}

	curve := func(u float64) mgl32.Vec3 {
		p, q := float64(k.P), float64(k.Q)
		quOverP := q / p * u
		cs := math.Cos(quOverP)
		r := float64(k.Radius)
		return mgl32.Vec3{
			float32(r * (2 + cs) * 0.5 * math.Cos(u)),
			float32(r * (2 + cs) * math.Sin(u) * 0.5),
			float32(r * math.Sin(quOverP) * 0.5),
		}
	}

	g := &core.Geometry{Name: name}
	for i := 0; i <= k.TubularSegments; i++ {
		u := float64(i) / float64(k.TubularSegments) * float64(k.P) * 2 * math.Pi
		p1 := curve(u)
		p2 := curve(u + 0.01)
		t := p2.Sub(p1)
		n := p2.Add(p1)
		b := t.Cross(n).Normalize()
		n = b.Cross(t).Normalize()

		for j := 0; j <= k.RadialSegments; j++ {
			v := float64(j) / float64(k.RadialSegments) * 2 * math.Pi
			cx := float32(-float64(k.Tube) * math.Cos(v))
			cy := float32(float64(k.Tube) * math.Sin(v))
			pos := p1.Add(n.Mul(cx)).Add(b.Mul(cy))
			g.Vertices = append(g.Vertices, pos)
			g.Normals = append(g.Normals, pos.Sub(p1).Normalize())
		}
	}

	ring := uint32(k.RadialSegments + 1)
	for j := uint32(1); j <= uint32(k.TubularSegments); j++ {
		for i := uint32(1); i <= uint32(k.RadialSegments); i++ {
			a := ring*(j-1) + (i - 1)
			b := ring*j + (i - 1)
			c := ring*j + i
			d := ring*(j-1) + i
			g.Indices = append(g.Indices, a, b, d, b, c, d)
		}
	}
	return g, nil
}

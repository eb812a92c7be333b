package core

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// TexelStride is the number of float32 channels per simulation texel (RGBA).
const TexelStride = 4

// GridSide returns the side of the smallest square grid holding count particles.
func GridSide(count int) int {
	if count <= 0 {
		return 0
	}
	side := int(math.Ceil(math.Sqrt(float64(count))))
	// float rounding can land one off for large counts
	for side*side < count {
		side++
	}
	for side > 1 && (side-1)*(side-1) >= count {
		side--
	}
	return side
}

// ParticleGrid is the CPU image of the particle state: positions
// in RGB and the life value in A, one texel per particle, row major.
type ParticleGrid struct {
	Side   int
	Count  int
	State  []float32
	Origin []float32
}

// SeedGrid lays out source positions in a side x side grid. Slots past the
// last source vertex duplicate that vertex. Life values come from rng so
// identical seeds give identical grids.
func SeedGrid(positions []mgl32.Vec3, rng *rand.Rand) ParticleGrid {
	count := len(positions)
	side := GridSide(count)
	slots := side * side

	grid := ParticleGrid{
		Side:   side,
		Count:  count,
		State:  make([]float32, slots*TexelStride),
		Origin: make([]float32, slots*TexelStride),
	}
	if count == 0 {
		return grid
	}

	for i := 0; i < slots; i++ {
		src := positions[min(i, count-1)]
		life := rng.Float32()
		o := i * TexelStride

		grid.Origin[o+0] = src.X()
		grid.Origin[o+1] = src.Y()
		grid.Origin[o+2] = src.Z()
		grid.Origin[o+3] = life

		copy(grid.State[o:o+TexelStride], grid.Origin[o:o+TexelStride])
	}
	return grid
}

// Texel returns the RGBA texel at slot i of a packed texel slice.
func Texel(texels []float32, i int) [4]float32 {
	o := i * TexelStride
	return [4]float32{texels[o], texels[o+1], texels[o+2], texels[o+3]}
}

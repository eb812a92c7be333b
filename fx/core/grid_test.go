package core

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridSide(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 2: 2, 4: 2, 5: 3, 9: 3, 10: 4, 10000: 100, 10001: 101}
	for count, want := range cases {
		assert.Equal(t, want, GridSide(count), "count %d", count)
	}
}

func TestGridSideIsSmallestSquare(t *testing.T) {
	for count := 1; count < 5000; count++ {
		side := GridSide(count)
		require.GreaterOrEqual(t, side*side, count)
		require.Less(t, (side-1)*(side-1), count)
	}
}

func TestSeedGridPadsWithLastVertex(t *testing.T) {
	positions := []mgl32.Vec3{{1, 0, 0}, {0, 2, 0}, {0, 0, 3}, {4, 5, 6}, {7, 8, 9}}
	grid := SeedGrid(positions, rand.New(rand.NewSource(1)))

	require.Equal(t, 3, grid.Side)
	require.Equal(t, 5, grid.Count)
	require.Len(t, grid.State, 9*TexelStride)

	for i := 0; i < 5; i++ {
		texel := Texel(grid.Origin, i)
		assert.Equal(t, positions[i], mgl32.Vec3{texel[0], texel[1], texel[2]})
	}
	for i := 5; i < 9; i++ {
		texel := Texel(grid.Origin, i)
		assert.Equal(t, positions[4], mgl32.Vec3{texel[0], texel[1], texel[2]}, "slot %d", i)
	}
}

func TestSeedGridLifeAndStateCopy(t *testing.T) {
	positions := make([]mgl32.Vec3, 50)
	for i := range positions {
		positions[i] = mgl32.Vec3{float32(i), 0, 0}
	}
	grid := SeedGrid(positions, rand.New(rand.NewSource(7)))

	assert.Equal(t, grid.Origin, grid.State)
	for i := 0; i < grid.Side*grid.Side; i++ {
		life := Texel(grid.State, i)[3]
		assert.GreaterOrEqual(t, life, float32(0))
		assert.Less(t, life, float32(1))
	}

	again := SeedGrid(positions, rand.New(rand.NewSource(7)))
	assert.Equal(t, grid.State, again.State)
}

func TestSeedGridEmpty(t *testing.T) {
	grid := SeedGrid(nil, rand.New(rand.NewSource(1)))
	assert.Zero(t, grid.Side)
	assert.Empty(t, grid.State)
}

func TestRenderAttributesTexelCentres(t *testing.T) {
	attrs := NewRenderAttributes(4, 13, rand.New(rand.NewSource(3)))

	assert.Equal(t, 13, attrs.Count)
	require.Len(t, attrs.UV, 32)
	assert.InDelta(t, 0.125, attrs.UV[0], 1e-6)
	assert.InDelta(t, 0.125, attrs.UV[1], 1e-6)
	// slot 6 is x=2, y=1
	assert.InDelta(t, 0.625, attrs.UV[12], 1e-6)
	assert.InDelta(t, 0.375, attrs.UV[13], 1e-6)

	inter := attrs.Interleaved()
	require.Len(t, inter, 16*AttributeStride)
	assert.Equal(t, attrs.UV[12], inter[6*AttributeStride])
	assert.Equal(t, attrs.Size[6], inter[6*AttributeStride+2])
}

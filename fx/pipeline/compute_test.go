package pipeline

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/gpu"
	"github.com/gekko3d/lumen/fx/gpu/gputest"
)

func newEngine(t *testing.T, dev *gputest.Device, seed int64) (*ComputeEngine, core.ParticleGrid) {
	t.Helper()
	grid := core.SeedGrid(tetra().Vertices, rand.New(rand.NewSource(seed)))
	flow := core.FlowConfig{Influence: 0.5, Strength: 0.2, Frequency: 1}
	c := NewComputeEngine("scene", grid, flow, seed)
	require.NoError(t, c.Build(dev, NewPrograms(dev)))
	return c, grid
}

func TestComputePingPong(t *testing.T) {
	dev := gputest.NewDevice()
	c, grid := newEngine(t, dev, 7)
	assert.Equal(t, 3, c.Side())
	assert.Equal(t, 5, c.Count())
	assert.Equal(t, grid.State, c.CurrentTexture().(*gputest.StateTexture).Texels)

	seen := []gpu.Texture{c.CurrentTexture()}
	for i := 0; i < 4; i++ {
		enc := beginFrame(t, dev)
		require.NoError(t, c.Step(enc, 0.016, float32(i)*0.016))
		require.NoError(t, enc.Submit())

		d := dev.LastFrame().Dispatches()
		require.Len(t, d, 1)
		assert.Same(t, c.CurrentTexture(), gpu.Texture(d[0].Output))
		assert.NotSame(t, d[0].Textures[0], d[0].Textures[1])
		assert.NotContains(t, d[0].Textures, gpu.Texture(d[0].Output))
		assert.Equal(t, [2]uint32{1, 1}, d[0].Groups)

		assert.NotSame(t, seen[len(seen)-1], c.CurrentTexture(), "current flips every step")
		seen = append(seen, c.CurrentTexture())
	}
	assert.Same(t, seen[0], seen[2])
	assert.Equal(t, 4, c.Steps())
	assert.False(t, c.OnCPU())
}

func TestComputeKernelMatchesCPUFallback(t *testing.T) {
	gpuDev := gputest.NewDevice()
	gpuDev.Kernels[ProgramSimulate] = flowKernel(3)
	onGPU, _ := newEngine(t, gpuDev, 3)

	cpuDev := gputest.NewDevice()
	cpuDev.Compute = false
	onCPU, _ := newEngine(t, cpuDev, 3)
	require.True(t, onCPU.OnCPU())
	assert.Nil(t, cpuDev.Program(ProgramSimulate), "no kernel is compiled without compute")

	for i := 0; i < 5; i++ {
		elapsed := float32(i) * 0.02
		for _, e := range []struct {
			dev *gputest.Device
			c   *ComputeEngine
		}{{gpuDev, onGPU}, {cpuDev, onCPU}} {
			enc := beginFrame(t, e.dev)
			require.NoError(t, e.c.Step(enc, 0.02, elapsed))
			require.NoError(t, enc.Submit())
		}
	}
	assert.Empty(t, cpuDev.LastFrame().Dispatches())
	assert.InDeltaSlice(t,
		onCPU.CurrentTexture().(*gputest.StateTexture).Texels,
		onGPU.CurrentTexture().(*gputest.StateTexture).Texels, 1e-6)
}

func TestComputeUniformsCarryTickAndFlow(t *testing.T) {
	dev := gputest.NewDevice()
	c, _ := newEngine(t, dev, 1)
	enc := beginFrame(t, dev)
	require.NoError(t, c.Step(enc, 0.25, 2))
	require.NoError(t, enc.Submit())

	delta, elapsed, flow := DecodeSimulateUniforms(dev.LastFrame().Dispatches()[0].Uniforms)
	assert.Equal(t, float32(0.25), delta)
	assert.Equal(t, float32(2), elapsed)
	assert.Equal(t, core.FlowConfig{Influence: 0.5, Strength: 0.2, Frequency: 1}, flow)
}

func TestComputeRejectsEmptyGrid(t *testing.T) {
	c := NewComputeEngine("empty", core.SeedGrid(nil, rand.New(rand.NewSource(1))), core.FlowConfig{}, 1)
	dev := gputest.NewDevice()
	assert.Error(t, c.Build(dev, NewPrograms(dev)))
}

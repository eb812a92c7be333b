package pipeline

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/gpu"
	"github.com/gekko3d/lumen/fx/gpu/gputest"
)

func tetra() *core.Geometry {
	return &core.Geometry{
		Name: "tetra",
		Vertices: []mgl32.Vec3{
			{1, 1, 1}, {-1, -1, 1}, {-1, 1, -1}, {1, -1, -1}, {0, 0, 1},
		},
		Indices: []uint32{0, 1, 2, 0, 3, 1, 0, 2, 3, 1, 3, 2},
	}
}

func testPairingConfig(label string) PairingConfig {
	return PairingConfig{
		Label:      label,
		Geometry:   "tetra",
		Breakpoint: 640,
		BaseScale:  mgl32.Vec3{1, 1, 1},
		SmallScale: mgl32.Vec3{0.5, 0.5, 0.5},
		Flow:       core.FlowConfig{Influence: 0.5, Strength: 0.2, Frequency: 1},
		Particles:  ParticleShading{Size: 2, Frequency: 1, Amplitude: 0.1, MaxDistance: 3},
		ClearColor: [4]float32{0, 0, 0, 1},
	}
}

// flowKernel runs the CPU flow model as the simulate program.
func flowKernel(seed int64) gputest.Kernel {
	model := core.NewFlowModel(seed)
	return func(inputs [][]float32, uniforms []byte, out []float32) {
		delta, elapsed, flow := DecodeSimulateUniforms(uniforms)
		model.Step(inputs[0], inputs[1], out, delta, elapsed, flow)
	}
}

// testScenes builds n compiled pairings on a recording device.
func testScenes(t *testing.T, dev *gputest.Device, n int) (*OffscreenCompositor, *Programs) {
	t.Helper()
	programs := NewPrograms(dev)
	off := NewOffscreenCompositor(dev, programs, nil)
	for i := 0; i < n; i++ {
		p, err := NewPairing(i, testPairingConfig(string(rune('a'+i))), tetra(), 800, int64(i+1))
		require.NoError(t, err)
		off.Add(p)
	}
	require.NoError(t, off.CompileAll(8, 6, 1))
	return off, programs
}

func contentOf(t gpu.Texture) []string {
	return t.(*gputest.RenderTarget).Content()
}

func beginFrame(t *testing.T, dev *gputest.Device) gpu.Encoder {
	t.Helper()
	enc, err := dev.BeginFrame()
	require.NoError(t, err)
	return enc
}

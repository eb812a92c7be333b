package pipeline

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/gpu"
	"github.com/gekko3d/lumen/fx/gpu/gputest"
)

func renderTick(t *testing.T, dev *gputest.Device, off *OffscreenCompositor, tick core.Tick) *gputest.Frame {
	t.Helper()
	enc := beginFrame(t, dev)
	require.NoError(t, off.Step(enc, tick))
	off.Animate(tick, core.Pointer{})
	require.NoError(t, off.RenderAllOffscreen(enc, core.NewCamera()))
	require.NoError(t, enc.Submit())
	return dev.LastFrame()
}

func TestNewPairingRejectsMissingGeometry(t *testing.T) {
	_, err := NewPairing(0, testPairingConfig("a"), nil, 800, 1)
	assert.ErrorIs(t, err, ErrMissingGeometry)
	_, err = NewPairing(0, testPairingConfig("a"), &core.Geometry{Name: "empty"}, 800, 1)
	assert.ErrorIs(t, err, ErrMissingGeometry)
}

func TestPairingRendersBackdropWithoutItself(t *testing.T) {
	dev := gputest.NewDevice()
	off, _ := testScenes(t, dev, 1)
	p := off.Pairing(0)

	frame := renderTick(t, dev, off, core.Tick{Delta: 0.016, Elapsed: 0.016})

	assert.Equal(t, []string{"scene 0 particles"}, contentOf(p.Refract.Backdrop()))
	assert.Equal(t, []string{"scene 0 particles", "scene 0 refract"}, contentOf(p.Target()))
	assert.False(t, p.Refract.Hidden())

	draws := frame.DrawsInto(p.Target())
	require.Len(t, draws, 2)
	assert.Equal(t, [][]string{{"scene 0 particles"}}, draws[1].Sampled, "glass samples the capture")

	passes := frame.Passes()
	require.Len(t, passes, 2)
	assert.Same(t, p.Refract.Backdrop(), gpu.RenderTarget(passes[0].Target))
	assert.Same(t, p.Target(), gpu.RenderTarget(passes[1].Target))
	assert.Equal(t, gpu.ClearAll, passes[0].Clear)
}

func TestCaptureRestoresVisibilityOnError(t *testing.T) {
	dev := gputest.NewDevice()
	off, _ := testScenes(t, dev, 1)
	r := off.Pairing(0).Refract

	boom := errors.New("boom")
	enc := beginFrame(t, dev)
	err := r.Capture(enc, gpu.TransparentBlack, func(gpu.Pass) error {
		assert.True(t, r.Hidden())
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, r.Hidden())
	_, open := enc.Active()
	assert.False(t, open)
}

func TestParticlesRebindNewestState(t *testing.T) {
	dev := gputest.NewDevice()
	off, _ := testScenes(t, dev, 1)
	p := off.Pairing(0)
	assert.Nil(t, p.Particles.State())

	frame := renderTick(t, dev, off, core.Tick{Delta: 0.016, Elapsed: 0.5})
	first := p.Particles.State()
	assert.Same(t, p.Compute.CurrentTexture(), first)
	assert.Equal(t, float32(0.5), p.Particles.Elapsed())

	draw := frame.DrawsInto(p.Target())[0]
	assert.Same(t, first, draw.Textures[0])
	assert.Equal(t, uint32(0), draw.First)
	assert.Equal(t, uint32(5), draw.Count)
	assert.Equal(t, float32(8), gpu.Float32At(draw.Uniforms, 52))
	assert.Equal(t, float32(6), gpu.Float32At(draw.Uniforms, 53))
	assert.Equal(t, float32(3), gpu.Float32At(draw.Uniforms, 56), "grid side")

	renderTick(t, dev, off, core.Tick{Delta: 0.016, Elapsed: 0.516})
	assert.NotSame(t, first, p.Particles.State())
}

func TestPairingScaleFollowsBreakpoint(t *testing.T) {
	p, err := NewPairing(0, testPairingConfig("a"), tetra(), 800, 1)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, p.Particles.Scale())

	assert.True(t, p.Particles.ResizeScale(600))
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, p.Particles.Scale())
	assert.False(t, p.Particles.ResizeScale(500))
	assert.True(t, p.Refract.ResizeScale(600), "glass has its own selector")
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, p.Refract.Transform.Scale)
}

func TestPairingShadingFactors(t *testing.T) {
	cfg := testPairingConfig("plain")
	cfg.Factors = &ShadingFactors{}
	p, err := NewPairing(0, cfg, tetra(), 800, 1)
	require.NoError(t, err)
	assert.Zero(t, p.Refract.Shading().LightFactor)
	assert.Zero(t, p.Refract.Shading().FresnelFactor)
	assert.Equal(t, DefaultRefractiveShading().IOR, p.Refract.Shading().IOR)
}

func TestRefractOffsetFollowsPointer(t *testing.T) {
	p, err := NewPairing(0, testPairingConfig("a"), tetra(), 800, 1)
	require.NoError(t, err)
	p.Animate(core.Tick{Delta: 0.016}, core.Pointer{Velocity: 2})
	assert.InDelta(t, 0.25, p.Refract.Offset(), 1e-6)
}

func TestOffscreenRendersEveryPairingOnce(t *testing.T) {
	dev := gputest.NewDevice()
	off, programs := testScenes(t, dev, 3)
	assert.Equal(t, []string{"a", "b", "c"}, off.Labels())
	assert.Equal(t, 3, programs.Compiled(), "simulate, particles and refract are shared")

	frame := renderTick(t, dev, off, core.Tick{Delta: 0.016, Elapsed: 0.016})
	assert.Len(t, frame.Dispatches(), 3)
	assert.Len(t, frame.Passes(), 6)
	for i := 0; i < off.Len(); i++ {
		assert.Len(t, frame.DrawsInto(off.Target(i)), 2, "scene %d", i)
		assert.Equal(t, []string{
			off.Pairing(i).Particles.VertexLabel(),
			off.Pairing(i).Refract.VertexLabel(),
		}, contentOf(off.Target(i)))
	}
}

func TestOffscreenResizeIsIdempotent(t *testing.T) {
	dev := gputest.NewDevice()
	off, _ := testScenes(t, dev, 2)

	changed, err := off.Resize(8, 6, 1)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = off.Resize(8, 6, 2)
	require.NoError(t, err)
	assert.True(t, changed)
	w, h := off.Size()
	assert.Equal(t, [2]uint32{16, 12}, [2]uint32{w, h})

	changed, err = off.Resize(8, 6, 2)
	require.NoError(t, err)
	assert.False(t, changed)

	for i := 0; i < off.Len(); i++ {
		rt := off.Target(i).(*gputest.RenderTarget)
		assert.Equal(t, 1, rt.Resizes)
		tw, th := rt.Size()
		assert.Equal(t, [2]uint32{16, 12}, [2]uint32{tw, th})
		bw, _ := off.Pairing(i).Refract.Backdrop().Size()
		assert.Equal(t, uint32(16), bw)
	}
}

func TestDevicePixels(t *testing.T) {
	w, h := DevicePixels(800, 600, 1.5)
	assert.Equal(t, uint32(1200), w)
	assert.Equal(t, uint32(900), h)
	w, h = DevicePixels(0, 0, 2)
	assert.Equal(t, uint32(1), w)
	assert.Equal(t, uint32(1), h)
	w, _ = DevicePixels(101, 1, 0)
	assert.Equal(t, uint32(101), w)
}

func TestProgramCompileFailureIsReported(t *testing.T) {
	dev := gputest.NewDevice()
	dev.FailPrograms[ProgramRefract] = errors.New("bad wgsl")
	programs := NewPrograms(dev)
	off := NewOffscreenCompositor(dev, programs, nil)
	p, err := NewPairing(0, testPairingConfig("a"), tetra(), 800, 1)
	require.NoError(t, err)
	off.Add(p)

	err = off.CompileAll(8, 6, 1)
	assert.ErrorContains(t, err, `compile program "refract"`)
}

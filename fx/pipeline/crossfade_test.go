package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/gpu"
	"github.com/gekko3d/lumen/fx/gpu/gputest"
)

type crossfadeRig struct {
	dev  *gputest.Device
	off  *OffscreenCompositor
	tr   *core.Transition
	fade *CrossfadeCompositor
}

func newCrossfadeRig(t *testing.T, scenes int) *crossfadeRig {
	t.Helper()
	dev := gputest.NewDevice()
	off, programs := testScenes(t, dev, scenes)
	tr := core.NewTransition(scenes, 0)
	fade := NewCrossfadeCompositor(off, tr, nil)
	w, h := off.Size()
	require.NoError(t, fade.Build(dev, programs, w, h))
	return &crossfadeRig{dev: dev, off: off, tr: tr, fade: fade}
}

// tick renders every scene and composites. before runs first, the way
// switch requests are handled ahead of rendering.
func (r *crossfadeRig) tick(t *testing.T, before func(gpu.Encoder)) *gputest.Frame {
	t.Helper()
	enc := beginFrame(t, r.dev)
	if before != nil {
		before(enc)
	}
	tick := core.Tick{Delta: 0.016, Elapsed: 0.016}
	require.NoError(t, r.off.Step(enc, tick))
	r.off.Animate(tick, core.Pointer{})
	require.NoError(t, r.off.RenderAllOffscreen(enc, core.NewCamera()))
	require.NoError(t, r.fade.Composite(enc))
	require.NoError(t, enc.Submit())
	return r.dev.LastFrame()
}

func compositeDraw(t *testing.T, f *gputest.Frame) *gputest.Command {
	t.Helper()
	draws := f.DrawsInto(nil)
	require.Len(t, draws, 1)
	return draws[0]
}

func TestCrossfadeBuildChecksSceneCount(t *testing.T) {
	dev := gputest.NewDevice()
	off, programs := testScenes(t, dev, 2)
	fade := NewCrossfadeCompositor(off, core.NewTransition(3, 0), nil)
	assert.Error(t, fade.Build(dev, programs, 8, 6))
}

func TestCrossfadeIdleShowsActiveScene(t *testing.T) {
	r := newCrossfadeRig(t, 2)
	frame := r.tick(t, nil)

	in := r.fade.LastComposite()
	assert.Same(t, r.off.Target(0), in.From)
	assert.Same(t, r.off.Target(0), in.To)
	assert.Zero(t, in.Progress)

	draw := compositeDraw(t, frame)
	assert.Equal(t, ProgramCrossfade, draw.Program.Label())
	assert.Zero(t, gpu.Float32At(draw.Uniforms, 0))
	assert.Equal(t, contentOf(r.off.Target(0)), draw.Sampled[0])
	assert.Equal(t, []string{"fullscreen quad"}, r.dev.Surface())
}

func TestCrossfadeBlendEndpoints(t *testing.T) {
	r := newCrossfadeRig(t, 2)
	frame := r.tick(t, func(enc gpu.Encoder) {
		sw, err := r.fade.Switch(enc, 1)
		require.NoError(t, err)
		assert.False(t, sw.Interrupted)
	})
	in := r.fade.LastComposite()
	assert.Same(t, r.off.Target(0), in.From, "progress 0 shows the old scene")
	assert.Same(t, r.off.Target(1), in.To)
	assert.Zero(t, gpu.Float32At(compositeDraw(t, frame).Uniforms, 0))

	r.tr.Advance(1)
	frame = r.tick(t, nil)
	assert.Equal(t, float32(1), gpu.Float32At(compositeDraw(t, frame).Uniforms, 0))
	assert.Same(t, r.off.Target(1), r.fade.LastComposite().To)

	require.True(t, r.tr.Complete())
	r.tick(t, nil)
	in = r.fade.LastComposite()
	assert.Same(t, r.off.Target(1), in.From)
	assert.Same(t, r.off.Target(1), in.To)
}

func TestCrossfadeRapidSwitchFreezesBlend(t *testing.T) {
	r := newCrossfadeRig(t, 3)
	r.tick(t, func(enc gpu.Encoder) {
		_, err := r.fade.Switch(enc, 1)
		require.NoError(t, err)
	})
	r.tr.Advance(0.3)

	frame := r.tick(t, func(enc gpu.Encoder) {
		sw, err := r.fade.Switch(enc, 2)
		require.NoError(t, err)
		assert.True(t, sw.Interrupted)
	})

	snapshot := r.fade.Snapshot()
	freeze := frame.DrawsInto(snapshot)
	require.Len(t, freeze, 1)
	assert.Equal(t, ProgramCrossfadeSnapshot, freeze[0].Program.Label())
	assert.InDelta(t, 0.3, gpu.Float32At(freeze[0].Uniforms, 0), 1e-6)
	assert.Same(t, r.off.Target(0), freeze[0].Textures[0])
	assert.Same(t, r.off.Target(1), freeze[0].Textures[1])

	st := r.tr.State()
	assert.True(t, st.From.Snapshot)
	assert.Equal(t, 2, st.Pending)

	in := r.fade.LastComposite()
	assert.Same(t, snapshot, in.From, "new transition starts from the frozen blend")
	assert.Same(t, r.off.Target(2), in.To)
	assert.Zero(t, gpu.Float32At(compositeDraw(t, frame).Uniforms, 0))
	assert.Equal(t, []string{"fullscreen quad"}, compositeDraw(t, frame).Sampled[0])
}

func TestCrossfadeFailedFreezeKeepsTransition(t *testing.T) {
	r := newCrossfadeRig(t, 3)
	r.tick(t, func(enc gpu.Encoder) {
		_, err := r.fade.Switch(enc, 1)
		require.NoError(t, err)
	})
	r.tr.Advance(0.3)
	before := r.tr.State()
	snapshot := r.fade.Snapshot()

	enc := beginFrame(t, r.dev)
	pass, err := enc.BeginPass(nil, gpu.ClearNone, gpu.TransparentBlack)
	require.NoError(t, err)
	_, err = r.fade.Switch(enc, 2)
	require.ErrorIs(t, err, gpu.ErrPassActive)
	require.NoError(t, pass.End())
	require.NoError(t, enc.Submit())

	assert.Equal(t, before, r.tr.State())
	assert.Same(t, snapshot, r.fade.Snapshot())

	frame := r.tick(t, func(enc gpu.Encoder) {
		sw, err := r.fade.Switch(enc, 2)
		require.NoError(t, err)
		assert.True(t, sw.Interrupted)
	})
	freeze := frame.DrawsInto(r.fade.Snapshot())
	require.Len(t, freeze, 1)
	assert.InDelta(t, 0.3, gpu.Float32At(freeze[0].Uniforms, 0), 1e-6)
}

func TestCrossfadeSecondInterruptUsesOtherSnapshot(t *testing.T) {
	r := newCrossfadeRig(t, 3)
	r.tick(t, func(enc gpu.Encoder) {
		_, err := r.fade.Switch(enc, 1)
		require.NoError(t, err)
	})
	r.tr.Advance(0.3)
	r.tick(t, func(enc gpu.Encoder) {
		_, err := r.fade.Switch(enc, 2)
		require.NoError(t, err)
	})
	first := r.fade.Snapshot()
	r.tr.Advance(0.5)

	frame := r.tick(t, func(enc gpu.Encoder) {
		_, err := r.fade.Switch(enc, 0)
		require.NoError(t, err)
	})
	second := r.fade.Snapshot()
	assert.NotSame(t, first, second)

	freeze := frame.DrawsInto(second)
	require.Len(t, freeze, 1)
	assert.Same(t, first, freeze[0].Textures[0])
	assert.Same(t, r.off.Target(2), freeze[0].Textures[1])
}

func TestCrossfadeSwitchAtZeroProgressKeepsFrom(t *testing.T) {
	r := newCrossfadeRig(t, 3)
	frame := r.tick(t, func(enc gpu.Encoder) {
		_, err := r.fade.Switch(enc, 1)
		require.NoError(t, err)
		sw, err := r.fade.Switch(enc, 2)
		require.NoError(t, err)
		assert.False(t, sw.Interrupted)
	})
	assert.Empty(t, frame.DrawsInto(r.fade.Snapshot()))
	assert.Same(t, r.off.Target(0), r.fade.LastComposite().From)
	assert.Same(t, r.off.Target(2), r.fade.LastComposite().To)
}

func TestCrossfadeResizeCarriesSnapshot(t *testing.T) {
	r := newCrossfadeRig(t, 3)
	r.tick(t, func(enc gpu.Encoder) {
		_, err := r.fade.Switch(enc, 1)
		require.NoError(t, err)
	})
	r.tr.Advance(0.4)
	r.tick(t, func(enc gpu.Encoder) {
		_, err := r.fade.Switch(enc, 2)
		require.NoError(t, err)
	})
	frozen := r.fade.Snapshot()

	frame := r.tick(t, func(enc gpu.Encoder) {
		require.NoError(t, r.fade.Resize(enc, 16, 12))
		_, err := r.off.Resize(16, 12, 1)
		require.NoError(t, err)
	})

	carried := r.fade.Snapshot()
	assert.NotSame(t, frozen, carried)
	w, h := carried.Size()
	assert.Equal(t, [2]uint32{16, 12}, [2]uint32{w, h})
	w, h = frozen.Size()
	assert.Equal(t, [2]uint32{16, 12}, [2]uint32{w, h})

	blit := frame.DrawsInto(carried)
	require.Len(t, blit, 1)
	assert.Equal(t, [][]string{{"fullscreen quad"}, {"fullscreen quad"}}, blit[0].Sampled)
	assert.Equal(t, []string{"fullscreen quad"}, contentOf(carried))
	assert.Same(t, carried, r.fade.LastComposite().From)
}

func TestCrossfadeResizeWhenIdle(t *testing.T) {
	r := newCrossfadeRig(t, 2)
	frame := r.tick(t, func(enc gpu.Encoder) {
		require.NoError(t, r.fade.Resize(enc, 16, 12))
		require.NoError(t, r.fade.Resize(enc, 16, 12))
	})
	for _, cmd := range frame.Draws() {
		assert.NotEqual(t, ProgramCrossfadeSnapshot, cmd.Program.Label())
	}
	assert.Equal(t, 1, r.fade.Snapshot().(*gputest.RenderTarget).Resizes)
}

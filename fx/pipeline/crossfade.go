package pipeline

import (
	"fmt"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/gpu"
)

// Sources hands out the offscreen target of each scene.
type Sources interface {
	Target(i int) gpu.RenderTarget
	Len() int
}

// CompositeInputs records what the last composite blended.
type CompositeInputs struct {
	From     gpu.Texture
	To       gpu.Texture
	Progress float32
}

// CrossfadeCompositor blends two scene images onto the surface. When a switch
// interrupts a running transition the on-screen blend is frozen into a
// snapshot target, which becomes the new From image.
type CrossfadeCompositor struct {
	sources    Sources
	transition *core.Transition
	log        Logger

	dev          gpu.Device
	surfaceProg  gpu.Program
	snapshotProg gpu.Program
	quad         gpu.Buffer
	// composite, freeze and blit each get a buffer: queue writes land before
	// any command of the frame runs.
	composite gpu.Buffer
	freeze    gpu.Buffer
	blit      gpu.Buffer

	snapshots [2]gpu.RenderTarget
	snap      int
	last      CompositeInputs
}

func NewCrossfadeCompositor(sources Sources, transition *core.Transition, log Logger) *CrossfadeCompositor {
	return &CrossfadeCompositor{sources: sources, transition: transition, log: orNop(log)}
}

// Build compiles both blend programs and allocates the snapshot pair at
// width x height device pixels.
func (c *CrossfadeCompositor) Build(dev gpu.Device, programs *Programs, width, height uint32) error {
	if c.sources.Len() != c.transition.Count() {
		return fmt.Errorf("crossfade: %d scenes for a %d-way transition", c.sources.Len(), c.transition.Count())
	}
	c.dev = dev
	var err error
	if c.surfaceProg, err = programs.get(crossfadeDesc(gpu.DestinationSurface)); err != nil {
		return err
	}
	if c.snapshotProg, err = programs.get(crossfadeDesc(gpu.DestinationOffscreen)); err != nil {
		return err
	}
	if c.quad, err = dev.NewVertexBuffer("fullscreen quad", fullscreenQuad); err != nil {
		return fmt.Errorf("crossfade: %w", err)
	}
	for name, b := range map[string]*gpu.Buffer{"composite": &c.composite, "freeze": &c.freeze, "blit": &c.blit} {
		if *b, err = dev.NewUniformBuffer("crossfade "+name, crossfadeUniformSize); err != nil {
			return fmt.Errorf("crossfade: %w", err)
		}
	}
	for i := range c.snapshots {
		if c.snapshots[i], err = dev.NewRenderTarget(fmt.Sprintf("crossfade snapshot %c", 'A'+i), width, height); err != nil {
			return fmt.Errorf("crossfade: %w", err)
		}
	}
	return nil
}

// Switch requests a transition to index and freezes the interrupted blend
// when needed. Invalid requests change nothing, and neither does a switch
// whose freeze fails: the running transition is left as it was.
func (c *CrossfadeCompositor) Switch(enc gpu.Encoder, index int) (core.Switch, error) {
	sw, err := c.transition.Request(index)
	if err != nil {
		return sw, err
	}
	if sw.Interrupted {
		if err := c.freezeBlend(enc, sw.Prev); err != nil {
			c.transition.Restore(sw.Prev)
			return core.Switch{}, err
		}
		c.log.Debugf("froze blend %d->%d at %.2f", sw.Prev.From.Index, sw.Prev.Pending, sw.Prev.Progress)
	}
	return sw, nil
}

// freezeBlend renders prev's blend into the idle snapshot and makes it the
// current one.
func (c *CrossfadeCompositor) freezeBlend(enc gpu.Encoder, prev core.TransitionState) error {
	from := c.source(prev.From)
	to := c.sources.Target(prev.Pending)
	dst := c.snapshots[1-c.snap]
	if err := c.drawBlend(enc, c.freeze, dst, from, to, prev.Progress); err != nil {
		return fmt.Errorf("crossfade: freeze: %w", err)
	}
	c.snap = 1 - c.snap
	return nil
}

func (c *CrossfadeCompositor) drawBlend(enc gpu.Encoder, params gpu.Buffer, dst gpu.RenderTarget, from, to gpu.Texture, progress float32) error {
	if err := c.dev.WriteBuffer(params, gpu.NewUniforms(crossfadeUniformSize).Vec4(progress, 0, 0, 0).Bytes()); err != nil {
		return err
	}
	return gpu.WithTarget(enc, dst, gpu.ClearAll, gpu.TransparentBlack, func(pass gpu.Pass) error {
		return pass.Draw(c.snapshotProg, gpu.Bindings{
			Uniforms: params,
			Textures: []gpu.Texture{from, to},
		}, c.quad, 0, uint32(len(fullscreenQuad)/2))
	})
}

func (c *CrossfadeCompositor) source(s core.Source) gpu.Texture {
	if s.Snapshot {
		return c.snapshots[c.snap]
	}
	return c.sources.Target(s.Index)
}

// Snapshot is the snapshot target currently usable as a From image.
func (c *CrossfadeCompositor) Snapshot() gpu.RenderTarget { return c.snapshots[c.snap] }

// Resize reallocates the snapshot pair. A snapshot in use is carried over by
// blitting it into the resized spare before the old one is reallocated.
func (c *CrossfadeCompositor) Resize(enc gpu.Encoder, width, height uint32) error {
	cur := c.snapshots[c.snap]
	if w, h := cur.Size(); w == width && h == height {
		return nil
	}
	spare := c.snapshots[1-c.snap]
	if err := spare.Resize(width, height); err != nil {
		return fmt.Errorf("crossfade: %w", err)
	}
	state := c.transition.State()
	if state.Phase == core.PhaseTransitioning && state.From.Snapshot {
		if err := c.drawBlend(enc, c.blit, spare, cur, cur, 0); err != nil {
			return fmt.Errorf("crossfade: carry snapshot: %w", err)
		}
		c.snap = 1 - c.snap
	}
	if err := cur.Resize(width, height); err != nil {
		return fmt.Errorf("crossfade: %w", err)
	}
	return nil
}

// Composite draws the current blend onto the surface. Idle shows the active
// scene alone.
func (c *CrossfadeCompositor) Composite(enc gpu.Encoder) error {
	state := c.transition.State()
	in := CompositeInputs{
		From: c.sources.Target(state.Active),
		To:   c.sources.Target(state.Active),
	}
	if state.Phase == core.PhaseTransitioning {
		in = CompositeInputs{
			From:     c.source(state.From),
			To:       c.sources.Target(state.Pending),
			Progress: state.Progress,
		}
	}
	if err := c.dev.WriteBuffer(c.composite, gpu.NewUniforms(crossfadeUniformSize).Vec4(in.Progress, 0, 0, 0).Bytes()); err != nil {
		return fmt.Errorf("crossfade: %w", err)
	}
	c.last = in
	err := gpu.WithTarget(enc, nil, gpu.ClearColor, [4]float32{0, 0, 0, 1}, func(pass gpu.Pass) error {
		return pass.Draw(c.surfaceProg, gpu.Bindings{
			Uniforms: c.composite,
			Textures: []gpu.Texture{in.From, in.To},
		}, c.quad, 0, uint32(len(fullscreenQuad)/2))
	})
	if err != nil {
		return fmt.Errorf("crossfade: composite: %w", err)
	}
	return nil
}

// LastComposite reports the inputs of the last Composite call.
func (c *CrossfadeCompositor) LastComposite() CompositeInputs { return c.last }

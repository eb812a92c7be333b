package pipeline

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/gpu"
)

// ParticleShading are the point sprite scalars of a scene.
type ParticleShading struct {
	Size        float32
	Frequency   float32
	Amplitude   float32
	MaxDistance float32
}

// ParticleBatch draws the simulated field as instanced point sprites.
type ParticleBatch struct {
	label    string
	attrs    core.RenderAttributes
	shading  ParticleShading
	animator core.Animator
	scale    *core.ScaleSelector

	Transform *core.Transform
	// Alpha fades the whole batch.
	Alpha float32

	program  gpu.Program
	vertices gpu.Buffer
	uniforms gpu.Buffer
	state    gpu.Texture
	elapsed  float32
	width    float32
	height   float32
}

func NewParticleBatch(label string, attrs core.RenderAttributes, shading ParticleShading, animator core.Animator, scale *core.ScaleSelector) *ParticleBatch {
	if animator == nil {
		animator = core.Still{}
	}
	tr := core.NewTransform()
	tr.Scale = scale.Current()
	return &ParticleBatch{
		label:     label,
		attrs:     attrs,
		shading:   shading,
		animator:  animator,
		scale:     scale,
		Transform: tr,
		Alpha:     1,
	}
}

// Build allocates the draw: one instance per grid slot, drawn up to Count.
func (b *ParticleBatch) Build(dev gpu.Device, programs *Programs) error {
	var err error
	if b.program, err = programs.get(particlesDesc()); err != nil {
		return err
	}
	if b.vertices, err = dev.NewVertexBuffer(b.label+" particles", b.attrs.Interleaved()); err != nil {
		return fmt.Errorf("particles %q: %w", b.label, err)
	}
	if b.uniforms, err = dev.NewUniformBuffer(b.label+" particles", particleUniformSize); err != nil {
		return fmt.Errorf("particles %q: %w", b.label, err)
	}
	return nil
}

// PerFrameUpdate rebinds the newest state texture, records elapsed time and
// lets the animation strategy reorient the batch.
func (b *ParticleBatch) PerFrameUpdate(state gpu.Texture, tick core.Tick, pointer core.Pointer) {
	b.state = state
	b.elapsed = tick.Elapsed
	b.animator.Animate(b.Transform, tick, pointer)
}

// ResizeScale applies the breakpoint scale for width. It reports whether the
// scale changed.
func (b *ParticleBatch) ResizeScale(width float32) bool {
	scale, changed := b.scale.Resize(width)
	if changed {
		b.Transform.Scale = scale
	}
	return changed
}

// SetResolution records the device pixel size sprites are sized against.
func (b *ParticleBatch) SetResolution(width, height float32) {
	b.width, b.height = width, height
}

func (b *ParticleBatch) State() gpu.Texture { return b.state }
func (b *ParticleBatch) Elapsed() float32   { return b.elapsed }

func (b *ParticleBatch) VertexLabel() string { return b.label + " particles" }

// Upload writes this tick's uniforms. Every draw of the tick shares them.
func (b *ParticleBatch) Upload(dev gpu.Device, cam *core.Camera) error {
	u := gpu.NewUniforms(particleUniformSize).
		Mat4(cam.ViewProjection()).
		Mat4(b.Transform.ObjectToWorld()).
		Mat4(cam.View()).
		Vec4(b.shading.Size, b.shading.Frequency, b.shading.Amplitude, b.shading.MaxDistance).
		Vec4(b.width, b.height, b.elapsed, b.Alpha).
		Vec4(float32(b.attrs.Side), 0, 0, 0)
	return dev.WriteBuffer(b.uniforms, u.Bytes())
}

func (b *ParticleBatch) Draw(pass gpu.Pass) error {
	if b.state == nil {
		return nil
	}
	return pass.Draw(b.program, gpu.Bindings{
		Uniforms: b.uniforms,
		Textures: []gpu.Texture{b.state},
	}, b.vertices, 0, uint32(b.attrs.Count))
}

// Scale returns the current breakpoint scale.
func (b *ParticleBatch) Scale() mgl32.Vec3 { return b.Transform.Scale }

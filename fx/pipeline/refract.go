package pipeline

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/gpu"
)

// RefractiveShading are the glass parameters. IORs are ordered red, yellow,
// green, cyan, blue, purple.
type RefractiveShading struct {
	IOR                 [6]float32
	ChromaticAberration float32
	RefractPower        float32
	Saturation          float32
	Shininess           float32
	Diffuseness         float32
	FresnelPower        float32
	Light               mgl32.Vec3
	// LightFactor and FresnelFactor at 0 give the unshaded variant.
	LightFactor   float32
	FresnelFactor float32
}

func DefaultRefractiveShading() RefractiveShading {
	return RefractiveShading{
		IOR:                 [6]float32{1.0698, 1.0648, 1.0476, 1.077, 1.0524, 1.0598},
		ChromaticAberration: 0.77,
		RefractPower:        0.746,
		Saturation:          1.07,
		Shininess:           100,
		Diffuseness:         0.213,
		FresnelPower:        8.4,
		Light:               mgl32.Vec3{-1, 1, 1},
		LightFactor:         1,
		FresnelFactor:       1,
	}
}

// pointerOffsetScale converts pointer velocity into extra refraction spread.
const pointerOffsetScale = 0.125

// RefractiveObject is a glass solid that samples a backdrop of its own scene
// captured with itself hidden.
type RefractiveObject struct {
	label    string
	geometry *core.Geometry
	shading  RefractiveShading
	animator core.Animator
	scale    *core.ScaleSelector

	Transform *core.Transform

	program  gpu.Program
	vertices gpu.Buffer
	count    uint32
	uniforms gpu.Buffer
	backdrop gpu.RenderTarget
	hidden   bool
	offset   float32
	elapsed  float32
	width    float32
	height   float32
}

func NewRefractiveObject(label string, geometry *core.Geometry, shading RefractiveShading, animator core.Animator, scale *core.ScaleSelector) *RefractiveObject {
	if animator == nil {
		animator = core.Spin{Step: mgl32.Vec3{0.001, 0.001, 0}}
	}
	tr := core.NewTransform()
	tr.Scale = scale.Current()
	return &RefractiveObject{
		label:     label,
		geometry:  geometry,
		shading:   shading,
		animator:  animator,
		scale:     scale,
		Transform: tr,
	}
}

// Build uploads the mesh and allocates the backdrop at width x height
// device pixels.
func (r *RefractiveObject) Build(dev gpu.Device, programs *Programs, width, height uint32) error {
	if !r.geometry.Usable() {
		return fmt.Errorf("refract %q: geometry has no vertices", r.label)
	}
	var err error
	if r.program, err = programs.get(refractDesc()); err != nil {
		return err
	}
	mesh := r.geometry.TriangleList()
	r.count = uint32(len(mesh) / core.MeshStride)
	if r.vertices, err = dev.NewVertexBuffer(r.VertexLabel(), mesh); err != nil {
		return fmt.Errorf("refract %q: %w", r.label, err)
	}
	if r.uniforms, err = dev.NewUniformBuffer(r.label+" refract", refractUniformSize); err != nil {
		return fmt.Errorf("refract %q: %w", r.label, err)
	}
	if r.backdrop, err = dev.NewRenderTarget(r.label+" backdrop", width, height); err != nil {
		return fmt.Errorf("refract %q: %w", r.label, err)
	}
	r.width, r.height = float32(width), float32(height)
	return nil
}

func (r *RefractiveObject) VertexLabel() string { return r.label + " refract" }

func (r *RefractiveObject) Backdrop() gpu.RenderTarget { return r.backdrop }

func (r *RefractiveObject) Hidden() bool { return r.hidden }

// Update runs the animation strategy and refreshes the pointer-driven
// refraction offset.
func (r *RefractiveObject) Update(tick core.Tick, pointer core.Pointer) {
	r.elapsed = tick.Elapsed
	r.offset = pointer.Velocity * pointerOffsetScale
	r.animator.Animate(r.Transform, tick, pointer)
}

func (r *RefractiveObject) ResizeScale(width float32) bool {
	scale, changed := r.scale.Resize(width)
	if changed {
		r.Transform.Scale = scale
	}
	return changed
}

// Resize reallocates the backdrop at device pixel size.
func (r *RefractiveObject) Resize(width, height uint32) error {
	r.width, r.height = float32(width), float32(height)
	return r.backdrop.Resize(width, height)
}

// Capture hides the object, renders the owning scene through render into the
// backdrop, then shows the object again. The backdrop is bound for the next
// Draw. The object is visible again on every return path.
func (r *RefractiveObject) Capture(enc gpu.Encoder, clear [4]float32, render func(gpu.Pass) error) error {
	r.hidden = true
	defer func() { r.hidden = false }()
	return gpu.WithTarget(enc, r.backdrop, gpu.ClearAll, clear, render)
}

func (r *RefractiveObject) Upload(dev gpu.Device, cam *core.Camera) error {
	s := r.shading
	u := gpu.NewUniforms(refractUniformSize).
		Mat4(cam.ViewProjection()).
		Mat4(r.Transform.ObjectToWorld()).
		Mat4(r.Transform.NormalMatrix()).
		Vec4(s.IOR[0], s.IOR[1], s.IOR[2], s.IOR[3]).
		Vec4(s.IOR[4], s.IOR[5], s.ChromaticAberration, s.RefractPower).
		Vec4(s.Saturation, s.Shininess, s.Diffuseness, s.FresnelPower).
		Vec4(s.Light.X(), s.Light.Y(), s.Light.Z(), 0).
		Vec4(s.LightFactor, s.FresnelFactor, r.offset, r.elapsed).
		Vec4(cam.Position.X(), cam.Position.Y(), cam.Position.Z(), 0).
		Vec4(r.width, r.height, 0, 0)
	return dev.WriteBuffer(r.uniforms, u.Bytes())
}

// Draw renders the glass. A hidden object draws nothing.
func (r *RefractiveObject) Draw(pass gpu.Pass) error {
	if r.hidden {
		return nil
	}
	return pass.Draw(r.program, gpu.Bindings{
		Uniforms: r.uniforms,
		Textures: []gpu.Texture{r.backdrop},
	}, r.vertices, 0, r.count)
}

// Offset is the refraction offset derived from the last pointer sample.
func (r *RefractiveObject) Offset() float32 { return r.offset }

func (r *RefractiveObject) Shading() RefractiveShading { return r.shading }

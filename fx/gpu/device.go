// Package gpu is the command surface the effect pipeline records into. The
// production backend is WebGPU; gputest provides a recording device.
package gpu

import "errors"

var (
	ErrPassActive     = errors.New("gpu: a render pass is already open")
	ErrNoPass         = errors.New("gpu: no render pass is open")
	ErrReadWriteAlias = errors.New("gpu: dispatch output is also bound as an input")
	ErrReleased       = errors.New("gpu: resource was released")
	ErrFrameClosed    = errors.New("gpu: frame was already submitted")
)

// Texture is any sampleable image.
type Texture interface {
	Label() string
	Size() (width, height uint32)
}

// RenderTarget is an offscreen color + depth/stencil destination. Resize
// reallocates storage; previous contents are undefined afterwards.
type RenderTarget interface {
	Texture
	Resize(width, height uint32) error
	Release()
}

// Buffer is a vertex or uniform buffer.
type Buffer interface {
	Label() string
	Size() uint64
}

// Program is a compiled render or compute pipeline.
type Program interface {
	Label() string
	Desc() ProgramDesc
}

type ProgramKind int

const (
	ProgramRender ProgramKind = iota
	ProgramCompute
)

type Blend int

const (
	BlendNone Blend = iota
	BlendAlpha
	BlendAdditive
)

// Destination selects the attachment layout a render program is built for.
type Destination int

const (
	// DestinationOffscreen: RenderTarget color format with a depth/stencil attachment.
	DestinationOffscreen Destination = iota
	// DestinationSurface: the presentable surface format, no depth.
	DestinationSurface
)

type ShaderStage int

const (
	StageVertex ShaderStage = 1 << iota
	StageFragment
	StageCompute
)

// TextureSlot declares one sampled texture binding.
type TextureSlot struct {
	Stages     ShaderStage
	Filterable bool
}

// ProgramDesc describes a pipeline. Bindings in group 0 are laid out as:
// 0 = uniforms (when UniformSize > 0), then one binding per texture slot,
// then the sampler (render, when Sampler is set) or the storage output
// (compute).
type ProgramDesc struct {
	Label       string
	Source      string
	Kind        ProgramKind
	Attributes  []uint32 // float32 component count per vertex location, interleaved
	// Instanced advances attributes per instance; each instance is a
	// QuadCorners vertex quad expanded in the vertex stage.
	Instanced   bool
	UniformSize uint64
	Textures    []TextureSlot
	Sampler     bool
	Destination Destination
	DepthTest   bool
	DepthWrite  bool
	Blend       Blend
}

// QuadCorners is the vertex count of one instanced quad.
const QuadCorners = 6

// VertexStride returns the interleaved vertex stride in bytes.
func (d ProgramDesc) VertexStride() uint64 {
	var n uint64
	for _, c := range d.Attributes {
		n += uint64(c) * 4
	}
	return n
}

// Bindings are the per-call resources of a draw or dispatch.
type Bindings struct {
	Uniforms Buffer
	Textures []Texture
}

type ClearFlags uint8

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
	ClearStencil

	ClearNone ClearFlags = 0
	ClearAll             = ClearColor | ClearDepth | ClearStencil
)

// Device allocates resources and opens frames.
type Device interface {
	NewStateTexture(label string, side uint32) (Texture, error)
	NewRenderTarget(label string, width, height uint32) (RenderTarget, error)
	NewAtlasTexture(label string, width, height uint32, alpha []byte) (Texture, error)
	NewVertexBuffer(label string, data []float32) (Buffer, error)
	NewUniformBuffer(label string, size uint64) (Buffer, error)
	NewProgram(desc ProgramDesc) (Program, error)

	WriteBuffer(b Buffer, data []byte) error
	WriteStateTexture(t Texture, texels []float32) error

	// SupportsCompute reports whether Dispatch runs on this device.
	SupportsCompute() bool
	ConfigureSurface(width, height uint32) error
	BeginFrame() (Encoder, error)
}

// Encoder records one frame. At most one pass is open at a time.
type Encoder interface {
	Dispatch(p Program, b Bindings, out Texture, groupsX, groupsY uint32) error
	// BeginPass opens a pass on target; nil targets the surface.
	BeginPass(target RenderTarget, clear ClearFlags, color [4]float32) (Pass, error)
	// Active returns the open pass, if any.
	Active() (Pass, bool)
	Submit() error
}

// Pass records draws into one destination.
type Pass interface {
	// Target is the pass destination; nil for the surface.
	Target() RenderTarget
	Draw(p Program, b Bindings, vertices Buffer, first, count uint32) error
	End() error
}

// Package gputest is an in-memory gpu.Device. It records every frame and
// executes it at Submit the way a GPU queue does: buffer and texture writes
// land before the frame's commands run, and commands run in order.
package gputest

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gekko3d/lumen/fx/gpu"
)

// Kernel is the CPU stand-in for a compute program. inputs follow the bound
// texture order; out is pre-sized to the output texture.
type Kernel func(inputs [][]float32, uniforms []byte, out []float32)

type Device struct {
	mu sync.Mutex

	Compute       bool
	Kernels       map[string]Kernel
	FailPrograms  map[string]error
	SurfaceWidth  uint32
	SurfaceHeight uint32
	SurfaceConfig int
	surface       *storage

	Programs []*Program
	Targets  []*RenderTarget
	Frames   []*Frame
	Writes   int
}

func NewDevice() *Device {
	return &Device{
		surface:      &storage{},
		Compute:      true,
		Kernels:      map[string]Kernel{},
		FailPrograms: map[string]error{},
	}
}

var _ gpu.Device = (*Device)(nil)

type StateTexture struct {
	label    string
	side     uint32
	Texels   []float32
	released bool
}

func (t *StateTexture) Label() string          { return t.label }
func (t *StateTexture) Size() (uint32, uint32) { return t.side, t.side }
func (t *StateTexture) Release()               { t.released = true }
func (t *StateTexture) Released() bool         { return t.released }

type AtlasTexture struct {
	label         string
	width, height uint32
	Alpha         []byte
}

func (t *AtlasTexture) Label() string          { return t.label }
func (t *AtlasTexture) Size() (uint32, uint32) { return t.width, t.height }

// storage is one allocation of a color attachment: the labels of the
// vertex buffers drawn into it since its last clear.
type storage struct {
	content []string
}

// Surface returns what the last submitted frame left on screen.
func (d *Device) Surface() []string { return slices.Clone(d.surface.content) }

// RenderTarget swaps in fresh storage on Resize. Commands recorded earlier
// keep the storage they were recorded against, as on a real queue.
type RenderTarget struct {
	label         string
	width, height uint32
	store         *storage
	Resizes       int
	released      bool
}

// Content returns the draws in the target's current storage.
func (t *RenderTarget) Content() []string { return slices.Clone(t.store.content) }

func (t *RenderTarget) Label() string          { return t.label }
func (t *RenderTarget) Size() (uint32, uint32) { return t.width, t.height }
func (t *RenderTarget) Released() bool         { return t.released }

func (t *RenderTarget) Resize(width, height uint32) error {
	if t.released {
		return gpu.ErrReleased
	}
	if width == t.width && height == t.height {
		return nil
	}
	t.width, t.height = width, height
	t.store = &storage{}
	t.Resizes++
	return nil
}

func (t *RenderTarget) Release() { t.released = true }

type Buffer struct {
	label string
	size  uint64
	Data  []byte
	// Vertices holds the float data of vertex buffers.
	Vertices []float32
	Writes   int
	vertex   bool
}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Size() uint64  { return b.size }

type Program struct {
	desc gpu.ProgramDesc
}

func (p *Program) Label() string         { return p.desc.Label }
func (p *Program) Desc() gpu.ProgramDesc { return p.desc }

func (d *Device) NewStateTexture(label string, side uint32) (gpu.Texture, error) {
	if side == 0 {
		return nil, fmt.Errorf("state texture %q: zero side", label)
	}
	return &StateTexture{label: label, side: side, Texels: make([]float32, side*side*4)}, nil
}

func (d *Device) NewRenderTarget(label string, width, height uint32) (gpu.RenderTarget, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("render target %q: zero size %dx%d", label, width, height)
	}
	t := &RenderTarget{label: label, width: width, height: height, store: &storage{}}
	d.mu.Lock()
	d.Targets = append(d.Targets, t)
	d.mu.Unlock()
	return t, nil
}

func (d *Device) NewAtlasTexture(label string, width, height uint32, alpha []byte) (gpu.Texture, error) {
	return &AtlasTexture{label: label, width: width, height: height, Alpha: slices.Clone(alpha)}, nil
}

func (d *Device) NewVertexBuffer(label string, data []float32) (gpu.Buffer, error) {
	size := uint64(len(data)) * 4
	return &Buffer{label: label, size: size, Data: gpu.Float32Bytes(data), Vertices: slices.Clone(data), vertex: true}, nil
}

func (d *Device) NewUniformBuffer(label string, size uint64) (gpu.Buffer, error) {
	return &Buffer{label: label, size: size, Data: make([]byte, size)}, nil
}

func (d *Device) NewProgram(desc gpu.ProgramDesc) (gpu.Program, error) {
	if err, ok := d.FailPrograms[desc.Label]; ok {
		return nil, err
	}
	p := &Program{desc: desc}
	d.mu.Lock()
	d.Programs = append(d.Programs, p)
	d.mu.Unlock()
	return p, nil
}

// Program returns the first compiled program with label.
func (d *Device) Program(label string) *Program {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.Programs {
		if p.desc.Label == label {
			return p
		}
	}
	return nil
}

func (d *Device) WriteBuffer(b gpu.Buffer, data []byte) error {
	buf, ok := b.(*Buffer)
	if !ok {
		return fmt.Errorf("foreign buffer %T", b)
	}
	if uint64(len(data)) > buf.size {
		return fmt.Errorf("buffer %q: write of %d bytes exceeds size %d", buf.label, len(data), buf.size)
	}
	copy(buf.Data, data)
	if buf.vertex {
		for i := range buf.Vertices {
			buf.Vertices[i] = gpu.Float32At(buf.Data, i)
		}
	}
	buf.Writes++
	d.Writes++
	return nil
}

func (d *Device) WriteStateTexture(t gpu.Texture, texels []float32) error {
	st, ok := t.(*StateTexture)
	if !ok {
		return fmt.Errorf("foreign state texture %T", t)
	}
	if len(texels) != len(st.Texels) {
		return fmt.Errorf("state texture %q: got %d floats, want %d", st.label, len(texels), len(st.Texels))
	}
	copy(st.Texels, texels)
	d.Writes++
	return nil
}

func (d *Device) SupportsCompute() bool { return d.Compute }

func (d *Device) ConfigureSurface(width, height uint32) error {
	d.SurfaceWidth, d.SurfaceHeight = width, height
	d.SurfaceConfig++
	return nil
}

func (d *Device) BeginFrame() (gpu.Encoder, error) {
	f := &Frame{device: d}
	d.mu.Lock()
	d.Frames = append(d.Frames, f)
	d.mu.Unlock()
	return f, nil
}

// LastFrame returns the most recent frame, or nil.
func (d *Device) LastFrame() *Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Frames) == 0 {
		return nil
	}
	return d.Frames[len(d.Frames)-1]
}

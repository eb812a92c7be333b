package gputest

import (
	"fmt"
	"slices"

	"github.com/gekko3d/lumen/fx/gpu"
)

type CommandKind int

const (
	CmdDispatch CommandKind = iota
	CmdBeginPass
	CmdDraw
	CmdEndPass
)

func (k CommandKind) String() string {
	switch k {
	case CmdDispatch:
		return "dispatch"
	case CmdBeginPass:
		return "begin"
	case CmdDraw:
		return "draw"
	case CmdEndPass:
		return "end"
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is one recorded operation. Uniforms and Sampled are filled when
// the frame executes.
type Command struct {
	Kind     CommandKind
	Target   *RenderTarget // nil with Surface set for surface passes
	Surface  bool
	Clear    gpu.ClearFlags
	Program  *Program
	Textures []gpu.Texture
	Output   *StateTexture
	Vertices *Buffer
	First    uint32
	Count    uint32
	Groups   [2]uint32

	uniforms *Buffer
	dest     *storage
	sources  []*storage
	Uniforms []byte
	// Sampled holds the content of each bound render target at execution
	// time, parallel to Textures.
	Sampled  [][]string
}

// Frame is the recording encoder.
type Frame struct {
	device    *Device
	Commands  []*Command
	Submitted bool
	pass      *pass
}

var _ gpu.Encoder = (*Frame)(nil)

func (f *Frame) Dispatch(p gpu.Program, b gpu.Bindings, out gpu.Texture, groupsX, groupsY uint32) error {
	if f.Submitted {
		return gpu.ErrFrameClosed
	}
	if f.pass != nil {
		return gpu.ErrPassActive
	}
	prog, ok := p.(*Program)
	if !ok || prog.desc.Kind != gpu.ProgramCompute {
		return fmt.Errorf("dispatch of non-compute program %v", p)
	}
	dst, ok := out.(*StateTexture)
	if !ok {
		return fmt.Errorf("dispatch output %T is not a state texture", out)
	}
	if dst.released {
		return gpu.ErrReleased
	}
	for _, t := range b.Textures {
		if t == out {
			return gpu.ErrReadWriteAlias
		}
	}
	f.Commands = append(f.Commands, &Command{
		Kind:     CmdDispatch,
		Program:  prog,
		Textures: slices.Clone(b.Textures),
		Output:   dst,
		Groups:   [2]uint32{groupsX, groupsY},
		uniforms: asBuffer(b.Uniforms),
	})
	return nil
}

func (f *Frame) BeginPass(target gpu.RenderTarget, clear gpu.ClearFlags, color [4]float32) (gpu.Pass, error) {
	if f.Submitted {
		return nil, gpu.ErrFrameClosed
	}
	if f.pass != nil {
		return nil, gpu.ErrPassActive
	}
	cmd := &Command{Kind: CmdBeginPass, Clear: clear}
	var rt *RenderTarget
	if target == nil {
		cmd.Surface = true
		cmd.dest = f.device.surface
	} else {
		var ok bool
		if rt, ok = target.(*RenderTarget); !ok {
			return nil, fmt.Errorf("foreign render target %T", target)
		}
		if rt.released {
			return nil, gpu.ErrReleased
		}
		cmd.Target = rt
		cmd.dest = rt.store
	}
	f.Commands = append(f.Commands, cmd)
	f.pass = &pass{frame: f, target: rt, surface: rt == nil}
	return f.pass, nil
}

func (f *Frame) Active() (gpu.Pass, bool) {
	if f.pass == nil {
		return nil, false
	}
	return f.pass, true
}

// Submit runs the recorded commands against the device state.
func (f *Frame) Submit() error {
	if f.Submitted {
		return gpu.ErrFrameClosed
	}
	if f.pass != nil {
		return gpu.ErrPassActive
	}
	f.Submitted = true

	var dest *storage
	for _, cmd := range f.Commands {
		if cmd.uniforms != nil {
			cmd.Uniforms = slices.Clone(cmd.uniforms.Data)
		}
		switch cmd.Kind {
		case CmdDispatch:
			f.runKernel(cmd)
		case CmdBeginPass:
			dest = cmd.dest
			if cmd.Clear&gpu.ClearColor != 0 {
				dest.content = nil
			}
		case CmdDraw:
			cmd.Sampled = make([][]string, len(cmd.sources))
			for i, src := range cmd.sources {
				if src != nil {
					cmd.Sampled[i] = slices.Clone(src.content)
				}
			}
			dest.content = append(dest.content, cmd.Vertices.label)
		case CmdEndPass:
			dest = nil
		}
	}
	return nil
}

func (f *Frame) runKernel(cmd *Command) {
	k, ok := f.device.Kernels[cmd.Program.desc.Label]
	if !ok {
		return
	}
	inputs := make([][]float32, len(cmd.Textures))
	for i, t := range cmd.Textures {
		if st, ok := t.(*StateTexture); ok {
			inputs[i] = slices.Clone(st.Texels)
		}
	}
	k(inputs, cmd.Uniforms, cmd.Output.Texels)
}

// Passes returns the begin-pass commands in record order.
func (f *Frame) Passes() []*Command {
	return f.filter(CmdBeginPass)
}

// Draws returns the draw commands in record order.
func (f *Frame) Draws() []*Command {
	return f.filter(CmdDraw)
}

// Dispatches returns the dispatch commands in record order.
func (f *Frame) Dispatches() []*Command {
	return f.filter(CmdDispatch)
}

// DrawsInto returns the draws recorded while target was bound; nil selects
// the surface.
func (f *Frame) DrawsInto(target gpu.RenderTarget) []*Command {
	var out []*Command
	var bound bool
	for _, cmd := range f.Commands {
		switch cmd.Kind {
		case CmdBeginPass:
			bound = (target == nil && cmd.Surface) || (target != nil && cmd.Target != nil && gpu.RenderTarget(cmd.Target) == target)
		case CmdEndPass:
			bound = false
		case CmdDraw:
			if bound {
				out = append(out, cmd)
			}
		}
	}
	return out
}

func (f *Frame) filter(kind CommandKind) []*Command {
	var out []*Command
	for _, cmd := range f.Commands {
		if cmd.Kind == kind {
			out = append(out, cmd)
		}
	}
	return out
}

type pass struct {
	frame   *Frame
	target  *RenderTarget
	surface bool
	ended   bool
}

func (p *pass) Target() gpu.RenderTarget {
	if p.target == nil {
		return nil
	}
	return p.target
}

func (p *pass) Draw(prog gpu.Program, b gpu.Bindings, vertices gpu.Buffer, first, count uint32) error {
	if p.ended {
		return gpu.ErrNoPass
	}
	rp, ok := prog.(*Program)
	if !ok || rp.desc.Kind != gpu.ProgramRender {
		return fmt.Errorf("draw of non-render program %v", prog)
	}
	wantSurface := rp.desc.Destination == gpu.DestinationSurface
	if wantSurface != p.surface {
		return fmt.Errorf("program %q built for destination %d drawn into the wrong pass", rp.desc.Label, rp.desc.Destination)
	}
	if len(b.Textures) != len(rp.desc.Textures) {
		return fmt.Errorf("program %q: bound %d textures, want %d", rp.desc.Label, len(b.Textures), len(rp.desc.Textures))
	}
	sources := make([]*storage, len(b.Textures))
	for i, t := range b.Textures {
		if rt, ok := t.(*RenderTarget); ok {
			if rt.released {
				return gpu.ErrReleased
			}
			if p.target != nil && rt == p.target {
				return gpu.ErrReadWriteAlias
			}
			sources[i] = rt.store
		}
	}
	vb := asBuffer(vertices)
	if vb == nil {
		return fmt.Errorf("program %q: no vertex buffer", rp.desc.Label)
	}
	if stride := rp.desc.VertexStride(); stride > 0 && uint64(first+count)*stride > vb.size {
		return fmt.Errorf("program %q: draw [%d,%d) overruns buffer %q", rp.desc.Label, first, first+count, vb.label)
	}
	p.frame.Commands = append(p.frame.Commands, &Command{
		Kind:     CmdDraw,
		Target:   p.target,
		Surface:  p.surface,
		Program:  rp,
		Textures: slices.Clone(b.Textures),
		Vertices: vb,
		First:    first,
		Count:    count,
		uniforms: asBuffer(b.Uniforms),
		sources:  sources,
	})
	return nil
}

func (p *pass) End() error {
	if p.ended {
		return gpu.ErrNoPass
	}
	p.ended = true
	p.frame.pass = nil
	p.frame.Commands = append(p.frame.Commands, &Command{Kind: CmdEndPass, Target: p.target, Surface: p.surface})
	return nil
}

func asBuffer(b gpu.Buffer) *Buffer {
	if b == nil {
		return nil
	}
	buf, _ := b.(*Buffer)
	return buf
}

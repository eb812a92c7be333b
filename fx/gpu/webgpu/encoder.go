package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lumen/fx/gpu"
)

type encoder struct {
	d         *Device
	enc       *wgpu.CommandEncoder
	pass      *pass
	submitted bool

	surfaceTex  *wgpu.Texture
	surfaceView *wgpu.TextureView
}

func (e *encoder) Dispatch(p gpu.Program, b gpu.Bindings, out gpu.Texture, groupsX, groupsY uint32) error {
	if e.submitted {
		return gpu.ErrFrameClosed
	}
	if e.pass != nil {
		return gpu.ErrPassActive
	}
	prog, ok := p.(*program)
	if !ok || prog.compute == nil {
		return fmt.Errorf("dispatch of non-compute program %v", p)
	}
	for _, t := range b.Textures {
		if t == out {
			return gpu.ErrReadWriteAlias
		}
	}
	bg, err := e.d.bindGroup(prog, b, out)
	if err != nil {
		return err
	}
	cp := e.enc.BeginComputePass(nil)
	cp.SetPipeline(prog.compute)
	if bg != nil {
		cp.SetBindGroup(0, bg, nil)
	}
	cp.DispatchWorkgroups(groupsX, groupsY, 1)
	err = cp.End()
	cp.Release()
	return err
}

func (e *encoder) acquireSurface() (*wgpu.TextureView, error) {
	if e.surfaceView != nil {
		return e.surfaceView, nil
	}
	tex, err := e.d.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create surface view: %w", err)
	}
	e.surfaceTex, e.surfaceView = tex, view
	return view, nil
}

func loadOp(clear bool) wgpu.LoadOp {
	if clear {
		return wgpu.LoadOpClear
	}
	return wgpu.LoadOpLoad
}

func (e *encoder) BeginPass(target gpu.RenderTarget, clear gpu.ClearFlags, color [4]float32) (gpu.Pass, error) {
	if e.submitted {
		return nil, gpu.ErrFrameClosed
	}
	if e.pass != nil {
		return nil, gpu.ErrPassActive
	}
	desc := &wgpu.RenderPassDescriptor{}
	colorAttachment := wgpu.RenderPassColorAttachment{
		LoadOp:  loadOp(clear&gpu.ClearColor != 0),
		StoreOp: wgpu.StoreOpStore,
		ClearValue: wgpu.Color{
			R: float64(color[0]), G: float64(color[1]), B: float64(color[2]), A: float64(color[3]),
		},
	}

	var rt *renderTarget
	if target == nil {
		view, err := e.acquireSurface()
		if err != nil {
			return nil, err
		}
		colorAttachment.View = view
	} else {
		var ok bool
		if rt, ok = target.(*renderTarget); !ok {
			return nil, fmt.Errorf("foreign render target %T", target)
		}
		if rt.view == nil {
			return nil, gpu.ErrReleased
		}
		colorAttachment.View = rt.view
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:              rt.depth.view,
			DepthLoadOp:       loadOp(clear&gpu.ClearDepth != 0),
			DepthStoreOp:      wgpu.StoreOpStore,
			DepthClearValue:   1,
			StencilLoadOp:     loadOp(clear&gpu.ClearStencil != 0),
			StencilStoreOp:    wgpu.StoreOpStore,
			StencilClearValue: 0,
		}
	}
	desc.ColorAttachments = []wgpu.RenderPassColorAttachment{colorAttachment}

	e.pass = &pass{e: e, rp: e.enc.BeginRenderPass(desc), target: rt}
	return e.pass, nil
}

func (e *encoder) Active() (gpu.Pass, bool) {
	if e.pass == nil {
		return nil, false
	}
	return e.pass, true
}

func (e *encoder) Submit() error {
	if e.submitted {
		return gpu.ErrFrameClosed
	}
	if e.pass != nil {
		return gpu.ErrPassActive
	}
	e.submitted = true
	defer e.d.releaseTransient()

	cmd, err := e.enc.Finish(nil)
	e.enc.Release()
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	e.d.queue.Submit(cmd)
	cmd.Release()

	if e.surfaceView != nil {
		e.d.surface.Present()
		e.surfaceView.Release()
		e.surfaceTex.Release()
	}
	return nil
}

type pass struct {
	e      *encoder
	rp     *wgpu.RenderPassEncoder
	target *renderTarget
}

func (p *pass) Target() gpu.RenderTarget {
	if p.target == nil {
		return nil
	}
	return p.target
}

func (p *pass) Draw(prog gpu.Program, b gpu.Bindings, vertices gpu.Buffer, first, count uint32) error {
	if p.rp == nil {
		return gpu.ErrNoPass
	}
	rp, ok := prog.(*program)
	if !ok || rp.render == nil {
		return fmt.Errorf("draw of non-render program %v", prog)
	}
	for _, t := range b.Textures {
		if p.target != nil && t == gpu.Texture(p.target) {
			return gpu.ErrReadWriteAlias
		}
	}
	bg, err := p.e.d.bindGroup(rp, b, nil)
	if err != nil {
		return err
	}
	p.rp.SetPipeline(rp.render)
	if bg != nil {
		p.rp.SetBindGroup(0, bg, nil)
	}
	if vb, ok := vertices.(*buffer); ok && vb.buf != nil {
		p.rp.SetVertexBuffer(0, vb.buf, 0, vb.size)
	}
	if rp.desc.Instanced {
		p.rp.Draw(gpu.QuadCorners, count, 0, first)
	} else {
		p.rp.Draw(count, 1, first, 0)
	}
	return nil
}

func (p *pass) End() error {
	if p.rp == nil {
		return gpu.ErrNoPass
	}
	err := p.rp.End()
	p.rp.Release()
	p.rp = nil
	p.e.pass = nil
	return err
}

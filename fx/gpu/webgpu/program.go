package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lumen/fx/gpu"
)

type program struct {
	desc     gpu.ProgramDesc
	layout   *wgpu.BindGroupLayout
	render   *wgpu.RenderPipeline
	compute  *wgpu.ComputePipeline
	noLayout bool
}

func (p *program) Label() string         { return p.desc.Label }
func (p *program) Desc() gpu.ProgramDesc { return p.desc }

func visibility(s gpu.ShaderStage) wgpu.ShaderStage {
	var v wgpu.ShaderStage
	if s&gpu.StageVertex != 0 {
		v |= wgpu.ShaderStageVertex
	}
	if s&gpu.StageFragment != 0 {
		v |= wgpu.ShaderStageFragment
	}
	if s&gpu.StageCompute != 0 {
		v |= wgpu.ShaderStageCompute
	}
	return v
}

func (d *Device) bindGroupLayout(desc gpu.ProgramDesc) (*wgpu.BindGroupLayout, error) {
	var entries []wgpu.BindGroupLayoutEntry
	binding := uint32(0)

	uniformVis := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	if desc.Kind == gpu.ProgramCompute {
		uniformVis = wgpu.ShaderStageCompute
	}
	if desc.UniformSize > 0 {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: uniformVis,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: desc.UniformSize,
			},
		})
		binding++
	}
	for _, slot := range desc.Textures {
		sample := wgpu.TextureSampleTypeUnfilterableFloat
		if slot.Filterable {
			sample = wgpu.TextureSampleTypeFloat
		}
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: visibility(slot.Stages),
			Texture: wgpu.TextureBindingLayout{
				SampleType:    sample,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
		binding++
	}
	switch {
	case desc.Kind == gpu.ProgramCompute:
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageCompute,
			StorageTexture: wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        StateFormat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	case desc.Sampler:
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		})
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label + " BGL",
		Entries: entries,
	})
}

func vertexFormat(components uint32) (wgpu.VertexFormat, error) {
	switch components {
	case 1:
		return wgpu.VertexFormatFloat32, nil
	case 2:
		return wgpu.VertexFormatFloat32x2, nil
	case 3:
		return wgpu.VertexFormatFloat32x3, nil
	case 4:
		return wgpu.VertexFormatFloat32x4, nil
	}
	return 0, fmt.Errorf("unsupported vertex attribute width %d", components)
}

func vertexLayout(desc gpu.ProgramDesc) ([]wgpu.VertexBufferLayout, error) {
	if len(desc.Attributes) == 0 {
		return nil, nil
	}
	attrs := make([]wgpu.VertexAttribute, 0, len(desc.Attributes))
	var offset uint64
	for loc, n := range desc.Attributes {
		format, err := vertexFormat(n)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			ShaderLocation: uint32(loc),
			Offset:         offset,
			Format:         format,
		})
		offset += uint64(n) * 4
	}
	step := wgpu.VertexStepModeVertex
	if desc.Instanced {
		step = wgpu.VertexStepModeInstance
	}
	return []wgpu.VertexBufferLayout{{
		ArrayStride: offset,
		StepMode:    step,
		Attributes:  attrs,
	}}, nil
}

func blendState(b gpu.Blend) *wgpu.BlendState {
	switch b {
	case gpu.BlendAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case gpu.BlendAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	}
	return nil
}

func (d *Device) NewProgram(desc gpu.ProgramDesc) (gpu.Program, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Source},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", desc.Label, err)
	}
	defer module.Release()

	bgl, err := d.bindGroupLayout(desc)
	if err != nil {
		return nil, fmt.Errorf("bind group layout %q: %w", desc.Label, err)
	}
	var layouts []*wgpu.BindGroupLayout
	if bgl != nil {
		layouts = append(layouts, bgl)
	}
	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + " Layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline layout %q: %w", desc.Label, err)
	}
	defer pipelineLayout.Release()

	p := &program{desc: desc, layout: bgl, noLayout: bgl == nil}

	if desc.Kind == gpu.ProgramCompute {
		p.compute, err = d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  desc.Label,
			Layout: pipelineLayout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     module,
				EntryPoint: "cs_main",
			},
		})
		if err != nil {
			return nil, fmt.Errorf("compute pipeline %q: %w", desc.Label, err)
		}
		return p, nil
	}

	buffers, err := vertexLayout(desc)
	if err != nil {
		return nil, fmt.Errorf("vertex layout %q: %w", desc.Label, err)
	}

	format := TargetFormat
	var depth *wgpu.DepthStencilState
	if desc.Destination == gpu.DestinationSurface {
		format = d.config.Format
	} else {
		compare := wgpu.CompareFunctionAlways
		if desc.DepthTest {
			compare = wgpu.CompareFunctionLess
		}
		depth = &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      compare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilReadMask:   0xFFFFFFFF,
			StencilWriteMask:  0xFFFFFFFF,
		}
	}

	p.render, err = d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     blendState(desc.Blend),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: depth,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render pipeline %q: %w", desc.Label, err)
	}
	return p, nil
}

// bindGroup builds the per-call bind group in the layout order of the
// program description.
func (d *Device) bindGroup(p *program, b gpu.Bindings, out gpu.Texture) (*wgpu.BindGroup, error) {
	if p.noLayout {
		return nil, nil
	}
	var entries []wgpu.BindGroupEntry
	binding := uint32(0)
	if p.desc.UniformSize > 0 {
		ub, ok := b.Uniforms.(*buffer)
		if !ok || ub.buf == nil {
			return nil, fmt.Errorf("program %q: missing uniform buffer", p.desc.Label)
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: binding, Buffer: ub.buf, Size: wgpu.WholeSize})
		binding++
	}
	if len(b.Textures) != len(p.desc.Textures) {
		return nil, fmt.Errorf("program %q: bound %d textures, want %d", p.desc.Label, len(b.Textures), len(p.desc.Textures))
	}
	for _, t := range b.Textures {
		view, err := viewOf(t)
		if err != nil {
			return nil, err
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: binding, TextureView: view})
		binding++
	}
	switch {
	case p.desc.Kind == gpu.ProgramCompute:
		view, err := viewOf(out)
		if err != nil {
			return nil, err
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: binding, TextureView: view})
	case p.desc.Sampler:
		entries = append(entries, wgpu.BindGroupEntry{Binding: binding, Sampler: d.sampler})
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.desc.Label,
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group %q: %w", p.desc.Label, err)
	}
	d.transient = append(d.transient, bg)
	return bg, nil
}

func viewOf(t gpu.Texture) (*wgpu.TextureView, error) {
	switch tt := t.(type) {
	case *texture:
		if tt.view == nil {
			return nil, gpu.ErrReleased
		}
		return tt.view, nil
	case *renderTarget:
		if tt.view == nil {
			return nil, gpu.ErrReleased
		}
		return tt.view, nil
	}
	return nil, fmt.Errorf("foreign texture %T", t)
}

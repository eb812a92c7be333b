// Package webgpu implements gpu.Device on top of wgpu-native.
package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lumen/fx/gpu"
)

const (
	TargetFormat = wgpu.TextureFormatRGBA16Float
	DepthFormat  = wgpu.TextureFormatDepth24PlusStencil8
	StateFormat  = wgpu.TextureFormatRGBA32Float
	AtlasFormat  = wgpu.TextureFormatR8Unorm
)

type Options struct {
	// CPUSimulation reports no compute support so the flow field runs on
	// the CPU and is uploaded every tick.
	CPUSimulation bool
	PresentMode   wgpu.PresentMode
}

type Device struct {
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	queue   *wgpu.Queue
	config  *wgpu.SurfaceConfiguration
	sampler *wgpu.Sampler
	opts    Options

	// bind groups created while recording, released after submit
	transient []*wgpu.BindGroup
}

var _ gpu.Device = (*Device)(nil)

// Open requests an adapter and device compatible with surface and configures
// the surface at width x height.
func Open(instance *wgpu.Instance, surface *wgpu.Surface, width, height uint32, opts Options) (*Device, error) {
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Lumen Device",
	})
	if err != nil {
		adapter.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}

	caps := surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 {
		device.Release()
		adapter.Release()
		return nil, fmt.Errorf("surface reports no formats")
	}
	mode := opts.PresentMode
	if mode == 0 {
		mode = wgpu.PresentModeFifo
	}
	config := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       max(width, 1),
		Height:      max(height, 1),
		PresentMode: mode,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, config)

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MaxAnisotropy: 1,
	})
	if err != nil {
		device.Release()
		adapter.Release()
		return nil, fmt.Errorf("create sampler: %w", err)
	}

	return &Device{
		surface: surface,
		adapter: adapter,
		device:  device,
		queue:   device.GetQueue(),
		config:  config,
		sampler: sampler,
		opts:    opts,
	}, nil
}

func (d *Device) SupportsCompute() bool { return !d.opts.CPUSimulation }

func (d *Device) SurfaceFormat() wgpu.TextureFormat { return d.config.Format }

func (d *Device) ConfigureSurface(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if d.config.Width == width && d.config.Height == height {
		return nil
	}
	d.config.Width = width
	d.config.Height = height
	d.surface.Configure(d.adapter, d.device, d.config)
	return nil
}

func (d *Device) BeginFrame() (gpu.Encoder, error) {
	enc, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	return &encoder{d: d, enc: enc}, nil
}

func (d *Device) WriteBuffer(b gpu.Buffer, data []byte) error {
	buf, ok := b.(*buffer)
	if !ok {
		return fmt.Errorf("foreign buffer %T", b)
	}
	if buf.buf == nil {
		return gpu.ErrReleased
	}
	return d.queue.WriteBuffer(buf.buf, 0, data)
}

func (d *Device) WriteStateTexture(t gpu.Texture, texels []float32) error {
	st, ok := t.(*texture)
	if !ok {
		return fmt.Errorf("foreign state texture %T", t)
	}
	if st.tex == nil {
		return gpu.ErrReleased
	}
	if uint32(len(texels)) != st.width*st.height*4 {
		return fmt.Errorf("state texture %q: got %d floats, want %d", st.label, len(texels), st.width*st.height*4)
	}
	extent := wgpu.Extent3D{Width: st.width, Height: st.height, DepthOrArrayLayers: 1}
	return d.queue.WriteTexture(
		st.tex.AsImageCopy(),
		wgpu.ToBytes(texels),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  st.width * 16,
			RowsPerImage: st.height,
		},
		&extent,
	)
}

// Release frees the device. The surface is owned by the caller.
func (d *Device) Release() {
	d.releaseTransient()
	if d.sampler != nil {
		d.sampler.Release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
}

func (d *Device) releaseTransient() {
	for _, bg := range d.transient {
		bg.Release()
	}
	d.transient = d.transient[:0]
}

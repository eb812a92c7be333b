package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lumen/fx/gpu"
)

type texture struct {
	label         string
	width, height uint32
	tex           *wgpu.Texture
	view          *wgpu.TextureView
}

func (t *texture) Label() string          { return t.label }
func (t *texture) Size() (uint32, uint32) { return t.width, t.height }

func (t *texture) release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

func (d *Device) newTexture(label string, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*texture, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create view %q: %w", label, err)
	}
	return &texture{label: label, width: width, height: height, tex: tex, view: view}, nil
}

func (d *Device) NewStateTexture(label string, side uint32) (gpu.Texture, error) {
	if side == 0 {
		return nil, fmt.Errorf("state texture %q: zero side", label)
	}
	return d.newTexture(label, side, side, StateFormat,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageStorageBinding|wgpu.TextureUsageCopyDst)
}

func (d *Device) NewAtlasTexture(label string, width, height uint32, alpha []byte) (gpu.Texture, error) {
	t, err := d.newTexture(label, width, height, AtlasFormat,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	if err != nil {
		return nil, err
	}
	extent := wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
	err = d.queue.WriteTexture(
		t.tex.AsImageCopy(),
		alpha,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width,
			RowsPerImage: height,
		},
		&extent,
	)
	if err != nil {
		t.release()
		return nil, fmt.Errorf("upload atlas %q: %w", label, err)
	}
	return t, nil
}

// renderTarget is a color texture with a matching depth/stencil attachment.
type renderTarget struct {
	texture
	d     *Device
	depth *texture
}

func (d *Device) NewRenderTarget(label string, width, height uint32) (gpu.RenderTarget, error) {
	rt := &renderTarget{d: d}
	rt.label = label
	if err := rt.Resize(width, height); err != nil {
		return nil, err
	}
	return rt, nil
}

func (rt *renderTarget) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("render target %q: zero size %dx%d", rt.label, width, height)
	}
	if rt.tex != nil && rt.width == width && rt.height == height {
		return nil
	}
	color, err := rt.d.newTexture(rt.label, width, height, TargetFormat,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding)
	if err != nil {
		return err
	}
	depth, err := rt.d.newTexture(rt.label+" depth", width, height, DepthFormat,
		wgpu.TextureUsageRenderAttachment)
	if err != nil {
		color.release()
		return err
	}
	rt.Release()
	rt.tex, rt.view = color.tex, color.view
	rt.width, rt.height = width, height
	rt.depth = depth
	return nil
}

func (rt *renderTarget) Release() {
	rt.texture.release()
	if rt.depth != nil {
		rt.depth.release()
		rt.depth = nil
	}
}

type buffer struct {
	label string
	size  uint64
	buf   *wgpu.Buffer
}

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() uint64  { return b.size }

func (d *Device) NewVertexBuffer(label string, data []float32) (gpu.Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("vertex buffer %q: no data", label)
	}
	buf, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: wgpu.ToBytes(data),
		Usage:    wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer %q: %w", label, err)
	}
	return &buffer{label: label, size: uint64(len(data)) * 4, buf: buf}, nil
}

func (d *Device) NewUniformBuffer(label string, size uint64) (gpu.Buffer, error) {
	size = (size + 15) &^ 15
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer %q: %w", label, err)
	}
	return &buffer{label: label, size: size, buf: buf}, nil
}

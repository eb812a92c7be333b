package pipeline

import (
	"fmt"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/gpu"
)

// overlayGlyphs caps how many glyphs one frame of overlay text may carry.
const overlayGlyphs = 512

// LabelOverlay draws screen-space text over the composited surface.
type LabelOverlay struct {
	text *core.TextRenderer

	dev      gpu.Device
	program  gpu.Program
	atlas    gpu.Texture
	vertices gpu.Buffer
	drawn    uint32
}

func NewLabelOverlay(text *core.TextRenderer) *LabelOverlay {
	return &LabelOverlay{text: text}
}

func (o *LabelOverlay) Build(dev gpu.Device, programs *Programs) error {
	o.dev = dev
	var err error
	if o.program, err = programs.get(textDesc()); err != nil {
		return err
	}
	img := o.text.AtlasImage
	b := img.Bounds()
	if o.atlas, err = dev.NewAtlasTexture("label atlas", uint32(b.Dx()), uint32(b.Dy()), img.Pix); err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	capacity := make([]float32, overlayGlyphs*6*core.TextVertexStride)
	if o.vertices, err = dev.NewVertexBuffer("label text", capacity); err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	return nil
}

// Draw lays out items for a width x height surface and draws them on top of
// what the surface already holds. Glyphs past the buffer capacity are dropped.
func (o *LabelOverlay) Draw(enc gpu.Encoder, items []core.TextItem, width, height int) error {
	verts := o.text.BuildVertices(items, width, height)
	if limit := overlayGlyphs * 6 * core.TextVertexStride; len(verts) > limit {
		verts = verts[:limit]
	}
	o.drawn = uint32(len(verts) / core.TextVertexStride)
	if o.drawn == 0 {
		return nil
	}
	if err := o.dev.WriteBuffer(o.vertices, gpu.Float32Bytes(verts)); err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	return gpu.WithTarget(enc, nil, gpu.ClearNone, gpu.TransparentBlack, func(pass gpu.Pass) error {
		return pass.Draw(o.program, gpu.Bindings{Textures: []gpu.Texture{o.atlas}}, o.vertices, 0, o.drawn)
	})
}

// Drawn is the vertex count of the last Draw.
func (o *LabelOverlay) Drawn() uint32 { return o.drawn }

// Measure returns the pixel size of text at scale.
func (o *LabelOverlay) Measure(text string, scale float32) (float32, float32) {
	return o.text.MeasureText(text, scale)
}

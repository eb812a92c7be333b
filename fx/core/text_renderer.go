package core

import (
	"fmt"
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TextVertexStride is the float count per text vertex: pos(2), uv(2), color(4).
const TextVertexStride = 8

type TextItem struct {
	Text     string
	Position [2]float32 // pixels from the top-left corner
	Scale    float32
	Color    [4]float32
}

type GlyphInfo struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// TextRenderer rasterizes printable ASCII into an alpha atlas and lays out
// quads against it.
type TextRenderer struct {
	AtlasImage *image.Alpha
	Glyphs     map[rune]GlyphInfo
	Face       font.Face
}

// NewTextRenderer builds an atlas from ttf bytes. Nil bytes use Go Regular.
func NewTextRenderer(fontBytes []byte, fontSize float64) (*TextRenderer, error) {
	if fontBytes == nil {
		fontBytes = goregular.TTF
	}

	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}

	const atlasSize = 512
	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]GlyphInfo)

	x, y := 2, 2
	rowHeight := 0

	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w := mask.Bounds().Dx()
		h := mask.Bounds().Dy()

		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}

		if y+h >= atlasSize {
			break
		}

		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)

		glyphs[r] = GlyphInfo{
			UVMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			UVMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			Adv:   float32(adv) / 64.0,
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	return &TextRenderer{
		AtlasImage: atlas,
		Glyphs:     glyphs,
		Face:       face,
	}, nil
}

// BuildVertices lays out items as clip-space triangles.
func (tr *TextRenderer) BuildVertices(items []TextItem, screenW, screenH int) []float32 {
	vertices := make([]float32, 0, len(items)*6*TextVertexStride)
	if screenW <= 0 || screenH <= 0 {
		return vertices
	}

	sw := float32(screenW)
	sh := float32(screenH)
	ascent := float32(tr.Face.Metrics().Ascent.Ceil())

	emit := func(x, y, u, v float32, c [4]float32) {
		vertices = append(vertices, x, y, u, v, c[0], c[1], c[2], c[3])
	}

	for _, item := range items {
		posX := item.Position[0]
		posY := item.Position[1] + ascent*item.Scale

		for _, r := range item.Text {
			g, ok := tr.Glyphs[r]
			if !ok {
				continue
			}

			x0 := (posX+g.Off[0]*item.Scale)/sw*2.0 - 1.0
			y0 := 1.0 - (posY+g.Off[1]*item.Scale)/sh*2.0
			x1 := (posX+(g.Off[0]+g.Size[0])*item.Scale)/sw*2.0 - 1.0
			y1 := 1.0 - (posY+(g.Off[1]+g.Size[1])*item.Scale)/sh*2.0

			emit(x0, y0, g.UVMin[0], g.UVMin[1], item.Color)
			emit(x1, y0, g.UVMax[0], g.UVMin[1], item.Color)
			emit(x0, y1, g.UVMin[0], g.UVMax[1], item.Color)

			emit(x1, y0, g.UVMax[0], g.UVMin[1], item.Color)
			emit(x1, y1, g.UVMax[0], g.UVMax[1], item.Color)
			emit(x0, y1, g.UVMin[0], g.UVMax[1], item.Color)

			posX += g.Adv * item.Scale
		}
	}

	return vertices
}

// MeasureText returns the single-line width and height of text in pixels.
func (tr *TextRenderer) MeasureText(text string, scale float32) (float32, float32) {
	if tr == nil {
		return 0, 0
	}
	w := float32(0)
	for _, r := range text {
		if g, ok := tr.Glyphs[r]; ok {
			w += g.Adv * scale
		}
	}
	return w, float32(tr.Face.Metrics().Height.Ceil()) * scale
}

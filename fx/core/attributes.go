package core

import "math/rand"

// AttributeStride is the float count per particle vertex: u, v, size jitter.
const AttributeStride = 3

// RenderAttributes are the static per-vertex inputs of a particle batch.
type RenderAttributes struct {
	Side  int
	Count int
	UV    []float32
	Size  []float32
}

// NewRenderAttributes generates texel-centre coordinates and size jitter for
// every slot of a side x side grid. Count bounds the drawable range.
func NewRenderAttributes(side, count int, rng *rand.Rand) RenderAttributes {
	slots := side * side
	attrs := RenderAttributes{
		Side:  side,
		Count: min(count, slots),
		UV:    make([]float32, slots*2),
		Size:  make([]float32, slots),
	}
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			i := y*side + x
			attrs.UV[i*2+0] = (float32(x) + 0.5) / float32(side)
			attrs.UV[i*2+1] = (float32(y) + 0.5) / float32(side)
			attrs.Size[i] = rng.Float32()
		}
	}
	return attrs
}

// Interleaved packs the attributes as u, v, size per vertex.
func (a RenderAttributes) Interleaved() []float32 {
	out := make([]float32, 0, len(a.Size)*AttributeStride)
	for i := range a.Size {
		out = append(out, a.UV[i*2], a.UV[i*2+1], a.Size[i])
	}
	return out
}

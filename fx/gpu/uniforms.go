package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Uniforms packs a WGSL uniform struct made only of mat4x4<f32> and
// vec4<f32> members, so no member needs padding.
type Uniforms struct {
	buf []byte
}

func NewUniforms(size uint64) *Uniforms {
	return &Uniforms{buf: make([]byte, 0, size)}
}

func (u *Uniforms) Mat4(m mgl32.Mat4) *Uniforms {
	for _, v := range m {
		u.f32(v)
	}
	return u
}

func (u *Uniforms) Vec4(x, y, z, w float32) *Uniforms {
	return u.f32(x).f32(y).f32(z).f32(w)
}

func (u *Uniforms) f32(v float32) *Uniforms {
	u.buf = binary.LittleEndian.AppendUint32(u.buf, math.Float32bits(v))
	return u
}

// Bytes returns the packed data padded to a 16 byte multiple.
func (u *Uniforms) Bytes() []byte {
	for len(u.buf)%16 != 0 {
		u.buf = append(u.buf, 0)
	}
	return u.buf
}

// Float32At decodes the i-th float32 of packed uniform data.
func Float32At(data []byte, i int) float32 {
	if (i+1)*4 > len(data) {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
}

// Float32Bytes packs v little-endian, for vertex buffer writes.
func Float32Bytes(v []float32) []byte {
	out := make([]byte, 0, len(v)*4)
	for _, f := range v {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"
)

// FlowConfig holds the three flow-field scalars of a scene.
type FlowConfig struct {
	Influence float32 // 0 keeps particles pinned, 1 lets the whole field flow
	Strength  float32
	Frequency float32
}

const (
	flowTimeScale  = 0.2
	flowBaseScale  = 0.2
	lifeDecayRate  = 0.3
	flowNoiseShift = 1.0
)

// FlowModel is the CPU mirror of the simulate kernel. It has no internal
// state besides the noise permutation, so Advance is a pure function of its
// inputs for a fixed seed.
type FlowModel struct {
	noise opensimplex.Noise32
}

func NewFlowModel(seed int64) *FlowModel {
	return &FlowModel{noise: opensimplex.New32(seed)}
}

// Advance computes the next texel for one particle.
func (m *FlowModel) Advance(particle, origin [4]float32, delta, elapsed float32, cfg FlowConfig) [4]float32 {
	if particle[3] >= 1 {
		// life wrapped: pin back to the source position
		_, frac := math.Modf(float64(particle[3]))
		return [4]float32{origin[0], origin[1], origin[2], float32(frac)}
	}

	t := elapsed * flowTimeScale

	strength := m.noise.Eval4(origin[0]*flowBaseScale, origin[1]*flowBaseScale, origin[2]*flowBaseScale, t+flowNoiseShift)
	influence := (cfg.Influence - 0.5) * -2.0
	strength = smoothstep(influence, 1.0, strength)

	p := mgl32.Vec3{particle[0], particle[1], particle[2]}.Mul(cfg.Frequency)
	field := mgl32.Vec3{
		m.noise.Eval4(p.X(), p.Y(), p.Z(), t),
		m.noise.Eval4(p.X()+1, p.Y()+1, p.Z()+1, t),
		m.noise.Eval4(p.X()+2, p.Y()+2, p.Z()+2, t),
	}
	if l := field.Len(); l > 0 {
		field = field.Mul(1 / l)
	}

	step := field.Mul(delta * strength * cfg.Strength)
	return [4]float32{
		particle[0] + step.X(),
		particle[1] + step.Y(),
		particle[2] + step.Z(),
		particle[3] + delta*lifeDecayRate,
	}
}

// Step advances every texel of src into dst. src and dst must not alias.
func (m *FlowModel) Step(src, origin, dst []float32, delta, elapsed float32, cfg FlowConfig) {
	n := len(src) / TexelStride
	for i := 0; i < n; i++ {
		next := m.Advance(Texel(src, i), Texel(origin, i), delta, elapsed, cfg)
		copy(dst[i*TexelStride:], next[:])
	}
}

func smoothstep(edge0, edge1, x float32) float32 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := mgl32.Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

package shaders

import (
	_ "embed"
)

//go:embed simulate.wgsl
var SimulateWGSL string

//go:embed particles.wgsl
var ParticlesWGSL string

//go:embed refract.wgsl
var RefractWGSL string

//go:embed crossfade.wgsl
var CrossfadeWGSL string

//go:embed text.wgsl
var TextWGSL string

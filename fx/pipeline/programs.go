package pipeline

import (
	"fmt"
	"sync"

	"github.com/gekko3d/lumen/fx/gpu"
	"github.com/gekko3d/lumen/fx/shaders"
)

const (
	ProgramSimulate          = "simulate"
	ProgramParticles         = "particles"
	ProgramRefract           = "refract"
	ProgramCrossfade         = "crossfade"
	ProgramCrossfadeSnapshot = "crossfade snapshot"
	ProgramText              = "text"
)

const (
	simulateUniformSize  = 2 * 16
	particleUniformSize  = 3*64 + 3*16
	refractUniformSize   = 3*64 + 7*16
	crossfadeUniformSize = 16
)

// Workgroup edge of the simulate kernel.
const simulateWorkgroup = 8

func simulateDesc() gpu.ProgramDesc {
	return gpu.ProgramDesc{
		Label:       ProgramSimulate,
		Source:      shaders.SimulateWGSL,
		Kind:        gpu.ProgramCompute,
		UniformSize: simulateUniformSize,
		Textures: []gpu.TextureSlot{
			{Stages: gpu.StageCompute}, // state
			{Stages: gpu.StageCompute}, // origin
		},
	}
}

func particlesDesc() gpu.ProgramDesc {
	return gpu.ProgramDesc{
		Label:       ProgramParticles,
		Source:      shaders.ParticlesWGSL,
		Kind:        gpu.ProgramRender,
		Attributes:  []uint32{2, 1},
		Instanced:   true,
		UniformSize: particleUniformSize,
		Textures:    []gpu.TextureSlot{{Stages: gpu.StageVertex}},
		Destination: gpu.DestinationOffscreen,
		DepthTest:   true,
		Blend:       gpu.BlendAdditive,
	}
}

func refractDesc() gpu.ProgramDesc {
	return gpu.ProgramDesc{
		Label:       ProgramRefract,
		Source:      shaders.RefractWGSL,
		Kind:        gpu.ProgramRender,
		Attributes:  []uint32{3, 3},
		UniformSize: refractUniformSize,
		Textures:    []gpu.TextureSlot{{Stages: gpu.StageFragment, Filterable: true}},
		Sampler:     true,
		Destination: gpu.DestinationOffscreen,
		DepthTest:   true,
		DepthWrite:  true,
	}
}

// crossfadeDesc builds the blend for the surface, or for snapshot targets.
// Neither tests depth.
func crossfadeDesc(dest gpu.Destination) gpu.ProgramDesc {
	label := ProgramCrossfade
	if dest == gpu.DestinationOffscreen {
		label = ProgramCrossfadeSnapshot
	}
	return gpu.ProgramDesc{
		Label:       label,
		Source:      shaders.CrossfadeWGSL,
		Kind:        gpu.ProgramRender,
		Attributes:  []uint32{2},
		UniformSize: crossfadeUniformSize,
		Textures: []gpu.TextureSlot{
			{Stages: gpu.StageFragment, Filterable: true},
			{Stages: gpu.StageFragment, Filterable: true},
		},
		Sampler:     true,
		Destination: dest,
	}
}

func textDesc() gpu.ProgramDesc {
	return gpu.ProgramDesc{
		Label:       ProgramText,
		Source:      shaders.TextWGSL,
		Kind:        gpu.ProgramRender,
		Attributes:  []uint32{2, 2, 4},
		Textures:    []gpu.TextureSlot{{Stages: gpu.StageFragment, Filterable: true}},
		Sampler:     true,
		Destination: gpu.DestinationSurface,
		Blend:       gpu.BlendAlpha,
	}
}

// Programs compiles each pipeline once and hands out the shared instance.
type Programs struct {
	dev gpu.Device

	mu    sync.Mutex
	cache map[string]gpu.Program
}

func NewPrograms(dev gpu.Device) *Programs {
	return &Programs{dev: dev, cache: map[string]gpu.Program{}}
}

func (p *Programs) get(desc gpu.ProgramDesc) (gpu.Program, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prog, ok := p.cache[desc.Label]; ok {
		return prog, nil
	}
	prog, err := p.dev.NewProgram(desc)
	if err != nil {
		return nil, fmt.Errorf("compile program %q: %w", desc.Label, err)
	}
	p.cache[desc.Label] = prog
	return prog, nil
}

// Compiled reports how many distinct programs exist.
func (p *Programs) Compiled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

// fullscreenQuad covers clip space with two triangles.
var fullscreenQuad = []float32{
	-1, -1, 1, -1, -1, 1,
	1, -1, 1, 1, -1, 1,
}

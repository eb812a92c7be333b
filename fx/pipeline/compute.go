package pipeline

import (
	"fmt"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/gpu"
)

// ComputeEngine owns the ping-pong pair of simulation textures of one
// particle field. Exactly one of them is current; a step reads current and
// origin and writes the other, then flips.
type ComputeEngine struct {
	label string
	grid  core.ParticleGrid
	flow  core.FlowConfig
	seed  int64

	dev      gpu.Device
	program  gpu.Program
	uniforms gpu.Buffer
	textures [2]gpu.Texture
	origin   gpu.Texture
	current  int
	steps    int

	// CPU mirror, used when the device cannot dispatch
	cpu      *core.FlowModel
	cpuState []float32
	cpuNext  []float32
}

func NewComputeEngine(label string, grid core.ParticleGrid, flow core.FlowConfig, seed int64) *ComputeEngine {
	return &ComputeEngine{label: label, grid: grid, flow: flow, seed: seed}
}

// Build allocates both state textures and the origin texture, seeding the
// first state texture, and compiles the kernel when compute is available.
func (c *ComputeEngine) Build(dev gpu.Device, programs *Programs) error {
	if c.grid.Side == 0 {
		return fmt.Errorf("compute %q: empty particle grid", c.label)
	}
	c.dev = dev
	side := uint32(c.grid.Side)

	for i := range c.textures {
		tex, err := dev.NewStateTexture(fmt.Sprintf("%s state %c", c.label, 'A'+i), side)
		if err != nil {
			return fmt.Errorf("compute %q: %w", c.label, err)
		}
		c.textures[i] = tex
	}
	origin, err := dev.NewStateTexture(c.label+" origin", side)
	if err != nil {
		return fmt.Errorf("compute %q: %w", c.label, err)
	}
	c.origin = origin

	if err := dev.WriteStateTexture(c.textures[0], c.grid.State); err != nil {
		return fmt.Errorf("compute %q: seed state: %w", c.label, err)
	}
	if err := dev.WriteStateTexture(c.origin, c.grid.Origin); err != nil {
		return fmt.Errorf("compute %q: seed origin: %w", c.label, err)
	}
	c.current = 0

	if !dev.SupportsCompute() {
		c.cpu = core.NewFlowModel(c.seed)
		c.cpuState = append([]float32(nil), c.grid.State...)
		c.cpuNext = make([]float32, len(c.grid.State))
		return nil
	}

	c.program, err = programs.get(simulateDesc())
	if err != nil {
		return err
	}
	c.uniforms, err = dev.NewUniformBuffer(c.label+" simulate", simulateUniformSize)
	if err != nil {
		return fmt.Errorf("compute %q: %w", c.label, err)
	}
	return nil
}

// Step advances the field by one tick.
func (c *ComputeEngine) Step(enc gpu.Encoder, delta, elapsed float32) error {
	read, write := c.current, 1-c.current

	if c.cpu != nil {
		c.cpu.Step(c.cpuState, c.grid.Origin, c.cpuNext, delta, elapsed, c.flow)
		if err := c.dev.WriteStateTexture(c.textures[write], c.cpuNext); err != nil {
			return fmt.Errorf("compute %q: upload: %w", c.label, err)
		}
		c.cpuState, c.cpuNext = c.cpuNext, c.cpuState
	} else {
		params := gpu.NewUniforms(simulateUniformSize).
			Vec4(delta, elapsed, float32(c.grid.Side), float32(c.grid.Count)).
			Vec4(c.flow.Influence, c.flow.Strength, c.flow.Frequency, 0)
		if err := c.dev.WriteBuffer(c.uniforms, params.Bytes()); err != nil {
			return fmt.Errorf("compute %q: uniforms: %w", c.label, err)
		}
		groups := (uint32(c.grid.Side) + simulateWorkgroup - 1) / simulateWorkgroup
		err := enc.Dispatch(c.program, gpu.Bindings{
			Uniforms: c.uniforms,
			Textures: []gpu.Texture{c.textures[read], c.origin},
		}, c.textures[write], groups, groups)
		if err != nil {
			return fmt.Errorf("compute %q: %w", c.label, err)
		}
	}

	c.current = write
	c.steps++
	return nil
}

// CurrentTexture is the texture written by the last step.
func (c *ComputeEngine) CurrentTexture() gpu.Texture { return c.textures[c.current] }

func (c *ComputeEngine) Side() int  { return c.grid.Side }
func (c *ComputeEngine) Count() int { return c.grid.Count }
func (c *ComputeEngine) Steps() int { return c.steps }

// OnCPU reports whether steps run on the CPU mirror.
func (c *ComputeEngine) OnCPU() bool { return c.cpu != nil }

// DecodeSimulateUniforms unpacks the kernel parameters; tests use it to run
// the CPU mirror as the kernel of a recording device.
func DecodeSimulateUniforms(data []byte) (delta, elapsed float32, flow core.FlowConfig) {
	return gpu.Float32At(data, 0), gpu.Float32At(data, 1), core.FlowConfig{
		Influence: gpu.Float32At(data, 4),
		Strength:  gpu.Float32At(data, 5),
		Frequency: gpu.Float32At(data, 6),
	}
}

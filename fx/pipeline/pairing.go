package pipeline

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/gpu"
)

// ErrMissingGeometry is returned when a scene names a geometry that is absent
// or has no vertices.
var ErrMissingGeometry = errors.New("missing geometry")

// ShadingFactors overrides the refractive lighting and fresnel weights.
type ShadingFactors struct {
	Light   float32
	Fresnel float32
}

// PairingConfig is the literal bundle one scene is built from.
type PairingConfig struct {
	Label    string
	Geometry string

	Breakpoint float32
	BaseScale  mgl32.Vec3
	SmallScale mgl32.Vec3
	// Refract* default to the particle scale policy when zero.
	RefractBreakpoint float32
	RefractBaseScale  mgl32.Vec3
	RefractSmallScale mgl32.Vec3

	Flow      core.FlowConfig
	Particles ParticleShading
	Animator  core.Animator
	// RefractAnimator defaults to a slow spin.
	RefractAnimator core.Animator
	Factors         *ShadingFactors

	ClearColor [4]float32
}

// Pairing is one isolated scene: a particle field, a glass object and the
// offscreen target the scene renders into.
type Pairing struct {
	Index int
	Label string

	Compute   *ComputeEngine
	Particles *ParticleBatch
	Refract   *RefractiveObject

	clear  [4]float32
	target gpu.RenderTarget
}

// NewPairing seeds the particle grid from geometry. seed fixes the life and
// size jitter randomness. width is the logical viewport width used for the
// initial scale selection.
func NewPairing(index int, cfg PairingConfig, geometry *core.Geometry, width float32, seed int64) (*Pairing, error) {
	if !geometry.Usable() {
		return nil, fmt.Errorf("scene %q: %w: %q", cfg.Label, ErrMissingGeometry, cfg.Geometry)
	}
	rng := rand.New(rand.NewSource(seed))
	grid := core.SeedGrid(geometry.Vertices, rng)
	attrs := core.NewRenderAttributes(grid.Side, grid.Count, rng)

	refractBP, refractBase, refractSmall := cfg.RefractBreakpoint, cfg.RefractBaseScale, cfg.RefractSmallScale
	if refractBP == 0 {
		refractBP = cfg.Breakpoint
	}
	if refractBase == (mgl32.Vec3{}) {
		refractBase = cfg.BaseScale
	}
	if refractSmall == (mgl32.Vec3{}) {
		refractSmall = cfg.SmallScale
	}

	shading := DefaultRefractiveShading()
	if cfg.Factors != nil {
		shading.LightFactor = cfg.Factors.Light
		shading.FresnelFactor = cfg.Factors.Fresnel
	}

	label := fmt.Sprintf("scene %d", index)
	return &Pairing{
		Index:   index,
		Label:   cfg.Label,
		Compute: NewComputeEngine(label, grid, cfg.Flow, seed),
		Particles: NewParticleBatch(label, attrs, cfg.Particles, cfg.Animator,
			core.NewScaleSelector(cfg.Breakpoint, cfg.SmallScale, cfg.BaseScale, width)),
		Refract: NewRefractiveObject(label, geometry, shading, cfg.RefractAnimator,
			core.NewScaleSelector(refractBP, refractSmall, refractBase, width)),
		clear: cfg.ClearColor,
	}, nil
}

// Compile builds every GPU resource of the scene at width x height device
// pixels.
func (p *Pairing) Compile(dev gpu.Device, programs *Programs, width, height uint32) error {
	if err := p.Compute.Build(dev, programs); err != nil {
		return err
	}
	if err := p.Particles.Build(dev, programs); err != nil {
		return err
	}
	if err := p.Refract.Build(dev, programs, width, height); err != nil {
		return err
	}
	target, err := dev.NewRenderTarget(fmt.Sprintf("scene %d target", p.Index), width, height)
	if err != nil {
		return fmt.Errorf("scene %q: %w", p.Label, err)
	}
	p.target = target
	p.Particles.SetResolution(float32(width), float32(height))
	return nil
}

func (p *Pairing) Target() gpu.RenderTarget { return p.target }

// Animate rebinds the newest simulation state and runs both animation
// strategies.
func (p *Pairing) Animate(tick core.Tick, pointer core.Pointer) {
	p.Particles.PerFrameUpdate(p.Compute.CurrentTexture(), tick, pointer)
	p.Refract.Update(tick, pointer)
}

// Render captures the glass backdrop and then renders the scene into its
// target. Both passes are closed when Render returns.
func (p *Pairing) Render(dev gpu.Device, enc gpu.Encoder, cam *core.Camera) error {
	if err := p.Particles.Upload(dev, cam); err != nil {
		return fmt.Errorf("scene %q: %w", p.Label, err)
	}
	if err := p.Refract.Upload(dev, cam); err != nil {
		return fmt.Errorf("scene %q: %w", p.Label, err)
	}
	if err := p.Refract.Capture(enc, p.clear, p.drawScene); err != nil {
		return fmt.Errorf("scene %q: capture: %w", p.Label, err)
	}
	if err := gpu.WithTarget(enc, p.target, gpu.ClearAll, p.clear, p.drawScene); err != nil {
		return fmt.Errorf("scene %q: render: %w", p.Label, err)
	}
	return nil
}

func (p *Pairing) drawScene(pass gpu.Pass) error {
	if err := p.Particles.Draw(pass); err != nil {
		return err
	}
	return p.Refract.Draw(pass)
}

// Resize reallocates the scene target and backdrop and reapplies the
// breakpoint scales for the logical width.
func (p *Pairing) Resize(width, height uint32, logicalWidth float32) error {
	if err := p.target.Resize(width, height); err != nil {
		return fmt.Errorf("scene %q: %w", p.Label, err)
	}
	if err := p.Refract.Resize(width, height); err != nil {
		return fmt.Errorf("scene %q: %w", p.Label, err)
	}
	p.Particles.SetResolution(float32(width), float32(height))
	p.Particles.ResizeScale(logicalWidth)
	p.Refract.ResizeScale(logicalWidth)
	return nil
}

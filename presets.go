package lumen

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/pipeline"
)

// Preset is one scene bundle plus the generator of the geometry it names.
type Preset struct {
	pipeline.PairingConfig
	Generate GeometryGenerator
}

func uniform(s float32) mgl32.Vec3 { return mgl32.Vec3{s, s, s} }

// Presets returns the scene bundles in navigation order. sphereSubdivisions
// sets the particle density of the sphere scene.
func Presets(sphereSubdivisions int) []Preset {
	return []Preset{
		{
			PairingConfig: pipeline.PairingConfig{
				Label:      "Sphere",
				Geometry:   "sphere",
				BaseScale:  uniform(0.125),
				SmallScale: uniform(0.05),
				Flow:       core.FlowConfig{Influence: 0.504, Strength: 1.35, Frequency: 0.772},
				Particles:  pipeline.ParticleShading{Size: 0.005, Frequency: 2.15, Amplitude: 3.05, MaxDistance: 3.45},
				Animator:   core.Tumble{Rate: mgl32.Vec3{0.05, -0.05, 0}},
			},
			Generate: func(context.Context) (*core.Geometry, error) {
				return Icosphere("sphere", 2, sphereSubdivisions)
			},
		},
		{
			PairingConfig: pipeline.PairingConfig{
				Label:      "Om",
				Geometry:   "om",
				Breakpoint: 640,
				BaseScale:  uniform(0.125),
				SmallScale: uniform(0.07),
				Flow:       core.FlowConfig{Influence: 0.504, Strength: 1.95, Frequency: 0.272},
				Particles:  pipeline.ParticleShading{Size: 0.002, Frequency: 0.85, Amplitude: 3.05, MaxDistance: 2.95},
				Animator:   core.Sway{Amplitude: 0.23, Frequency: 0.5},
			},
			Generate: func(context.Context) (*core.Geometry, error) {
				return TorusKnot("om", TorusKnotParams{Radius: 1.6, Tube: 0.45, TubularSegments: 256, RadialSegments: 32, P: 2, Q: 3})
			},
		},
		{
			PairingConfig: pipeline.PairingConfig{
				Label:      "Prism",
				Geometry:   "prism",
				Breakpoint: 640,
				BaseScale:  uniform(0.5),
				SmallScale: uniform(0.3),
				Flow:       core.FlowConfig{Influence: 0.35, Strength: 1.2, Frequency: 0.5},
				Particles:  pipeline.ParticleShading{Size: 0.004, Frequency: 1.5, Amplitude: 2.5, MaxDistance: 3},
				Animator:   core.PointerTilt{MaxAngle: 0.35, Base: core.Tumble{Rate: mgl32.Vec3{0, 0.1, 0}}},
				Factors:    &pipeline.ShadingFactors{Light: 0, Fresnel: 0},
			},
			Generate: func(context.Context) (*core.Geometry, error) {
				return Box("prism", mgl32.Vec3{2, 3, 2})
			},
		},
	}
}

// EnqueuePresets queues the geometry of every preset, once per name.
func EnqueuePresets(server *AssetServer, presets []Preset) error {
	seen := map[string]bool{}
	for _, p := range presets {
		if seen[p.Geometry] || p.Generate == nil {
			continue
		}
		seen[p.Geometry] = true
		if _, err := server.QueueGeometry(p.Geometry, p.Generate); err != nil {
			return err
		}
	}
	return nil
}

// BuildPairings constructs one pairing per preset from the loaded geometries.
// A geometry that did not load aborts with pipeline.ErrMissingGeometry naming
// it.
func BuildPairings(server *AssetServer, presets []Preset, width float32, seed int64) ([]*pipeline.Pairing, error) {
	out := make([]*pipeline.Pairing, 0, len(presets))
	for i, p := range presets {
		geometry, ok := server.Geometry(p.Geometry)
		if !ok {
			err := fmt.Errorf("scene %q: %w: %q", p.Label, pipeline.ErrMissingGeometry, p.Geometry)
			if cause := server.Failure(p.Geometry); cause != nil {
				err = errors.Join(err, cause)
			}
			return nil, err
		}
		pairing, err := pipeline.NewPairing(i, p.PairingConfig, geometry, width, seed+int64(i))
		if err != nil {
			return nil, err
		}
		out = append(out, pairing)
	}
	return out, nil
}

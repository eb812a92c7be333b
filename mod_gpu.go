package lumen

import (
	"fmt"

	"github.com/gekko3d/lumen/fx/gpu"
)

// GpuState owns the device and the encoder of the frame being recorded.
type GpuState struct {
	Device  gpu.Device
	Encoder gpu.Encoder

	failed  error
	release func()
}

// Fail marks the frame as failed. Later stages skip their work; the frame is
// still submitted so every opened pass is closed.
func (s *GpuState) Fail(stage string, err error) {
	if s.failed == nil {
		s.failed = fmt.Errorf("%s: %w", stage, err)
	}
}

// Err is the failure of the current frame, if any.
func (s *GpuState) Err() error { return s.failed }

// Recording reports whether a frame is open and has not failed.
func (s *GpuState) Recording() bool { return s.Encoder != nil && s.failed == nil }

// GpuModule installs Device as the single renderer. A frame is opened at
// the start of every running tick and submitted at its end. Release runs
// when the app exits.
type GpuModule struct {
	Name    string
	Device  gpu.Device
	Release func()
}

func (mod GpuModule) Install(app *App, cmd *Commands) {
	name := mod.Name
	if name == "" {
		name = "webgpu"
	}
	ensureSingleRenderer(app, name)
	cmd.AddResources(&GpuState{Device: mod.Device, release: mod.Release})

	app.UseSystem(
		System(beginFrame).
			InStage(Prelude).
			InState(OnExecute(StateRunning)),
	)
	app.UseSystem(
		System(releaseGpu).
			InStage(Finale).
			InState(OnEnter(StateExit)),
	)
}

func beginFrame(s *GpuState, cmd *Commands) {
	s.failed = nil
	enc, err := s.Device.BeginFrame()
	if err != nil {
		s.Encoder = nil
		s.failed = fmt.Errorf("begin frame: %w", err)
		cmd.Logger().Errorf("%v", s.failed)
		return
	}
	s.Encoder = enc
}

// submitFrame closes any pass a failed stage left open and submits.
func submitFrame(s *GpuState) error {
	enc := s.Encoder
	s.Encoder = nil
	if enc == nil {
		return nil
	}
	if pass, open := enc.Active(); open {
		if err := pass.End(); err != nil {
			return fmt.Errorf("close pass: %w", err)
		}
	}
	if err := enc.Submit(); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

func releaseGpu(s *GpuState, cmd *Commands) {
	if s.release != nil {
		s.release()
		s.release = nil
		cmd.Logger().Infof("gpu released")
	}
}

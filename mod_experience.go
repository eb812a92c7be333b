package lumen

import (
	"errors"
	"fmt"
	"time"

	"github.com/gekko3d/lumen/fx/core"
	"github.com/gekko3d/lumen/fx/pipeline"
)

// Experience is the running set of scene pairings and the passes that put
// them on screen.
type Experience struct {
	presets []Preset
	seed    int64
	text    *core.TextRenderer

	Camera    *core.Camera
	Offscreen *pipeline.OffscreenCompositor
	Crossfade *pipeline.CrossfadeCompositor
	Overlay   *pipeline.LabelOverlay

	programs      *pipeline.Programs
	transition    *core.Transition
	resizePending bool
}

// Built reports whether the pairings exist.
func (x *Experience) Built() bool { return x.Offscreen != nil }

// ExperienceModule builds one pairing per preset when the app enters the
// running state and schedules the frame: switches, resize, transition and
// label fade in PreUpdate, compute in Update, animation in PreRender,
// offscreen scenes in Render, composite and label overlay in PostRender,
// submit in Finale. It needs the time, viewport, input, asset and gpu
// modules installed first.
type ExperienceModule struct {
	Presets []Preset
	Seed    int64

	TransitionDuration time.Duration
	TransitionEase     core.Ease
	LabelFade          time.Duration
	LabelEase          core.Ease
	LabelFontSize      float64

	// Profiler defaults to one without CSV output.
	Profiler *Profiler
}

func (mod ExperienceModule) Install(app *App, cmd *Commands) {
	if mod.TransitionDuration <= 0 {
		mod.TransitionDuration = 1500 * time.Millisecond
	}
	if mod.TransitionEase == nil {
		mod.TransitionEase = core.Power2InOut
	}
	if mod.LabelFade <= 0 {
		mod.LabelFade = 1500 * time.Millisecond
	}
	if mod.LabelEase == nil {
		mod.LabelEase = core.Power2InOut
	}
	if mod.LabelFontSize <= 0 {
		mod.LabelFontSize = 32
	}
	if mod.Profiler == nil {
		mod.Profiler = NewProfiler(nil, 1)
	}
	text, err := core.NewTextRenderer(nil, mod.LabelFontSize)
	if err != nil {
		panic(fmt.Sprintf("label font: %v", err))
	}

	cmd.AddResources(
		&Experience{
			presets: mod.Presets,
			seed:    mod.Seed,
			text:    text,
			Camera:  core.NewCamera(),
		},
		NewNavigation(mod.TransitionDuration, mod.TransitionEase),
		NewHeaderFader(mod.LabelFade, mod.LabelEase),
		mod.Profiler,
	)

	app.UseSystem(System(quitOnRequest).InStage(Prelude).RunAlways())
	app.UseSystem(System(buildExperience).InStage(Prelude).InState(OnEnter(StateRunning)))

	running := []struct {
		stage  Stage
		system systemFn
	}{
		{Prelude, navigationControls},
		{PreUpdate, applySwitches},
		{PreUpdate, applyResize},
		{PreUpdate, advanceTransition},
		{PreUpdate, fadeLabel},
		{Update, stepCompute},
		{PreRender, animateScenes},
		{Render, renderOffscreen},
		{PostRender, compositeScenes},
		{PostRender, drawLabel},
		{Finale, finishFrame},
	}
	for _, s := range running {
		app.UseSystem(System(s.system).InStage(s.stage).InState(OnExecute(StateRunning)))
	}
}

func quitOnRequest(in *Input, cmd *Commands) {
	if cmd.State() == StateExit {
		return
	}
	if in.CloseRequested || in.JustPressed[KeyEscape] {
		cmd.Logger().Infof("exit requested")
		cmd.ChangeState(StateExit)
	}
}

func buildExperience(x *Experience, gs *GpuState, server *AssetServer, vp *Viewport, nav *Navigation, header *HeaderFader, prof *Profiler, cmd *Commands) {
	if err := x.build(gs, server, vp, cmd.Logger()); err != nil {
		cmd.Logger().Errorf("build scenes: %v", err)
		panic(fmt.Sprintf("build scenes: %v", err))
	}
	nav.attach(x.transition, x.Offscreen.Labels())
	header.Show(nav.ActiveLabel())
	prof.SetPairings(x.Offscreen.Len())
}

func (x *Experience) build(gs *GpuState, server *AssetServer, vp *Viewport, log Logger) error {
	if len(x.presets) == 0 {
		return errors.New("no scene presets")
	}
	pairings, err := BuildPairings(server, x.presets, vp.Width, x.seed)
	if err != nil {
		return err
	}

	dev := gs.Device
	x.programs = pipeline.NewPrograms(dev)
	x.Offscreen = pipeline.NewOffscreenCompositor(dev, x.programs, log)
	for _, p := range pairings {
		x.Offscreen.Add(p)
	}
	if err := x.Offscreen.CompileAll(vp.Width, vp.Height, vp.PixelRatio); err != nil {
		return err
	}

	w, h := x.Offscreen.Size()
	x.transition = core.NewTransition(len(pairings), 0)
	x.Crossfade = pipeline.NewCrossfadeCompositor(x.Offscreen, x.transition, log)
	if err := x.Crossfade.Build(dev, x.programs, w, h); err != nil {
		return err
	}
	x.Overlay = pipeline.NewLabelOverlay(x.text)
	if err := x.Overlay.Build(dev, x.programs); err != nil {
		return err
	}
	if err := dev.ConfigureSurface(w, h); err != nil {
		return fmt.Errorf("configure surface: %w", err)
	}
	x.Camera.SetViewport(vp.Width, vp.Height)
	return nil
}

func navigationControls(in *Input, nav *Navigation) {
	for key := Key1; key <= Key9; key++ {
		if in.JustPressed[key] {
			nav.Request(key - Key1)
		}
	}
	if in.JustPressed[KeyLeft] {
		nav.Prev()
	}
	if in.JustPressed[KeyRight] {
		nav.Next()
	}
}

func applySwitches(x *Experience, gs *GpuState, nav *Navigation, header *HeaderFader, cmd *Commands) {
	if !gs.Recording() {
		return
	}
	nav.drain(func(index int) bool {
		if !gs.Recording() {
			return false
		}
		sw, err := x.Crossfade.Switch(gs.Encoder, index)
		if errors.Is(err, core.ErrInvalidTransitionIndex) {
			cmd.Logger().Debugf("switch ignored: %v", err)
			return true
		}
		if err != nil {
			// the transition is unchanged; the request is retried next tick
			gs.Fail("switch", err)
			cmd.Logger().Errorf("switch to %d: %v", index, err)
			return false
		}
		nav.started()
		header.SwitchTo(nav.PendingLabel())
		cmd.Logger().Debugf("switch %s -> %d", describeSource(sw.Next.From), sw.Next.Pending)
		return true
	})
}

func describeSource(s core.Source) string {
	if s.Snapshot {
		return fmt.Sprintf("snapshot(->%d)", s.Index)
	}
	return fmt.Sprintf("%d", s.Index)
}

// applyResize moves every size-dependent allocation to the new viewport in
// one pass, before anything of this frame samples them. A resize seen during
// a failed frame is applied on the next one.
func applyResize(x *Experience, gs *GpuState, vp *Viewport, cmd *Commands) {
	if vp.Changed {
		x.resizePending = true
	}
	if !x.resizePending || !gs.Recording() {
		return
	}
	if err := resizeAll(x, gs, vp); err != nil {
		gs.Fail("resize", err)
		cmd.Logger().Errorf("resize: %v", err)
		return
	}
	x.resizePending = false
}

func resizeAll(x *Experience, gs *GpuState, vp *Viewport) error {
	if _, err := x.Offscreen.Resize(vp.Width, vp.Height, vp.PixelRatio); err != nil {
		return err
	}
	w, h := x.Offscreen.Size()
	if err := x.Crossfade.Resize(gs.Encoder, w, h); err != nil {
		return err
	}
	if err := gs.Device.ConfigureSurface(w, h); err != nil {
		return err
	}
	x.Camera.SetViewport(vp.Width, vp.Height)
	return nil
}

func advanceTransition(t *Time, nav *Navigation, cmd *Commands) {
	if _, completed := nav.advance(t.Dt); completed {
		cmd.Logger().Debugf("transition complete, showing %q", nav.ActiveLabel())
	}
}

func fadeLabel(t *Time, header *HeaderFader) {
	header.Advance(t.Dt)
}

func stepCompute(x *Experience, gs *GpuState, t *Time, prof *Profiler, cmd *Commands) {
	if !gs.Recording() {
		return
	}
	defer prof.Begin(StageCompute)()
	if err := x.Offscreen.Step(gs.Encoder, t.Tick()); err != nil {
		gs.Fail(StageCompute, err)
		cmd.Logger().Errorf("compute: %v", err)
	}
}

func animateScenes(x *Experience, gs *GpuState, t *Time, p *Pointer) {
	if !gs.Recording() {
		return
	}
	x.Offscreen.Animate(t.Tick(), p.Pointer)
}

func renderOffscreen(x *Experience, gs *GpuState, prof *Profiler, cmd *Commands) {
	if !gs.Recording() {
		return
	}
	defer prof.Begin(StageOffscreen)()
	if err := x.Offscreen.RenderAllOffscreen(gs.Encoder, x.Camera); err != nil {
		gs.Fail(StageOffscreen, err)
		cmd.Logger().Errorf("offscreen: %v", err)
	}
}

func compositeScenes(x *Experience, gs *GpuState, prof *Profiler, cmd *Commands) {
	if !gs.Recording() {
		return
	}
	defer prof.Begin(StageComposite)()
	if err := x.Crossfade.Composite(gs.Encoder); err != nil {
		gs.Fail(StageComposite, err)
		cmd.Logger().Errorf("composite: %v", err)
	}
}

// labelTop is the label's top edge as a fraction of the surface height.
const labelTop = 0.08

func drawLabel(x *Experience, gs *GpuState, header *HeaderFader, prof *Profiler, cmd *Commands) {
	if !gs.Recording() {
		return
	}
	defer prof.Begin(StageOverlay)()
	w, h := x.Offscreen.Size()
	text := header.Text()
	tw, _ := x.Overlay.Measure(text, 1)
	items := []core.TextItem{{
		Text:     text,
		Position: [2]float32{(float32(w) - tw) / 2, float32(h) * labelTop},
		Scale:    1,
		Color:    [4]float32{1, 1, 1, header.Alpha()},
	}}
	if header.Alpha() <= 0 {
		items = nil
	}
	if err := x.Overlay.Draw(gs.Encoder, items, int(w), int(h)); err != nil {
		gs.Fail(StageOverlay, err)
		cmd.Logger().Errorf("label: %v", err)
	}
}

func finishFrame(gs *GpuState, t *Time, prof *Profiler, cmd *Commands) {
	failed := gs.Err() != nil
	done := prof.Begin(StageSubmit)
	if err := submitFrame(gs); err != nil {
		failed = true
		cmd.Logger().Errorf("frame %d: %v", t.Frame, err)
	}
	done()
	if err := prof.EndFrame(t.Frame, failed); err != nil {
		cmd.Logger().Warnf("profiler: %v", err)
	}
}

package lumen

import (
	"time"

	"github.com/gekko3d/lumen/fx/core"
)

// maxFrameDelta caps one tick's delta so a stalled window does not launch
// the particle field.
const maxFrameDelta = 100 * time.Millisecond

type Time struct {
	Time    time.Time
	Dt      time.Duration
	Elapsed time.Duration
	Frame   uint64
}

// Tick converts the clock to the seconds the effect pipeline runs on.
func (t *Time) Tick() core.Tick {
	return core.Tick{Delta: float32(t.Dt.Seconds()), Elapsed: float32(t.Elapsed.Seconds())}
}

// TimeModule advances the clock first thing every tick. Now defaults to
// time.Now.
type TimeModule struct {
	Now func() time.Time
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	now := mod.Now
	if now == nil {
		now = time.Now
	}
	clock := &Time{Time: now()}
	cmd.AddResources(clock)
	app.UseSystem(
		System(func(t *Time) { advanceClock(t, now()) }).
			InStage(Prelude).
			RunAlways(),
	)
}

func advanceClock(t *Time, now time.Time) {
	dt := now.Sub(t.Time)
	if dt < 0 {
		dt = 0
	}
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}
	t.Dt = dt
	t.Elapsed += dt
	t.Time = now
	t.Frame++
}

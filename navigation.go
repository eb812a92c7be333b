package lumen

import (
	"time"

	"github.com/gekko3d/lumen/fx/core"
)

type request struct {
	index  int
	delta  int
	cycled bool
}

// Navigation queues scene switch requests between ticks and drives the
// crossfade progress with a tween. Requests are applied in arrival order at
// the start of the next tick.
type Navigation struct {
	labels     []string
	transition *core.Transition
	tween      *core.Tween
	queue      []request
}

func NewNavigation(duration time.Duration, ease core.Ease) *Navigation {
	return &Navigation{tween: core.NewTween(duration, ease)}
}

// attach binds the transition once the scenes exist.
func (n *Navigation) attach(t *core.Transition, labels []string) {
	n.transition = t
	n.labels = labels
}

// Request asks for a switch to index. Out-of-range and already-active
// requests are dropped when applied.
func (n *Navigation) Request(index int) {
	n.queue = append(n.queue, request{index: index})
}

// Next and Prev cycle relative to the destination current when the request
// is applied.
func (n *Navigation) Next() { n.queue = append(n.queue, request{delta: 1, cycled: true}) }

func (n *Navigation) Prev() { n.queue = append(n.queue, request{delta: -1, cycled: true}) }

// Pending reports how many requests wait for the next tick.
func (n *Navigation) Pending() int { return len(n.queue) }

// drain hands queued requests to apply in order, resolving cycles first.
// When apply reports false that request and everything after it stay queued
// for the next tick.
func (n *Navigation) drain(apply func(index int) bool) {
	queue := n.queue
	n.queue = nil
	for i, r := range queue {
		index := r.index
		if r.cycled {
			if n.transition == nil || n.transition.Count() == 0 {
				continue
			}
			count := n.transition.Count()
			index = ((n.transition.State().Pending+r.delta)%count + count) % count
		}
		if !apply(index) {
			n.queue = append(queue[i:len(queue):len(queue)], n.queue...)
			return
		}
	}
}

// started restarts the tween for a freshly accepted switch.
func (n *Navigation) started() { n.tween.Start() }

// advance moves the running transition forward by dt. When the tween ends
// the transition resolves in the same call.
func (n *Navigation) advance(dt time.Duration) (progress float32, completed bool) {
	if n.transition == nil || n.transition.State().Phase != core.PhaseTransitioning {
		return 0, false
	}
	value, done := n.tween.Advance(dt)
	progress = n.transition.Advance(value)
	if done {
		return 1, n.transition.Complete()
	}
	return progress, false
}

// ActiveLabel is the label of the scene shown when idle, or left behind
// while transitioning.
func (n *Navigation) ActiveLabel() string { return n.label(func(s core.TransitionState) int { return s.Active }) }

// PendingLabel is the label of the destination scene.
func (n *Navigation) PendingLabel() string { return n.label(func(s core.TransitionState) int { return s.Pending }) }

func (n *Navigation) label(pick func(core.TransitionState) int) string {
	if n.transition == nil {
		return ""
	}
	i := pick(n.transition.State())
	if i < 0 || i >= len(n.labels) {
		return ""
	}
	return n.labels[i]
}

// State exposes the transition bookkeeping read-only.
func (n *Navigation) State() (core.TransitionState, bool) {
	if n.transition == nil {
		return core.TransitionState{}, false
	}
	return n.transition.State(), true
}

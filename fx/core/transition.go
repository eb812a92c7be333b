package core

import (
	"errors"
	"fmt"
)

// ErrInvalidTransitionIndex is returned for out-of-range and no-op switch requests.
var ErrInvalidTransitionIndex = errors.New("invalid transition index")

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseTransitioning
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseTransitioning:
		return "transitioning"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Source names the image a crossfade starts from: a scene target, or the
// frozen blend captured when a switch interrupted a running transition. For
// snapshots Index is the scene the frozen blend was heading to.
type Source struct {
	Index    int
	Snapshot bool
}

// TransitionState is a read-only view of the crossfade bookkeeping.
type TransitionState struct {
	Phase    Phase
	Active   int // scene shown when idle; the scene left behind while transitioning
	Pending  int // destination; equals Active when idle
	From     Source
	Progress float32
}

// Switch describes an accepted request. Prev is the state right before the
// request; when Interrupted is set the caller must freeze Prev's blend as
// the new From image. A transition still at progress 0 shows exactly its
// From image, so replacing it keeps that image and needs no freeze.
type Switch struct {
	Prev        TransitionState
	Next        TransitionState
	Interrupted bool
}

// Transition is the Idle -> Transitioning -> Idle machine for N scenes.
type Transition struct {
	count int
	state TransitionState
}

func NewTransition(count, initial int) *Transition {
	if initial < 0 || initial >= count {
		initial = 0
	}
	return &Transition{
		count: count,
		state: TransitionState{
			Phase:   PhaseIdle,
			Active:  initial,
			Pending: initial,
			From:    Source{Index: initial},
		},
	}
}

func (t *Transition) Count() int { return t.count }

func (t *Transition) State() TransitionState { return t.state }

// Request starts a transition towards index.
func (t *Transition) Request(index int) (Switch, error) {
	if index < 0 || index >= t.count {
		return Switch{}, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidTransitionIndex, index, t.count)
	}
	if index == t.state.Pending {
		return Switch{}, fmt.Errorf("%w: %d is already active", ErrInvalidTransitionIndex, index)
	}

	prev := t.state
	sw := Switch{Prev: prev}

	next := TransitionState{
		Phase:   PhaseTransitioning,
		Active:  prev.Active,
		Pending: index,
		From:    Source{Index: prev.Active},
	}
	if prev.Phase == PhaseTransitioning {
		if prev.Progress > 0 {
			sw.Interrupted = true
			next.From = Source{Index: prev.Pending, Snapshot: true}
		} else {
			next.From = prev.From
		}
	}

	t.state = next
	sw.Next = next
	return sw, nil
}

// Restore puts back a state returned by State or carried in Switch.Prev. It
// undoes an accepted Request whose interrupted blend could not be frozen.
func (t *Transition) Restore(s TransitionState) {
	t.state = s
}

// Advance moves progress forward. Values below the current progress are
// ignored; values are clamped to [0,1].
func (t *Transition) Advance(progress float32) float32 {
	if t.state.Phase != PhaseTransitioning {
		return t.state.Progress
	}
	if progress > 1 {
		progress = 1
	}
	if progress > t.state.Progress {
		t.state.Progress = progress
	}
	return t.state.Progress
}

// Complete resolves a running transition to Idle(pending).
func (t *Transition) Complete() bool {
	if t.state.Phase != PhaseTransitioning {
		return false
	}
	to := t.state.Pending
	t.state = TransitionState{
		Phase:   PhaseIdle,
		Active:  to,
		Pending: to,
		From:    Source{Index: to},
	}
	return true
}

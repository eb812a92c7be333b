package lumen

import (
	"time"

	"github.com/gekko3d/lumen/fx/core"
)

type fadePhase int

const (
	fadeSteady fadePhase = iota
	fadeOut
	fadeIn
)

// HeaderFader fades the scene label out, swaps the text, and fades it back
// in. It only tracks text and opacity; the overlay draws it.
type HeaderFader struct {
	text    string
	pending string
	alpha   float32
	from    float32
	phase   fadePhase
	tween   *core.Tween
}

func NewHeaderFader(duration time.Duration, ease core.Ease) *HeaderFader {
	return &HeaderFader{tween: core.NewTween(duration, ease)}
}

// Show fades text in from transparent.
func (h *HeaderFader) Show(text string) {
	h.text, h.pending = text, text
	h.from, h.alpha = 0, 0
	h.phase = fadeIn
	h.tween.Start()
}

// SwitchTo fades the current text out from its current opacity, then fades
// text in. Switching again mid-fade retargets the text.
func (h *HeaderFader) SwitchTo(text string) {
	h.pending = text
	if h.phase == fadeOut {
		return
	}
	h.from = h.alpha
	h.phase = fadeOut
	h.tween.Start()
}

func (h *HeaderFader) Advance(dt time.Duration) {
	if h.phase == fadeSteady {
		return
	}
	v, done := h.tween.Advance(dt)
	switch h.phase {
	case fadeOut:
		h.alpha = h.from * (1 - v)
		if done {
			h.text = h.pending
			h.from = 0
			h.phase = fadeIn
			h.tween.Start()
		}
	case fadeIn:
		h.alpha = h.from + (1-h.from)*v
		if done {
			h.phase = fadeSteady
		}
	}
}

func (h *HeaderFader) Text() string { return h.text }

func (h *HeaderFader) Alpha() float32 { return h.alpha }

// Fading reports whether a fade is in progress.
func (h *HeaderFader) Fading() bool { return h.phase != fadeSteady }

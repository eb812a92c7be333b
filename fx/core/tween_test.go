package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEasingsEndpointsAndMonotonic(t *testing.T) {
	for name, ease := range easings {
		assert.InDelta(t, 0, ease(0), 1e-6, name)
		assert.InDelta(t, 1, ease(1), 1e-6, name)
		assert.InDelta(t, 0.5, ease(0.5), 1e-6, name)

		prev := ease(0)
		for i := 1; i <= 100; i++ {
			v := ease(float32(i) / 100)
			require.GreaterOrEqual(t, v, prev, "%s at %d", name, i)
			prev = v
		}
	}
}

func TestParseEase(t *testing.T) {
	e, err := ParseEase("power2.inOut")
	require.NoError(t, err)
	assert.InDelta(t, 0.032, e(0.2), 1e-6)

	_, err = ParseEase("bounce")
	assert.Error(t, err)
}

func TestTweenAdvance(t *testing.T) {
	tw := NewTween(1500*time.Millisecond, nil)
	v, done := tw.Advance(time.Second)
	assert.False(t, done)
	assert.Zero(t, v, "not started")

	tw.Start()
	assert.True(t, tw.Running())

	v, done = tw.Advance(750 * time.Millisecond)
	assert.False(t, done)
	assert.InDelta(t, 0.5, v, 1e-6)

	v, done = tw.Advance(time.Second)
	assert.True(t, done)
	assert.Equal(t, float32(1), v)
	assert.False(t, tw.Running())

	tw.Start()
	v, _ = tw.Advance(0)
	assert.Zero(t, v)
}

func TestTweenZeroDurationFinishesImmediately(t *testing.T) {
	tw := NewTween(0, Linear)
	tw.Start()
	v, done := tw.Advance(0)
	assert.True(t, done)
	assert.Equal(t, float32(1), v)
}

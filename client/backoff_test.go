package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func noJitter() time.Duration { return 0 }

func TestBackoffDelaySchedule(t *testing.T) {
	b := NewBackoff()
	b.Jitter = noJitter

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 8 * time.Second},
		{10, 8 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoffCustomBaseAndMax(t *testing.T) {
	b := Backoff{Base: 500 * time.Millisecond, Max: 3 * time.Second, Jitter: noJitter}

	assert.Equal(t, 500*time.Millisecond, b.Delay(0))
	assert.Equal(t, 1*time.Second, b.Delay(1))
	assert.Equal(t, 2*time.Second, b.Delay(2))
	assert.Equal(t, 3*time.Second, b.Delay(3))
	assert.Equal(t, 3*time.Second, b.Delay(9))
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff()

	for i := 0; i < 100; i++ {
		d := b.Delay(0)
		assert.GreaterOrEqual(t, d, 1*time.Second)
		assert.Less(t, d, 2*time.Second)
	}
}

func TestBackoffZeroValuesFallBackToDefaults(t *testing.T) {
	b := Backoff{Jitter: noJitter}
	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 8*time.Second, b.Delay(5))
}

package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	if now.Before(before) {
		t.Errorf("Now() = %v, expected at or after %v", now, before)
	}
	if d := clock.Since(now.Add(-time.Second)); d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	c.Advance(2 * time.Second)
	assert.Equal(t, 2*time.Second, c.Since(start))

	c.Sleep(250 * time.Millisecond)
	c.Sleep(time.Second)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, time.Second}, c.Sleeps())
	assert.Equal(t, start.Add(3250*time.Millisecond), c.Now())
}

func TestPacer(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		pacer   Pacer
		steps   int
		elapsed time.Duration
		want    time.Duration
	}{
		{"full budget", Pacer{StepDuration: time.Second, StepsPerSecond: 4}, 3, 0, 750 * time.Millisecond},
		{"part spent", Pacer{StepDuration: time.Second, StepsPerSecond: 2}, 1, 200 * time.Millisecond, 300 * time.Millisecond},
		{"overrun", Pacer{StepDuration: time.Second, StepsPerSecond: 1}, 1, 2 * time.Second, 0},
		{"unpaced", Pacer{}, 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMockClock(start)
			tt.pacer.Clock = c
			c.Advance(tt.elapsed)
			assert.Equal(t, tt.want, tt.pacer.Wait(start, tt.steps))
			if tt.want > 0 {
				assert.Equal(t, []time.Duration{tt.want}, c.Sleeps())
			} else {
				assert.Empty(t, c.Sleeps())
			}
		})
	}
}

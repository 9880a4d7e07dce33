package valve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingActuator remembers every commanded state.
type recordingActuator struct {
	history []State
}

func (a *recordingActuator) Set(s State) error {
	a.history = append(a.history, s)
	return nil
}

func (a *recordingActuator) last() State {
	return a.history[len(a.history)-1]
}

func newTestController(minDwell time.Duration) (*Controller, *recordingActuator) {
	act := &recordingActuator{}
	return New(25.0, 0.5, minDwell, act), act
}

func TestDecide_Hysteresis(t *testing.T) {
	tests := []struct {
		name  string
		start State
		avg   float32
		want  State
	}{
		{"closed opens above upper threshold", Closed, 26.0, Open},
		{"closed holds at upper threshold", Closed, 25.5, Closed},
		{"closed holds inside dead band", Closed, 25.2, Closed},
		{"open stays open inside dead band", Open, 24.6, Open},
		{"open holds at lower threshold", Open, 24.5, Open},
		{"open closes below lower threshold", Open, 24.4, Closed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, act := newTestController(0)
			c.state = tt.start

			require.NoError(t, c.Decide(time.Now(), tt.avg, true))
			assert.Equal(t, tt.want, c.State())
			assert.Equal(t, tt.want, act.last())
		})
	}
}

func TestDecide_FailSafeClosesOnNoValidAverage(t *testing.T) {
	c, act := newTestController(0)
	now := time.Now()

	require.NoError(t, c.Decide(now, 30.0, true))
	require.Equal(t, Open, c.State())

	require.NoError(t, c.Decide(now.Add(time.Second), 0, false))
	assert.Equal(t, Closed, c.State())
	assert.Equal(t, Closed, act.last())
}

func TestDecide_Overrides(t *testing.T) {
	c, act := newTestController(0)
	now := time.Now()

	// Force open against a temperature that would close it.
	c.SetMode(ForceOpen)
	require.NoError(t, c.Decide(now, 20.0, true))
	assert.Equal(t, Open, c.State())

	// Forced open holds even with no valid average.
	require.NoError(t, c.Decide(now, 0, false))
	assert.Equal(t, Open, c.State())

	// Force close against a temperature that would open it.
	c.SetMode(ForceClose)
	require.NoError(t, c.Decide(now, 30.0, true))
	assert.Equal(t, Closed, c.State())

	// Back to auto: hysteresis resumes from the current state.
	c.SetMode(Auto)
	require.NoError(t, c.Decide(now, 26.0, true))
	assert.Equal(t, Open, c.State())
	assert.Equal(t, Open, act.last())
}

func TestDecide_ActuatorCalledEveryTick(t *testing.T) {
	c, act := newTestController(0)
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Decide(now.Add(time.Duration(i)*time.Second), 25.0, true))
	}
	assert.Len(t, act.history, 3)
}

func TestDecide_MinDwell(t *testing.T) {
	c, _ := newTestController(10 * time.Second)
	start := time.Now()

	require.NoError(t, c.Decide(start, 26.0, true))
	require.Equal(t, Open, c.State())

	// A close request inside the dwell window is held off.
	require.NoError(t, c.Decide(start.Add(3*time.Second), 24.0, true))
	assert.Equal(t, Open, c.State())

	// After the window the transition goes through.
	require.NoError(t, c.Decide(start.Add(11*time.Second), 24.0, true))
	assert.Equal(t, Closed, c.State())
}

func TestDecide_MinDwellNeverDelaysFailSafe(t *testing.T) {
	c, _ := newTestController(time.Hour)
	start := time.Now()

	require.NoError(t, c.Decide(start, 26.0, true))
	require.Equal(t, Open, c.State())

	require.NoError(t, c.Decide(start.Add(time.Second), 0, false))
	assert.Equal(t, Closed, c.State())
}

func TestModeChar(t *testing.T) {
	assert.Equal(t, "A", Auto.Char())
	assert.Equal(t, "O", ForceOpen.Char())
	assert.Equal(t, "C", ForceClose.Char())
}

package pump

import (
	"math"
)

// Output is the analog-equivalent pump command channel. Set receives a
// normalized fraction in [0, 1]; the electrical realization (PWM, DAC, 0-10V)
// lives in the hardware adaptation layer.
type Output interface {
	Set(frac float64) error
}

// Actuator applies a percentage setpoint to the pump command channel and
// remembers the last commanded value for telemetry.
type Actuator struct {
	maxFreqHz float64
	out       Output
	pct       float64
}

// New creates an actuator starting at 0%.
func New(maxFreqHz float64, out Output) *Actuator {
	return &Actuator{maxFreqHz: maxFreqHz, out: out}
}

// SetCommandPercent clamps pct to [0, 100] and writes the equivalent fraction
// to the output channel. Non-finite input is treated as 0. Returns the
// applied, clamped percent.
func (a *Actuator) SetCommandPercent(pct float64) (float64, error) {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		pct = 0
	}
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}

	if err := a.out.Set(pct / 100); err != nil {
		return a.pct, err
	}
	a.pct = pct
	return pct, nil
}

// CommandPercent returns the last applied percent.
func (a *Actuator) CommandPercent() float64 { return a.pct }

// CommandFraction returns the last applied percent as a fraction in [0, 1].
func (a *Actuator) CommandFraction() float64 { return a.pct / 100 }

// TargetFreqHz returns the drive frequency corresponding to the last
// commanded percent.
func (a *Actuator) TargetFreqHz() float64 { return a.maxFreqHz * a.pct / 100 }

// MaxFreqHz returns the configured full-scale drive frequency.
func (a *Actuator) MaxFreqHz() float64 { return a.maxFreqHz }

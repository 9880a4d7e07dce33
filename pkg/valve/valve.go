package valve

import (
	"time"
)

// State is the commanded position of the cooling valve.
type State uint8

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "OPEN"
	}
	return "CLOSED"
}

// Mode selects between closed-loop control and operator overrides.
type Mode uint8

const (
	Auto Mode = iota
	ForceOpen
	ForceClose
)

// Char returns the single-letter mode code used on the telemetry line.
func (m Mode) Char() string {
	switch m {
	case ForceOpen:
		return "O"
	case ForceClose:
		return "C"
	default:
		return "A"
	}
}

func (m Mode) String() string {
	switch m {
	case ForceOpen:
		return "FORCE_OPEN"
	case ForceClose:
		return "FORCE_CLOSE"
	default:
		return "AUTO"
	}
}

// Actuator drives the physical valve output. Set is called every decision
// tick with the commanded state, including repeats.
type Actuator interface {
	Set(state State) error
}

// Controller runs on/off control with hysteresis around a setpoint, with
// operator overrides layered on top. All methods are called from the control
// loop only; the type is not safe for concurrent use.
type Controller struct {
	setpoint   float32
	hysteresis float32
	minDwell   time.Duration

	mode       Mode
	state      State
	lastChange time.Time
	actuator   Actuator
}

// New creates a controller starting closed, in automatic mode.
func New(setpointC, hysteresisC float32, minDwell time.Duration, act Actuator) *Controller {
	return &Controller{
		setpoint:   setpointC,
		hysteresis: hysteresisC,
		minDwell:   minDwell,
		actuator:   act,
	}
}

// State returns the current commanded valve position.
func (c *Controller) State() State { return c.state }

// Mode returns the current control mode.
func (c *Controller) Mode() Mode { return c.mode }

// SetMode switches between automatic control and the forced positions.
// The next Decide call applies the new mode.
func (c *Controller) SetMode(m Mode) {
	c.mode = m
}

// Decide computes and applies the valve state for this tick. avgC is the mean
// of the valid temperature readings; avgOK is false when no reading was valid,
// which drives the valve to the fail-safe closed position regardless of the
// hysteresis state. Overrides win over everything, including dwell limiting.
func (c *Controller) Decide(now time.Time, avgC float32, avgOK bool) error {
	next := c.state

	switch c.mode {
	case ForceOpen:
		next = Open
	case ForceClose:
		next = Closed
	default:
		switch {
		case !avgOK:
			next = Closed
		case avgC > c.setpoint+c.hysteresis:
			next = Open
		case avgC < c.setpoint-c.hysteresis:
			next = Closed
		}
		// inside the dead band the state holds

		// Dwell limiting applies to automatic transitions only, and never
		// delays the fail-safe close.
		if next != c.state && avgOK && c.minDwell > 0 && now.Sub(c.lastChange) < c.minDwell {
			next = c.state
		}
	}

	if next != c.state {
		c.state = next
		c.lastChange = now
	}
	return c.actuator.Set(c.state)
}

package sensor

import (
	"github.com/chewxy/math32"
)

const (
	// NumChannels is the number of physical thermocouple slots on the rig.
	// Unpopulated slots simply report invalid readings.
	NumChannels = 10

	// K-type thermocouple plausibility range. Anything outside is treated
	// as a wiring or conversion fault, not a temperature.
	MinTempC float32 = -200.0
	MaxTempC float32 = 1370.0
)

// Reading is one channel's result for one sample tick. When Valid is false
// the Celsius value is meaningless and must not be used.
type Reading struct {
	Celsius float32
	Valid   bool
}

// Channel is one physical thermocouple input. Fault reports the converter's
// fault flags (nonzero = faulted, e.g. open circuit); Temperature returns the
// raw conversion in °C. Implementations sit in the hardware adaptation layer.
type Channel interface {
	Fault() (uint8, error)
	Temperature() (float32, error)
}

// Array reads a fixed bank of thermocouple channels. Slots without a channel
// stay nil and always sample invalid.
type Array struct {
	channels [NumChannels]Channel
}

// NewArray creates an array over the given channels, in slot order. Extra
// channels beyond NumChannels are ignored.
func NewArray(channels ...Channel) *Array {
	a := &Array{}
	for i, ch := range channels {
		if i >= NumChannels {
			break
		}
		a.channels[i] = ch
	}
	return a
}

// SampleAll reads every populated channel once. A channel's reading is
// invalid if its fault flag is set, the read errors, the value is
// non-finite, or it falls outside the K-type range. One channel failing
// never aborts the others.
func (a *Array) SampleAll() [NumChannels]Reading {
	var out [NumChannels]Reading
	for i, ch := range a.channels {
		if ch == nil {
			continue
		}
		out[i] = sampleOne(ch)
	}
	return out
}

func sampleOne(ch Channel) Reading {
	fault, err := ch.Fault()
	if err != nil || fault != 0 {
		return Reading{}
	}

	t, err := ch.Temperature()
	if err != nil {
		return Reading{}
	}
	if math32.IsNaN(t) || math32.IsInf(t, 0) {
		return Reading{}
	}
	if t < MinTempC || t > MaxTempC {
		return Reading{}
	}

	return Reading{Celsius: t, Valid: true}
}

// Average returns the arithmetic mean over the valid readings only. The
// second return is false when no reading is valid, which is the control
// loop's fail-safe trigger.
func Average(readings [NumChannels]Reading) (float32, bool) {
	var sum float64
	var n int
	for _, r := range readings {
		if r.Valid {
			sum += float64(r.Celsius)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float32(sum / float64(n)), true
}

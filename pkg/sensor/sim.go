package sensor

import (
	"math/rand"
	"time"

	"github.com/chewxy/math32"
	"github.com/hfe-lab/rigctl/pkg/config"
)

// SimChannel simulates a thermocouple channel for mock runs and tests.
// It produces a slow sine swing around a baseline with per-sample noise,
// or a permanent converter fault when configured so.
type SimChannel struct {
	ambient   float32
	amplitude float32
	period    time.Duration
	noise     float32
	phase     float32
	faulted   bool

	start time.Time
	rng   *rand.Rand
}

var _ Channel = (*SimChannel)(nil)

// NewSimChannel creates one simulated channel. The phase offset spreads the
// channels of a bank so they do not read identically.
func NewSimChannel(cfg *config.MockConfig, phase float32) *SimChannel {
	return &SimChannel{
		ambient:   cfg.AmbientC,
		amplitude: cfg.AmplitudeC,
		period:    cfg.Period,
		noise:     cfg.NoiseC,
		phase:     phase,
		start:     time.Now(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetFaulted forces the channel to report a converter fault.
func (c *SimChannel) SetFaulted(faulted bool) {
	c.faulted = faulted
}

// Fault reports 0x01 (open circuit) when the channel is forced faulty.
func (c *SimChannel) Fault() (uint8, error) {
	if c.faulted {
		return 0x01, nil
	}
	return 0, nil
}

// Temperature returns the simulated reading in °C.
func (c *SimChannel) Temperature() (float32, error) {
	elapsed := float32(time.Since(c.start).Seconds())
	period := float32(c.period.Seconds())
	if period <= 0 {
		period = 1
	}

	t := c.ambient + c.amplitude*math32.Sin(2*math32.Pi*elapsed/period+c.phase)
	t += c.noise * float32(c.rng.NormFloat64())
	return t, nil
}

// NewSimBank builds the simulated channel set described by cfg: the first
// cfg.Channels slots populated, fault_channels forced faulty.
func NewSimBank(cfg *config.MockConfig) []Channel {
	n := cfg.Channels
	if n > NumChannels {
		n = NumChannels
	}

	faulted := make(map[int]bool, len(cfg.FaultChannels))
	for _, i := range cfg.FaultChannels {
		faulted[i] = true
	}

	channels := make([]Channel, 0, n)
	for i := 0; i < n; i++ {
		ch := NewSimChannel(cfg, float32(i)*0.3)
		ch.SetFaulted(faulted[i])
		channels = append(channels, ch)
	}
	return channels
}

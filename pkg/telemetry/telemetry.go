package telemetry

import (
	"math"
	"time"

	"github.com/hfe-lab/rigctl/pkg/config"
	"github.com/hfe-lab/rigctl/pkg/sensor"
	"github.com/hfe-lab/rigctl/pkg/valve"
	"github.com/hfe-lab/rigctl/pkg/vfd"
)

// Record is one telemetry sample: the full rig state at one sampling tick.
type Record struct {
	Type  string     `json:"type"`
	T     float64    `json:"t"` // seconds since start, 3 decimals
	Temps []*float64 `json:"temps"`
	Valve int        `json:"valve"` // 0 closed, 1 open
	Mode  string     `json:"mode"`  // A / O / C
	Pump  PumpBlock  `json:"pump"`
}

// PumpBlock carries the commanded pump setpoint and, when the last VFD poll
// succeeded, the drive's measured values with their nameplate-derived
// absolute equivalents. The measured fields are omitted entirely on a failed
// poll rather than carrying stale or zero values.
type PumpBlock struct {
	CmdPct    float64 `json:"cmd_pct"`
	CmdFrac   float64 `json:"cmd_frac"`
	CmdHz     float64 `json:"cmd_hz"`
	MaxFreqHz float64 `json:"max_freq_hz"`
	PollMs    int     `json:"poll_ms"`

	FreqHz           *float64 `json:"freq_hz,omitempty"`
	FreqPct          *float64 `json:"freq_pct,omitempty"`
	InputPowerPct    *float64 `json:"input_power_pct,omitempty"`
	InputPowerW      *float64 `json:"input_power_w,omitempty"`
	OutputCurrentPct *float64 `json:"output_current_pct,omitempty"`
	OutputCurrentA   *float64 `json:"output_current_a,omitempty"`
	OutputVoltageV   *float64 `json:"output_voltage_v,omitempty"`
	OutputVoltagePct *float64 `json:"output_voltage_pct,omitempty"`
}

// PumpCommand is the actuator-side view the emitter needs: the last applied
// setpoint and the frequency scale. Satisfied by *pump.Actuator.
type PumpCommand interface {
	CommandPercent() float64
	CommandFraction() float64
	TargetFreqHz() float64
	MaxFreqHz() float64
}

// Emitter assembles telemetry records and hands them to a sink.
type Emitter struct {
	sink      Sink
	nameplate config.PumpConfig
	pollMs    int
	start     time.Time
}

// Sink writes one record per tick in some wire format.
type Sink interface {
	Emit(rec *Record) error
}

// NewEmitter creates an emitter. nameplate provides the motor figures used to
// turn the drive's percentage readings into absolute watts and amps; pollMs
// is reported so consumers can judge VFD staleness.
func NewEmitter(sink Sink, nameplate config.PumpConfig, pollMs int, start time.Time) *Emitter {
	return &Emitter{sink: sink, nameplate: nameplate, pollMs: pollMs, start: start}
}

// Emit builds the record for this tick and writes it to the sink.
func (e *Emitter) Emit(now time.Time, temps [sensor.NumChannels]sensor.Reading, state valve.State, mode valve.Mode, cmd PumpCommand, snap vfd.Snapshot) error {
	rec := &Record{
		Type:  "telemetry",
		T:     round3(now.Sub(e.start).Seconds()),
		Temps: make([]*float64, sensor.NumChannels),
		Mode:  mode.Char(),
		Pump: PumpBlock{
			CmdPct:    cmd.CommandPercent(),
			CmdFrac:   cmd.CommandFraction(),
			CmdHz:     cmd.TargetFreqHz(),
			MaxFreqHz: cmd.MaxFreqHz(),
			PollMs:    e.pollMs,
		},
	}
	if state == valve.Open {
		rec.Valve = 1
	}

	for i, r := range temps {
		if r.Valid {
			v := float64(r.Celsius)
			rec.Temps[i] = &v
		}
	}

	if snap.Valid {
		p := &rec.Pump
		p.FreqHz = f(snap.FreqHz)
		if cmd.MaxFreqHz() > 0 {
			p.FreqPct = f(snap.FreqHz / cmd.MaxFreqHz() * 100)
		}
		p.InputPowerPct = f(snap.InputPowerPct)
		p.InputPowerW = f(e.nameplate.RatedPowerW * snap.InputPowerPct / 100)
		p.OutputCurrentPct = f(snap.OutputCurrentPct)
		p.OutputCurrentA = f(e.nameplate.RatedCurrentA * snap.OutputCurrentPct / 100)
		p.OutputVoltageV = f(snap.OutputVoltageV)
		if e.nameplate.BaseVoltageV > 0 {
			p.OutputVoltagePct = f(snap.OutputVoltageV / e.nameplate.BaseVoltageV * 100)
		}
	}

	return e.sink.Emit(rec)
}

func f(v float64) *float64 { return &v }

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

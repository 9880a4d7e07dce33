package vfd

import (
	"log"
	"time"
)

// Bus reads a contiguous block of holding registers. Satisfied by
// *modbus.Master.
type Bus interface {
	Transact(start, count uint16) ([]uint16, error)
}

// registerCount is the size of the monitored block: output frequency,
// input power, output current, output voltage (M09..M12 on a FRENIC drive,
// all 16-bit, read in one 0x03 transaction).
const registerCount = 4

// Snapshot is one point-in-time view of the drive. When Valid is false the
// numeric fields are zeroed and must not be used; the previous values are
// never retained across a failed poll. LastPoll is set on every attempt so
// staleness stays observable either way.
type Snapshot struct {
	Valid            bool
	FreqHz           float64
	InputPowerPct    float64
	OutputCurrentPct float64
	OutputVoltageV   float64
	LastPoll         time.Time
}

// Monitor polls the drive's monitor register block over Modbus.
type Monitor struct {
	bus  Bus
	base uint16
	snap Snapshot
}

// NewMonitor creates a monitor reading registerCount registers at base.
func NewMonitor(bus Bus, base uint16) *Monitor {
	return &Monitor{bus: bus, base: base}
}

// Poll reads the register block and rewrites the snapshot wholesale. Any bus
// error invalidates the entire snapshot; the error detail goes to the log
// only. One call is one attempt, the next poll is the retry.
func (m *Monitor) Poll(now time.Time) Snapshot {
	regs, err := m.bus.Transact(m.base, registerCount)
	if err != nil {
		log.Printf("vfd: poll failed: %v", err)
		m.snap = Snapshot{LastPoll: now}
		return m.snap
	}

	m.snap = Snapshot{
		Valid:            true,
		FreqHz:           float64(regs[0]) / 100,
		InputPowerPct:    float64(regs[1]) / 100,
		OutputCurrentPct: float64(regs[2]) / 100,
		OutputVoltageV:   float64(regs[3]) * 0.1,
		LastPoll:         now,
	}
	return m.snap
}

// Snapshot returns the result of the most recent poll.
func (m *Monitor) Snapshot() Snapshot { return m.snap }

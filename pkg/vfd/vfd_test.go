package vfd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hfe-lab/rigctl/pkg/modbus"
)

type fakeBus struct {
	regs []uint16
	err  error

	gotStart uint16
	gotCount uint16
}

func (b *fakeBus) Transact(start, count uint16) ([]uint16, error) {
	b.gotStart = start
	b.gotCount = count
	if b.err != nil {
		return nil, b.err
	}
	return b.regs, nil
}

func TestPoll_Success(t *testing.T) {
	bus := &fakeBus{regs: []uint16{4503, 1250, 3075, 2301}}
	m := NewMonitor(bus, 0x0809)
	now := time.Now()

	snap := m.Poll(now)

	assert.Equal(t, uint16(0x0809), bus.gotStart)
	assert.Equal(t, uint16(4), bus.gotCount)

	require.True(t, snap.Valid)
	assert.InDelta(t, 45.03, snap.FreqHz, 1e-9)
	assert.InDelta(t, 12.50, snap.InputPowerPct, 1e-9)
	assert.InDelta(t, 30.75, snap.OutputCurrentPct, 1e-9)
	assert.InDelta(t, 230.1, snap.OutputVoltageV, 1e-9)
	assert.Equal(t, now, snap.LastPoll)
}

func TestPoll_FailureInvalidatesWholeSnapshot(t *testing.T) {
	bus := &fakeBus{regs: []uint16{4503, 1250, 3075, 2301}}
	m := NewMonitor(bus, 0x0809)

	first := m.Poll(time.Now())
	require.True(t, first.Valid)

	// A short response must not leave the old readings behind.
	bus.err = modbus.ErrShortResponse
	now := time.Now()
	snap := m.Poll(now)

	assert.False(t, snap.Valid)
	assert.Zero(t, snap.FreqHz)
	assert.Zero(t, snap.InputPowerPct)
	assert.Zero(t, snap.OutputCurrentPct)
	assert.Zero(t, snap.OutputVoltageV)
	assert.Equal(t, now, snap.LastPoll)
	assert.Equal(t, snap, m.Snapshot())
}

func TestPoll_RecoversAfterFailure(t *testing.T) {
	bus := &fakeBus{err: modbus.ErrTimeout}
	m := NewMonitor(bus, 0x0809)

	require.False(t, m.Poll(time.Now()).Valid)

	bus.err = nil
	bus.regs = []uint16{1000, 0, 0, 0}
	snap := m.Poll(time.Now())

	require.True(t, snap.Valid)
	assert.InDelta(t, 10.0, snap.FreqHz, 1e-9)
}

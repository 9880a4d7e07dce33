package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hfe-lab/rigctl/pkg/command"
	"github.com/hfe-lab/rigctl/pkg/config"
	"github.com/hfe-lab/rigctl/pkg/modbus"
	"github.com/hfe-lab/rigctl/pkg/pump"
	"github.com/hfe-lab/rigctl/pkg/sensor"
	"github.com/hfe-lab/rigctl/pkg/telemetry"
	"github.com/hfe-lab/rigctl/pkg/valve"
	"github.com/hfe-lab/rigctl/pkg/vfd"
)

type fixedChannel struct{ temp float32 }

func (f fixedChannel) Fault() (uint8, error)         { return 0, nil }
func (f fixedChannel) Temperature() (float32, error) { return f.temp, nil }

type nullValve struct{}

func (nullValve) Set(valve.State) error { return nil }

type nullOutput struct{}

func (nullOutput) Set(float64) error { return nil }

// rig assembles a controller over simulated hardware and returns it with the
// telemetry buffer and the bus simulator.
func rig(t *testing.T, temps []float32) (*Controller, *bytes.Buffer, *modbus.Sim) {
	t.Helper()

	sim := modbus.NewSim(1)
	sim.SetRegisters(0x0809, []uint16{4503, 1250, 3075, 2301})
	master := modbus.NewMaster(sim, 1, 50*time.Millisecond)

	channels := make([]sensor.Channel, len(temps))
	for i, v := range temps {
		channels[i] = fixedChannel{temp: v}
	}

	parser := command.NewParser(71.7)
	pumpAct := pump.New(71.7, nullOutput{})
	valveCtl := valve.New(25.0, 0.5, 0, nullValve{})
	monitor := vfd.NewMonitor(master, 0x0809)

	var buf bytes.Buffer
	start := time.Now()
	emitter := telemetry.NewEmitter(telemetry.NewJSONSink(&buf), config.Default().Pump, 1000, start)

	c := New(parser, pumpAct, valveCtl, sensor.NewArray(channels...), monitor, emitter, 1000, 1000)
	return c, &buf, sim
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.NotEmpty(t, lines[0])

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &rec))
	return rec
}

func TestTick_SamplesAndEmits(t *testing.T) {
	c, buf, _ := rig(t, []float32{26.0, 26.5})
	now := time.Now()

	c.Tick(now)

	rec := lastRecord(t, buf)
	assert.Equal(t, "telemetry", rec["type"])
	// 26.25 > 25.5: the valve opens on the first decision.
	assert.Equal(t, float64(1), rec["valve"])
	assert.Equal(t, "A", rec["mode"])

	// VFD poll happened on the same tick.
	p := rec["pump"].(map[string]any)
	assert.InDelta(t, 45.03, p["freq_hz"].(float64), 1e-6)
}

func TestTick_HonorsCadences(t *testing.T) {
	c, buf, _ := rig(t, []float32{24.0})
	start := time.Now()

	c.Tick(start)
	require.Len(t, strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"), 1)

	// Half a period later nothing new is due.
	c.Tick(start.Add(500 * time.Millisecond))
	assert.Len(t, strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"), 1)

	// A full period later one more record goes out.
	c.Tick(start.Add(1100 * time.Millisecond))
	assert.Len(t, strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"), 2)
}

func TestTick_AppliesQueuedCommands(t *testing.T) {
	c, buf, _ := rig(t, []float32{24.0})
	now := time.Now()

	require.True(t, c.Enqueue("VALVE OPEN"))
	require.True(t, c.Enqueue("PUMP HZ 35.85"))
	require.True(t, c.Enqueue("this is not a command"))

	c.Tick(now)

	rec := lastRecord(t, buf)
	// 24.0 would close the valve, but the override wins.
	assert.Equal(t, float64(1), rec["valve"])
	assert.Equal(t, "O", rec["mode"])

	p := rec["pump"].(map[string]any)
	assert.InDelta(t, 50.0, p["cmd_pct"].(float64), 0.01)
}

func TestTick_VfdFailureDoesNotAffectControl(t *testing.T) {
	c, buf, sim := rig(t, []float32{30.0})
	sim.SetFault(modbus.SimCorruptCRC)
	now := time.Now()

	c.Tick(now)

	rec := lastRecord(t, buf)
	// The valve still opens on temperature even with the VFD unreadable.
	assert.Equal(t, float64(1), rec["valve"])

	p := rec["pump"].(map[string]any)
	_, present := p["freq_hz"]
	assert.False(t, present)
}

func TestStartConsole_FeedsCommands(t *testing.T) {
	c, buf, _ := rig(t, []float32{24.0})

	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartConsole(ctx, pr)

	_, err := pw.Write([]byte("VALVE OPEN\n"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	// The reader goroutine needs a moment to queue the line, and the next
	// telemetry record only goes out on the following sample interval.
	require.Eventually(t, func() bool {
		c.Tick(time.Now())
		rec := lastRecord(t, buf)
		return rec["mode"] == "O"
	}, 3*time.Second, 10*time.Millisecond)
}

package controller

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/hfe-lab/rigctl/pkg/command"
	"github.com/hfe-lab/rigctl/pkg/pump"
	"github.com/hfe-lab/rigctl/pkg/sensor"
	"github.com/hfe-lab/rigctl/pkg/telemetry"
	"github.com/hfe-lab/rigctl/pkg/valve"
	"github.com/hfe-lab/rigctl/pkg/vfd"
)

// tickGranularity is how often the loop wakes to check its deadlines. Fine
// enough that command latency stays well under the sampling period.
const tickGranularity = 20 * time.Millisecond

// Controller is the rig's control loop. All mutable rig state (valve state,
// override mode, pump command, VFD snapshot) is owned by the single goroutine
// running Run; no locks are involved. The Modbus transaction inside the VFD
// poll is the loop's only blocking call, so the worst-case added latency per
// cycle is the bus timeout.
type Controller struct {
	parser  *command.Parser
	pump    *pump.Actuator
	valve   *valve.Controller
	sensors *sensor.Array
	monitor *vfd.Monitor
	emitter *telemetry.Emitter

	pollInterval   time.Duration
	sampleInterval time.Duration

	lines      chan string
	lastPoll   time.Time
	lastSample time.Time
}

// New wires the control loop together. pollMs and sampleMs are the VFD poll
// and sensor sampling cadences.
func New(parser *command.Parser, pumpAct *pump.Actuator, valveCtl *valve.Controller,
	sensors *sensor.Array, monitor *vfd.Monitor, emitter *telemetry.Emitter,
	pollMs, sampleMs int) *Controller {
	return &Controller{
		parser:         parser,
		pump:           pumpAct,
		valve:          valveCtl,
		sensors:        sensors,
		monitor:        monitor,
		emitter:        emitter,
		pollInterval:   time.Duration(pollMs) * time.Millisecond,
		sampleInterval: time.Duration(sampleMs) * time.Millisecond,
		lines:          make(chan string, 32),
	}
}

// StartConsole spawns the console reader: it accumulates bytes from r into
// command lines and queues them for the loop. When the queue is full the
// oldest pending line is dropped in favor of the new one, so a wedged loop
// never blocks the reader. The goroutine exits when r is closed or errors.
func (c *Controller) StartConsole(ctx context.Context, r io.Reader) {
	go func() {
		lb := command.NewLineBuffer()
		buf := make([]byte, 256)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, line := range lb.Feed(buf[:n]) {
					select {
					case c.lines <- line:
					default:
						select {
						case <-c.lines:
						default:
						}
						c.lines <- line
					}
				}
			}
			if err != nil {
				if err != io.EOF {
					log.Printf("console: read failed: %v", err)
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
}

// Enqueue queues a command line for the next Tick, as if it had arrived on
// the console. Returns false when the queue is full.
func (c *Controller) Enqueue(line string) bool {
	select {
	case c.lines <- line:
		return true
	default:
		return false
	}
}

// Tick runs one scheduler iteration at the given instant: drain pending
// command lines, poll the VFD if its interval elapsed, then sample the
// sensors, decide the valve state and emit telemetry if the sampling
// interval elapsed.
func (c *Controller) Tick(now time.Time) {
	c.drainCommands()

	if c.lastPoll.IsZero() || now.Sub(c.lastPoll) >= c.pollInterval {
		c.monitor.Poll(now)
		c.lastPoll = now
	}

	if c.lastSample.IsZero() || now.Sub(c.lastSample) >= c.sampleInterval {
		c.sampleAndEmit(now)
		c.lastSample = now
	}
}

func (c *Controller) drainCommands() {
	for {
		select {
		case line := <-c.lines:
			c.apply(line)
		default:
			return
		}
	}
}

func (c *Controller) apply(line string) {
	action, ok := c.parser.Parse(line)
	if !ok {
		// Unknown lines are dropped silently; operators get no error channel.
		return
	}

	switch action.Kind {
	case command.SetOverride:
		c.valve.SetMode(action.Mode)
		log.Printf("command: valve mode %s", action.Mode)
	case command.SetPumpPercent:
		applied, err := c.pump.SetCommandPercent(action.Percent)
		if err != nil {
			log.Printf("command: pump set failed: %v", err)
			return
		}
		log.Printf("command: pump %.1f%%", applied)
	}
}

func (c *Controller) sampleAndEmit(now time.Time) {
	temps := c.sensors.SampleAll()
	avg, ok := sensor.Average(temps)

	if err := c.valve.Decide(now, avg, ok); err != nil {
		log.Printf("valve: actuate failed: %v", err)
	}

	err := c.emitter.Emit(now, temps, c.valve.State(), c.valve.Mode(), c.pump, c.monitor.Snapshot())
	if err != nil {
		log.Printf("telemetry: emit failed: %v", err)
	}
}

// Run drives Tick until ctx is cancelled. Every failure inside a tick is
// logged and absorbed; the loop itself never halts on one.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickGranularity)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			c.Tick(now)
		}
	}
}

package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/hfe-lab/rigctl/pkg/command"
	"github.com/hfe-lab/rigctl/pkg/config"
	"github.com/hfe-lab/rigctl/pkg/controller"
	"github.com/hfe-lab/rigctl/pkg/modbus"
	"github.com/hfe-lab/rigctl/pkg/pump"
	"github.com/hfe-lab/rigctl/pkg/sensor"
	"github.com/hfe-lab/rigctl/pkg/telemetry"
	"github.com/hfe-lab/rigctl/pkg/valve"
	"github.com/hfe-lab/rigctl/pkg/vfd"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		portFlag   = flag.String("p", "", "Modbus serial port override (e.g., /dev/ttyUSB0)")
		mockFlag   = flag.Bool("mock", false, "Simulate the VFD bus instead of opening a serial port")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Bus.Port = *portFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, cleanup, err := openBus(ctx, cfg, *mockFlag)
	if err != nil {
		log.Fatalf("Failed to open Modbus port %s: %v", cfg.Bus.Port, err)
	}
	defer cleanup()

	consoleIn, consoleOut, closeConsole, err := openConsole(cfg)
	if err != nil {
		log.Fatalf("Failed to open console port %s: %v", cfg.Console.Port, err)
	}
	defer closeConsole()

	master := modbus.NewMaster(bus, cfg.Bus.SlaveAddr, time.Duration(cfg.Bus.TimeoutMs)*time.Millisecond)
	monitor := vfd.NewMonitor(master, cfg.Bus.RegisterBase)

	// The thermocouple driver is a hardware adaptation concern; without one
	// attached the simulated bank stands in so the loop always has channels.
	sensors := sensor.NewArray(sensor.NewSimBank(&cfg.Mock)...)
	if !*mockFlag {
		log.Printf("no thermocouple driver attached, using simulated channels")
	}

	pumpAct := pump.New(cfg.Pump.MaxFreqHz, logOutput{})
	valveCtl := valve.New(cfg.Control.SetpointC, cfg.Control.HysteresisC, cfg.Control.MinDwell, &logValve{})

	var sink telemetry.Sink
	if cfg.Telemetry.Format == "csv" {
		sink = telemetry.NewCSVSink(consoleOut)
	} else {
		sink = telemetry.NewJSONSink(consoleOut)
	}
	emitter := telemetry.NewEmitter(sink, cfg.Pump, cfg.Bus.PollMs, time.Now())

	parser := command.NewParser(cfg.Pump.MaxFreqHz)
	ctl := controller.New(parser, pumpAct, valveCtl, sensors, monitor, emitter,
		cfg.Bus.PollMs, cfg.Control.SampleMs)
	ctl.StartConsole(ctx, consoleIn)

	log.Printf("rigd: control loop starting (poll %dms, sample %dms)", cfg.Bus.PollMs, cfg.Control.SampleMs)
	if err := ctl.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("control loop: %v", err)
	}
}

// openConsole returns the operator line: a serial port when configured,
// stdin/stdout otherwise.
func openConsole(cfg *config.Config) (io.Reader, io.Writer, func(), error) {
	if cfg.Console.Port == "" {
		return os.Stdin, os.Stdout, func() {}, nil
	}

	port, err := serial.Open(cfg.Console.Port, &serial.Mode{BaudRate: cfg.Console.BaudRate})
	if err != nil {
		return nil, nil, nil, err
	}
	return port, port, func() { port.Close() }, nil
}

// openBus opens the real Modbus serial port, or a drifting simulator in mock
// mode.
func openBus(ctx context.Context, cfg *config.Config, mock bool) (modbus.Transport, func(), error) {
	if !mock {
		port, err := modbus.OpenSerial(cfg.Bus.Port, cfg.Bus.BaudRate)
		if err != nil {
			return nil, nil, err
		}
		return port, func() { port.Close() }, nil
	}

	sim := modbus.NewSim(cfg.Bus.SlaveAddr)
	sim.SetRegisters(cfg.Bus.RegisterBase, []uint16{0, 0, 0, 2300})
	go driveSim(ctx, sim, cfg)
	log.Printf("rigd: simulating VFD at slave %d", cfg.Bus.SlaveAddr)
	return sim, func() {}, nil
}

// driveSim slowly ramps the simulated drive toward half scale so mock runs
// show moving numbers.
func driveSim(ctx context.Context, sim *modbus.Sim, cfg *config.Config) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	target := uint16(cfg.Pump.MaxFreqHz * 100 / 2)
	var freq uint16
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if freq < target {
				freq += 100
			}
			// power and current track frequency roughly quadratically/linearly
			load := float64(freq) / float64(target)
			sim.SetRegisters(cfg.Bus.RegisterBase, []uint16{
				freq,
				uint16(5000 * load * load),
				uint16(6000 * load),
				2300,
			})
		}
	}
}

// logValve stands in for the valve relay driver. It only logs transitions,
// not the repeated per-tick commands.
type logValve struct {
	last valve.State
}

func (v *logValve) Set(s valve.State) error {
	if s != v.last {
		log.Printf("valve: %s", s)
		v.last = s
	}
	return nil
}

// logOutput stands in for the pump's analog command driver.
type logOutput struct{}

func (logOutput) Set(frac float64) error {
	log.Printf("pump: command %.3f", frac)
	return nil
}

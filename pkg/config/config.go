package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the rig controller configuration.
type Config struct {
	Console    ConsoleConfig    `yaml:"console"`
	Bus        BusConfig        `yaml:"bus"`
	Control    ControlConfig    `yaml:"control"`
	Pump       PumpConfig       `yaml:"pump"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Mock       MockConfig       `yaml:"mock"`
}

// ConsoleConfig describes the operator line: commands in, telemetry out.
// An empty port means stdin/stdout.
type ConsoleConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// BusConfig describes the Modbus RTU link to the VFD.
type BusConfig struct {
	Port         string `yaml:"port"`
	BaudRate     int    `yaml:"baud_rate"`
	SlaveAddr    uint8  `yaml:"slave_addr"`
	RegisterBase uint16 `yaml:"register_base"`
	TimeoutMs    int    `yaml:"timeout_ms"` // per-transaction response timeout
	PollMs       int    `yaml:"poll_ms"`    // VFD poll cadence
}

// ControlConfig contains the valve control parameters.
type ControlConfig struct {
	SetpointC   float32       `yaml:"setpoint_c"`
	HysteresisC float32       `yaml:"hysteresis_c"`
	SampleMs    int           `yaml:"sample_ms"` // sensor sampling / telemetry cadence
	MinDwell    time.Duration `yaml:"min_dwell"` // 0 disables dwell limiting
}

// PumpConfig contains the pump command scaling and the motor nameplate
// figures used to derive absolute telemetry values from VFD percentages.
type PumpConfig struct {
	MaxFreqHz     float64 `yaml:"max_freq_hz"`
	RatedPowerW   float64 `yaml:"rated_power_w"`
	RatedCurrentA float64 `yaml:"rated_current_a"`
	BaseVoltageV  float64 `yaml:"base_voltage_v"`
}

// TelemetryConfig selects the telemetry wire format.
type TelemetryConfig struct {
	Format string `yaml:"format"` // "json" or "csv"
}

// SupervisorConfig contains the supervisor service settings.
type SupervisorConfig struct {
	Listen    string `yaml:"listen"`
	AuthToken string `yaml:"auth_token"` // empty = open dev mode
	RawLogDir string `yaml:"raw_log_dir"`
}

// MockConfig contains the simulated rig configuration.
type MockConfig struct {
	Channels      int           `yaml:"channels"`       // populated sensor slots
	AmbientC      float32       `yaml:"ambient_c"`      // baseline temperature
	AmplitudeC    float32       `yaml:"amplitude_c"`    // swing around the baseline
	Period        time.Duration `yaml:"period"`         // swing period
	NoiseC        float32       `yaml:"noise_c"`        // per-sample noise
	FaultChannels []int         `yaml:"fault_channels"` // slots that report a sensor fault
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Console: ConsoleConfig{
			Port:     "", // stdio
			BaudRate: 115200,
		},
		Bus: BusConfig{
			Port:         "/dev/ttyUSB0",
			BaudRate:     9600,
			SlaveAddr:    1,
			RegisterBase: 0x0809, // M09: output frequency, first of the M09..M12 block
			TimeoutMs:    200,
			PollMs:       1000,
		},
		Control: ControlConfig{
			SetpointC:   25.0,
			HysteresisC: 0.5,
			SampleMs:    1000,
			MinDwell:    0,
		},
		Pump: PumpConfig{
			MaxFreqHz:     71.7,
			RatedPowerW:   370,
			RatedCurrentA: 2.8,
			BaseVoltageV:  230,
		},
		Telemetry: TelemetryConfig{
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			Listen:    ":8000",
			AuthToken: "",
			RawLogDir: "data/raw",
		},
		Mock: MockConfig{
			Channels:      9,
			AmbientC:      24.0,
			AmplitudeC:    3.0,
			Period:        2 * time.Minute,
			NoiseC:        0.05,
			FaultChannels: nil,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Console.BaudRate == 0 {
		c.Console.BaudRate = def.Console.BaudRate
	}

	if c.Bus.Port == "" {
		c.Bus.Port = def.Bus.Port
	}
	if c.Bus.BaudRate == 0 {
		c.Bus.BaudRate = def.Bus.BaudRate
	}
	if c.Bus.SlaveAddr == 0 {
		c.Bus.SlaveAddr = def.Bus.SlaveAddr
	}
	if c.Bus.RegisterBase == 0 {
		c.Bus.RegisterBase = def.Bus.RegisterBase
	}
	if c.Bus.TimeoutMs == 0 {
		c.Bus.TimeoutMs = def.Bus.TimeoutMs
	}
	if c.Bus.PollMs == 0 {
		c.Bus.PollMs = def.Bus.PollMs
	}

	if c.Control.SetpointC == 0 {
		c.Control.SetpointC = def.Control.SetpointC
	}
	if c.Control.HysteresisC == 0 {
		c.Control.HysteresisC = def.Control.HysteresisC
	}
	if c.Control.SampleMs == 0 {
		c.Control.SampleMs = def.Control.SampleMs
	}

	if c.Pump.MaxFreqHz == 0 {
		c.Pump.MaxFreqHz = def.Pump.MaxFreqHz
	}
	if c.Pump.RatedPowerW == 0 {
		c.Pump.RatedPowerW = def.Pump.RatedPowerW
	}
	if c.Pump.RatedCurrentA == 0 {
		c.Pump.RatedCurrentA = def.Pump.RatedCurrentA
	}
	if c.Pump.BaseVoltageV == 0 {
		c.Pump.BaseVoltageV = def.Pump.BaseVoltageV
	}

	if c.Telemetry.Format == "" {
		c.Telemetry.Format = def.Telemetry.Format
	}

	if c.Supervisor.Listen == "" {
		c.Supervisor.Listen = def.Supervisor.Listen
	}
	if c.Supervisor.RawLogDir == "" {
		c.Supervisor.RawLogDir = def.Supervisor.RawLogDir
	}

	if c.Mock.Channels == 0 {
		c.Mock.Channels = def.Mock.Channels
	}
	if c.Mock.AmbientC == 0 {
		c.Mock.AmbientC = def.Mock.AmbientC
	}
	if c.Mock.AmplitudeC == 0 {
		c.Mock.AmplitudeC = def.Mock.AmplitudeC
	}
	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
	if c.Mock.NoiseC == 0 {
		c.Mock.NoiseC = def.Mock.NoiseC
	}
}

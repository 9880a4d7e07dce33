package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "", cfg.Console.Port)
	assert.Equal(t, 115200, cfg.Console.BaudRate)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Bus.Port)
	assert.Equal(t, 9600, cfg.Bus.BaudRate)
	assert.Equal(t, uint8(1), cfg.Bus.SlaveAddr)
	assert.Equal(t, uint16(0x0809), cfg.Bus.RegisterBase)
	assert.Equal(t, 200, cfg.Bus.TimeoutMs)
	assert.Equal(t, 1000, cfg.Bus.PollMs)
	assert.Equal(t, float32(25.0), cfg.Control.SetpointC)
	assert.Equal(t, float32(0.5), cfg.Control.HysteresisC)
	assert.Equal(t, 1000, cfg.Control.SampleMs)
	assert.Equal(t, time.Duration(0), cfg.Control.MinDwell)
	assert.Equal(t, 71.7, cfg.Pump.MaxFreqHz)
	assert.Equal(t, "json", cfg.Telemetry.Format)
	assert.Equal(t, 9, cfg.Mock.Channels)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Bus.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
console:
  port: "/dev/ttyACM0"
  baud_rate: 115200

bus:
  port: "/dev/ttyUSB1"
  baud_rate: 9600
  slave_addr: 2
  register_base: 2057
  timeout_ms: 150
  poll_ms: 500

control:
  setpoint_c: 23.0
  hysteresis_c: 0.25
  sample_ms: 500
  min_dwell: 15s

pump:
  max_freq_hz: 60.0
  rated_power_w: 550
  rated_current_a: 3.1
  base_voltage_v: 400

telemetry:
  format: csv
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyACM0", cfg.Console.Port)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Bus.Port)
	assert.Equal(t, uint8(2), cfg.Bus.SlaveAddr)
	assert.Equal(t, uint16(0x0809), cfg.Bus.RegisterBase)
	assert.Equal(t, 150, cfg.Bus.TimeoutMs)
	assert.Equal(t, 500, cfg.Bus.PollMs)
	assert.Equal(t, float32(23.0), cfg.Control.SetpointC)
	assert.Equal(t, float32(0.25), cfg.Control.HysteresisC)
	assert.Equal(t, 15*time.Second, cfg.Control.MinDwell)
	assert.Equal(t, 60.0, cfg.Pump.MaxFreqHz)
	assert.Equal(t, 400.0, cfg.Pump.BaseVoltageV)
	assert.Equal(t, "csv", cfg.Telemetry.Format)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
bus:
  port: "/dev/ttyUSB2"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	// Explicit field kept, the rest filled from defaults.
	assert.Equal(t, "/dev/ttyUSB2", cfg.Bus.Port)
	assert.Equal(t, 200, cfg.Bus.TimeoutMs)
	assert.Equal(t, float32(25.0), cfg.Control.SetpointC)
	assert.Equal(t, 1000, cfg.Control.SampleMs)
}

func TestSaveAndReload(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	tmpfile.Close()
	defer os.Remove(tmpfile.Name())

	cfg := Default()
	cfg.Control.SetpointC = 30.0
	cfg.Control.MinDwell = 15 * time.Second
	require.NoError(t, cfg.Save(tmpfile.Name()))

	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, float32(30.0), loaded.Control.SetpointC)
	assert.Equal(t, 15*time.Second, loaded.Control.MinDwell)
}

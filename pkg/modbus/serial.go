package modbus

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBusBaudRate matches the VFD's fixed link configuration.
	DefaultBusBaudRate = 9600

	// readPollInterval bounds a single port read so the transaction
	// deadline loop in Master.Transact stays responsive.
	readPollInterval = 20 * time.Millisecond
)

// SerialTransport adapts a physical serial port to the Transport interface.
// The Modbus RTU link runs 8 data bits, even parity, 1 stop bit.
type SerialTransport struct {
	port serial.Port
}

var _ Transport = (*SerialTransport)(nil)

// OpenSerial opens the bus port in 8E1 framing at the given baud rate.
func OpenSerial(name string, baudRate int) (*SerialTransport, error) {
	if baudRate == 0 {
		baudRate = DefaultBusBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open bus port %s: %w", name, err)
	}

	if err := port.SetReadTimeout(readPollInterval); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
	}

	return &SerialTransport{port: port}, nil
}

// Discard drops any unread bytes buffered on the port.
func (t *SerialTransport) Discard() error {
	return t.port.ResetInputBuffer()
}

func (t *SerialTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

// Read returns within readPollInterval with n=0 when no data is available.
func (t *SerialTransport) Read(p []byte) (int, error) {
	return t.port.Read(p)
}

// Close closes the underlying port.
func (t *SerialTransport) Close() error {
	return t.port.Close()
}

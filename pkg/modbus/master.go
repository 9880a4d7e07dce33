package modbus

import (
	"errors"
	"fmt"
	"time"
)

// Validation failures for one transaction. All of them mean the same thing to
// the caller (the read failed, nothing usable arrived); they are distinct only
// for logging.
var (
	ErrTimeout             = errors.New("modbus: response timeout")
	ErrShortResponse       = errors.New("modbus: short response")
	ErrCRCMismatch         = errors.New("modbus: crc mismatch")
	ErrAddressMismatch     = errors.New("modbus: address/function mismatch")
	ErrUnexpectedByteCount = errors.New("modbus: unexpected byte count")
)

const (
	fnReadHoldingRegisters = 0x03

	// MaxRegistersPerRead is the protocol limit for function 0x03.
	MaxRegistersPerRead = 125
)

// Transport is the byte-level serial channel a Master talks through.
// Read must return within a short interval even when no data is available
// (returning n=0, err=nil), so that the transaction deadline loop stays
// responsive; SerialTransport arranges this with a port read timeout.
type Transport interface {
	// Discard drops any buffered, unread input.
	Discard() error
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
}

// Master is a single-slave Modbus RTU master for read-holding-registers
// transactions. It is pure protocol logic: one call is one attempt, with no
// retry and no scheduling. Retrying is the caller's business, achieved by
// simply calling again on its next cycle.
type Master struct {
	tr      Transport
	slave   byte
	timeout time.Duration
}

// NewMaster creates a master bound to one slave address with a fixed
// per-transaction timeout.
func NewMaster(tr Transport, slave uint8, timeout time.Duration) *Master {
	return &Master{tr: tr, slave: slave, timeout: timeout}
}

// buildRequest constructs the 8-byte read-holding-registers request:
// [addr, 0x03, startHi, startLo, countHi, countLo, crcLo, crcHi].
func buildRequest(slave byte, start, count uint16) []byte {
	frame := []byte{
		slave,
		fnReadHoldingRegisters,
		byte(start >> 8), byte(start & 0xFF),
		byte(count >> 8), byte(count & 0xFF),
	}
	return appendCRC(frame)
}

// Transact performs exactly one read-holding-registers transaction: discard
// stray input, write the request, then accumulate response bytes until the
// expected length has arrived or the timeout elapses. This is the single
// blocking operation in the whole control system; it never blocks longer
// than the configured timeout.
func (m *Master) Transact(start, count uint16) ([]uint16, error) {
	if count == 0 || count > MaxRegistersPerRead {
		return nil, fmt.Errorf("modbus: register count %d out of range", count)
	}

	if err := m.tr.Discard(); err != nil {
		return nil, fmt.Errorf("modbus: discard stale input: %w", err)
	}

	req := buildRequest(m.slave, start, count)
	if n, err := m.tr.Write(req); err != nil {
		return nil, fmt.Errorf("modbus: write request: %w", err)
	} else if n != len(req) {
		return nil, fmt.Errorf("modbus: short write: %d of %d bytes", n, len(req))
	}

	// Expected reply: addr, func, byteCount, data(2*count), crc(2).
	expected := 3 + 2*int(count) + 2
	buf := make([]byte, 0, expected)
	tmp := make([]byte, expected)

	deadline := time.Now().Add(m.timeout)
	for len(buf) < expected && time.Now().Before(deadline) {
		n, err := m.tr.Read(tmp[:expected-len(buf)])
		if err != nil {
			return nil, fmt.Errorf("modbus: read response: %w", err)
		}
		buf = append(buf, tmp[:n]...)
	}

	return m.validate(buf, req, count)
}

// validate checks one accumulated response in order: length, CRC, address
// and function echo, byte-count field. Any failure aborts with no partial
// result.
func (m *Master) validate(buf, req []byte, count uint16) ([]uint16, error) {
	expected := 3 + 2*int(count) + 2

	if len(buf) == 0 {
		return nil, ErrTimeout
	}
	if len(buf) != expected {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortResponse, len(buf), expected)
	}

	wantCRC := CRC16(buf[:len(buf)-2])
	gotCRC := uint16(buf[len(buf)-2]) | uint16(buf[len(buf)-1])<<8
	if wantCRC != gotCRC {
		return nil, fmt.Errorf("%w: got 0x%04X, want 0x%04X", ErrCRCMismatch, gotCRC, wantCRC)
	}

	if buf[0] != req[0] || buf[1] != req[1] {
		return nil, fmt.Errorf("%w: got addr=0x%02X fn=0x%02X", ErrAddressMismatch, buf[0], buf[1])
	}

	if int(buf[2]) != 2*int(count) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedByteCount, buf[2], 2*count)
	}

	regs := make([]uint16, count)
	for i := range regs {
		regs[i] = uint16(buf[3+2*i])<<8 | uint16(buf[4+2*i])
	}
	return regs, nil
}

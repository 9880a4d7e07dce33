package modbus

import (
	"sync"
	"time"
)

// SimFault selects how a Sim slave misbehaves on its next responses.
type SimFault int

const (
	SimHealthy SimFault = iota
	// SimSilent never answers, as if the slave were unpowered.
	SimSilent
	// SimTruncate drops the tail of the response.
	SimTruncate
	// SimCorruptCRC flips a bit in the checksum.
	SimCorruptCRC
	// SimWrongAddress answers from a different slave address.
	SimWrongAddress
	// SimWrongByteCount lies in the byte-count field.
	SimWrongByteCount
)

// Sim emulates a single read-only Modbus RTU slave behind the Transport
// interface. It backs mock runs of the controller and the master's tests; no
// hardware or serial port is involved.
type Sim struct {
	slave byte

	mu      sync.Mutex
	regs    map[uint16]uint16
	fault   SimFault
	pending []byte
}

var _ Transport = (*Sim)(nil)

// NewSim creates a simulated slave with an empty register map.
func NewSim(slave uint8) *Sim {
	return &Sim{
		slave: slave,
		regs:  make(map[uint16]uint16),
	}
}

// SetRegister sets one holding register value.
func (s *Sim) SetRegister(addr, value uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[addr] = value
}

// SetRegisters sets a contiguous block of holding registers starting at addr.
func (s *Sim) SetRegisters(addr uint16, values []uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range values {
		s.regs[addr+uint16(i)] = v
	}
}

// SetFault selects the failure mode applied to subsequent responses.
func (s *Sim) SetFault(f SimFault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Discard drops any queued response bytes.
func (s *Sim) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	return nil
}

// Write accepts one request frame and queues the slave's response. Malformed
// requests are ignored the way a real slave ignores frames that fail CRC.
func (s *Sim) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(p) != 8 || CRC16(p) != 0 {
		return len(p), nil
	}
	if p[0] != s.slave || p[1] != fnReadHoldingRegisters {
		return len(p), nil
	}
	if s.fault == SimSilent {
		return len(p), nil
	}

	start := uint16(p[2])<<8 | uint16(p[3])
	count := uint16(p[4])<<8 | uint16(p[5])

	addr := s.slave
	if s.fault == SimWrongAddress {
		addr++
	}

	resp := []byte{addr, fnReadHoldingRegisters, byte(2 * count)}
	if s.fault == SimWrongByteCount {
		resp[2] += 2
	}
	for i := uint16(0); i < count; i++ {
		v := s.regs[start+i]
		resp = append(resp, byte(v>>8), byte(v&0xFF))
	}
	resp = appendCRC(resp)

	switch s.fault {
	case SimTruncate:
		resp = resp[:len(resp)-3]
	case SimCorruptCRC:
		resp[len(resp)-1] ^= 0x01
	}

	s.pending = append(s.pending, resp...)
	return len(p), nil
}

// Read pops queued response bytes. An idle line yields n=0 after a short
// pause, mirroring a serial port read timeout.
func (s *Sim) Read(p []byte) (int, error) {
	s.mu.Lock()
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	s.mu.Unlock()

	if n == 0 {
		time.Sleep(time.Millisecond)
	}
	return n, nil
}

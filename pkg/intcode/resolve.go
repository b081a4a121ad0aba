package intcode

import (
	"fmt"
)

// Parameter resolution. Both levels of indirection go through Memory, so the
// parameter slot and the address it names are each grown on demand.

// param returns the raw word in the n-th parameter slot (1-based) of the
// instruction at the current ip.
func (m *Machine) param(n int) (int64, error) {
	return m.mem.Read(m.ip + int64(n))
}

// value resolves the n-th parameter of ins to a readable value.
func (m *Machine) value(ins Instruction, n int) (int64, error) {
	raw, err := m.param(n)
	if err != nil {
		return 0, err
	}

	switch mode := ins.Mode(n); mode {
	case ModePosition:
		return m.mem.Read(raw)
	case ModeImmediate:
		return raw, nil
	case ModeRelative:
		return m.mem.Read(m.rb + raw)
	default:
		return 0, fmt.Errorf("%w: mode %d at ip %d", ErrInvalidProgram, uint8(mode), m.ip)
	}
}

// address resolves the n-th parameter of ins to a writable address. The
// address is validated (and memory grown) before it is returned so that the
// caller's write cannot fail after other effects have been applied.
func (m *Machine) address(ins Instruction, n int) (int64, error) {
	raw, err := m.param(n)
	if err != nil {
		return 0, err
	}

	var addr int64
	switch mode := ins.Mode(n); mode {
	case ModePosition:
		addr = raw
	case ModeRelative:
		addr = m.rb + raw
	case ModeImmediate:
		return 0, fmt.Errorf("%w: parameter %d of %s at ip %d", ErrWriteToImmediate, n, ins.Op, m.ip)
	default:
		return 0, fmt.Errorf("%w: mode %d at ip %d", ErrInvalidProgram, uint8(mode), m.ip)
	}

	if err := m.mem.ensure(addr); err != nil {
		return 0, err
	}
	return addr, nil
}

// Package intcode defines Intcode opcodes and instruction decoding.
package intcode

import (
	"fmt"
)

// Opcode selects the operation of an instruction (low two decimal digits).
type Opcode int64

// Operation codes.
const (
	OpAdd                Opcode = 1  // p3 = p1 + p2
	OpMultiply           Opcode = 2  // p3 = p1 * p2
	OpInput              Opcode = 3  // p1 = next queued input
	OpOutput             Opcode = 4  // yield p1
	OpJumpIfTrue         Opcode = 5  // if p1 != 0: ip = p2
	OpJumpIfFalse        Opcode = 6  // if p1 == 0: ip = p2
	OpLessThan           Opcode = 7  // p3 = p1 < p2
	OpEquals             Opcode = 8  // p3 = p1 == p2
	OpAdjustRelativeBase Opcode = 9  // rb += p1
	OpHalt               Opcode = 99 // terminate
)

// MaxParams is the largest number of parameters any instruction takes.
const MaxParams = 3

// Largest encodable instruction word: two opcode digits plus three mode digits.
const maxInstructionWord = 99_999

var opcodeNames = map[Opcode]string{
	OpAdd:                "add",
	OpMultiply:           "mul",
	OpInput:              "in",
	OpOutput:             "out",
	OpJumpIfTrue:         "jnz",
	OpJumpIfFalse:        "jz",
	OpLessThan:           "lt",
	OpEquals:             "eq",
	OpAdjustRelativeBase: "arb",
	OpHalt:               "hlt",
}

// Valid reports whether op is a known operation.
func (op Opcode) Valid() bool {
	_, ok := opcodeNames[op]
	return ok
}

// Arity returns the number of parameters consumed by op, including any
// write target. Unknown opcodes report 0.
func (op Opcode) Arity() int {
	switch op {
	case OpAdd, OpMultiply, OpLessThan, OpEquals:
		return 3
	case OpJumpIfTrue, OpJumpIfFalse:
		return 2
	case OpInput, OpOutput, OpAdjustRelativeBase:
		return 1
	default:
		return 0
	}
}

// Writes reports the parameter index (1-based) that op writes to, or 0.
func (op Opcode) Writes() int {
	switch op {
	case OpAdd, OpMultiply, OpLessThan, OpEquals:
		return 3
	case OpInput:
		return 1
	default:
		return 0
	}
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int64(op))
}

// Mode is a parameter addressing mode.
type Mode uint8

// Parameter modes.
const (
	ModePosition  Mode = 0 // operand is an address
	ModeImmediate Mode = 1 // operand is the value
	ModeRelative  Mode = 2 // operand is an offset from the relative base
)

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeImmediate:
		return "immediate"
	case ModeRelative:
		return "relative"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Instruction is a decoded instruction word.
type Instruction struct {
	Op    Opcode
	Modes [MaxParams]Mode
}

// Mode returns the addressing mode of the n-th parameter (1-based).
func (i Instruction) Mode(n int) Mode {
	return i.Modes[n-1]
}

// Width returns the number of words the instruction occupies.
func (i Instruction) Width() int64 {
	return int64(1 + i.Op.Arity())
}

// Decode splits an instruction word into its opcode and parameter modes.
// Missing mode digits default to ModePosition. Unknown opcodes, mode digits
// outside {0,1,2} and words wider than five digits fail with ErrInvalidProgram.
func Decode(word int64) (Instruction, error) {
	var ins Instruction
	if word < 0 || word > maxInstructionWord {
		return ins, fmt.Errorf("%w: instruction word %d", ErrInvalidProgram, word)
	}

	ins.Op = Opcode(word % 100)
	if !ins.Op.Valid() {
		return ins, fmt.Errorf("%w: opcode %d in word %d", ErrInvalidProgram, int64(ins.Op), word)
	}

	digits := word / 100
	for n := 0; n < MaxParams; n++ {
		m := Mode(digits % 10)
		if m > ModeRelative {
			return ins, fmt.Errorf("%w: mode %d for parameter %d in word %d", ErrInvalidProgram, uint8(m), n+1, word)
		}
		ins.Modes[n] = m
		digits /= 10
	}

	return ins, nil
}

// Encode creates an instruction word from an opcode and parameter modes.
// Modes beyond the third are ignored.
func Encode(op Opcode, modes ...Mode) int64 {
	word := int64(op)
	scale := int64(100)
	for n, m := range modes {
		if n == MaxParams {
			break
		}
		word += int64(m) * scale
		scale *= 10
	}
	return word
}

package intcode

import (
	"errors"
	"testing"
)

// TestDecode tests opcode and mode extraction.
func TestDecode(t *testing.T) {
	tests := []struct {
		word  int64
		op    Opcode
		modes [MaxParams]Mode
	}{
		{1, OpAdd, [MaxParams]Mode{ModePosition, ModePosition, ModePosition}},
		{2, OpMultiply, [MaxParams]Mode{}},
		{1002, OpMultiply, [MaxParams]Mode{ModePosition, ModeImmediate, ModePosition}},
		{1101, OpAdd, [MaxParams]Mode{ModeImmediate, ModeImmediate, ModePosition}},
		{21201, OpAdd, [MaxParams]Mode{ModeRelative, ModeImmediate, ModeRelative}},
		{203, OpInput, [MaxParams]Mode{ModeRelative}},
		{104, OpOutput, [MaxParams]Mode{ModeImmediate}},
		{1205, OpJumpIfTrue, [MaxParams]Mode{ModeRelative, ModeImmediate}},
		{6, OpJumpIfFalse, [MaxParams]Mode{}},
		{107, OpLessThan, [MaxParams]Mode{ModeImmediate}},
		{20008, OpEquals, [MaxParams]Mode{ModePosition, ModePosition, ModeRelative}},
		{109, OpAdjustRelativeBase, [MaxParams]Mode{ModeImmediate}},
		{99, OpHalt, [MaxParams]Mode{}},
	}

	for _, tt := range tests {
		ins, err := Decode(tt.word)
		if err != nil {
			t.Errorf("Decode(%d) failed: %v", tt.word, err)
			continue
		}
		if ins.Op != tt.op {
			t.Errorf("Decode(%d).Op = %v, want %v", tt.word, ins.Op, tt.op)
		}
		if ins.Modes != tt.modes {
			t.Errorf("Decode(%d).Modes = %v, want %v", tt.word, ins.Modes, tt.modes)
		}
	}
}

// TestDecodeInvalid tests that the decoder never guesses.
func TestDecodeInvalid(t *testing.T) {
	for _, word := range []int64{0, 10, 98, 100, 301, 3001, 30001, 40099, -1, -1001, 100000, 1 << 40} {
		if _, err := Decode(word); !errors.Is(err, ErrInvalidProgram) {
			t.Errorf("Decode(%d) error = %v, want ErrInvalidProgram", word, err)
		}
	}
}

// TestEncode tests that Encode and Decode round-trip.
func TestEncode(t *testing.T) {
	tests := []struct {
		op    Opcode
		modes []Mode
		want  int64
	}{
		{OpAdd, nil, 1},
		{OpMultiply, []Mode{ModePosition, ModeImmediate}, 1002},
		{OpAdd, []Mode{ModeRelative, ModeImmediate, ModeRelative}, 21201},
		{OpOutput, []Mode{ModeRelative}, 204},
		{OpHalt, nil, 99},
	}

	for _, tt := range tests {
		got := Encode(tt.op, tt.modes...)
		if got != tt.want {
			t.Errorf("Encode(%v, %v) = %d, want %d", tt.op, tt.modes, got, tt.want)
		}
		ins, err := Decode(got)
		if err != nil {
			t.Errorf("Decode(%d) failed: %v", got, err)
			continue
		}
		if ins.Op != tt.op {
			t.Errorf("Decode(%d).Op = %v, want %v", got, ins.Op, tt.op)
		}
	}
}

// TestArity tests parameter counts and write targets.
func TestArity(t *testing.T) {
	tests := []struct {
		op     Opcode
		arity  int
		writes int
	}{
		{OpAdd, 3, 3},
		{OpMultiply, 3, 3},
		{OpInput, 1, 1},
		{OpOutput, 1, 0},
		{OpJumpIfTrue, 2, 0},
		{OpJumpIfFalse, 2, 0},
		{OpLessThan, 3, 3},
		{OpEquals, 3, 3},
		{OpAdjustRelativeBase, 1, 0},
		{OpHalt, 0, 0},
	}

	for _, tt := range tests {
		if got := tt.op.Arity(); got != tt.arity {
			t.Errorf("%v.Arity() = %d, want %d", tt.op, got, tt.arity)
		}
		if got := tt.op.Writes(); got != tt.writes {
			t.Errorf("%v.Writes() = %d, want %d", tt.op, got, tt.writes)
		}
	}

	if got := Opcode(42).String(); got != "op(42)" {
		t.Errorf("Opcode(42).String() = %q, want %q", got, "op(42)")
	}
}

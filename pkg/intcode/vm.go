// Package intcode implements the Intcode virtual machine.
//
// An Intcode program is a sequence of signed 64-bit words that also serves as
// the machine's initial memory. The machine executes instructions until it
// must hand control back to its caller:
//   - Output: an output instruction produced a value
//   - NeedInput: an input instruction found the input queue empty
//   - Halted: the program executed opcode 99
//
// A caller drives the machine by pushing inputs and calling Run repeatedly.
// Execution is synchronous and single-threaded; a Machine must not be used
// from more than one goroutine at a time.
package intcode

import (
	"errors"
	"fmt"
	"log"
)

// Errors.
var (
	ErrInvalidProgram    = errors.New("invalid program")
	ErrWriteToImmediate  = errors.New("write to immediate parameter")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrNeedInput         = errors.New("input required")
	ErrStepLimitExceeded = errors.New("step limit exceeded")
)

// Status is the execution state of a machine.
type Status uint8

// Machine states.
const (
	StatusRunning       Status = iota // ready to execute
	StatusAwaitingInput               // suspended at an input instruction with an empty queue
	StatusHalted                      // terminal
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusAwaitingInput:
		return "awaiting-input"
	case StatusHalted:
		return "halted"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Kind identifies why Run returned.
type Kind uint8

// Run outcomes.
const (
	KindOutput    Kind = iota + 1 // Value holds the produced word
	KindNeedInput                 // push an input and run again
	KindHalted                    // the program has terminated
)

func (k Kind) String() string {
	switch k {
	case KindOutput:
		return "output"
	case KindNeedInput:
		return "need-input"
	case KindHalted:
		return "halted"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Result is the outcome of a single Run call.
type Result struct {
	Kind  Kind
	Value int64 // valid only when Kind == KindOutput
}

func (r Result) String() string {
	if r.Kind == KindOutput {
		return fmt.Sprintf("output(%d)", r.Value)
	}
	return r.Kind.String()
}

// StepMeter counts executed instructions against an optional budget.
type StepMeter struct {
	used  uint64
	limit uint64 // 0 = unlimited
}

// NewStepMeter creates a step meter. A zero limit never runs out.
func NewStepMeter(limit uint64) *StepMeter {
	return &StepMeter{limit: limit}
}

// Consume records one executed instruction.
func (sm *StepMeter) Consume() error {
	if sm.limit > 0 && sm.used >= sm.limit {
		return ErrStepLimitExceeded
	}
	sm.used++
	return nil
}

// Used returns the number of instructions executed so far.
func (sm *StepMeter) Used() uint64 {
	return sm.used
}

// Options configures a machine. The zero value is unlimited and silent.
type Options struct {
	// MemoryLimit caps the number of addressable words (0 = unlimited).
	MemoryLimit int64

	// StepLimit caps the number of executed instructions (0 = unlimited).
	StepLimit uint64

	// Trace, when set, receives one line per executed instruction.
	Trace *log.Logger
}

// Machine executes an Intcode program.
type Machine struct {
	mem    *Memory
	ip     int64
	rb     int64
	inputs []int64

	status Status
	meter  *StepMeter
	trace  *log.Logger

	// fault is the first fatal error; once set every Run returns it.
	fault error
}

// New creates a machine whose memory starts as a copy of program.
func New(program []int64) *Machine {
	return NewWithOptions(program, Options{})
}

// NewWithOptions creates a machine with the given options.
func NewWithOptions(program []int64, opts Options) *Machine {
	return &Machine{
		mem:    NewMemory(program, opts.MemoryLimit),
		status: StatusRunning,
		meter:  NewStepMeter(opts.StepLimit),
		trace:  opts.Trace,
	}
}

// PushInput appends values to the input queue in order.
func (m *Machine) PushInput(values ...int64) {
	m.inputs = append(m.inputs, values...)
}

// Run executes instructions until the machine produces an output, needs
// input it does not have, or halts. Once halted, Run keeps returning
// KindHalted without touching any state. Fatal errors abort the current
// instruction before any of its effects are applied and are returned by
// every later call.
func (m *Machine) Run() (res Result, err error) {
	if m.fault != nil {
		return Result{}, m.fault
	}
	if m.status == StatusHalted {
		return Result{Kind: KindHalted}, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("vm panic at ip %d: %v", m.ip, rec)
			m.fault = err
			res = Result{}
		}
	}()

	m.status = StatusRunning
	for {
		r, suspended, stepErr := m.step()
		if stepErr != nil {
			m.fault = stepErr
			return Result{}, stepErr
		}
		if suspended {
			return r, nil
		}
	}
}

// step executes one instruction. The bool is true when control must return
// to the caller with the accompanying result.
func (m *Machine) step() (Result, bool, error) {
	word, err := m.mem.Read(m.ip)
	if err != nil {
		return Result{}, false, fmt.Errorf("fetch at ip %d: %w", m.ip, err)
	}

	ins, err := Decode(word)
	if err != nil {
		return Result{}, false, fmt.Errorf("decode at ip %d: %w", m.ip, err)
	}

	// Starvation leaves ip on the input instruction so it is retried.
	if ins.Op == OpInput && len(m.inputs) == 0 {
		m.status = StatusAwaitingInput
		return Result{Kind: KindNeedInput}, true, nil
	}

	if err := m.meter.Consume(); err != nil {
		return Result{}, false, fmt.Errorf("%w: %d instructions at ip %d", err, m.meter.Used(), m.ip)
	}

	if m.trace != nil {
		m.trace.Printf("ip=%d rb=%d %s", m.ip, m.rb, m.describe(ins))
	}

	switch ins.Op {
	case OpAdd, OpMultiply, OpLessThan, OpEquals:
		a, err := m.value(ins, 1)
		if err != nil {
			return Result{}, false, err
		}
		b, err := m.value(ins, 2)
		if err != nil {
			return Result{}, false, err
		}
		dst, err := m.address(ins, 3)
		if err != nil {
			return Result{}, false, err
		}

		var x int64
		switch ins.Op {
		case OpAdd:
			x = a + b
		case OpMultiply:
			x = a * b
		case OpLessThan:
			if a < b {
				x = 1
			}
		case OpEquals:
			if a == b {
				x = 1
			}
		}
		if err := m.mem.Write(dst, x); err != nil {
			return Result{}, false, err
		}

	case OpInput:
		dst, err := m.address(ins, 1)
		if err != nil {
			return Result{}, false, err
		}
		x := m.inputs[0]
		if err := m.mem.Write(dst, x); err != nil {
			return Result{}, false, err
		}
		m.inputs = m.inputs[1:]

	case OpOutput:
		v, err := m.value(ins, 1)
		if err != nil {
			return Result{}, false, err
		}
		m.ip += ins.Width()
		return Result{Kind: KindOutput, Value: v}, true, nil

	case OpJumpIfTrue, OpJumpIfFalse:
		cond, err := m.value(ins, 1)
		if err != nil {
			return Result{}, false, err
		}
		target, err := m.value(ins, 2)
		if err != nil {
			return Result{}, false, err
		}
		if (cond != 0) == (ins.Op == OpJumpIfTrue) {
			m.ip = target
			return Result{}, false, nil
		}

	case OpAdjustRelativeBase:
		delta, err := m.value(ins, 1)
		if err != nil {
			return Result{}, false, err
		}
		m.rb += delta

	case OpHalt:
		m.status = StatusHalted
		return Result{Kind: KindHalted}, true, nil

	default:
		return Result{}, false, fmt.Errorf("%w: opcode %d at ip %d", ErrInvalidProgram, int64(ins.Op), m.ip)
	}

	m.ip += ins.Width()
	return Result{}, false, nil
}

// NextOutput runs until the next output. ok is false once the program has
// halted. A starved input instruction fails with ErrNeedInput; the machine
// stays resumable and a later call after PushInput continues normally.
func (m *Machine) NextOutput() (v int64, ok bool, err error) {
	res, err := m.Run()
	if err != nil {
		return 0, false, err
	}
	switch res.Kind {
	case KindOutput:
		return res.Value, true, nil
	case KindNeedInput:
		return 0, false, fmt.Errorf("%w at ip %d", ErrNeedInput, m.ip)
	default:
		return 0, false, nil
	}
}

// Drain runs to completion and returns every output in order.
func (m *Machine) Drain() ([]int64, error) {
	var out []int64
	for {
		v, ok, err := m.NextOutput()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Exec runs program on a fresh machine with inputs queued up front and
// returns all outputs.
func Exec(program []int64, opts Options, inputs ...int64) ([]int64, error) {
	m := NewWithOptions(program, opts)
	m.PushInput(inputs...)
	return m.Drain()
}

// Status returns the current execution state.
func (m *Machine) Status() Status {
	return m.status
}

// Err returns the fatal error that stopped the machine, if any.
func (m *Machine) Err() error {
	return m.fault
}

// IP returns the instruction pointer.
func (m *Machine) IP() int64 {
	return m.ip
}

// RelativeBase returns the relative base.
func (m *Machine) RelativeBase() int64 {
	return m.rb
}

// Steps returns the number of instructions executed.
func (m *Machine) Steps() uint64 {
	return m.meter.Used()
}

// PendingInputs returns the number of queued, unconsumed inputs.
func (m *Machine) PendingInputs() int {
	return len(m.inputs)
}

// Peek returns the word at addr without growing memory.
func (m *Machine) Peek(addr int64) int64 {
	return m.mem.Peek(addr)
}

// Len returns the current memory size in words.
func (m *Machine) Len() int {
	return m.mem.Len()
}

// Snapshot returns a copy of the machine's memory.
func (m *Machine) Snapshot() []int64 {
	return m.mem.Snapshot()
}

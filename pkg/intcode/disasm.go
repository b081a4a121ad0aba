package intcode

import (
	"fmt"
	"io"
	"strings"
)

// Line is one entry of a disassembly listing.
type Line struct {
	Addr  int64
	Words []int64
	Ins   Instruction
	Data  bool // Words[0] did not decode and is listed as raw data
}

// String renders the line without its address.
func (l Line) String() string {
	if l.Data {
		return fmt.Sprintf("data %d", l.Words[0])
	}
	return formatInstruction(l.Ins, l.Words[1:])
}

// Disassemble performs a linear sweep over words. Intcode programs mix code
// and data freely, so anything that does not decode, or whose parameters
// run past the end of the program, is listed as a single data word.
func Disassemble(words []int64) []Line {
	var lines []Line
	for addr := int64(0); addr < int64(len(words)); {
		ins, err := Decode(words[addr])
		end := addr + ins.Width()
		if err != nil || end > int64(len(words)) {
			lines = append(lines, Line{Addr: addr, Words: words[addr : addr+1], Data: true})
			addr++
			continue
		}
		lines = append(lines, Line{Addr: addr, Words: words[addr:end], Ins: ins})
		addr = end
	}
	return lines
}

// FormatListing writes a disassembly of words to w, one line per entry.
func FormatListing(w io.Writer, words []int64) error {
	for _, l := range Disassemble(words) {
		raw := make([]string, len(l.Words))
		for i, x := range l.Words {
			raw[i] = fmt.Sprint(x)
		}
		if _, err := fmt.Fprintf(w, "%6d  %-28s %s\n", l.Addr, strings.Join(raw, ","), l); err != nil {
			return err
		}
	}
	return nil
}

// formatInstruction renders ins with its raw parameter words.
func formatInstruction(ins Instruction, params []int64) string {
	var sb strings.Builder
	sb.WriteString(ins.Op.String())
	for n, p := range params {
		if n == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(formatOperand(ins.Modes[n], p))
	}
	return sb.String()
}

func formatOperand(mode Mode, p int64) string {
	switch mode {
	case ModeImmediate:
		return fmt.Sprintf("#%d", p)
	case ModeRelative:
		return fmt.Sprintf("[rb%+d]", p)
	default:
		return fmt.Sprintf("[%d]", p)
	}
}

// describe renders the instruction at the current ip for tracing.
func (m *Machine) describe(ins Instruction) string {
	params := make([]int64, ins.Op.Arity())
	for n := range params {
		params[n] = m.mem.Peek(m.ip + int64(n) + 1)
	}
	return formatInstruction(ins, params)
}

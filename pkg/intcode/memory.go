package intcode

import (
	"fmt"
	"math"
)

// Memory layout. Addresses below denseWords live in a contiguous slice that
// grows on demand; anything above is kept in sparse pages so that a single
// far-away operand costs one page rather than a slice of that length.
const (
	denseWords = 1 << 20
	pageBits   = 10
	pageSize   = 1 << pageBits
)

type page [pageSize]int64

// Memory is a growable, zero-filled array of words. It never shrinks: any
// access at or beyond the current length first extends it with zeros up to
// and including the requested address.
type Memory struct {
	dense []int64
	pages map[int64]*page
	top   int64 // highest addressable word, -1 when empty
	limit int64 // 0 = unlimited
}

// NewMemory creates a memory initialized with a copy of program.
// A non-zero limit caps the number of addressable words.
func NewMemory(program []int64, limit int64) *Memory {
	dense := make([]int64, len(program))
	copy(dense, program)
	return &Memory{
		dense: dense,
		top:   int64(len(program)) - 1,
		limit: limit,
	}
}

// ensure grows memory so that addr is addressable.
func (m *Memory) ensure(addr int64) error {
	if addr < 0 {
		return fmt.Errorf("%w: negative address %d", ErrInvalidAddress, addr)
	}
	if m.limit > 0 && addr >= m.limit {
		return fmt.Errorf("%w: address %d exceeds memory limit %d", ErrInvalidAddress, addr, m.limit)
	}
	if addr > m.top {
		m.top = addr
	}
	if addr < int64(len(m.dense)) || addr >= denseWords {
		return nil
	}

	need := int(addr) + 1
	if need <= cap(m.dense) {
		// Spare capacity is zero: it came from make and len never shrinks.
		m.dense = m.dense[:need]
		return nil
	}

	grown := make([]int64, need, growCap(cap(m.dense), need))
	copy(grown, m.dense)
	m.dense = grown
	return nil
}

// growCap doubles capacity for small extensions so that programs probing
// upward one address at a time do not reallocate on every access.
func growCap(current, need int) int {
	c := min(current*2, denseWords)
	if c < need {
		return need
	}
	return c
}

// Read returns the word at addr, extending memory if needed.
func (m *Memory) Read(addr int64) (int64, error) {
	if err := m.ensure(addr); err != nil {
		return 0, err
	}
	return m.load(addr), nil
}

// Write stores x at addr, extending memory if needed.
func (m *Memory) Write(addr int64, x int64) error {
	if err := m.ensure(addr); err != nil {
		return err
	}
	if addr < int64(len(m.dense)) {
		m.dense[addr] = x
		return nil
	}

	if m.pages == nil {
		m.pages = make(map[int64]*page)
	}
	p := m.pages[addr>>pageBits]
	if p == nil {
		if x == 0 {
			return nil
		}
		p = new(page)
		m.pages[addr>>pageBits] = p
	}
	p[addr&(pageSize-1)] = x
	return nil
}

// load reads an address that ensure has already accepted, or any address
// for Peek. Unallocated pages read as zero.
func (m *Memory) load(addr int64) int64 {
	if addr < int64(len(m.dense)) {
		return m.dense[addr]
	}
	if p := m.pages[addr>>pageBits]; p != nil {
		return p[addr&(pageSize-1)]
	}
	return 0
}

// Peek returns the word at addr without extending memory. Addresses beyond
// the current length and negative addresses read as zero.
func (m *Memory) Peek(addr int64) int64 {
	if addr < 0 || addr > m.top {
		return 0
	}
	return m.load(addr)
}

// Len returns the current number of addressable words, saturating at
// math.MaxInt.
func (m *Memory) Len() int {
	if m.top >= math.MaxInt {
		return math.MaxInt
	}
	return int(m.top + 1)
}

// Snapshot returns a copy of the current memory contents. Its length is
// Len, so callers of programs that touch far addresses should check Len
// first or use Peek.
func (m *Memory) Snapshot() []int64 {
	out := make([]int64, m.Len())
	copy(out, m.dense)
	for idx, p := range m.pages {
		start := idx << pageBits
		for i, x := range p {
			if a := start + int64(i); a <= m.top && x != 0 {
				out[a] = x
			}
		}
	}
	return out
}

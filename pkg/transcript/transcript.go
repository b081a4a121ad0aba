// Package transcript records and replays the observable behavior of Intcode
// programs.
//
// A transcript captures the outputs a program produced for a fixed input
// sequence, plus the number of instructions it executed. Stored transcripts
// serve as golden records: Verify re-runs the program and reports the first
// divergence.
package transcript

import (
	"errors"
	"fmt"
	"time"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrTranscriptNotFound is returned when no transcript is stored for a
	// program and input sequence.
	ErrTranscriptNotFound = errors.New("transcript not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("transcript store closed")

	// ErrMismatch is returned by Verify when a replay diverges.
	ErrMismatch = errors.New("transcript mismatch")
)

// Transcript is one recorded run.
type Transcript struct {
	Program    types.Digest `cbor:"1,keyasint"`
	Inputs     []int64      `cbor:"2,keyasint,omitempty"`
	Outputs    []int64      `cbor:"3,keyasint,omitempty"`
	Steps      uint64       `cbor:"4,keyasint"`
	RecordedAt int64        `cbor:"5,keyasint"` // unix seconds
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("transcript: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a transcript to canonical CBOR.
func Marshal(t *Transcript) ([]byte, error) {
	return cborEncMode.Marshal(t)
}

// Unmarshal deserializes a transcript from CBOR.
func Unmarshal(data []byte) (*Transcript, error) {
	var t Transcript
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("transcript: unmarshal: %w", err)
	}
	return &t, nil
}

// Capture runs words on a fresh machine with inputs queued up front and
// records everything it outputs until it halts. A program that asks for more
// input than provided fails with intcode.ErrNeedInput.
func Capture(words []int64, inputs []int64, opts intcode.Options) (*Transcript, error) {
	m := intcode.NewWithOptions(words, opts)
	m.PushInput(inputs...)

	outputs, err := m.Drain()
	if err != nil {
		return nil, err
	}

	return &Transcript{
		Program:    types.DigestOf(words),
		Inputs:     append([]int64(nil), inputs...),
		Outputs:    outputs,
		Steps:      m.Steps(),
		RecordedAt: time.Now().Unix(),
	}, nil
}

// Diff describes the first difference between a recorded and a replayed
// transcript, or returns "" when they agree. RecordedAt is ignored.
func Diff(want, got *Transcript) string {
	if want.Program != got.Program {
		return fmt.Sprintf("program %s, want %s", got.Program.Short(), want.Program.Short())
	}
	n := min(len(want.Outputs), len(got.Outputs))
	for i := 0; i < n; i++ {
		if want.Outputs[i] != got.Outputs[i] {
			return fmt.Sprintf("output %d = %d, want %d", i, got.Outputs[i], want.Outputs[i])
		}
	}
	if len(want.Outputs) != len(got.Outputs) {
		return fmt.Sprintf("%d outputs, want %d", len(got.Outputs), len(want.Outputs))
	}
	if want.Steps != got.Steps {
		return fmt.Sprintf("%d steps, want %d", got.Steps, want.Steps)
	}
	return ""
}

// Verify replays every transcript stored for words and returns how many
// were checked. The first divergence, including a replay that now fails,
// is reported as ErrMismatch.
func Verify(store *Store, words []int64, opts intcode.Options) (int, error) {
	digest := types.DigestOf(words)
	recorded, err := store.ForProgram(digest)
	if err != nil {
		return 0, err
	}

	for i, want := range recorded {
		got, err := Capture(words, want.Inputs, opts)
		if err != nil {
			return i, fmt.Errorf("%w: inputs %v: replay failed: %v", ErrMismatch, want.Inputs, err)
		}
		if d := Diff(want, got); d != "" {
			return i, fmt.Errorf("%w: inputs %v: %s", ErrMismatch, want.Inputs, d)
		}
	}
	return len(recorded), nil
}

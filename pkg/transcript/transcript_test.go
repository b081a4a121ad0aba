package transcript

import (
	"errors"
	"testing"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/intcode"
)

// compareEight outputs 999, 1000 or 1001 for an input below, equal to or
// above 8.
var compareEight = []int64{
	3, 21, 1008, 21, 8, 20, 1005, 20, 22, 107, 8, 21, 20, 1006, 20, 31,
	1106, 0, 36, 98, 0, 0, 1002, 21, 125, 20, 4, 20, 1105, 1, 46, 104,
	999, 1105, 1, 46, 1101, 1000, 1, 20, 4, 20, 1105, 1, 46, 98, 99,
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig("")
	cfg.InMemory = true
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestCapture tests recording a run.
func TestCapture(t *testing.T) {
	tr, err := Capture(compareEight, []int64{9}, intcode.Options{})
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}
	if tr.Program != types.DigestOf(compareEight) {
		t.Errorf("Program = %s, want %s", tr.Program, types.DigestOf(compareEight))
	}
	if len(tr.Outputs) != 1 || tr.Outputs[0] != 1001 {
		t.Errorf("Outputs = %v, want [1001]", tr.Outputs)
	}
	if tr.Steps == 0 {
		t.Error("Steps = 0, want a positive count")
	}
}

// TestCaptureStarved tests that missing inputs are reported.
func TestCaptureStarved(t *testing.T) {
	_, err := Capture(compareEight, nil, intcode.Options{})
	if !errors.Is(err, intcode.ErrNeedInput) {
		t.Errorf("Capture() error = %v, want ErrNeedInput", err)
	}
}

// TestMarshalCanonical tests that encoding is deterministic and reversible.
func TestMarshalCanonical(t *testing.T) {
	tr := &Transcript{
		Program:    types.DigestOf(compareEight),
		Inputs:     []int64{-3, 8},
		Outputs:    []int64{999, 1125899906842624},
		Steps:      42,
		RecordedAt: 1700000000,
	}

	a, err := Marshal(tr)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	b, err := Marshal(tr)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	if string(a) != string(b) {
		t.Error("Marshal() is not deterministic")
	}

	back, err := Unmarshal(a)
	if err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if d := Diff(tr, back); d != "" {
		t.Errorf("Unmarshal() differs: %s", d)
	}
	if back.RecordedAt != tr.RecordedAt {
		t.Errorf("RecordedAt = %d, want %d", back.RecordedAt, tr.RecordedAt)
	}

	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("Unmarshal() accepted garbage")
	}
}

// TestDiff tests divergence descriptions.
func TestDiff(t *testing.T) {
	base := &Transcript{Outputs: []int64{1, 2, 3}, Steps: 10}

	tests := []struct {
		name string
		got  *Transcript
		want string
	}{
		{"equal", &Transcript{Outputs: []int64{1, 2, 3}, Steps: 10}, ""},
		{"value", &Transcript{Outputs: []int64{1, 5, 3}, Steps: 10}, "output 1 = 5, want 2"},
		{"short", &Transcript{Outputs: []int64{1, 2}, Steps: 10}, "2 outputs, want 3"},
		{"steps", &Transcript{Outputs: []int64{1, 2, 3}, Steps: 11}, "11 steps, want 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Diff(base, tt.got); got != tt.want {
				t.Errorf("Diff() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestStorePutGet tests storing and retrieving transcripts.
func TestStorePutGet(t *testing.T) {
	store := newTestStore(t)

	for _, in := range []int64{7, 8, 9} {
		tr, err := Capture(compareEight, []int64{in}, intcode.Options{})
		if err != nil {
			t.Fatalf("Capture(%d) failed: %v", in, err)
		}
		if err := store.Put(tr); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}

	digest := types.DigestOf(compareEight)
	got, err := store.Get(digest, []int64{8})
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if len(got.Outputs) != 1 || got.Outputs[0] != 1000 {
		t.Errorf("Get(8).Outputs = %v, want [1000]", got.Outputs)
	}

	if _, err := store.Get(digest, []int64{10}); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("Get(10) error = %v, want ErrTranscriptNotFound", err)
	}

	all, err := store.ForProgram(digest)
	if err != nil {
		t.Fatalf("ForProgram() failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ForProgram() returned %d transcripts, want 3", len(all))
	}

	other, err := store.ForProgram(types.DigestOf([]int64{99}))
	if err != nil {
		t.Fatalf("ForProgram(other) failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("ForProgram(other) returned %d transcripts, want 0", len(other))
	}

	n, err := store.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

// TestStoreReplace tests that a second Put for the same inputs replaces the
// first.
func TestStoreReplace(t *testing.T) {
	store := newTestStore(t)
	digest := types.DigestOf(compareEight)

	first := &Transcript{Program: digest, Inputs: []int64{1}, Outputs: []int64{0}}
	second := &Transcript{Program: digest, Inputs: []int64{1}, Outputs: []int64{999}}
	if err := store.Put(first); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := store.Put(second); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, err := store.Get(digest, []int64{1})
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Outputs[0] != 999 {
		t.Errorf("Get().Outputs = %v, want [999]", got.Outputs)
	}
	if n, _ := store.Count(); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

// TestStoreDelete tests removing a transcript.
func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)

	tr, err := Capture(compareEight, []int64{1}, intcode.Options{})
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}
	if err := store.Put(tr); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := store.Delete(tr.Program, tr.Inputs); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(tr.Program, tr.Inputs); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrTranscriptNotFound", err)
	}
	if err := store.Delete(tr.Program, tr.Inputs); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("second Delete() error = %v, want ErrTranscriptNotFound", err)
	}
}

// TestVerify tests replaying stored transcripts.
func TestVerify(t *testing.T) {
	store := newTestStore(t)

	for _, in := range []int64{-5, 8, 100} {
		tr, err := Capture(compareEight, []int64{in}, intcode.Options{})
		if err != nil {
			t.Fatalf("Capture(%d) failed: %v", in, err)
		}
		if err := store.Put(tr); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}

	n, err := Verify(store, compareEight, intcode.Options{})
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Verify() checked %d transcripts, want 3", n)
	}

	// A tampered record is reported.
	bad := &Transcript{
		Program: types.DigestOf(compareEight),
		Inputs:  []int64{8},
		Outputs: []int64{999},
	}
	if err := store.Put(bad); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if _, err := Verify(store, compareEight, intcode.Options{}); !errors.Is(err, ErrMismatch) {
		t.Errorf("Verify() error = %v, want ErrMismatch", err)
	}
}

// TestVerifyReplayFailure tests that a replay that no longer completes is a
// mismatch.
func TestVerifyReplayFailure(t *testing.T) {
	store := newTestStore(t)

	tr, err := Capture(compareEight, []int64{8}, intcode.Options{})
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}
	if err := store.Put(tr); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	_, err = Verify(store, compareEight, intcode.Options{StepLimit: 2})
	if !errors.Is(err, ErrMismatch) {
		t.Errorf("Verify() error = %v, want ErrMismatch", err)
	}
}

// TestClosed tests operations on a closed store.
func TestClosed(t *testing.T) {
	cfg := DefaultConfig("")
	cfg.InMemory = true
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if err := store.Put(&Transcript{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Put() error = %v, want ErrClosed", err)
	}
	if _, err := store.Count(); !errors.Is(err, ErrClosed) {
		t.Errorf("Count() error = %v, want ErrClosed", err)
	}
}

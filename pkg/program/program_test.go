package program

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []int64
	}{
		{"single", "99", []int64{99}},
		{"trailing newline", "1,0,0,0,99\n", []int64{1, 0, 0, 0, 99}},
		{"spaces", " 1002, 4 ,3,4 , 33 ", []int64{1002, 4, 3, 4, 33}},
		{"negative", "1101,100,-1,4,0", []int64{1101, 100, -1, 4, 0}},
		{"large", "104,1125899906842624,99", []int64{104, 1125899906842624, 99}},
		{"wrapped", "1,9,10,\n3,2,3", []int64{1, 9, 10, 3, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseString(tt.in)
			if err != nil {
				t.Fatalf("ParseString(%q) failed: %v", tt.in, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseString(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseStringErrors(t *testing.T) {
	if _, err := ParseString("  \n"); !errors.Is(err, ErrEmptyProgram) {
		t.Errorf("ParseString(blank) error = %v, want ErrEmptyProgram", err)
	}

	for _, in := range []string{"1,,2", "1,2,", "1,x", "99999999999999999999", "1.5"} {
		if _, err := ParseString(in); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ParseString(%q) error = %v, want ErrInvalidToken", in, err)
		}
	}
}

func TestParseInputs(t *testing.T) {
	got, err := ParseInputs("")
	if err != nil || got != nil {
		t.Errorf("ParseInputs(\"\") = %v, %v, want nil, nil", got, err)
	}
	got, err = ParseInputs("5,-2")
	if err != nil || !slices.Equal(got, []int64{5, -2}) {
		t.Errorf("ParseInputs(\"5,-2\") = %v, %v", got, err)
	}
}

func TestParse(t *testing.T) {
	got, err := Parse(strings.NewReader("3,0,4,0,99\n"))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !slices.Equal(got, []int64{3, 0, 4, 0, 99}) {
		t.Errorf("Parse() = %v", got)
	}
}

func TestFormat(t *testing.T) {
	words := []int64{109, -1, 204, 1125899906842624}
	if got := Format(words); got != "109,-1,204,1125899906842624" {
		t.Errorf("Format() = %q", got)
	}
	back, err := ParseString(Format(words))
	if err != nil || !slices.Equal(back, words) {
		t.Errorf("ParseString(Format()) = %v, %v", back, err)
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	words := []int64{109, 1, 204, -1, 1001, 100, 1, 100, 1008, 100, 16, 101, 1006, 101, 0, 99}

	for _, name := range []string{"quine.txt", "quine.txt.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := Save(path, words); err != nil {
				t.Fatalf("Save() failed: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if !slices.Equal(got, words) {
				t.Errorf("Load() = %v, want %v", got, words)
			}
		})
	}

	plain, err := os.ReadFile(filepath.Join(dir, "quine.txt"))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	compressed, err := os.ReadFile(filepath.Join(dir, "quine.txt.zst"))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(plain) == string(compressed) {
		t.Error(".zst file was not compressed")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want os.ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.txt.zst")
	if err := os.WriteFile(bad, []byte("1,2,3"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Load() accepted an uncompressed .zst file")
	}
}


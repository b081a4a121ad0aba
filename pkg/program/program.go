// Package program reads and writes Intcode programs in their textual form:
// a single line of comma-separated signed integers.
//
// Files whose name ends in ".zst" are transparently zstd-compressed.
package program

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrEmptyProgram is returned when the input holds no words.
	ErrEmptyProgram = errors.New("empty program")

	// ErrInvalidToken is returned when a word is not a signed 64-bit integer.
	ErrInvalidToken = errors.New("invalid token")

	// ErrDecompressionFailed is returned when a .zst file cannot be decoded.
	ErrDecompressionFailed = errors.New("decompression failed")
)

// CompressedSuffix marks zstd-compressed program files.
const CompressedSuffix = ".zst"

// Parse reads a comma-separated program from r.
func Parse(r io.Reader) ([]int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return ParseString(string(data))
}

// ParseString parses a comma-separated program. Whitespace around words,
// including a trailing newline, is ignored.
func ParseString(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyProgram
	}

	fields := strings.Split(s, ",")
	words := make([]int64, len(fields))
	for i, f := range fields {
		tok := strings.TrimSpace(f)
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: word %d %q", ErrInvalidToken, i, tok)
		}
		words[i] = v
	}
	return words, nil
}

// ParseInputs parses a comma-separated input list. An empty string yields
// no inputs.
func ParseInputs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return ParseString(s)
}

// Format renders words in the comma-separated form accepted by Parse.
func Format(words []int64) string {
	var sb strings.Builder
	for i, w := range words {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(w, 10))
	}
	return sb.String()
}

// Load reads a program file.
func Load(path string) ([]int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open program: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, CompressedSuffix) {
		decoder, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
		}
		defer decoder.Close()
		reader = decoder
	}

	words, err := Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

// Save writes words to path followed by a newline.
func Save(path string, words []int64) error {
	data := []byte(Format(words) + "\n")
	if strings.HasSuffix(path, CompressedSuffix) {
		compressed, err := compressZstd(data)
		if err != nil {
			return fmt.Errorf("zstd compression failed: %w", err)
		}
		data = compressed
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write program: %w", err)
	}
	return nil
}

// compressZstd compresses data using zstd.
func compressZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

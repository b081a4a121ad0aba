// Package types defines content addresses shared by the program library and
// the transcript store.
//
// A program is identified by the BLAKE3 hash of its words, each encoded as a
// little-endian int64, and is written out in base58.
package types

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
)

// Size constants.
const (
	DigestSize    = 32
	InputsKeySize = 16
)

var (
	// ErrInvalidDigest is returned when a digest has invalid length.
	ErrInvalidDigest = errors.New("invalid digest: must be 32 bytes")
)

// Digest is the content address of a program.
type Digest [DigestSize]byte

// DigestOf computes the digest of a program.
func DigestOf(words []int64) Digest {
	var d Digest
	h := blake3.New()
	h.Write(encodeWords(words))
	copy(d[:], h.Sum(nil))
	return d
}

// DigestFromBase58 parses a base58-encoded digest.
func DigestFromBase58(s string) (Digest, error) {
	var d Digest
	data, err := base58.Decode(s)
	if err != nil {
		return d, fmt.Errorf("base58 decode: %w", err)
	}
	if len(data) != DigestSize {
		return d, ErrInvalidDigest
	}
	copy(d[:], data)
	return d, nil
}

// DigestFromBytes creates a Digest from a byte slice.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, ErrInvalidDigest
	}
	copy(d[:], b)
	return d, nil
}

// String returns the base58-encoded representation.
func (d Digest) String() string {
	return base58.Encode(d[:])
}

// Short returns the first eight characters of the base58 form, for logs
// and listings.
func (d Digest) Short() string {
	s := d.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// IsZero returns true if the digest is all zeros.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Bytes returns the digest as a byte slice.
func (d Digest) Bytes() []byte {
	return d[:]
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := DigestFromBase58(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// InputsKey identifies an input sequence within the transcripts of a program.
type InputsKey [InputsKeySize]byte

// InputsKeyOf hashes an input sequence. The length is mixed in so that an
// empty sequence and a sequence of zeros differ.
func InputsKeyOf(inputs []int64) InputsKey {
	var k InputsKey
	h := blake3.New()
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(inputs)))
	h.Write(n[:])
	h.Write(encodeWords(inputs))
	copy(k[:], h.Sum(nil))
	return k
}

// encodeWords serializes words as consecutive little-endian int64s.
func encodeWords(words []int64) []byte {
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(w))
	}
	return buf
}

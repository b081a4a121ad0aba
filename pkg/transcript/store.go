package transcript

import (
	"bytes"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/fortiblox/intcode/internal/types"
)

// Key prefixes for BadgerDB storage.
var (
	// prefixTranscript is the prefix for transcripts.
	// Key format: prefixTranscript + program digest (32 bytes) + inputs key (16 bytes)
	prefixTranscript = []byte{0x01}
)

const keySize = 1 + types.DigestSize + types.InputsKeySize

// Config contains configuration for the transcript store.
type Config struct {
	// Path is the directory path for the database.
	Path string

	// InMemory runs the database in memory (for testing).
	InMemory bool

	// SyncWrites ensures writes are synced to disk.
	SyncWrites bool

	// NumCompactors is the number of compaction workers.
	NumCompactors int

	// ValueLogFileSize is the size of each value log file.
	ValueLogFileSize int64

	// Logger is an optional logger. Set to nil to disable logging.
	Logger badger.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:             path,
		InMemory:         false,
		SyncWrites:       false,
		NumCompactors:    2,
		ValueLogFileSize: 64 << 20, // 64MB
		Logger:           nil,
	}
}

// Store is a BadgerDB-backed transcript store.
type Store struct {
	db     *badger.DB
	closed atomic.Bool
}

// Open creates or opens a transcript store.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(cfg.Logger)
	if cfg.NumCompactors > 0 {
		opts = opts.WithNumCompactors(cfg.NumCompactors)
	}
	if cfg.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(cfg.ValueLogFileSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// transcriptKey returns the BadgerDB key for a program and input sequence.
func transcriptKey(digest types.Digest, inputs []int64) []byte {
	ik := types.InputsKeyOf(inputs)
	key := make([]byte, 0, keySize)
	key = append(key, prefixTranscript...)
	key = append(key, digest[:]...)
	return append(key, ik[:]...)
}

// programPrefix returns the key prefix shared by all transcripts of a program.
func programPrefix(digest types.Digest) []byte {
	return append(append([]byte{}, prefixTranscript...), digest[:]...)
}

// Put stores t, replacing any transcript recorded for the same program and
// inputs.
func (s *Store) Put(t *Transcript) error {
	if s.closed.Load() {
		return ErrClosed
	}

	data, err := Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(transcriptKey(t.Program, t.Inputs), data)
	})
}

// Get retrieves the transcript for a program and input sequence.
func (s *Store) Get(digest types.Digest, inputs []int64) (*Transcript, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var t *Transcript
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(transcriptKey(digest, inputs))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s inputs %v", ErrTranscriptNotFound, digest.Short(), inputs)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			t, err = Unmarshal(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ForProgram returns every transcript recorded for a program, ordered by
// input key.
func (s *Store) ForProgram(digest types.Digest) ([]*Transcript, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var out []*Transcript
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = programPrefix(digest)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if len(item.Key()) != keySize {
				continue
			}
			err := item.Value(func(val []byte) error {
				t, err := Unmarshal(val)
				if err != nil {
					return err
				}
				out = append(out, t)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the transcript for a program and input sequence.
func (s *Store) Delete(digest types.Digest, inputs []int64) error {
	if s.closed.Load() {
		return ErrClosed
	}

	key := transcriptKey(digest, inputs)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s inputs %v", ErrTranscriptNotFound, digest.Short(), inputs)
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// Count returns the number of stored transcripts.
func (s *Store) Count() (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixTranscript
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if bytes.HasPrefix(it.Item().Key(), prefixTranscript) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// Close closes the database. Closing an already closed store is a no-op.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Package library provides persistent storage for Intcode programs.
//
// Programs are content-addressed by their digest. A program may additionally
// be bound to a short name; a name refers to at most one program at a time.
package library

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/fortiblox/intcode/internal/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// ErrProgramNotFound is returned when a program doesn't exist.
	ErrProgramNotFound = errors.New("program not found")

	// ErrClosed is returned when operating on a closed library.
	ErrClosed = errors.New("library closed")

	// ErrInvalidName is returned for names that could be confused with
	// program text or digests.
	ErrInvalidName = errors.New("invalid program name")
)

// Bucket names for BoltDB.
var (
	// bucketPrograms stores gob-encoded entries keyed by digest.
	bucketPrograms = []byte("programs")

	// bucketNames maps program names to digests.
	bucketNames = []byte("names")

	// bucketMetadata stores library metadata.
	bucketMetadata = []byte("metadata")
)

// Metadata keys.
var (
	keySchemaVersion = []byte("schema_version")
	keyLastAdded     = []byte("last_added")
)

const schemaVersion = uint64(1)

// Config holds library configuration options.
type Config struct {
	// Path is the database file path.
	Path string

	// NoSync disables fsync after each write (faster but less durable).
	NoSync bool

	// ReadOnly opens the database in read-only mode.
	ReadOnly bool

	// Timeout bounds the wait for the database file lock.
	Timeout time.Duration
}

// DefaultConfig returns the default library configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:     path,
		NoSync:   false,
		ReadOnly: false,
		Timeout:  5 * time.Second,
	}
}

// Entry is a stored program.
type Entry struct {
	Digest  types.Digest
	Name    string
	Words   []int64
	AddedAt int64 // unix seconds
}

// Info summarizes an entry without its words.
type Info struct {
	Digest  types.Digest
	Name    string
	Size    int
	AddedAt int64
}

// Stats contains library statistics.
type Stats struct {
	// ProgramCount is the number of stored programs.
	ProgramCount int

	// NameCount is the number of bound names.
	NameCount int

	// LastAdded is the digest of the most recently added program.
	LastAdded types.Digest

	// DatabaseSize is the size of the database in bytes.
	DatabaseSize int64
}

// Store is a BoltDB-backed program library.
type Store struct {
	db     *bolt.DB
	config Config

	mu     sync.RWMutex
	closed bool
}

// Open creates or opens a library at config.Path.
func Open(config Config) (*Store, error) {
	if !config.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	opts := &bolt.Options{
		Timeout:  config.Timeout,
		NoSync:   config.NoSync,
		ReadOnly: config.ReadOnly,
	}

	db, err := bolt.Open(config.Path, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{
		db:     db,
		config: config,
	}

	if !config.ReadOnly {
		if err := store.initBuckets(); err != nil {
			db.Close()
			return nil, fmt.Errorf("init buckets: %w", err)
		}
	}

	return store, nil
}

// initBuckets creates all required buckets.
func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketPrograms, bucketNames, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		meta := tx.Bucket(bucketMetadata)
		if meta.Get(keySchemaVersion) == nil {
			return meta.Put(keySchemaVersion, encodeUint64(schemaVersion))
		}
		return nil
	})
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// ValidateName checks that name can be bound to a program. Names must be
// non-empty, free of whitespace and commas, and must not parse as a digest.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsFunc(name, func(r rune) bool { return unicode.IsSpace(r) || r == ',' }) {
		return fmt.Errorf("%w: %q contains whitespace or commas", ErrInvalidName, name)
	}
	if _, err := types.DigestFromBase58(name); err == nil {
		return fmt.Errorf("%w: %q looks like a digest", ErrInvalidName, name)
	}
	return nil
}

// Put stores words and, if name is non-empty, binds name to them. Storing
// the same program twice keeps the first AddedAt. A name already bound
// to another program moves to this one.
func (s *Store) Put(name string, words []int64) (*Entry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if name != "" {
		if err := ValidateName(name); err != nil {
			return nil, err
		}
	}

	entry := &Entry{
		Digest:  types.DigestOf(words),
		Name:    name,
		Words:   append([]int64(nil), words...),
		AddedAt: time.Now().Unix(),
	}
	key := entry.Digest.Bytes()

	err := s.db.Update(func(tx *bolt.Tx) error {
		programs := tx.Bucket(bucketPrograms)
		names := tx.Bucket(bucketNames)

		if data := programs.Get(key); data != nil {
			existing, err := decodeEntry(data)
			if err != nil {
				return err
			}
			entry.AddedAt = existing.AddedAt
			if name == "" {
				entry.Name = existing.Name
			} else if existing.Name != "" && existing.Name != name {
				if err := names.Delete([]byte(existing.Name)); err != nil {
					return err
				}
			}
		}

		if name != "" {
			if prev := names.Get([]byte(name)); prev != nil && !bytes.Equal(prev, key) {
				if err := clearName(programs, prev); err != nil {
					return err
				}
			}
			if err := names.Put([]byte(name), key); err != nil {
				return err
			}
		}

		data, err := encodeEntry(entry)
		if err != nil {
			return err
		}
		if err := programs.Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(bucketMetadata).Put(keyLastAdded, key)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// clearName removes the name from the entry stored under key.
func clearName(programs *bolt.Bucket, key []byte) error {
	data := programs.Get(key)
	if data == nil {
		return nil
	}
	entry, err := decodeEntry(data)
	if err != nil {
		return err
	}
	entry.Name = ""
	data, err = encodeEntry(entry)
	if err != nil {
		return err
	}
	return programs.Put(key, data)
}

// Get retrieves a program by digest.
func (s *Store) Get(digest types.Digest) (*Entry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		programs := tx.Bucket(bucketPrograms)
		if programs == nil {
			return ErrProgramNotFound
		}
		data := programs.Get(digest.Bytes())
		if data == nil {
			return fmt.Errorf("%w: %s", ErrProgramNotFound, digest)
		}
		var err error
		entry, err = decodeEntry(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Lookup retrieves a program by name.
func (s *Store) Lookup(name string) (*Entry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var digest types.Digest
	err := s.db.View(func(tx *bolt.Tx) error {
		names := tx.Bucket(bucketNames)
		if names == nil {
			return ErrProgramNotFound
		}
		key := names.Get([]byte(name))
		if key == nil {
			return fmt.Errorf("%w: name %q", ErrProgramNotFound, name)
		}
		var err error
		digest, err = types.DigestFromBytes(key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(digest)
}

// Resolve retrieves a program by name or by base58 digest.
func (s *Store) Resolve(ref string) (*Entry, error) {
	if digest, err := types.DigestFromBase58(ref); err == nil {
		return s.Get(digest)
	}
	return s.Lookup(ref)
}

// List returns all programs, named ones first in name order, then unnamed
// ones in digest order.
func (s *Store) List() ([]Info, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var infos []Info
	err := s.db.View(func(tx *bolt.Tx) error {
		programs := tx.Bucket(bucketPrograms)
		if programs == nil {
			return nil
		}
		return programs.ForEach(func(k, v []byte) error {
			entry, err := decodeEntry(v)
			if err != nil {
				return fmt.Errorf("decode %x: %w", k, err)
			}
			infos = append(infos, Info{
				Digest:  entry.Digest,
				Name:    entry.Name,
				Size:    len(entry.Words),
				AddedAt: entry.AddedAt,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i], infos[j]
		if (a.Name == "") != (b.Name == "") {
			return a.Name != ""
		}
		return a.Name < b.Name
	})
	return infos, nil
}

// Delete removes a program and any name bound to it.
func (s *Store) Delete(digest types.Digest) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	key := digest.Bytes()
	return s.db.Update(func(tx *bolt.Tx) error {
		programs := tx.Bucket(bucketPrograms)
		data := programs.Get(key)
		if data == nil {
			return fmt.Errorf("%w: %s", ErrProgramNotFound, digest)
		}
		entry, err := decodeEntry(data)
		if err != nil {
			return err
		}
		if entry.Name != "" {
			if err := tx.Bucket(bucketNames).Delete([]byte(entry.Name)); err != nil {
				return err
			}
		}
		return programs.Delete(key)
	})
}

// Stats returns library statistics.
func (s *Store) Stats() (*Stats, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	stats := &Stats{}
	err := s.db.View(func(tx *bolt.Tx) error {
		stats.DatabaseSize = tx.Size()
		if programs := tx.Bucket(bucketPrograms); programs != nil {
			stats.ProgramCount = programs.Stats().KeyN
		}
		if names := tx.Bucket(bucketNames); names != nil {
			stats.NameCount = names.Stats().KeyN
		}
		if meta := tx.Bucket(bucketMetadata); meta != nil {
			if v := meta.Get(keyLastAdded); v != nil {
				d, err := types.DigestFromBytes(v)
				if err != nil {
					return err
				}
				stats.LastAdded = d
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Close closes the library. Closing an already closed library is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.db.Close()
}

func encodeEntry(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEntry(data []byte) (*Entry, error) {
	var entry Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	return &entry, nil
}

func encodeUint64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

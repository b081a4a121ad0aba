// Package config loads the intcode command configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the configuration file read when -config is not given.
const DefaultFile = "intcode.toml"

// Config is the parsed configuration file.
type Config struct {
	Machine     Machine     `toml:"machine"`
	Library     Library     `toml:"library"`
	Transcripts Transcripts `toml:"transcripts"`
	Log         Log         `toml:"log"`
}

// Machine holds execution limits. Zero means unlimited.
type Machine struct {
	MemoryLimit int64  `toml:"memory_limit"`
	StepLimit   uint64 `toml:"step_limit"`
}

// Library configures the program library database.
type Library struct {
	Path   string `toml:"path"`
	NoSync bool   `toml:"no_sync"`
}

// Transcripts configures the transcript database.
type Transcripts struct {
	Path       string `toml:"path"`
	SyncWrites bool   `toml:"sync_writes"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Log levels.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Default returns the configuration used when no file is present. Databases
// live under dataDir.
func Default(dataDir string) *Config {
	return &Config{
		Library:     Library{Path: filepath.Join(dataDir, "library.db")},
		Transcripts: Transcripts{Path: filepath.Join(dataDir, "transcripts")},
		Log:         Log{Level: LevelInfo},
	}
}

// DefaultDataDir returns ~/.intcode, or .intcode when the home directory is
// unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".intcode"
	}
	return filepath.Join(home, ".intcode")
}

// Load reads the file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default(DefaultDataDir())
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadOptional loads path when given. With an empty path it reads
// DefaultFile if that exists and otherwise returns the defaults.
func LoadOptional(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); errors.Is(err, os.ErrNotExist) {
		return Default(DefaultDataDir()), nil
	}
	return Load(DefaultFile)
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Machine.MemoryLimit < 0 {
		return fmt.Errorf("machine.memory_limit must not be negative, got %d", c.Machine.MemoryLimit)
	}
	level := strings.ToLower(c.Log.Level)
	if _, ok := levelRank[level]; !ok {
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	c.Log.Level = level
	return nil
}

// levelRank orders levels from most to least verbose.
var levelRank = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Enabled reports whether messages at level should be logged under the
// configured level. Debug also turns on instruction tracing.
func (c *Config) Enabled(level string) bool {
	want, ok := levelRank[level]
	if !ok {
		return false
	}
	return want >= levelRank[c.Log.Level]
}

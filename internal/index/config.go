package index

import (
	"fmt"
	"os"
	"slices"
	"strconv"
)

// Supported backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var backends = []string{BackendMemory, BackendSQLite, BackendPostgres}

// Config selects and locates the passage index backend.
type Config struct {
	Backend      string `toml:"backend"`
	Path         string `toml:"path"`
	ChunkSize    int    `toml:"chunk_size"`
	ChunkOverlap int    `toml:"chunk_overlap"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Backend      string
	Path         string
	ChunkSize    string
	ChunkOverlap string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.ChunkSize > 0 {
		c.ChunkSize = overlay.ChunkSize
	}
	if overlay.ChunkOverlap > 0 {
		c.ChunkOverlap = overlay.ChunkOverlap
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendPostgres
	}
	if c.Path == "" {
		c.Path = "dispatch.db"
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = 200
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}
	if env.Path != "" {
		if v := os.Getenv(env.Path); v != "" {
			c.Path = v
		}
	}
	if env.ChunkSize != "" {
		if v := os.Getenv(env.ChunkSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.ChunkSize = n
			}
		}
	}
	if env.ChunkOverlap != "" {
		if v := os.Getenv(env.ChunkOverlap); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.ChunkOverlap = n
			}
		}
	}
}

func (c *Config) validate() error {
	if !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be less than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

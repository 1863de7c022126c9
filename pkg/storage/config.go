package storage

import (
	"errors"
	"os"
)

const (
	// DefaultContainer holds uploaded documents unless configured otherwise.
	DefaultContainer  = "documents"
	DefaultMaxRetries = 3
)

// Config selects the blob account. A ConnectionString (shared key, as used by
// Azurite) wins; otherwise AccountURL is paired with DefaultAzureCredential.
type Config struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
	MaxRetries       int    `toml:"max_retries"`
}

// Env names the environment variables that override Config fields.
type Env struct {
	ContainerName    string
	ConnectionString string
	AccountURL       string
}

// Finalize fills defaults, applies environment overrides, then validates.
func (c *Config) Finalize(env *Env) error {
	if c.ContainerName == "" {
		c.ContainerName = DefaultContainer
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if env != nil {
		for dst, name := range map[*string]string{
			&c.ContainerName:    env.ContainerName,
			&c.ConnectionString: env.ConnectionString,
			&c.AccountURL:       env.AccountURL,
		} {
			if v := lookup(name); v != "" {
				*dst = v
			}
		}
	}

	if c.ConnectionString == "" && c.AccountURL == "" {
		return errors.New("storage: connection_string or account_url required")
	}
	if c.MaxRetries < 0 {
		return errors.New("storage: max_retries must not be negative")
	}
	return nil
}

// Merge overwrites c with every non-empty field of overlay.
func (c *Config) Merge(overlay *Config) {
	for dst, v := range map[*string]string{
		&c.ContainerName:    overlay.ContainerName,
		&c.ConnectionString: overlay.ConnectionString,
		&c.AccountURL:       overlay.AccountURL,
	} {
		if v != "" {
			*dst = v
		}
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
}

// UsesIdentity reports whether the client authenticates through azidentity.
func (c *Config) UsesIdentity() bool {
	return c.ConnectionString == "" && c.AccountURL != ""
}

func lookup(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

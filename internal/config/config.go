// Package config loads dispatch configuration from TOML files and
// DISPATCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/pipeline"
	"github.com/JaimeStill/dispatch/internal/weather"
	"github.com/JaimeStill/dispatch/pkg/database"
	"github.com/JaimeStill/dispatch/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvDispatchEnv             = "DISPATCH_ENV"
	EnvDispatchConfig          = "DISPATCH_CONFIG"
	EnvDispatchShutdownTimeout = "DISPATCH_SHUTDOWN_TIMEOUT"
	EnvDispatchVersion         = "DISPATCH_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "DISPATCH_DB_HOST",
	Port:            "DISPATCH_DB_PORT",
	Name:            "DISPATCH_DB_NAME",
	User:            "DISPATCH_DB_USER",
	Password:        "DISPATCH_DB_PASSWORD",
	SSLMode:         "DISPATCH_DB_SSL_MODE",
	MaxOpenConns:    "DISPATCH_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "DISPATCH_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "DISPATCH_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "DISPATCH_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "DISPATCH_STORAGE_CONTAINER_NAME",
	ConnectionString: "DISPATCH_STORAGE_CONNECTION_STRING",
	AccountURL:       "DISPATCH_STORAGE_ACCOUNT_URL",
}

var weatherEnv = &weather.Env{
	BaseURL:           "DISPATCH_WEATHER_BASE_URL",
	APIKey:            "DISPATCH_WEATHER_API_KEY",
	Units:             "DISPATCH_WEATHER_UNITS",
	Timeout:           "DISPATCH_WEATHER_TIMEOUT",
	RequestsPerSecond: "DISPATCH_WEATHER_REQUESTS_PER_SECOND",
	CacheTTL:          "DISPATCH_WEATHER_CACHE_TTL",
	CacheSize:         "DISPATCH_WEATHER_CACHE_SIZE",
	MaxRetries:        "DISPATCH_WEATHER_MAX_RETRIES",
	RetryDelay:        "DISPATCH_WEATHER_RETRY_DELAY",
}

var indexEnv = &index.Env{
	Backend:      "DISPATCH_INDEX_BACKEND",
	Path:         "DISPATCH_INDEX_PATH",
	ChunkSize:    "DISPATCH_INDEX_CHUNK_SIZE",
	ChunkOverlap: "DISPATCH_INDEX_CHUNK_OVERLAP",
}

var pipelineEnv = &pipeline.Env{
	RetrievalK:              "DISPATCH_PIPELINE_RETRIEVAL_K",
	ClassifyTemperature:     "DISPATCH_PIPELINE_CLASSIFY_TEMPERATURE",
	WeatherTemperature:      "DISPATCH_PIPELINE_WEATHER_TEMPERATURE",
	DocumentTemperature:     "DISPATCH_PIPELINE_DOCUMENT_TEMPERATURE",
	FallbackOnClassifyError: "DISPATCH_PIPELINE_FALLBACK_ON_CLASSIFY_ERROR",
}

// Config is the root configuration. The server finalizes every section;
// the CLI finalizes only the sections a local run needs.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	API             APIConfig            `toml:"api"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	Weather         weather.Config       `toml:"weather"`
	Index           index.Config         `toml:"index"`
	Pipeline        pipeline.Config      `toml:"pipeline"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
}

// Env returns the DISPATCH_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvDispatchEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes every section for the server.
func Load() (*Config, error) {
	cfg, err := read(BaseConfigFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// LoadLocal reads configuration like Load but finalizes only the agent,
// weather, index, and pipeline sections. The index backend defaults to
// sqlite. path overrides the base file and may be empty; DISPATCH_CONFIG
// is consulted when it is.
func LoadLocal(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvDispatchConfig)
	}
	if path == "" {
		path = BaseConfigFile
	}

	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = index.BackendSQLite
	}
	if err := cfg.finalizeCore(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

func read(base string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Agent.Merge(&overlay.Agent)
	c.Weather.Merge(&overlay.Weather)
	c.Index.Merge(&overlay.Index)
	c.Pipeline.Merge(&overlay.Pipeline)
}

func (c *Config) finalize() error {
	if err := c.finalizeCore(); err != nil {
		return err
	}
	if err := c.Server.Finalize(serverEnv); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) finalizeCore() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := FinalizeAgent(&c.Agent); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Weather.Finalize(weatherEnv); err != nil {
		return fmt.Errorf("weather: %w", err)
	}
	if err := c.Index.Finalize(indexEnv); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := c.Pipeline.Finalize(pipelineEnv); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvDispatchShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvDispatchVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvDispatchEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/dispatch/internal/config"
	"github.com/JaimeStill/dispatch/internal/index"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "30s"
write_timeout = "5m"

[database]
host = "localhost"
port = 5432
name = "dispatch"
user = "dispatch"
password = "dispatch"

[storage]
container_name = "documents"
connection_string = "UseDevelopmentStorage=true"

[api]
base_path = "/api"
max_upload_size = "10MB"

[api.pagination]
default_page_size = 25
max_page_size = 50

[weather]
api_key = "owm-key"
units = "imperial"

[index]
backend = "postgres"
chunk_size = 800
chunk_overlap = 100

[pipeline]
retrieval_k = 6
weather_temperature = 0.5
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[pipeline]
fallback_on_classify_error = true
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"server port", cfg.Server.Port, 8080},
		{"db host", cfg.Database.Host, "localhost"},
		{"storage container", cfg.Storage.ContainerName, "documents"},
		{"api base path", cfg.API.BasePath, "/api"},
		{"page size", cfg.API.Pagination.DefaultPageSize, 25},
		{"max upload", cfg.API.MaxUploadSizeBytes(), int64(10 * 1024 * 1024)},
		{"weather key", cfg.Weather.APIKey, "owm-key"},
		{"weather units", cfg.Weather.Units, "imperial"},
		{"weather default timeout", cfg.Weather.Timeout, "10s"},
		{"index backend", cfg.Index.Backend, index.BackendPostgres},
		{"chunk size", cfg.Index.ChunkSize, 800},
		{"chunk overlap", cfg.Index.ChunkOverlap, 100},
		{"retrieval k", cfg.Pipeline.RetrievalK, 6},
		{"weather temperature", cfg.Pipeline.WeatherTemperature, 0.5},
		{"document temperature default", cfg.Pipeline.DocumentTemperature, 0.3},
		{"auth disabled", cfg.API.Auth.Enabled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	chdir(t, dir)

	t.Setenv(config.EnvDispatchEnv, "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090 from overlay", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host = %s, want prodhost from overlay", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("db port = %d, want 5432 from base", cfg.Database.Port)
	}
	if !cfg.Pipeline.FallbackOnClassifyError {
		t.Error("fallback_on_classify_error = false, want true from overlay")
	}
	if cfg.Pipeline.RetrievalK != 6 {
		t.Errorf("retrieval_k = %d, want 6 from base", cfg.Pipeline.RetrievalK)
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	t.Setenv("DISPATCH_VERSION", "2.0.0")
	t.Setenv("DISPATCH_SERVER_PORT", "3000")
	t.Setenv("DISPATCH_WEATHER_API_KEY", "from-env")
	t.Setenv("DISPATCH_INDEX_BACKEND", "memory")
	t.Setenv("DISPATCH_PIPELINE_RETRIEVAL_K", "2")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Version != "2.0.0" {
		t.Errorf("version = %s, want 2.0.0", cfg.Version)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Weather.APIKey != "from-env" {
		t.Errorf("weather api key = %s, want from-env", cfg.Weather.APIKey)
	}
	if cfg.Index.Backend != index.BackendMemory {
		t.Errorf("index backend = %s, want memory", cfg.Index.Backend)
	}
	if cfg.Pipeline.RetrievalK != 2 {
		t.Errorf("retrieval k = %d, want 2", cfg.Pipeline.RetrievalK)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("DISPATCH_DB_NAME", "testdb")
	t.Setenv("DISPATCH_DB_USER", "testuser")
	t.Setenv("DISPATCH_STORAGE_CONNECTION_STRING", "conn")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() without config.toml error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Index.Backend != index.BackendPostgres {
		t.Errorf("index backend = %s, want postgres", cfg.Index.Backend)
	}
	if cfg.Pipeline.RetrievalK != 4 {
		t.Errorf("retrieval k = %d, want 4", cfg.Pipeline.RetrievalK)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"invalid toml", `[server`, nil},
		{"bad port", baseConfig, map[string]string{"DISPATCH_SERVER_PORT": "70000"}},
		{"bad index backend", baseConfig, map[string]string{"DISPATCH_INDEX_BACKEND": "qdrant"}},
		{"bad temperature", baseConfig, map[string]string{"DISPATCH_PIPELINE_WEATHER_TEMPERATURE": "3.5"}},
		{"bad weather units", baseConfig, map[string]string{"DISPATCH_WEATHER_UNITS": "kelvin"}},
		{"auth without issuer", baseConfig, map[string]string{"DISPATCH_AUTH_ENABLED": "true"}},
		{"bad shutdown timeout", baseConfig, map[string]string{"DISPATCH_SHUTDOWN_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.toml", tt.content)
			chdir(t, dir)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := config.Load(); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestLoadLocal(t *testing.T) {
	t.Run("skips server sections", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "local.toml", "[pipeline]\nretrieval_k = 3\n")
		chdir(t, dir)

		cfg, err := config.LoadLocal("local.toml")
		if err != nil {
			t.Fatalf("LoadLocal() error = %v", err)
		}
		if cfg.Index.Backend != index.BackendSQLite {
			t.Errorf("index backend = %s, want sqlite", cfg.Index.Backend)
		}
		if cfg.Pipeline.RetrievalK != 3 {
			t.Errorf("retrieval k = %d, want 3", cfg.Pipeline.RetrievalK)
		}
		if cfg.Storage.ConnectionString != "" {
			t.Errorf("storage was finalized: %+v", cfg.Storage)
		}
	})

	t.Run("reads DISPATCH_CONFIG", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "alt.toml", "[index]\nbackend = \"memory\"\n")
		chdir(t, dir)
		t.Setenv(config.EnvDispatchConfig, "alt.toml")

		cfg, err := config.LoadLocal("")
		if err != nil {
			t.Fatalf("LoadLocal() error = %v", err)
		}
		if cfg.Index.Backend != index.BackendMemory {
			t.Errorf("index backend = %s, want memory", cfg.Index.Backend)
		}
	})
}

func TestEnv(t *testing.T) {
	cfg := &config.Config{}
	if got := cfg.Env(); got != "local" {
		t.Errorf("Env() = %s, want local", got)
	}

	t.Setenv(config.EnvDispatchEnv, "production")
	if got := cfg.Env(); got != "production" {
		t.Errorf("Env() = %s, want production", got)
	}
}

func TestShutdownTimeoutDuration(t *testing.T) {
	cfg := &config.Config{ShutdownTimeout: "45s"}
	if got := cfg.ShutdownTimeoutDuration(); got != 45*time.Second {
		t.Errorf("ShutdownTimeoutDuration() = %v, want 45s", got)
	}
}

func TestServerConfig(t *testing.T) {
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 9000}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if got := cfg.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("Addr() = %s, want 127.0.0.1:9000", got)
	}
	if got := cfg.WriteTimeoutDuration(); got != 5*time.Minute {
		t.Errorf("WriteTimeoutDuration() = %v, want 5m", got)
	}

	bad := config.ServerConfig{ReadTimeout: "fast"}
	if err := bad.Finalize(nil); err == nil {
		t.Error("Finalize() with bad read timeout: expected error")
	}
}

func TestAgentEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	t.Setenv("DISPATCH_AGENT_PROVIDER_NAME", "azure")
	t.Setenv("DISPATCH_AGENT_BASE_URL", "https://example.openai.azure.com")
	t.Setenv("DISPATCH_AGENT_MODEL_NAME", "gpt-5-mini")
	t.Setenv("DISPATCH_AGENT_TOKEN", "test-token")
	t.Setenv("DISPATCH_AGENT_API_VERSION", "2024-12-01-preview")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Agent.Provider.Name != "azure" {
		t.Errorf("provider name = %s, want azure", cfg.Agent.Provider.Name)
	}
	if cfg.Agent.Provider.BaseURL != "https://example.openai.azure.com" {
		t.Errorf("provider base url = %s", cfg.Agent.Provider.BaseURL)
	}
	if cfg.Agent.Model.Name != "gpt-5-mini" {
		t.Errorf("model name = %s, want gpt-5-mini", cfg.Agent.Model.Name)
	}

	opts := cfg.Agent.Provider.Options
	if opts["token"] != "test-token" {
		t.Errorf("token = %v, want test-token", opts["token"])
	}
	if opts["api_version"] != "2024-12-01-preview" {
		t.Errorf("api_version = %v", opts["api_version"])
	}
	if _, ok := opts["deployment"]; ok {
		t.Error("deployment set without its variable")
	}
}

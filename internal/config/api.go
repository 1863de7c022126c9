package config

import (
	"fmt"

	"github.com/JaimeStill/dispatch/pkg/formatting"
	"github.com/JaimeStill/dispatch/pkg/middleware"
	"github.com/JaimeStill/dispatch/pkg/pagination"
)

const (
	EnvAPIBasePath      = "DISPATCH_API_BASE_PATH"
	EnvAPIMaxUploadSize = "DISPATCH_API_MAX_UPLOAD_SIZE"

	defaultMaxUploadSize = 50 * 1024 * 1024
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "DISPATCH_CORS_ENABLED",
	Origins:          "DISPATCH_CORS_ORIGINS",
	AllowedMethods:   "DISPATCH_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "DISPATCH_CORS_ALLOWED_HEADERS",
	AllowCredentials: "DISPATCH_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "DISPATCH_CORS_MAX_AGE",
}

var paginationEnv = &pagination.Env{
	DefaultPageSize: "DISPATCH_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "DISPATCH_PAGINATION_MAX_PAGE_SIZE",
}

var authEnv = &middleware.AuthEnv{
	Enabled:  "DISPATCH_AUTH_ENABLED",
	Issuer:   "DISPATCH_AUTH_ISSUER",
	ClientID: "DISPATCH_AUTH_CLIENT_ID",
}

// APIConfig holds API routing, upload, CORS, pagination, and auth settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
	Auth          middleware.AuthConfig `toml:"auth"`
}

func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return defaultMaxUploadSize
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "50MB"
	}
	setString(EnvAPIBasePath, &c.BasePath)
	setString(EnvAPIMaxUploadSize, &c.MaxUploadSize)

	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.Auth.Merge(&overlay.Auth)
}

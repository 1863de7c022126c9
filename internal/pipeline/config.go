package pipeline

import (
	"fmt"
	"os"
	"strconv"
)

const (
	DefaultRetrievalK          = 4
	DefaultClassifyTemperature = 0.0
	DefaultWeatherTemperature  = 0.7
	DefaultDocumentTemperature = 0.3
)

// Config tunes retrieval depth, per-stage sampling temperatures, and the
// classification recovery policy. Temperatures left at zero take their defaults,
// except classify whose default is zero.
type Config struct {
	RetrievalK              int     `toml:"retrieval_k"`
	ClassifyTemperature     float64 `toml:"classify_temperature"`
	WeatherTemperature      float64 `toml:"weather_temperature"`
	DocumentTemperature     float64 `toml:"document_temperature"`
	FallbackOnClassifyError bool    `toml:"fallback_on_classify_error"`
}

// Env maps config fields to environment variable names.
type Env struct {
	RetrievalK              string
	ClassifyTemperature     string
	WeatherTemperature      string
	DocumentTemperature     string
	FallbackOnClassifyError string
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
	if overlay.RetrievalK > 0 {
		c.RetrievalK = overlay.RetrievalK
	}
	if overlay.ClassifyTemperature > 0 {
		c.ClassifyTemperature = overlay.ClassifyTemperature
	}
	if overlay.WeatherTemperature > 0 {
		c.WeatherTemperature = overlay.WeatherTemperature
	}
	if overlay.DocumentTemperature > 0 {
		c.DocumentTemperature = overlay.DocumentTemperature
	}
	if overlay.FallbackOnClassifyError {
		c.FallbackOnClassifyError = true
	}
}

func (c *Config) loadDefaults() {
	if c.RetrievalK <= 0 {
		c.RetrievalK = DefaultRetrievalK
	}
	if c.WeatherTemperature == 0 {
		c.WeatherTemperature = DefaultWeatherTemperature
	}
	if c.DocumentTemperature == 0 {
		c.DocumentTemperature = DefaultDocumentTemperature
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.RetrievalK != "" {
		if v := os.Getenv(env.RetrievalK); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.RetrievalK = n
			}
		}
	}
	setFloat := func(name string, dst *float64) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setFloat(env.ClassifyTemperature, &c.ClassifyTemperature)
	setFloat(env.WeatherTemperature, &c.WeatherTemperature)
	setFloat(env.DocumentTemperature, &c.DocumentTemperature)

	if env.FallbackOnClassifyError != "" {
		if v := os.Getenv(env.FallbackOnClassifyError); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.FallbackOnClassifyError = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.RetrievalK < 1 {
		return fmt.Errorf("invalid retrieval_k: %d", c.RetrievalK)
	}
	for name, t := range map[string]float64{
		"classify_temperature": c.ClassifyTemperature,
		"weather_temperature":  c.WeatherTemperature,
		"document_temperature": c.DocumentTemperature,
	} {
		if t < 0 || t > 2 {
			return fmt.Errorf("invalid %s: %v", name, t)
		}
	}
	return nil
}

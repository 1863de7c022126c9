// Package weather fetches current conditions and forecasts from OpenWeatherMap.
package weather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/JaimeStill/dispatch/pkg/metrics"
)

// Snapshot is the current weather for a city.
type Snapshot struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"`
	Icon        string  `json:"icon"`
}

// ForecastEntry is one three-hour forecast step.
type ForecastEntry struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    int       `json:"humidity"`
	Description string    `json:"description"`
	WindSpeed   float64   `json:"wind_speed"`
	Icon        string    `json:"icon"`
}

// Forecast is a multi-day forecast for a city.
type Forecast struct {
	City    string          `json:"city"`
	Country string          `json:"country"`
	Entries []ForecastEntry `json:"entries"`
}

const (
	stepsPerDay = 8
	maxDays     = 5
)

// Client is an OpenWeatherMap client with request throttling, transport
// retries, and a snapshot cache keyed by normalized city name.
type Client struct {
	cfg     *Config
	http    *http.Client
	limiter *rate.Limiter
	cache   *expirable.LRU[string, Snapshot]
	logger  *slog.Logger
}

// New creates a Client from a finalized config.
func New(cfg *Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingKey
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("%w: max_retries must be at least 1", ErrInvalidConfig)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.TimeoutDuration()},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cache:   expirable.NewLRU[string, Snapshot](cfg.CacheSize, nil, cfg.CacheTTLDuration()),
		logger:  logger.With("system", "weather"),
	}, nil
}

// FetchCurrent returns current conditions for city. Unknown cities return ErrNotFound.
func (c *Client) FetchCurrent(ctx context.Context, city string) (snap Snapshot, err error) {
	key := normalize(city)
	if key == "" {
		return Snapshot{}, ErrMissingCity
	}

	if cached, ok := c.cache.Get(key); ok {
		c.logger.DebugContext(ctx, "weather cache hit", "city", city)
		return cached, nil
	}

	start := time.Now()
	defer func() { metrics.ObserveCall("weather", start, err) }()

	body, err := c.get(ctx, "/weather", url.Values{"q": {city}})
	if err != nil {
		return Snapshot{}, err
	}

	snap, err = parseSnapshot(body)
	if err != nil {
		return Snapshot{}, err
	}

	c.cache.Add(key, snap)
	c.logger.InfoContext(ctx, "weather fetched", "city", snap.City, "country", snap.Country)
	return snap, nil
}

// FetchForecast returns up to days (1 to 5) of three-hour forecast steps for city.
func (c *Client) FetchForecast(ctx context.Context, city string, days int) (fc Forecast, err error) {
	if normalize(city) == "" {
		return Forecast{}, ErrMissingCity
	}
	days = max(1, min(days, maxDays))

	start := time.Now()
	defer func() { metrics.ObserveCall("forecast", start, err) }()

	body, err := c.get(ctx, "/forecast", url.Values{
		"q":   {city},
		"cnt": {fmt.Sprint(days * stepsPerDay)},
	})
	if err != nil {
		return Forecast{}, err
	}

	return parseForecast(body)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("appid", c.cfg.APIKey)
	params.Set("units", c.cfg.Units)
	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + path + "?" + params.Encode()

	var body []byte
	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrUpstream, err)
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("%w: read body: %w", ErrUpstream, err)
			}

			switch {
			case resp.StatusCode == http.StatusOK:
				body = data
				return nil
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(ErrNotFound)
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
			default:
				msg := gjson.GetBytes(data, "message").String()
				return retry.Unrecoverable(fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, msg))
			}
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)),
		retry.Delay(c.cfg.RetryDelayDuration()),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "weather request retry", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func parseSnapshot(body []byte) (Snapshot, error) {
	if !gjson.ValidBytes(body) {
		return Snapshot{}, ErrInvalidResponse
	}

	r := gjson.ParseBytes(body)
	if !r.Get("main.temp").Exists() {
		return Snapshot{}, fmt.Errorf("%w: missing main.temp", ErrInvalidResponse)
	}

	return Snapshot{
		City:        r.Get("name").String(),
		Country:     r.Get("sys.country").String(),
		Temperature: r.Get("main.temp").Float(),
		FeelsLike:   r.Get("main.feels_like").Float(),
		Humidity:    int(r.Get("main.humidity").Int()),
		Description: r.Get("weather.0.description").String(),
		WindSpeed:   r.Get("wind.speed").Float(),
		Icon:        r.Get("weather.0.icon").String(),
	}, nil
}

func parseForecast(body []byte) (Forecast, error) {
	if !gjson.ValidBytes(body) {
		return Forecast{}, ErrInvalidResponse
	}

	r := gjson.ParseBytes(body)
	list := r.Get("list")
	if !list.IsArray() {
		return Forecast{}, fmt.Errorf("%w: missing list", ErrInvalidResponse)
	}

	fc := Forecast{
		City:    r.Get("city.name").String(),
		Country: r.Get("city.country").String(),
	}
	list.ForEach(func(_, step gjson.Result) bool {
		fc.Entries = append(fc.Entries, ForecastEntry{
			Time:        time.Unix(step.Get("dt").Int(), 0).UTC(),
			Temperature: step.Get("main.temp").Float(),
			FeelsLike:   step.Get("main.feels_like").Float(),
			Humidity:    int(step.Get("main.humidity").Int()),
			Description: step.Get("weather.0.description").String(),
			WindSpeed:   step.Get("wind.speed").Float(),
			Icon:        step.Get("weather.0.icon").String(),
		})
		return true
	})
	return fc, nil
}

func normalize(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(city), " "))
}

// Unavailable is the Source used when no API key is configured.
// Every lookup fails with ErrMissingKey.
type Unavailable struct{}

func (Unavailable) FetchCurrent(context.Context, string) (Snapshot, error) {
	return Snapshot{}, ErrMissingKey
}

func (Unavailable) FetchForecast(context.Context, string, int) (Forecast, error) {
	return Forecast{}, ErrMissingKey
}

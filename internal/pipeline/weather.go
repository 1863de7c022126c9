package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/JaimeStill/dispatch/internal/prompts"
	"github.com/JaimeStill/dispatch/internal/weather"
)

const (
	HandlerWeather = "weather"

	MissingCityMessage = "I need a city name to fetch weather information. Please specify a location like 'What's the weather in London?'"

	weatherTemplate = `Weather Data:
{{.weather_data}}

User Question: {{.question}}`
)

// WeatherStatus is the explicit result of a weather lookup.
type WeatherStatus string

const (
	WeatherOK          WeatherStatus = "ok"
	WeatherMissingCity WeatherStatus = "missing_city"
	WeatherNotFound    WeatherStatus = "not_found"
	WeatherError       WeatherStatus = "error"
)

// WeatherHandler answers weather questions from a live snapshot.
type WeatherHandler struct {
	source      WeatherSource
	inf         Inference
	prompts     prompts.Source
	temperature float64
	logger      *slog.Logger
}

func NewWeatherHandler(source WeatherSource, inf Inference, src prompts.Source, temperature float64, logger *slog.Logger) *WeatherHandler {
	return &WeatherHandler{
		source:      source,
		inf:         inf,
		prompts:     src,
		temperature: temperature,
		logger:      logger.With("system", "weather-handler"),
	}
}

// Handle answers query for the city in entity. Success follows the status;
// the generated text is never inspected.
func (h *WeatherHandler) Handle(ctx context.Context, query, entity string) Outcome {
	response, status := h.answer(ctx, query, strings.TrimSpace(entity))

	h.logger.InfoContext(ctx, "weather handled", "city", entity, "status", status)
	return Outcome{
		Response:    response,
		Sources:     []string{},
		Success:     status == WeatherOK,
		HandlerUsed: HandlerWeather,
	}
}

func (h *WeatherHandler) answer(ctx context.Context, query, city string) (string, WeatherStatus) {
	if city == "" {
		return MissingCityMessage, WeatherMissingCity
	}

	snap, err := h.source.FetchCurrent(ctx, city)
	switch {
	case errors.Is(err, weather.ErrNotFound):
		return fmt.Sprintf("I couldn't find weather data for '%s'. Please check the city name and try again.", city), WeatherNotFound
	case err != nil:
		return weatherError(err), WeatherError
	}

	instructions, err := composeInstructions(ctx, h.prompts, prompts.StageWeather)
	if err != nil {
		return weatherError(err), WeatherError
	}

	text, err := h.inf.Complete(ctx, Request{
		Instructions: instructions,
		Template:     weatherTemplate,
		Variables: map[string]any{
			"weather_data": FormatReport(snap),
			"question":     query,
		},
		Temperature: h.temperature,
	})
	if err != nil {
		return weatherError(err), WeatherError
	}
	return text, WeatherOK
}

func weatherError(err error) string {
	return fmt.Sprintf("Sorry, I encountered an error while fetching weather data: %v", err)
}

// FormatReport renders a snapshot as the fixed multi-line report the weather
// answer is generated from.
func FormatReport(s weather.Snapshot) string {
	return fmt.Sprintf(
		"Current Weather in %s, %s:\n"+
			"🌡️ Temperature: %.1f°C (feels like %.1f°C)\n"+
			"💧 Humidity: %d%%\n"+
			"🌤️ Conditions: %s\n"+
			"💨 Wind Speed: %.1f m/s",
		s.City, s.Country,
		s.Temperature, s.FeelsLike,
		s.Humidity,
		titleCase(s.Description),
		s.WindSpeed,
	)
}

func titleCase(s string) string {
	var sb strings.Builder
	upper := true
	for _, r := range s {
		if upper && unicode.IsLetter(r) {
			sb.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		if !unicode.IsLetter(r) {
			upper = true
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

func composeInstructions(ctx context.Context, src prompts.Source, stage prompts.Stage) (string, error) {
	instructions, err := src.Instructions(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("load instructions for %s: %w", stage, err)
	}
	spec, err := src.Spec(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("load spec for %s: %w", stage, err)
	}
	return instructions + "\n\n" + spec, nil
}

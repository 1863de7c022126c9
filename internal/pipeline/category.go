package pipeline

import (
	"encoding/json"
	"strings"
)

// Category is the closed set of routes a query can take.
type Category string

const (
	CategoryWeather  Category = "weather"
	CategoryDocument Category = "document"
	CategoryUnknown  Category = "unknown"
)

// ParseCategory maps s onto a Category. Matching ignores case and surrounding
// whitespace, "pdf" is accepted for document, and anything else is unknown.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weather":
		return CategoryWeather
	case "document", "pdf":
		return CategoryDocument
	default:
		return CategoryUnknown
	}
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*c = CategoryUnknown
		return nil
	}
	*c = ParseCategory(raw)
	return nil
}

func (c Category) String() string {
	return string(c)
}

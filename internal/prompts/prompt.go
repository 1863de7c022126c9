// Package prompts stores named instruction overrides for the classify,
// weather, and document stages and resolves the text each stage runs with.
// At most one override per stage is active; without one, the built-in
// instructions apply. Output specs are fixed.
package prompts

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prompt is a named instruction override for a stage.
type Prompt struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Stage        Stage     `json:"stage"`
	Instructions string    `json:"instructions"`
	Description  *string   `json:"description"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Command carries the fields for creating or replacing an override.
type Command struct {
	Name         string  `json:"name"`
	Stage        Stage   `json:"stage"`
	Instructions string  `json:"instructions"`
	Description  *string `json:"description"`
}

// Validate trims the command and checks required fields.
func (c *Command) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Instructions = strings.TrimSpace(c.Instructions)
	if c.Name == "" || c.Instructions == "" {
		return ErrInvalidPrompt
	}
	if _, err := ParseStage(string(c.Stage)); err != nil {
		return err
	}
	return nil
}

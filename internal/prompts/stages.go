package prompts

import (
	"encoding/json"
	"slices"
)

// Stage is a pipeline step whose instructions can be overridden.
type Stage string

const (
	StageClassify Stage = "classify"
	StageWeather  Stage = "weather"
	StageDocument Stage = "document"
)

var stages = []Stage{
	StageClassify,
	StageWeather,
	StageDocument,
}

// Stages returns the list of valid pipeline stages.
func Stages() []Stage {
	return slices.Clone(stages)
}

// UnmarshalJSON rejects unknown stage values.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStage validates s as a known stage.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if !slices.Contains(stages, v) {
		return "", ErrInvalidStage
	}
	return v, nil
}

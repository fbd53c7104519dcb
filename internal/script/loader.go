package script

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/algoscene/internal/fault"
	"github.com/AaronLay10/algoscene/internal/timing"
)

// CurrentVersion is the only script document version understood.
const CurrentVersion = 1

// Load reads and validates a script file. Files ending in .json are decoded
// as JSON; everything else as YAML.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseJSON decodes and validates a JSON script.
func ParseJSON(data []byte) (*Script, error) {
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the version, that every beat names an action, and that
// duration bounds are consistent.
func (s *Script) Validate() error {
	if s.Version != CurrentVersion {
		return fmt.Errorf("unsupported script version: %d", s.Version)
	}
	for pos, beat := range s.Beats() {
		if strings.TrimSpace(beat.Action) == "" {
			return fault.New(fault.CategoryRegistry, "beat has no action", "set the beat's action").
				With("beat", pos.Key())
		}
		if err := timing.ValidateRange(beat.MinDuration, beat.MaxDuration); err != nil {
			return fault.Wrap(fault.CategoryDurationConfig, err, "invalid beat duration bounds").
				With("beat", pos.Key())
		}
	}
	return nil
}

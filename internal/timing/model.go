// Package timing classifies actions into pacing buckets and turns them into
// beat durations for a pacing mode.
package timing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AaronLay10/algoscene/internal/fault"
)

// Bucket is a timing category an action is classified into.
type Bucket string

const (
	BucketUI      Bucket = "ui"
	BucketEvents  Bucket = "events"
	BucketEffects Bucket = "effects"
	BucketWaits   Bucket = "waits"
)

// Buckets lists every bucket in classification precedence order.
var Buckets = []Bucket{BucketUI, BucketEvents, BucketEffects, BucketWaits}

// Mode is a pacing mode name.
type Mode string

const (
	ModeDraft  Mode = "draft"
	ModeNormal Mode = "normal"
	ModeFast   Mode = "fast"
)

type rule struct {
	bucket   Bucket
	keywords []string
}

// rules are checked in order; the first keyword hit wins.
var rules = []rule{
	{BucketUI, []string{"show", "hide", "transition", "fade"}},
	{BucketEvents, []string{"enqueue", "dequeue", "visit", "explore"}},
	{BucketEffects, []string{"highlight", "animate", "trace"}},
	{BucketWaits, []string{"wait", "pause", "delay"}},
}

// BucketOf classifies an action name by keyword substring. Unmatched actions
// fall into the ui bucket.
func BucketOf(action string) Bucket {
	name := strings.ToLower(action)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(name, kw) {
				return r.bucket
			}
		}
	}
	return BucketUI
}

// Model maps actions to durations in seconds. A Model is immutable once
// validated; callers share it by value.
type Model struct {
	Mode        Mode
	Base        map[Bucket]float64
	Multipliers map[Mode]float64
}

// DefaultBase returns the per-bucket base seconds used when none are configured.
func DefaultBase() map[Bucket]float64 {
	return map[Bucket]float64{
		BucketUI:      1.0,
		BucketEvents:  0.8,
		BucketEffects: 0.6,
		BucketWaits:   1.0,
	}
}

// DefaultMultipliers returns the built-in pacing multipliers.
func DefaultMultipliers() map[Mode]float64 {
	return map[Mode]float64{
		ModeDraft:  0.5,
		ModeNormal: 1.0,
		ModeFast:   0.25,
	}
}

// NewModel builds a validated model. Missing buckets and modes are filled
// from the defaults.
func NewModel(mode Mode, base map[Bucket]float64, multipliers map[Mode]float64) (Model, error) {
	m := Model{Mode: mode, Base: DefaultBase(), Multipliers: DefaultMultipliers()}
	for b, v := range base {
		m.Base[b] = v
	}
	for md, v := range multipliers {
		m.Multipliers[md] = v
	}
	if m.Mode == "" {
		m.Mode = ModeNormal
	}
	if err := m.Validate(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// Default returns the default model in normal mode.
func Default() Model {
	return Model{Mode: ModeNormal, Base: DefaultBase(), Multipliers: DefaultMultipliers()}
}

// Validate rejects non-positive values, unknown buckets, and an unknown mode.
func (m Model) Validate() error {
	for b, v := range m.Base {
		if !knownBucket(b) {
			return fault.New(fault.CategoryDurationConfig,
				fmt.Sprintf("unknown timing bucket %q", b),
				"use one of ui, events, effects, waits").With("bucket", string(b))
		}
		if v <= 0 {
			return fault.New(fault.CategoryDurationConfig,
				fmt.Sprintf("base duration for bucket %q must be positive, got %v", b, v),
				"set a base above zero").With("bucket", string(b))
		}
	}
	for _, b := range Buckets {
		if _, ok := m.Base[b]; !ok {
			return fault.Newf(fault.CategoryDurationConfig, "base duration for bucket %q is missing", b)
		}
	}
	for md, v := range m.Multipliers {
		if v <= 0 {
			return fault.New(fault.CategoryDurationConfig,
				fmt.Sprintf("multiplier for mode %q must be positive, got %v", md, v),
				"set a multiplier above zero").With("mode", string(md))
		}
	}
	if _, ok := m.Multipliers[m.Mode]; !ok {
		return fault.New(fault.CategoryDurationConfig,
			fmt.Sprintf("unknown timing mode %q", m.Mode),
			"choose one of "+strings.Join(m.modeNames(), ", ")).With("mode", string(m.Mode))
	}
	return nil
}

// Duration returns base[bucket(action)] * multiplier[mode] in seconds.
// An unknown mode falls back to a multiplier of 1.
func (m Model) Duration(action string, mode Mode) float64 {
	mult, ok := m.Multipliers[mode]
	if !ok {
		mult = 1.0
	}
	return m.Base[BucketOf(action)] * mult
}

// DurationFor is Duration in the model's own mode.
func (m Model) DurationFor(action string) float64 {
	return m.Duration(action, m.Mode)
}

// Multiplier returns the multiplier of the model's mode.
func (m Model) Multiplier() float64 {
	if v, ok := m.Multipliers[m.Mode]; ok {
		return v
	}
	return 1.0
}

// Snapshot exposes the model as the timing scope seen by templates.
func (m Model) Snapshot() map[string]any {
	out := map[string]any{
		"mode":       string(m.Mode),
		"multiplier": m.Multiplier(),
	}
	for b, v := range m.Base {
		out[string(b)] = v
	}
	return out
}

func (m Model) modeNames() []string {
	names := make([]string, 0, len(m.Multipliers))
	for md := range m.Multipliers {
		names = append(names, string(md))
	}
	sort.Strings(names)
	return names
}

func knownBucket(b Bucket) bool {
	for _, k := range Buckets {
		if k == b {
			return true
		}
	}
	return false
}

// Clamp limits d to the optional [min, max] range.
func Clamp(d float64, min, max *float64) float64 {
	if min != nil && d < *min {
		d = *min
	}
	if max != nil && d > *max {
		d = *max
	}
	return d
}

// ValidateRange rejects a min override larger than the max override.
func ValidateRange(min, max *float64) error {
	if min != nil && *min < 0 {
		return fault.Newf(fault.CategoryDurationConfig, "min_duration must not be negative, got %v", *min)
	}
	if max != nil && *max <= 0 {
		return fault.Newf(fault.CategoryDurationConfig, "max_duration must be positive, got %v", *max)
	}
	if min != nil && max != nil && *min > *max {
		return fault.New(fault.CategoryDurationConfig,
			fmt.Sprintf("min_duration %v is greater than max_duration %v", *min, *max),
			"swap or widen the beat's duration bounds")
	}
	return nil
}

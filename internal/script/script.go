// Package script holds the Act -> Shot -> Beat model a scene is paced by.
package script

import (
	"fmt"
	"iter"
)

// Script is the top-level document.
type Script struct {
	Version int    `yaml:"version" json:"version"`
	Title   string `yaml:"title,omitempty" json:"title,omitempty"`
	Acts    []Act  `yaml:"acts" json:"acts"`
}

// Act is an ordered group of shots.
type Act struct {
	Title string `yaml:"title" json:"title"`
	Shots []Shot `yaml:"shots" json:"shots"`
}

// Shot is an ordered group of beats.
type Shot struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Beats []Beat `yaml:"beats" json:"beats"`
}

// Beat is the smallest scheduled unit: one action, its arguments, optional
// narration and optional duration bounds in seconds.
type Beat struct {
	Name        string            `yaml:"name,omitempty" json:"name,omitempty"`
	Action      string            `yaml:"action" json:"action"`
	Args        map[string]any    `yaml:"args,omitempty" json:"args,omitempty"`
	Narration   string            `yaml:"narration,omitempty" json:"narration,omitempty"`
	Bookmarks   map[string]string `yaml:"bookmarks,omitempty" json:"bookmarks,omitempty"`
	MinDuration *float64          `yaml:"min_duration,omitempty" json:"min_duration,omitempty"`
	MaxDuration *float64          `yaml:"max_duration,omitempty" json:"max_duration,omitempty"`
}

// Label names the beat for timing records: its name, else its action.
func (b Beat) Label() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Action
}

// Position locates a beat. Fields are 1-based.
type Position struct {
	Act  int
	Shot int
	Beat int
}

// Key returns the "act-shot-beat" timing key.
func (p Position) Key() string {
	return fmt.Sprintf("%d-%d-%d", p.Act, p.Shot, p.Beat)
}

func (p Position) String() string { return p.Key() }

// Beats walks every beat depth-first in script order.
func (s *Script) Beats() iter.Seq2[Position, Beat] {
	return func(yield func(Position, Beat) bool) {
		for ai, act := range s.Acts {
			for si, shot := range act.Shots {
				for bi, beat := range shot.Beats {
					if !yield(Position{Act: ai + 1, Shot: si + 1, Beat: bi + 1}, beat) {
						return
					}
				}
			}
		}
	}
}

// BeatCount returns the number of beats in the script.
func (s *Script) BeatCount() int {
	n := 0
	for _, act := range s.Acts {
		for _, shot := range act.Shots {
			n += len(shot.Beats)
		}
	}
	return n
}

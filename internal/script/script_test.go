package script

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/AaronLay10/algoscene/internal/fault"
)

const bfsScript = `version: 1
title: Breadth-first search
acts:
  - title: Setup
    shots:
      - name: intro
        beats:
          - action: show_title
            args:
              text: "${config_value:title,BFS}"
            narration: We explore the grid level by level.
          - action: grid.draw
            min_duration: 0.5
            max_duration: 2
  - title: Search
    shots:
      - beats:
          - name: first-visit
            action: visit
            bookmarks:
              start: queue
`

func TestParseYAML(t *testing.T) {
	s, err := Parse([]byte(bfsScript))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(s.Acts) != 2 || s.BeatCount() != 3 {
		t.Fatalf("unexpected structure: %d acts, %d beats", len(s.Acts), s.BeatCount())
	}
	beat := s.Acts[0].Shots[0].Beats[1]
	if beat.MinDuration == nil || *beat.MinDuration != 0.5 || beat.MaxDuration == nil || *beat.MaxDuration != 2 {
		t.Fatalf("duration bounds not decoded: %+v", beat)
	}
	if s.Acts[1].Shots[0].Beats[0].Bookmarks["start"] != "queue" {
		t.Fatal("bookmarks not decoded")
	}
}

func TestBeatsDepthFirst(t *testing.T) {
	s, err := Parse([]byte(bfsScript))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var keys, labels []string
	for pos, beat := range s.Beats() {
		keys = append(keys, pos.Key())
		labels = append(labels, beat.Label())
	}
	want := []string{"1-1-1", "1-1-2", "2-1-1"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
	if labels[2] != "first-visit" || labels[0] != "show_title" {
		t.Fatalf("unexpected labels %v", labels)
	}
}

func TestValidateRejectsInvertedBounds(t *testing.T) {
	doc := `version: 1
acts:
  - title: A
    shots:
      - beats:
          - action: wait
            min_duration: 3
            max_duration: 1
`
	_, err := Parse([]byte(doc))
	if !errors.Is(err, fault.ErrDurationConfig) {
		t.Fatalf("expected duration config error, got %v", err)
	}
	if fault.FieldsOf(err)["beat"] != "1-1-1" {
		t.Fatalf("expected beat position on error, got %v", fault.FieldsOf(err))
	}
}

func TestValidateRejectsVersionAndEmptyAction(t *testing.T) {
	if _, err := Parse([]byte("version: 2\nacts: []\n")); err == nil {
		t.Fatal("expected version error")
	}
	doc := "version: 1\nacts:\n  - title: A\n    shots:\n      - beats:\n          - narration: hi\n"
	if _, err := Parse([]byte(doc)); !errors.Is(err, fault.ErrRegistry) {
		t.Fatalf("expected registry error for missing action, got %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.json")
	doc := `{"version":1,"acts":[{"title":"A","shots":[{"beats":[{"action":"enqueue_node","args":{"node":"${event_data:node}"}}]}]}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Acts[0].Shots[0].Beats[0].Args["node"] != "${event_data:node}" {
		t.Fatalf("args not decoded: %+v", s.Acts[0].Shots[0].Beats[0])
	}
}

package timing

import (
	"errors"
	"math"
	"testing"

	"github.com/AaronLay10/algoscene/internal/fault"
)

func TestBucketOfPrecedence(t *testing.T) {
	cases := map[string]Bucket{
		"show_title":          BucketUI,
		"fade_out":            BucketUI,
		"enqueue_node":        BucketEvents,
		"visit":               BucketEvents,
		"highlight_cell":      BucketEffects,
		"trace_path":          BucketEffects,
		"wait":                BucketWaits,
		"pause_for_effect":    BucketWaits,
		"draw_grid":           BucketUI,
		"show_then_highlight": BucketUI,
		"highlight_and_wait":  BucketEffects,
		"Explore_Neighbours":  BucketEvents,
	}
	for action, want := range cases {
		if got := BucketOf(action); got != want {
			t.Errorf("BucketOf(%q) = %s, want %s", action, got, want)
		}
	}
}

func TestDurationExamples(t *testing.T) {
	m, err := NewModel(ModeNormal, map[Bucket]float64{BucketUI: 1.0, BucketEvents: 0.8}, nil)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if got := m.Duration("show_title", ModeDraft); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	if got := m.Duration("enqueue_node", ModeFast); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("expected 0.2, got %v", got)
	}
	if got := m.DurationFor("highlight_cell"); got != 0.6 {
		t.Errorf("expected default effects base 0.6, got %v", got)
	}
}

func TestValidateRejectsNonPositive(t *testing.T) {
	_, err := NewModel(ModeNormal, map[Bucket]float64{BucketWaits: 0}, nil)
	if !errors.Is(err, fault.ErrDurationConfig) {
		t.Fatalf("expected duration config error, got %v", err)
	}
	_, err = NewModel(ModeNormal, nil, map[Mode]float64{ModeFast: -1})
	if !errors.Is(err, fault.ErrDurationConfig) {
		t.Fatalf("expected duration config error for multiplier, got %v", err)
	}
	_, err = NewModel("turbo", nil, nil)
	if !errors.Is(err, fault.ErrDurationConfig) {
		t.Fatalf("expected duration config error for unknown mode, got %v", err)
	}
	_, err = NewModel(ModeNormal, map[Bucket]float64{"sparkles": 1}, nil)
	if !errors.Is(err, fault.ErrDurationConfig) {
		t.Fatalf("expected duration config error for unknown bucket, got %v", err)
	}
}

func TestCustomModeAccepted(t *testing.T) {
	m, err := NewModel("slow", nil, map[Mode]float64{"slow": 2})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if got := m.DurationFor("wait"); got != 2.0 {
		t.Fatalf("expected 2.0, got %v", got)
	}
}

func TestClampAndRange(t *testing.T) {
	lo, hi := 0.5, 1.5
	if got := Clamp(0.2, &lo, &hi); got != 0.5 {
		t.Errorf("expected clamp to min, got %v", got)
	}
	if got := Clamp(3, &lo, &hi); got != 1.5 {
		t.Errorf("expected clamp to max, got %v", got)
	}
	if got := Clamp(1, nil, nil); got != 1 {
		t.Errorf("expected passthrough, got %v", got)
	}
	if err := ValidateRange(&hi, &lo); !errors.Is(err, fault.ErrDurationConfig) {
		t.Errorf("expected min > max to be rejected, got %v", err)
	}
	if err := ValidateRange(&lo, &hi); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	snap := Default().Snapshot()
	if snap["mode"] != "normal" || snap["multiplier"] != 1.0 || snap["events"] != 0.8 {
		t.Fatalf("unexpected snapshot %v", snap)
	}
}

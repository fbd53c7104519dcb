package voiceover

import (
	"context"
	"testing"
	"time"
)

func TestMeasure(t *testing.T) {
	e := NewEstimator(0)
	got, err := e.Measure(context.Background(), "we explore the grid level by level")
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	// 7 words at 2.5 words per second.
	if got != 2800*time.Millisecond {
		t.Fatalf("expected 2.8s, got %v", got)
	}

	empty, _ := e.Measure(context.Background(), "   ")
	if empty != 0 {
		t.Fatalf("expected zero for blank narration, got %v", empty)
	}
}

func TestMeasurePaddingAndCancel(t *testing.T) {
	e := &Estimator{WordsPerSecond: 2, Padding: 250 * time.Millisecond}
	got, _ := e.Measure(context.Background(), "two words")
	if got != 1250*time.Millisecond {
		t.Fatalf("expected 1.25s, got %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Measure(ctx, "hello"); err == nil {
		t.Fatal("expected cancelled context to fail")
	}
}

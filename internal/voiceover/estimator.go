// Package voiceover estimates how long narration takes to speak.
package voiceover

import (
	"context"
	"math"
	"strings"
	"time"
)

// DefaultWordsPerSecond is the speaking rate assumed when none is configured.
const DefaultWordsPerSecond = 2.5

// Estimator measures narration by word count. It stands in for a speech
// engine when only pacing is needed.
type Estimator struct {
	WordsPerSecond float64
	// Padding is added to every non-empty narration.
	Padding time.Duration
}

// NewEstimator returns an estimator; a non-positive rate uses the default.
func NewEstimator(wordsPerSecond float64) *Estimator {
	if wordsPerSecond <= 0 {
		wordsPerSecond = DefaultWordsPerSecond
	}
	return &Estimator{WordsPerSecond: wordsPerSecond}
}

// Measure returns the estimated spoken length of text.
func (e *Estimator) Measure(ctx context.Context, text string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return 0, nil
	}
	rate := e.WordsPerSecond
	if rate <= 0 {
		rate = DefaultWordsPerSecond
	}
	seconds := float64(words) / rate
	return time.Duration(math.Round(seconds*float64(time.Second))) + e.Padding, nil
}

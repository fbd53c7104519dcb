package timinglog

import (
	"context"

	"github.com/AaronLay10/algoscene/internal/storage/postgres"
)

// PostgresSink writes timing records through a shared Postgres client.
type PostgresSink struct {
	client *postgres.Client
}

// NewPostgresSink wraps client.
func NewPostgresSink(client *postgres.Client) *PostgresSink {
	return &PostgresSink{client: client}
}

func (p *PostgresSink) Append(ctx context.Context, rec Record) error {
	return p.client.AppendTiming(ctx, postgres.TimingRow{
		RunID:    rec.RunID,
		BeatKey:  rec.Key,
		BeatName: rec.BeatName,
		Action:   rec.Action,
		Mode:     rec.Mode,
		Act:      rec.Act,
		Shot:     rec.Shot,
		Beat:     rec.Beat,
		Expected: rec.Expected,
		Actual:   rec.Actual,
		Variance: rec.Variance,
		At:       rec.At,
	})
}

func (p *PostgresSink) Records(ctx context.Context, runID string) ([]Record, error) {
	rows, err := p.client.Timings(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			RunID:    r.RunID,
			Key:      r.BeatKey,
			BeatName: r.BeatName,
			Action:   r.Action,
			Mode:     r.Mode,
			Act:      r.Act,
			Shot:     r.Shot,
			Beat:     r.Beat,
			Expected: r.Expected,
			Actual:   r.Actual,
			Variance: r.Variance,
			At:       r.At,
		})
	}
	return out, nil
}

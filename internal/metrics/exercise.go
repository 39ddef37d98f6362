package metrics

import (
	"context"
	"fmt"
	"time"
)

const (
	exerciseYes = "Yes"
	exerciseNo  = "No"
)

// ExerciseMetric tracks whether the user exercised, as a Yes/No answer. The
// latest answer of a day wins.
type ExerciseMetric struct {
	base
}

func NewExerciseMetric(store EntryStore, opts ...Option) *ExerciseMetric {
	return &ExerciseMetric{base: newBase(store, base{
		name:        "exercise",
		displayName: "Exercise",
		description: "Did you exercise today?",
		policy:      UpsertByDay,
		schema: InputSchema{
			InputType: InputSelect,
			Label:     "Did you exercise today?",
			Options:   []string{exerciseYes, exerciseNo},
		},
	}, opts)}
}

func (m *ExerciseMetric) Validate(raw any) bool {
	s, ok := raw.(string)
	return ok && (s == exerciseYes || s == exerciseNo)
}

func (m *ExerciseMetric) Record(ctx context.Context, userID int64, raw any, ts *time.Time) (*Entry, error) {
	if !m.Validate(raw) {
		return nil, fmt.Errorf("%w: exercise answer %v", ErrInvalidValue, raw)
	}
	return m.record(ctx, userID, TextValue(raw.(string)), ts)
}

func (m *ExerciseMetric) Trends(ctx context.Context, userID int64, days int) (*TrendData, error) {
	entries, err := m.window(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	return m.trend(days, entries, TrendBoolean, func(e Entry) DataPoint {
		v := 0
		if e.Value.Text() == exerciseYes {
			v = 1
		}
		return DataPoint{Value: v, Label: e.Value.Text()}
	}), nil
}

type exerciseStats struct {
	Count      int     `mapstructure:"count"`
	YesCount   int     `mapstructure:"yes_count"`
	NoCount    int     `mapstructure:"no_count"`
	Percentage float64 `mapstructure:"percentage"`
}

func (m *ExerciseMetric) Aggregates(ctx context.Context, userID int64, days int) (*Aggregate, error) {
	entries, err := m.window(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return m.empty(days, "No exercise data recorded.", map[string]any{
			"yes_count":  0,
			"no_count":   0,
			"percentage": 0.0,
		}), nil
	}

	yes := 0
	for _, e := range entries {
		if e.Value.Text() == exerciseYes {
			yes++
		}
	}
	pct := float64(yes) / float64(len(entries)) * 100

	summary := fmt.Sprintf("%d/%d days exercised (%.0f%%)", yes, len(entries), pct)
	return m.aggregate(days, summary, exerciseStats{
		Count:      len(entries),
		YesCount:   yes,
		NoCount:    len(entries) - yes,
		Percentage: round1(pct),
	})
}

package metrics

import (
	"context"
	"fmt"
	"time"
)

// AloneTimeMetric tracks hours of alone time. Entries append, so a day can be
// logged in several chunks.
type AloneTimeMetric struct {
	base
}

func NewAloneTimeMetric(store EntryStore, opts ...Option) *AloneTimeMetric {
	return &AloneTimeMetric{base: newBase(store, base{
		name:        "alone_time",
		displayName: "Alone Time",
		description: "How many hours of alone time did you have today?",
		policy:      AppendOnly,
		schema: InputSchema{
			InputType: InputDecimal,
			Label:     "How many hours of alone time did you have today?",
			MinValue:  ptr(0),
			MaxValue:  ptr(24),
		},
	}, opts)}
}

func (m *AloneTimeMetric) Validate(raw any) bool {
	_, ok := parseBounded(raw, 0, 24)
	return ok
}

func (m *AloneTimeMetric) Record(ctx context.Context, userID int64, raw any, ts *time.Time) (*Entry, error) {
	f, ok := parseBounded(raw, 0, 24)
	if !ok {
		return nil, fmt.Errorf("%w: alone time %v", ErrInvalidValue, raw)
	}
	return m.record(ctx, userID, DecimalValue(round1(f)), ts)
}

func (m *AloneTimeMetric) Trends(ctx context.Context, userID int64, days int) (*TrendData, error) {
	entries, err := m.window(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	return m.trend(days, entries, TrendLine, decimalPoint), nil
}

type aloneStats struct {
	Count   int     `mapstructure:"count"`
	Total   float64 `mapstructure:"total"`
	Average float64 `mapstructure:"average"`
	Min     float64 `mapstructure:"min"`
	Max     float64 `mapstructure:"max"`
}

func (m *AloneTimeMetric) Aggregates(ctx context.Context, userID int64, days int) (*Aggregate, error) {
	entries, err := m.window(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return m.empty(days, "No alone time data recorded.", nil), nil
	}

	s := summarize(decimals(entries))
	summary := fmt.Sprintf("Avg: %.1f hrs/day • Total: %.1f hrs • Range: %.1f-%.1f",
		s.mean, s.total, s.min, s.max)
	return m.aggregate(days, summary, aloneStats{
		Count:   len(entries),
		Total:   round1(s.total),
		Average: round1(s.mean),
		Min:     round1(s.min),
		Max:     round1(s.max),
	})
}

package metrics

import (
	"context"
	"fmt"
	"time"
)

// ScaleMetric tracks the daily weight reading. One reading per day; a second
// reading the same day replaces the first.
type ScaleMetric struct {
	base
}

func NewScaleMetric(store EntryStore, opts ...Option) *ScaleMetric {
	return &ScaleMetric{base: newBase(store, base{
		name:        "scale",
		displayName: "Scale",
		description: "What did the scale read today?",
		policy:      UpsertByDay,
		schema: InputSchema{
			InputType: InputDecimal,
			Label:     "What did the scale read today?",
			MinValue:  ptr(0),
			MaxValue:  ptr(1000),
		},
	}, opts)}
}

func (m *ScaleMetric) Validate(raw any) bool {
	_, ok := parseBounded(raw, 0, 1000)
	return ok
}

func (m *ScaleMetric) Record(ctx context.Context, userID int64, raw any, ts *time.Time) (*Entry, error) {
	f, ok := parseBounded(raw, 0, 1000)
	if !ok {
		return nil, fmt.Errorf("%w: scale reading %v", ErrInvalidValue, raw)
	}
	return m.record(ctx, userID, DecimalValue(round1(f)), ts)
}

func (m *ScaleMetric) Trends(ctx context.Context, userID int64, days int) (*TrendData, error) {
	entries, err := m.window(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	return m.trend(days, entries, TrendLine, decimalPoint), nil
}

type scaleStats struct {
	Count   int     `mapstructure:"count"`
	Latest  float64 `mapstructure:"latest"`
	Change  float64 `mapstructure:"change"`
	Average float64 `mapstructure:"average"`
	Min     float64 `mapstructure:"min"`
	Max     float64 `mapstructure:"max"`
}

func (m *ScaleMetric) Aggregates(ctx context.Context, userID int64, days int) (*Aggregate, error) {
	entries, err := m.window(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return m.empty(days, "No weight data recorded.", nil), nil
	}

	values := decimals(entries)
	latest := values[0]
	change := latest - values[len(values)-1]
	s := summarize(values)

	sign := ""
	if change >= 0 {
		sign = "+"
	}
	summary := fmt.Sprintf("Latest: %.1f (%s%.1f) • Avg: %.1f • Range: %.1f-%.1f",
		latest, sign, change, s.mean, s.min, s.max)
	return m.aggregate(days, summary, scaleStats{
		Count:   len(entries),
		Latest:  round1(latest),
		Change:  round1(change),
		Average: round1(s.mean),
		Min:     round1(s.min),
		Max:     round1(s.max),
	})
}

// parseBounded parses raw as a decimal within [lo, hi].
func parseBounded(raw any, lo, hi float64) (float64, bool) {
	v, err := ParseValue(raw, TypeDecimal)
	if err != nil {
		return 0, false
	}
	f := v.Decimal()
	return f, f >= lo && f <= hi
}

func decimalPoint(e Entry) DataPoint {
	return DataPoint{Value: round1(e.Value.Decimal())}
}

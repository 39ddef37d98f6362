package metrics

import (
	"context"
	"fmt"
	"time"
)

// GroceriesMetric tracks whether the user went grocery shopping. It is a
// plain boolean with one answer per day.
type GroceriesMetric struct {
	base
}

func NewGroceriesMetric(store EntryStore, opts ...Option) *GroceriesMetric {
	return &GroceriesMetric{base: newBase(store, base{
		name:        "groceries",
		displayName: "Groceries",
		description: "Did you go grocery shopping today?",
		policy:      UpsertByDay,
		schema: InputSchema{
			InputType: InputBoolean,
			Label:     "Did you go grocery shopping today?",
		},
	}, opts)}
}

func (m *GroceriesMetric) Validate(raw any) bool {
	_, err := ParseValue(raw, TypeBoolean)
	return err == nil
}

func (m *GroceriesMetric) Record(ctx context.Context, userID int64, raw any, ts *time.Time) (*Entry, error) {
	v, err := ParseValue(raw, TypeBoolean)
	if err != nil {
		return nil, err
	}
	return m.record(ctx, userID, v, ts)
}

func (m *GroceriesMetric) Trends(ctx context.Context, userID int64, days int) (*TrendData, error) {
	entries, err := m.window(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	return m.trend(days, entries, TrendBoolean, func(e Entry) DataPoint {
		if e.Value.Bool() {
			return DataPoint{Value: 1, Label: "Yes"}
		}
		return DataPoint{Value: 0, Label: "No"}
	}), nil
}

type groceriesStats struct {
	Count        int     `mapstructure:"count"`
	ShoppedCount int     `mapstructure:"shopped_count"`
	Percentage   float64 `mapstructure:"percentage"`
}

func (m *GroceriesMetric) Aggregates(ctx context.Context, userID int64, days int) (*Aggregate, error) {
	entries, err := m.window(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return m.empty(days, "No grocery data recorded.", map[string]any{
			"shopped_count": 0,
			"percentage":    0.0,
		}), nil
	}

	shopped := 0
	for _, e := range entries {
		if e.Value.Bool() {
			shopped++
		}
	}
	pct := float64(shopped) / float64(len(entries)) * 100

	summary := fmt.Sprintf("Shopped %d/%d days (%.0f%%)", shopped, len(entries), pct)
	return m.aggregate(days, summary, groceriesStats{
		Count:        len(entries),
		ShoppedCount: shopped,
		Percentage:   round1(pct),
	})
}

package metrics

import (
	"context"
	"fmt"
	"slices"
	"time"

	"compass.dev/tracker/internal/telemetry"
)

// Option customizes a metric at construction.
type Option func(*base)

// WithClock overrides the time source used for default timestamps and
// trailing windows.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// base carries what every metric shares: presentation metadata, the declared
// record policy and the storage handle. Concrete metrics embed it and add
// validation and statistics.
type base struct {
	name        string
	displayName string
	description string
	schema      InputSchema
	policy      RecordPolicy
	store       EntryStore
	now         func() time.Time
}

func newBase(store EntryStore, b base, opts []Option) base {
	b.store = store
	b.now = time.Now
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) Name() string             { return b.name }
func (b *base) DisplayName() string      { return b.displayName }
func (b *base) Description() string      { return b.description }
func (b *base) InputSchema() InputSchema { return b.schema.clone() }
func (b *base) Policy() RecordPolicy     { return b.policy }

func (b *base) LLMPrompt(context.Context, int64, map[string]any) (string, bool) {
	return "", false
}

func (b *base) record(ctx context.Context, userID int64, v Value, ts *time.Time) (*Entry, error) {
	at := b.now()
	if ts != nil {
		at = *ts
	}
	in := EntryInput{
		UserID:     userID,
		MetricName: b.name,
		Value:      v,
		Timestamp:  at,
	}

	var (
		entry *Entry
		err   error
	)
	switch b.policy {
	case UpsertByDay:
		entry, err = b.store.ReplaceEntryForDay(ctx, in)
	default:
		entry, err = b.store.CreateEntry(ctx, in)
	}
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", b.name, err)
	}
	telemetry.EntriesRecorded.WithLabelValues(b.name, string(b.policy)).Inc()
	return entry, nil
}

// window returns the entries of the trailing days window, newest first. A
// non-positive window is empty.
func (b *base) window(ctx context.Context, userID int64, days int) ([]Entry, error) {
	if days <= 0 {
		return nil, nil
	}
	now := b.now()
	entries, err := b.store.EntriesForUser(ctx, userID, EntryFilter{
		MetricName: b.name,
		Since:      now.Add(-time.Duration(days) * 24 * time.Hour),
		Until:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("load %s entries: %w", b.name, err)
	}
	return entries, nil
}

// trend shapes newest-first entries into a chronological series. point fills
// the kind specific fields; timestamp and date are set here.
func (b *base) trend(days int, entries []Entry, kind TrendType, point func(Entry) DataPoint) *TrendData {
	points := make([]DataPoint, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		p := point(e)
		p.Timestamp = e.Timestamp
		p.Date = e.Timestamp.Local().Format(time.DateOnly)
		points = append(points, p)
	}
	slices.SortStableFunc(points, func(x, y DataPoint) int {
		return x.Timestamp.Compare(y.Timestamp)
	})
	return &TrendData{
		MetricName:    b.name,
		TimeRangeDays: days,
		DataPoints:    points,
		TrendType:     kind,
	}
}

func (b *base) aggregate(days int, summary string, stats any) (*Aggregate, error) {
	m, err := statsMap(stats)
	if err != nil {
		return nil, fmt.Errorf("%s stats: %w", b.name, err)
	}
	return &Aggregate{
		MetricName:    b.name,
		TimeRangeDays: days,
		Summary:       summary,
		Stats:         m,
	}, nil
}

func (b *base) empty(days int, summary string, extra map[string]any) *Aggregate {
	stats := map[string]any{"count": 0}
	for k, v := range extra {
		stats[k] = v
	}
	return &Aggregate{
		MetricName:    b.name,
		TimeRangeDays: days,
		Summary:       summary,
		Stats:         stats,
	}
}

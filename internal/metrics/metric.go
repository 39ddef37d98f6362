// Package metrics defines the pluggable metric abstraction: how a trackable
// quantity is collected, validated, stored and summarized.
package metrics

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMetricNotFound = errors.New("metric not found")
	ErrInvalidValue   = errors.New("invalid metric value")
)

// InputType tells a form how to render the input for a metric.
type InputType string

const (
	InputBoolean InputType = "boolean"
	InputDecimal InputType = "decimal"
	InputInteger InputType = "integer"
	InputText    InputType = "text"
	InputSelect  InputType = "select"
)

// InputSchema describes how to collect raw input for a metric. Options is
// non-empty for select inputs; MinValue and MaxValue only apply to numeric ones.
type InputSchema struct {
	InputType   InputType `json:"input_type"`
	Label       string    `json:"label"`
	Required    bool      `json:"required"`
	Options     []string  `json:"options,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	MinValue    *float64  `json:"min_value,omitempty"`
	MaxValue    *float64  `json:"max_value,omitempty"`
}

func (s InputSchema) clone() InputSchema {
	out := s
	if s.Options != nil {
		out.Options = append([]string(nil), s.Options...)
	}
	if s.MinValue != nil {
		v := *s.MinValue
		out.MinValue = &v
	}
	if s.MaxValue != nil {
		v := *s.MaxValue
		out.MaxValue = &v
	}
	return out
}

// RecordPolicy declares how Record persists a value.
type RecordPolicy string

const (
	// AppendOnly inserts a new entry on every call.
	AppendOnly RecordPolicy = "append_only"
	// UpsertByDay replaces any entries already recorded on the same calendar day.
	UpsertByDay RecordPolicy = "upsert_by_day"
)

// Entry is one timestamped value for a user/metric pair.
type Entry struct {
	ID         string         `json:"id"`
	UserID     int64          `json:"user_id"`
	MetricName string         `json:"metric_name"`
	Timestamp  time.Time      `json:"timestamp"`
	Value      Value          `json:"value"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// TrendType selects how a series should be drawn and which optional data
// point fields are populated.
type TrendType string

const (
	TrendLine        TrendType = "line"
	TrendBoolean     TrendType = "boolean"
	TrendCategorical TrendType = "categorical"
	TrendText        TrendType = "text"
)

type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     any       `json:"value"`
	Date      string    `json:"date"`
	Label     string    `json:"label,omitempty"`
	Preview   string    `json:"preview,omitempty"`
}

// TrendData is a chronological (oldest first) series over a trailing window.
type TrendData struct {
	MetricName    string      `json:"metric_name"`
	TimeRangeDays int         `json:"time_range_days"`
	DataPoints    []DataPoint `json:"data_points"`
	TrendType     TrendType   `json:"trend_type"`
}

// Aggregate is a one-line digest plus a heterogeneous stats bag. Stats always
// carries "count".
type Aggregate struct {
	MetricName    string         `json:"metric_name"`
	TimeRangeDays int            `json:"time_range_days"`
	Summary       string         `json:"summary"`
	Stats         map[string]any `json:"stats"`
}

// Count returns stats["count"], or 0 when missing.
func (a Aggregate) Count() int {
	n, _ := a.Stats["count"].(int)
	return n
}

// Metric is one trackable quantity. Implementations hold no state between
// calls beyond the storage handle they are constructed with.
type Metric interface {
	Name() string
	DisplayName() string
	Description() string
	InputSchema() InputSchema
	Policy() RecordPolicy

	// Validate reports whether raw is acceptable input. It never fails loudly
	// and performs no I/O.
	Validate(raw any) bool
	// Record persists raw for userID. A nil timestamp means now.
	Record(ctx context.Context, userID int64, raw any, timestamp *time.Time) (*Entry, error)
	Trends(ctx context.Context, userID int64, days int) (*TrendData, error)
	Aggregates(ctx context.Context, userID int64, days int) (*Aggregate, error)
	// LLMPrompt returns a metric specific prompt fragment, if the metric has one.
	LLMPrompt(ctx context.Context, userID int64, hints map[string]any) (string, bool)
}

// EntryInput is a value ready to be written to storage.
type EntryInput struct {
	UserID     int64
	MetricName string
	Value      Value
	Timestamp  time.Time
	Metadata   map[string]any
}

// EntryFilter narrows EntriesForUser. Zero fields are unbounded.
type EntryFilter struct {
	MetricName string
	Since      time.Time
	Until      time.Time
}

// EntryStore is the persistence capability handed to every metric. Queries
// return entries newest first.
type EntryStore interface {
	CreateEntry(ctx context.Context, in EntryInput) (*Entry, error)
	ReplaceEntryForDay(ctx context.Context, in EntryInput) (*Entry, error)
	EntriesForUser(ctx context.Context, userID int64, filter EntryFilter) ([]Entry, error)
	LatestEntries(ctx context.Context, userID int64, metricName string, limit int) ([]Entry, error)
}

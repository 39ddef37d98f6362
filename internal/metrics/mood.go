package metrics

import (
	"context"
	"fmt"
	"math"
	"time"
)

// moodScale orders the accepted labels best to worst with their numeric
// weights. Ties when mapping an average back to a label go to the earlier one.
var moodScale = []struct {
	label  string
	weight int
}{
	{"Great", 5},
	{"Good", 4},
	{"Okay", 3},
	{"Poor", 2},
	{"Bad", 1},
}

// neutralMood is the weight used for stored labels no longer on the scale.
const neutralMood = 3

func moodWeight(label string) (int, bool) {
	for _, m := range moodScale {
		if m.label == label {
			return m.weight, true
		}
	}
	return neutralMood, false
}

// nearestMood maps a mean weight to the closest label.
func nearestMood(avg float64) string {
	best, bestDist := moodScale[0].label, math.Inf(1)
	for _, m := range moodScale {
		if d := math.Abs(float64(m.weight) - avg); d < bestDist {
			best, bestDist = m.label, d
		}
	}
	return best
}

// MoodMetric tracks the day's mood on a five point scale. One mood per day.
type MoodMetric struct {
	base
}

func NewMoodMetric(store EntryStore, opts ...Option) *MoodMetric {
	labels := make([]string, len(moodScale))
	for i, m := range moodScale {
		labels[i] = m.label
	}
	return &MoodMetric{base: newBase(store, base{
		name:        "mood",
		displayName: "Mood",
		description: "How are you feeling today?",
		policy:      UpsertByDay,
		schema: InputSchema{
			InputType: InputSelect,
			Label:     "How are you feeling today?",
			Required:  true,
			Options:   labels,
		},
	}, opts)}
}

func (m *MoodMetric) Validate(raw any) bool {
	s, ok := raw.(string)
	if !ok {
		return false
	}
	_, ok = moodWeight(s)
	return ok
}

func (m *MoodMetric) Record(ctx context.Context, userID int64, raw any, ts *time.Time) (*Entry, error) {
	if !m.Validate(raw) {
		return nil, fmt.Errorf("%w: mood %v", ErrInvalidValue, raw)
	}
	return m.record(ctx, userID, TextValue(raw.(string)), ts)
}

func (m *MoodMetric) Trends(ctx context.Context, userID int64, days int) (*TrendData, error) {
	entries, err := m.window(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	return m.trend(days, entries, TrendCategorical, func(e Entry) DataPoint {
		w, _ := moodWeight(e.Value.Text())
		return DataPoint{Value: w, Label: e.Value.Text()}
	}), nil
}

type moodStats struct {
	Count           int            `mapstructure:"count"`
	MostCommon      string         `mapstructure:"most_common"`
	MostCommonCount int            `mapstructure:"most_common_count"`
	AverageMood     string         `mapstructure:"average_mood"`
	Distribution    map[string]int `mapstructure:"distribution"`
}

func (m *MoodMetric) Aggregates(ctx context.Context, userID int64, days int) (*Aggregate, error) {
	entries, err := m.window(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return m.empty(days, "No mood data recorded.", nil), nil
	}

	dist := make(map[string]int)
	var seen []string
	total := 0
	for _, e := range entries {
		label := e.Value.Text()
		if _, ok := dist[label]; !ok {
			seen = append(seen, label)
		}
		dist[label]++
		w, _ := moodWeight(label)
		total += w
	}

	// First label to reach the max, in newest-first order of appearance.
	mostCommon, mostCount := "", 0
	for _, label := range seen {
		if dist[label] > mostCount {
			mostCommon, mostCount = label, dist[label]
		}
	}
	average := nearestMood(float64(total) / float64(len(entries)))

	summary := fmt.Sprintf("Most common: %s (%dx) • Average: %s", mostCommon, mostCount, average)
	return m.aggregate(days, summary, moodStats{
		Count:           len(entries),
		MostCommon:      mostCommon,
		MostCommonCount: mostCount,
		AverageMood:     average,
		Distribution:    dist,
	})
}

package metrics

import (
	"math"
	"slices"

	"github.com/go-viper/mapstructure/v2"
)

// round1 rounds to one decimal place.
func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// truncate cuts s to n runes and appends "..." when anything was cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// statsMap flattens a typed stats struct into the generic map handed to
// display and LLM code. Field names come from mapstructure tags.
func statsMap(stats any) (map[string]any, error) {
	out := make(map[string]any)
	if err := mapstructure.Decode(stats, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type numericSummary struct {
	total, mean, min, max float64
}

// summarize requires a non-empty slice.
func summarize(values []float64) numericSummary {
	var total float64
	for _, v := range values {
		total += v
	}
	return numericSummary{
		total: total,
		mean:  total / float64(len(values)),
		min:   slices.Min(values),
		max:   slices.Max(values),
	}
}

func decimals(entries []Entry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.Value.Decimal()
	}
	return out
}

func ptr(f float64) *float64 { return &f }

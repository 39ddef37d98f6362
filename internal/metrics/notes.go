package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	noteTrendPreviewLen = 100
	notePreviewLen      = 50
	notePromptDays      = 7
	notePromptLimit     = 5
)

// NotesMetric tracks free-form daily notes. Several notes a day are
// meaningful, so every call appends.
type NotesMetric struct {
	base
}

func NewNotesMetric(store EntryStore, opts ...Option) *NotesMetric {
	return &NotesMetric{base: newBase(store, base{
		name:        "notes",
		displayName: "Notes",
		description: "Any additional notes or observations?",
		policy:      AppendOnly,
		schema: InputSchema{
			InputType:   InputText,
			Label:       "Any extra notes?",
			Placeholder: "How are you feeling? Any observations?",
		},
	}, opts)}
}

// Validate accepts nil and any value that reads as text, including empty
// notes.
func (m *NotesMetric) Validate(raw any) bool {
	if raw == nil {
		return true
	}
	_, err := ParseValue(raw, TypeText)
	return err == nil
}

func (m *NotesMetric) Record(ctx context.Context, userID int64, raw any, ts *time.Time) (*Entry, error) {
	text := ""
	if raw != nil {
		v, err := ParseValue(raw, TypeText)
		if err != nil {
			return nil, err
		}
		text = v.Text()
	}
	if strings.TrimSpace(text) == "" {
		text = ""
	}
	return m.record(ctx, userID, TextValue(text), ts)
}

func (m *NotesMetric) Trends(ctx context.Context, userID int64, days int) (*TrendData, error) {
	entries, err := m.notes(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	return m.trend(days, entries, TrendText, func(e Entry) DataPoint {
		return DataPoint{
			Value:   e.Value.Text(),
			Preview: truncate(e.Value.Text(), noteTrendPreviewLen),
		}
	}), nil
}

type notesStats struct {
	Count           int     `mapstructure:"count"`
	TotalWords      int     `mapstructure:"total_words"`
	AvgWordsPerNote float64 `mapstructure:"avg_words_per_note"`
	LatestPreview   string  `mapstructure:"latest_preview"`
}

func (m *NotesMetric) Aggregates(ctx context.Context, userID int64, days int) (*Aggregate, error) {
	entries, err := m.notes(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return m.empty(days, "No notes recorded.", map[string]any{"total_words": 0}), nil
	}

	total := 0
	for _, e := range entries {
		total += len(strings.Fields(e.Value.Text()))
	}
	avg := float64(total) / float64(len(entries))
	preview := truncate(entries[0].Value.Text(), notePreviewLen)

	summary := fmt.Sprintf("%d notes • ~%.0f words/note • Latest: \"%s\"", len(entries), avg, preview)
	return m.aggregate(days, summary, notesStats{
		Count:           len(entries),
		TotalWords:      total,
		AvgWordsPerNote: round1(avg),
		LatestPreview:   preview,
	})
}

// LLMPrompt asks for themes across the most recent notes of the past week,
// listed oldest first.
func (m *NotesMetric) LLMPrompt(ctx context.Context, userID int64, _ map[string]any) (string, bool) {
	entries, err := m.notes(ctx, userID, notePromptDays)
	if err != nil || len(entries) == 0 {
		return "", false
	}
	if len(entries) > notePromptLimit {
		entries = entries[:notePromptLimit]
	}

	var b strings.Builder
	b.WriteString("Based on recent daily notes:\n")
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fmt.Fprintf(&b, "- %s: %s\n", e.Timestamp.Local().Format(time.DateOnly), e.Value.Text())
	}
	b.WriteString("\nIdentify any patterns or themes in these notes (1-2 sentences).")
	return b.String(), true
}

// notes returns the window's non-blank notes, newest first.
func (m *NotesMetric) notes(ctx context.Context, userID int64, days int) ([]Entry, error) {
	entries, err := m.window(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	out := entries[:0:0]
	for _, e := range entries {
		if strings.TrimSpace(e.Value.Text()) != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

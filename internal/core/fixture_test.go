package core

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"compass.dev/tracker/internal/llm"
	"compass.dev/tracker/internal/metrics"
	"compass.dev/tracker/internal/store"
)

var testDefaults = []string{"mood", "scale", "exercise", "groceries", "notes"}

// stubLLM answers every request with reply and counts Generate calls.
type stubLLM struct {
	available bool
	reply     string
	marker    string
	delay     time.Duration
	calls     atomic.Int32

	mu       sync.Mutex
	messages []llm.Message
}

func (s *stubLLM) IsAvailable(context.Context) bool { return s.available }
func (s *stubLLM) Model() string                    { return "stub" }

func (s *stubLLM) Generate(ctx context.Context, msgs []llm.Message, _ int) (llm.Response, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.messages = msgs
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.marker != "" {
		return llm.Response{Content: "boom", Metadata: map[string]any{"error": s.marker}}, nil
	}
	return llm.Response{Content: s.reply}, nil
}

func (s *stubLLM) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[len(s.messages)-1].Content
}

// brokenMetric fails every read.
type brokenMetric struct {
	metrics.Metric
}

func (brokenMetric) Name() string        { return "broken" }
func (brokenMetric) DisplayName() string { return "Broken" }

func (brokenMetric) Aggregates(context.Context, int64, int) (*metrics.Aggregate, error) {
	return nil, errors.New("aggregate exploded")
}

func (brokenMetric) Trends(context.Context, int64, int) (*metrics.TrendData, error) {
	return nil, errors.New("trend exploded")
}

type fixture struct {
	store     *store.SQLiteStore
	registry  *metrics.Registry
	resolver  *MetricResolver
	summaries *SummaryService
	tracker   *TrackerService
	llm       *stubLLM
}

func newFixture(t *testing.T, stub *stubLLM) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "metrics.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := metrics.NewRegistry()
	for _, m := range metrics.DefaultSet(st) {
		registry.Register(m)
	}

	resolver := NewMetricResolver(st, registry, testDefaults)
	summaries := NewSummaryService(resolver, st, stub, time.Second, zap.NewNop())
	return &fixture{
		store:     st,
		registry:  registry,
		resolver:  resolver,
		summaries: summaries,
		tracker:   NewTrackerService(st, st, resolver, summaries, zap.NewNop()),
		llm:       stub,
	}
}

func (f *fixture) user(t *testing.T, name string) int64 {
	t.Helper()
	u, err := f.tracker.CreateUser(context.Background(), name)
	require.NoError(t, err)
	return u.ID
}

func (f *fixture) record(t *testing.T, userID int64, metric string, raw any) {
	t.Helper()
	_, err := f.tracker.Record(context.Background(), userID, metric, raw, nil)
	require.NoError(t, err)
}

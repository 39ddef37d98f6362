package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compass.dev/tracker/internal/metrics"
)

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubLLM{})

	_, err := f.tracker.CreateUser(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidUserName)

	u, err := f.tracker.CreateUser(ctx, " ada ")
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Name)

	_, err = f.tracker.CreateUser(ctx, "ada")
	assert.ErrorIs(t, err, ErrUserExists)

	enabled, err := f.tracker.EnabledMetrics(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, testDefaults, names(enabled))

	found, err := f.tracker.FindUser(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = f.tracker.GetUser(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.tracker.FindUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEnabledMetricsFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubLLM{})
	// Created straight in the store, so no settings rows exist.
	u, err := f.store.CreateUser(ctx, "legacy")
	require.NoError(t, err)

	enabled, err := f.tracker.EnabledMetrics(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, testDefaults, names(enabled))

	persisted, err := f.store.EnabledMetrics(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, testDefaults, persisted)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubLLM{})
	uid := f.user(t, "ada")

	results, err := f.tracker.Submit(ctx, uid, map[string]any{
		"mood":      "Good",
		"scale":     "heavy",
		"exercise":  "  ",
		"notes":     "first day",
		"not_there": "ignored",
	}, nil)
	require.NoError(t, err)

	byMetric := make(map[string]SubmitResult)
	for _, r := range results {
		byMetric[r.Metric] = r
	}
	assert.Len(t, results, 4)
	assert.True(t, byMetric["mood"].Success)
	assert.Equal(t, "Good", byMetric["mood"].Value)
	assert.Equal(t, "Invalid value", byMetric["scale"].Error)
	assert.NotContains(t, byMetric, "exercise")
	assert.True(t, byMetric["groceries"].Success)
	assert.Equal(t, false, byMetric["groceries"].Value)
	assert.True(t, byMetric["notes"].Success)
}

func TestSubmitUnknownUser(t *testing.T) {
	f := newFixture(t, &stubLLM{})
	_, err := f.tracker.Submit(context.Background(), 99, map[string]any{"mood": "Good"}, nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRecordValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubLLM{})
	uid := f.user(t, "ada")

	_, err := f.tracker.Record(ctx, uid, "mood", "Meh", nil)
	assert.ErrorIs(t, err, metrics.ErrInvalidValue)
	_, err = f.tracker.Record(ctx, uid, "sleep", 8, nil)
	assert.ErrorIs(t, err, metrics.ErrMetricNotFound)

	at := time.Now().Add(-time.Hour)
	e, err := f.tracker.Record(ctx, uid, "alone_time", "2.25", &at)
	require.NoError(t, err)
	assert.Equal(t, 2.3, e.Value.Decimal())
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	stub := &stubLLM{available: true, reply: "Keep it up!"}
	f := newFixture(t, stub)
	uid := f.user(t, "ada")

	yesterday := time.Now().AddDate(0, 0, -1)
	_, err := f.tracker.Record(ctx, uid, "scale", 81, &yesterday)
	require.NoError(t, err)
	f.record(t, uid, "mood", "Great")

	view, err := f.tracker.Dashboard(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "ada", view.User.Name)
	assert.Len(t, view.Metrics, len(testDefaults))
	assert.Equal(t, map[string]any{"mood": "Great"}, view.Today)
	assert.Equal(t, "Keep it up!", view.Summary)

	_, err = f.tracker.Dashboard(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTrendsKeepsOrderAndSkipsFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubLLM{})
	f.registry.Register(brokenMetric{Metric: metrics.NewNotesMetric(f.store)})
	uid := f.user(t, "ada")
	require.NoError(t, f.tracker.SetMetricEnabled(ctx, uid, "broken", true))
	f.record(t, uid, "scale", 80)

	got, err := f.tracker.Trends(ctx, uid, 7)
	require.NoError(t, err)

	var gotNames []string
	for _, mt := range got {
		gotNames = append(gotNames, mt.Metric.Name)
	}
	assert.Equal(t, testDefaults, gotNames)
	assert.Equal(t, 1, got[1].Aggregate.Count())
	assert.Len(t, got[1].Trend.DataPoints, 1)
	assert.Equal(t, 0, got[0].Aggregate.Count())
}

func TestSetMetricEnabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubLLM{})
	uid := f.user(t, "ada")

	require.NoError(t, f.tracker.SetMetricEnabled(ctx, uid, "scale", false))
	require.NoError(t, f.tracker.SetMetricEnabled(ctx, uid, "alone_time", true))
	enabled, err := f.tracker.EnabledMetrics(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, []string{"mood", "exercise", "groceries", "notes", "alone_time"}, names(enabled))

	assert.ErrorIs(t, f.tracker.SetMetricEnabled(ctx, uid, "sleep", true), metrics.ErrMetricNotFound)
	assert.ErrorIs(t, f.tracker.SetMetricEnabled(ctx, 404, "mood", true), ErrUserNotFound)
}

func TestCatalog(t *testing.T) {
	f := newFixture(t, &stubLLM{})
	catalog := f.tracker.Catalog()
	require.Len(t, catalog, 6)
	assert.Equal(t, "mood", catalog[0].Name)
	assert.Equal(t, metrics.InputSelect, catalog[0].InputSchema.InputType)
	assert.Equal(t, metrics.UpsertByDay, catalog[0].Policy)
}

func names(ds []MetricDescriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

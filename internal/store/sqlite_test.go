package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"compass.dev/tracker/internal/metrics"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "metrics.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestUser(t *testing.T, s *SQLiteStore, name string) *User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), name)
	require.NoError(t, err)
	return u
}

func TestSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.db")
	s1, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	newTestUser(t, s1, "ada")
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	defer s2.Close()
	users, err := s2.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestEntryRoundTripPerValueType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := newTestUser(t, s, "ada")
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	values := []metrics.Value{
		metrics.BoolValue(true),
		metrics.IntValue(42),
		metrics.DecimalValue(3.1),
		metrics.TextValue("hello"),
	}
	for i, v := range values {
		_, err := s.CreateEntry(ctx, metrics.EntryInput{
			UserID:     u.ID,
			MetricName: "m",
			Value:      v,
			Timestamp:  at.Add(time.Duration(i) * time.Minute),
			Metadata:   map[string]any{"source": "test"},
		})
		require.NoError(t, err)
	}

	got, err := s.EntriesForUser(ctx, u.ID, metrics.EntryFilter{MetricName: "m"})
	require.NoError(t, err)
	require.Len(t, got, 4)
	// Newest first.
	for i, e := range got {
		want := values[len(values)-1-i]
		assert.Equal(t, want.Type(), e.Value.Type())
		assert.Equal(t, want.Any(), e.Value.Any())
		assert.Equal(t, "test", e.Metadata["source"])
		assert.NotEmpty(t, e.ID)
	}
	assert.True(t, got[3].Timestamp.Equal(at))
}

func TestCreateEntryRejectsUntypedValue(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "ada")
	_, err := s.CreateEntry(context.Background(), metrics.EntryInput{UserID: u.ID, MetricName: "m"})
	assert.ErrorIs(t, err, metrics.ErrInvalidValue)
}

func TestReplaceEntryForDay(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := newTestUser(t, s, "ada")
	loc := time.Local
	yesterday := time.Date(2025, 6, 14, 23, 0, 0, 0, loc)
	morning := time.Date(2025, 6, 15, 8, 0, 0, 0, loc)
	evening := time.Date(2025, 6, 15, 21, 0, 0, 0, loc)

	put := func(ts time.Time, v float64) {
		_, err := s.ReplaceEntryForDay(ctx, metrics.EntryInput{
			UserID: u.ID, MetricName: "scale", Value: metrics.DecimalValue(v), Timestamp: ts,
		})
		require.NoError(t, err)
	}
	put(yesterday, 80)
	put(morning, 81)
	put(evening, 82)

	got, err := s.EntriesForUser(ctx, u.ID, metrics.EntryFilter{MetricName: "scale"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 82.0, got[0].Value.Decimal())
	assert.Equal(t, 80.0, got[1].Value.Decimal())
}

func TestEntriesForUserFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ada := newTestUser(t, s, "ada")
	bob := newTestUser(t, s, "bob")
	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	for d := 0; d < 5; d++ {
		_, err := s.CreateEntry(ctx, metrics.EntryInput{
			UserID: ada.ID, MetricName: "alone_time", Value: metrics.DecimalValue(float64(d)),
			Timestamp: base.AddDate(0, 0, d),
		})
		require.NoError(t, err)
	}
	_, err := s.CreateEntry(ctx, metrics.EntryInput{
		UserID: bob.ID, MetricName: "alone_time", Value: metrics.DecimalValue(9), Timestamp: base,
	})
	require.NoError(t, err)

	got, err := s.EntriesForUser(ctx, ada.ID, metrics.EntryFilter{
		MetricName: "alone_time",
		Since:      base.AddDate(0, 0, 1),
		Until:      base.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 3.0, got[0].Value.Decimal())
	assert.Equal(t, 1.0, got[2].Value.Decimal())

	latest, err := s.LatestEntries(ctx, ada.ID, "alone_time", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 4.0, latest[0].Value.Decimal())

	none, err := s.EntriesForUser(ctx, ada.ID, metrics.EntryFilter{MetricName: "mood"})
	require.NoError(t, err)
	assert.Empty(t, none)

	stats, err := s.EntryRangeStats(ctx, ada.ID, "alone_time", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Count)
	require.NotNil(t, stats.First)
	assert.True(t, stats.First.Equal(base))
	assert.True(t, stats.Last.Equal(base.AddDate(0, 0, 4)))

	empty, err := s.EntryRangeStats(ctx, ada.ID, "mood", time.Time{})
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.Nil(t, empty.First)
}

func TestDeleteEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := newTestUser(t, s, "ada")

	e, err := s.CreateEntry(ctx, metrics.EntryInput{UserID: u.ID, MetricName: "notes", Value: metrics.TextValue("x")})
	require.NoError(t, err)
	_, err = s.CreateEntry(ctx, metrics.EntryInput{UserID: u.ID, MetricName: "notes", Value: metrics.TextValue("y")})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEntry(ctx, e.ID))
	assert.ErrorIs(t, s.DeleteEntry(ctx, e.ID), ErrNotFound)

	n, err := s.DeleteEntriesForUser(ctx, u.ID, "notes")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ada := newTestUser(t, s, "ada")
	_, err := s.CreateUser(ctx, "ada")
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.GetUserByName(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.ID)

	_, err = s.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpdateUserName(ctx, ada.ID, "ada l."))
	got, err = s.GetUser(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada l.", got.Name)

	_, err = s.CreateEntry(ctx, metrics.EntryInput{UserID: ada.ID, MetricName: "notes", Value: metrics.TextValue("x")})
	require.NoError(t, err)
	require.NoError(t, s.DeleteUser(ctx, ada.ID))
	assert.ErrorIs(t, s.DeleteUser(ctx, ada.ID), ErrNotFound)

	entries, err := s.EntriesForUser(ctx, ada.ID, metrics.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUserMetricSettings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := newTestUser(t, s, "ada")

	names, err := s.EnabledMetrics(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.InitializeUserMetrics(ctx, u.ID, []string{"mood", "scale", "notes"}))
	require.NoError(t, s.SetMetricEnabled(ctx, u.ID, "scale", false))
	require.NoError(t, s.SetMetricEnabled(ctx, u.ID, "groceries", true))
	// Re-initializing keeps the disabled setting.
	require.NoError(t, s.InitializeUserMetrics(ctx, u.ID, []string{"mood", "scale"}))

	names, err = s.EnabledMetrics(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"mood", "notes", "groceries"}, names)

	all, err := s.UserMetrics(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDailySummaryCache(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := newTestUser(t, s, "ada")
	day := time.Date(2025, 6, 15, 10, 0, 0, 0, time.Local)

	_, err := s.GetDailySummary(ctx, u.ID, day)
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := s.CreateDailySummary(ctx, u.ID, day, "Nice steady week.")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15", created.CacheDate)

	_, err = s.CreateDailySummary(ctx, u.ID, day.Add(3*time.Hour), "Another take.")
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.GetDailySummary(ctx, u.ID, day)
	require.NoError(t, err)
	assert.Equal(t, "Nice steady week.", got.Content)
	assert.Equal(t, created.ID, got.ID)

	_, err = s.GetDailySummary(ctx, u.ID, day.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrNotFound)
}

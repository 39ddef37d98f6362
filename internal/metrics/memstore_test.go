package metrics

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// memStore is an in-memory EntryStore.
type memStore struct {
	mu      sync.Mutex
	seq     int
	entries []Entry
	failOn  string
}

func newMemStore() *memStore { return &memStore{} }

func (s *memStore) CreateEntry(_ context.Context, in EntryInput) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(in)
}

func (s *memStore) ReplaceEntryForDay(_ context.Context, in EntryInput) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := in.Timestamp.Local().Format(time.DateOnly)
	s.entries = slices.DeleteFunc(s.entries, func(e Entry) bool {
		return e.UserID == in.UserID && e.MetricName == in.MetricName &&
			e.Timestamp.Local().Format(time.DateOnly) == day
	})
	return s.insert(in)
}

func (s *memStore) insert(in EntryInput) (*Entry, error) {
	if s.failOn == in.MetricName {
		return nil, fmt.Errorf("disk full")
	}
	s.seq++
	e := Entry{
		ID:         fmt.Sprintf("e%d", s.seq),
		UserID:     in.UserID,
		MetricName: in.MetricName,
		Timestamp:  in.Timestamp,
		Value:      in.Value,
		Metadata:   in.Metadata,
	}
	s.entries = append(s.entries, e)
	return &e, nil
}

func (s *memStore) EntriesForUser(_ context.Context, userID int64, f EntryFilter) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == f.MetricName {
		return nil, fmt.Errorf("disk on fire")
	}

	var out []Entry
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		if f.MetricName != "" && e.MetricName != f.MetricName {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
			continue
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b Entry) int { return b.Timestamp.Compare(a.Timestamp) })
	return out, nil
}

func (s *memStore) LatestEntries(ctx context.Context, userID int64, metricName string, limit int) ([]Entry, error) {
	out, err := s.EntriesForUser(ctx, userID, EntryFilter{MetricName: metricName})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)

func fixedClock() Option {
	return WithClock(func() time.Time { return testNow })
}

func daysAgo(n int) *time.Time {
	t := testNow.AddDate(0, 0, -n)
	return &t
}

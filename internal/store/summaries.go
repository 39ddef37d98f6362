package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GetDailySummary returns the cached summary for the user's local calendar
// day containing date.
func (s *SQLiteStore) GetDailySummary(ctx context.Context, userID int64, date time.Time) (*DailySummary, error) {
	var ds DailySummary
	err := s.db.QueryRowContext(ctx, `SELECT id, user_id, cache_date, summary_content, generated_at
        FROM daily_summary_cache WHERE user_id = ? AND cache_date = ?`,
		userID, date.Format(time.DateOnly)).
		Scan(&ds.ID, &ds.UserID, &ds.CacheDate, &ds.Content, &ds.GeneratedAt)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("summary for %s: %w", date.Format(time.DateOnly), ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query daily summary: %w", err)
	}
	return &ds, nil
}

// CreateDailySummary stores content for the day. It returns ErrDuplicate
// when that day already has a summary; the existing row is kept.
func (s *SQLiteStore) CreateDailySummary(ctx context.Context, userID int64, date time.Time, content string) (*DailySummary, error) {
	ds := &DailySummary{
		ID:          uuid.NewString(),
		UserID:      userID,
		CacheDate:   date.Format(time.DateOnly),
		Content:     content,
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO daily_summary_cache (id, user_id, cache_date, summary_content, generated_at)
        VALUES (?, ?, ?, ?, ?)`, ds.ID, ds.UserID, ds.CacheDate, ds.Content, ds.GeneratedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("summary for %s: %w", ds.CacheDate, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to insert daily summary: %w", err)
	}
	return ds, nil
}

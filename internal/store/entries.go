package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"compass.dev/tracker/internal/metrics"
)

var _ metrics.EntryStore = (*SQLiteStore)(nil)

const entryColumns = `id, user_id, metric_name, timestamp, value_type,
        value_boolean, value_integer, value_decimal, value_text, metadata`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) CreateEntry(ctx context.Context, in metrics.EntryInput) (*metrics.Entry, error) {
	return s.insertEntry(ctx, s.db, in)
}

// ReplaceEntryForDay removes the user's entries for the metric on the local
// calendar day of in.Timestamp and inserts in, atomically.
func (s *SQLiteStore) ReplaceEntryForDay(ctx context.Context, in metrics.EntryInput) (*metrics.Entry, error) {
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}
	start, end := dayBounds(in.Timestamp)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"DELETE FROM metric_entries WHERE user_id = ? AND metric_name = ? AND timestamp >= ? AND timestamp < ?",
		in.UserID, in.MetricName, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to delete same-day entries: %w", err)
	}

	entry, err := s.insertEntry(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit entry replace: %w", err)
	}
	return entry, nil
}

func (s *SQLiteStore) insertEntry(ctx context.Context, db execer, in metrics.EntryInput) (*metrics.Entry, error) {
	if !in.Value.Type().Valid() {
		return nil, fmt.Errorf("failed to insert entry: %w", metrics.ErrInvalidValue)
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	var meta sql.NullString
	if len(in.Metadata) > 0 {
		b, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	entry := &metrics.Entry{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		MetricName: in.MetricName,
		Timestamp:  in.Timestamp.UTC(),
		Value:      in.Value,
		Metadata:   in.Metadata,
	}
	b, i, f, t := valueSlots(in.Value)
	_, err := db.ExecContext(ctx, `INSERT INTO metric_entries (`+entryColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.MetricName, formatTime(entry.Timestamp), string(in.Value.Type()),
		b, i, f, t, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to insert entry: %w", err)
	}
	return entry, nil
}

// EntriesForUser returns the user's entries matching filter, newest first.
func (s *SQLiteStore) EntriesForUser(ctx context.Context, userID int64, filter metrics.EntryFilter) ([]metrics.Entry, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if filter.MetricName != "" {
		where = append(where, "metric_name = ?")
		args = append(args, filter.MetricName)
	}
	if !filter.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, formatTime(filter.Since))
	}
	if !filter.Until.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, formatTime(filter.Until))
	}

	query := "SELECT " + entryColumns + " FROM metric_entries WHERE " +
		strings.Join(where, " AND ") + " ORDER BY timestamp DESC, rowid DESC"
	return s.queryEntries(ctx, query, args...)
}

func (s *SQLiteStore) LatestEntries(ctx context.Context, userID int64, metricName string, limit int) ([]metrics.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.queryEntries(ctx, "SELECT "+entryColumns+` FROM metric_entries
        WHERE user_id = ? AND metric_name = ?
        ORDER BY timestamp DESC, rowid DESC
        LIMIT ?`, userID, metricName, limit)
}

// EntryRangeStats reports the count and time span of a user's entries for a
// metric since the given time. A zero since covers all history.
func (s *SQLiteStore) EntryRangeStats(ctx context.Context, userID int64, metricName string, since time.Time) (*EntryStats, error) {
	var (
		stats       EntryStats
		first, last sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), MIN(timestamp), MAX(timestamp)
        FROM metric_entries WHERE user_id = ? AND metric_name = ? AND timestamp >= ?`,
		userID, metricName, formatTime(since)).Scan(&stats.Count, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry stats: %w", err)
	}
	for _, p := range []struct {
		src sql.NullString
		dst **time.Time
	}{{first, &stats.First}, {last, &stats.Last}} {
		if !p.src.Valid {
			continue
		}
		t, err := parseTime(p.src.String)
		if err != nil {
			return nil, err
		}
		*p.dst = &t
	}
	return &stats, nil
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM metric_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteEntriesForUser removes the user's entries for metricName, or all of
// the user's entries when metricName is empty.
func (s *SQLiteStore) DeleteEntriesForUser(ctx context.Context, userID int64, metricName string) (int64, error) {
	query := "DELETE FROM metric_entries WHERE user_id = ?"
	args := []any{userID}
	if metricName != "" {
		query += " AND metric_name = ?"
		args = append(args, metricName)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...any) ([]metrics.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []metrics.Entry
	for rows.Next() {
		e, err := s.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) scanEntry(rows *sql.Rows) (metrics.Entry, error) {
	var (
		e         metrics.Entry
		ts, vtype string
		b         sql.NullBool
		i         sql.NullInt64
		f         sql.NullFloat64
		t, meta   sql.NullString
	)
	if err := rows.Scan(&e.ID, &e.UserID, &e.MetricName, &ts, &vtype, &b, &i, &f, &t, &meta); err != nil {
		return e, fmt.Errorf("failed to scan entry row: %w", err)
	}

	var err error
	if e.Timestamp, err = parseTime(ts); err != nil {
		return e, err
	}

	switch metrics.ValueType(vtype) {
	case metrics.TypeBoolean:
		e.Value = metrics.BoolValue(b.Bool)
	case metrics.TypeInteger:
		e.Value = metrics.IntValue(i.Int64)
	case metrics.TypeDecimal:
		e.Value = metrics.DecimalValue(f.Float64)
	case metrics.TypeText:
		e.Value = metrics.TextValue(t.String)
	default:
		return e, fmt.Errorf("entry %s has unknown value type %q", e.ID, vtype)
	}

	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &e.Metadata); err != nil {
			s.logger.Warn("Failed to unmarshal entry metadata, dropping it",
				zap.String("entry_id", e.ID), zap.Error(err))
			e.Metadata = nil
		}
	}
	return e, nil
}

// valueSlots spreads v over the four value columns; exactly one is non-nil.
func valueSlots(v metrics.Value) (b, i, f, t any) {
	switch v.Type() {
	case metrics.TypeBoolean:
		b = v.Bool()
	case metrics.TypeInteger:
		i = v.Int()
	case metrics.TypeDecimal:
		f = v.Decimal()
	case metrics.TypeText:
		t = v.Text()
	}
	return
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

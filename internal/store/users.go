package store

import (
	"context"
	"fmt"
)

const userColumns = "id, name, created_at, updated_at"

func (s *SQLiteStore) CreateUser(ctx context.Context, name string) (*User, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO users (name) VALUES (?)", name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %q: %w", name, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetUser(ctx, id)
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (s *SQLiteStore) GetUserByName(ctx context.Context, name string) (*User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE name = ?", name)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("user %v: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Name, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) UpdateUserName(ctx context.Context, id int64, name string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", name, ErrDuplicate)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteUser removes the user together with their settings, entries and
// cached summaries.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// UserMetrics returns every metric setting row for the user, enabled or not.
func (s *SQLiteStore) UserMetrics(ctx context.Context, userID int64) ([]UserMetric, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT metric_name, enabled, display_order
        FROM user_metrics WHERE user_id = ?
        ORDER BY display_order, metric_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user metrics: %w", err)
	}
	defer rows.Close()

	var out []UserMetric
	for rows.Next() {
		var um UserMetric
		if err := rows.Scan(&um.MetricName, &um.Enabled, &um.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan user metric row: %w", err)
		}
		out = append(out, um)
	}
	return out, rows.Err()
}

// EnabledMetrics returns the names of the user's enabled metrics in display
// order.
func (s *SQLiteStore) EnabledMetrics(ctx context.Context, userID int64) ([]string, error) {
	settings, err := s.UserMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, um := range settings {
		if um.Enabled {
			names = append(names, um.MetricName)
		}
	}
	return names, nil
}

// SetMetricEnabled toggles a metric for the user. A metric seen for the first
// time is placed after the existing ones.
func (s *SQLiteStore) SetMetricEnabled(ctx context.Context, userID int64, metricName string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO user_metrics (user_id, metric_name, enabled, display_order)
        VALUES (?, ?, ?, (SELECT COALESCE(MAX(display_order), -1) + 1 FROM user_metrics WHERE user_id = ?))
        ON CONFLICT (user_id, metric_name) DO UPDATE SET enabled = excluded.enabled`,
		userID, metricName, enabled, userID)
	if err != nil {
		return fmt.Errorf("failed to set metric %s: %w", metricName, err)
	}
	return nil
}

// InitializeUserMetrics enables names for the user in the given order.
// Existing settings are left untouched.
func (s *SQLiteStore) InitializeUserMetrics(ctx context.Context, userID int64, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO user_metrics (user_id, metric_name, enabled, display_order)
        VALUES (?, ?, TRUE, ?)
        ON CONFLICT (user_id, metric_name) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare user metric insert: %w", err)
	}
	defer stmt.Close()

	for i, name := range names {
		if _, err := stmt.ExecContext(ctx, userID, name, i); err != nil {
			return fmt.Errorf("failed to insert user metric %s: %w", name, err)
		}
	}
	return tx.Commit()
}

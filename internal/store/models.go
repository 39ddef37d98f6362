package store

import "time"

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserMetric is one row of a user's metric settings.
type UserMetric struct {
	MetricName   string `json:"metric_name"`
	Enabled      bool   `json:"enabled"`
	DisplayOrder int    `json:"display_order"`
}

type DailySummary struct {
	ID          string    `json:"id"` // UUID
	UserID      int64     `json:"user_id"`
	CacheDate   string    `json:"cache_date"` // YYYY-MM-DD
	Content     string    `json:"summary_content"`
	GeneratedAt time.Time `json:"generated_at"`
}

// EntryStats describes how much history a user has for one metric.
type EntryStats struct {
	Count int        `json:"count"`
	First *time.Time `json:"first,omitempty"`
	Last  *time.Time `json:"last,omitempty"`
}

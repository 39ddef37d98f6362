package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compass.dev/tracker/internal/metrics"
	"compass.dev/tracker/internal/store"
)

// UserStore is the user and settings persistence the services need.
type UserStore interface {
	CreateUser(ctx context.Context, name string) (*store.User, error)
	GetUser(ctx context.Context, id int64) (*store.User, error)
	GetUserByName(ctx context.Context, name string) (*store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	UserMetrics(ctx context.Context, userID int64) ([]store.UserMetric, error)
	SetMetricEnabled(ctx context.Context, userID int64, metricName string, enabled bool) error
	InitializeUserMetrics(ctx context.Context, userID int64, names []string) error
}

// SummaryCache stores at most one generated summary per user per day.
type SummaryCache interface {
	GetDailySummary(ctx context.Context, userID int64, date time.Time) (*store.DailySummary, error)
	CreateDailySummary(ctx context.Context, userID int64, date time.Time, content string) (*store.DailySummary, error)
}

// MetricResolver turns a user's stored settings into registered metrics.
type MetricResolver struct {
	users    UserStore
	registry *metrics.Registry
	defaults []string
}

func NewMetricResolver(users UserStore, registry *metrics.Registry, defaults []string) *MetricResolver {
	return &MetricResolver{users: users, registry: registry, defaults: defaults}
}

// EnabledNames returns the user's enabled metric names. A user with no
// settings at all gets the configured defaults, which are persisted.
func (r *MetricResolver) EnabledNames(ctx context.Context, userID int64) ([]string, error) {
	settings, err := r.users.UserMetrics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load metric settings: %w", err)
	}
	if len(settings) == 0 {
		if err := r.users.InitializeUserMetrics(ctx, userID, r.defaults); err != nil {
			return nil, fmt.Errorf("initialize metric settings: %w", err)
		}
		return append([]string(nil), r.defaults...), nil
	}

	var names []string
	for _, s := range settings {
		if s.Enabled {
			names = append(names, s.MetricName)
		}
	}
	return names, nil
}

// EnabledMetrics resolves the user's enabled metrics against the registry.
// Names the registry does not know are dropped.
func (r *MetricResolver) EnabledMetrics(ctx context.Context, userID int64) ([]metrics.Metric, error) {
	names, err := r.EnabledNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.registry.Enabled(names), nil
}

func (r *MetricResolver) user(ctx context.Context, userID int64) (*store.User, error) {
	u, err := r.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
		}
		return nil, err
	}
	return u, nil
}

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"compass.dev/tracker/internal/metrics"
	"compass.dev/tracker/internal/store"
)

const trendWorkers = 4

// MetricDescriptor is what a client needs to render a metric's input.
type MetricDescriptor struct {
	Name        string               `json:"name"`
	DisplayName string               `json:"display_name"`
	Description string               `json:"description"`
	InputSchema metrics.InputSchema  `json:"input_schema"`
	Policy      metrics.RecordPolicy `json:"record_policy"`
}

func describe(m metrics.Metric) MetricDescriptor {
	return MetricDescriptor{
		Name:        m.Name(),
		DisplayName: m.DisplayName(),
		Description: m.Description(),
		InputSchema: m.InputSchema(),
		Policy:      m.Policy(),
	}
}

type DashboardView struct {
	User    store.User         `json:"user"`
	Metrics []MetricDescriptor `json:"metrics"`
	// Today holds the latest value recorded today, per metric.
	Today   map[string]any `json:"today"`
	Summary string         `json:"summary,omitempty"`
}

type SubmitResult struct {
	Metric  string `json:"metric"`
	Success bool   `json:"success"`
	Value   any    `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

type MetricTrends struct {
	Metric    MetricDescriptor   `json:"metric"`
	Aggregate *metrics.Aggregate `json:"aggregates"`
	Trend     *metrics.TrendData `json:"trends"`
}

// TrackerService is the per-user tracking workflow: users, the daily entry
// form, trends and metric settings.
type TrackerService struct {
	users     UserStore
	entries   metrics.EntryStore
	resolver  *MetricResolver
	summaries *SummaryService
	now       func() time.Time
	logger    *zap.Logger
}

func NewTrackerService(users UserStore, entries metrics.EntryStore, resolver *MetricResolver, summaries *SummaryService, logger *zap.Logger) *TrackerService {
	return &TrackerService{
		users:     users,
		entries:   entries,
		resolver:  resolver,
		summaries: summaries,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *TrackerService) CreateUser(ctx context.Context, name string) (*store.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidUserName
	}
	user, err := s.users.CreateUser(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%q: %w", name, ErrUserExists)
		}
		return nil, err
	}
	if err := s.users.InitializeUserMetrics(ctx, user.ID, s.resolver.defaults); err != nil {
		return nil, fmt.Errorf("initialize metrics for %q: %w", name, err)
	}
	s.logger.Info("Created user", zap.Int64("user_id", user.ID), zap.String("name", name))
	return user, nil
}

func (s *TrackerService) ListUsers(ctx context.Context) ([]store.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *TrackerService) GetUser(ctx context.Context, userID int64) (*store.User, error) {
	return s.resolver.user(ctx, userID)
}

// FindUser looks a user up by name.
func (s *TrackerService) FindUser(ctx context.Context, name string) (*store.User, error) {
	u, err := s.users.GetUserByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%q: %w", name, ErrUserNotFound)
		}
		return nil, err
	}
	return u, nil
}

// Catalog describes every registered metric in registration order.
func (s *TrackerService) Catalog() []MetricDescriptor {
	all := s.resolver.registry.All()
	out := make([]MetricDescriptor, len(all))
	for i, m := range all {
		out[i] = describe(m)
	}
	return out
}

func (s *TrackerService) EnabledMetrics(ctx context.Context, userID int64) ([]MetricDescriptor, error) {
	if _, err := s.resolver.user(ctx, userID); err != nil {
		return nil, err
	}
	enabled, err := s.resolver.EnabledMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]MetricDescriptor, len(enabled))
	for i, m := range enabled {
		out[i] = describe(m)
	}
	return out, nil
}

// Dashboard gathers the entry form, today's values and the daily summary.
func (s *TrackerService) Dashboard(ctx context.Context, userID int64) (*DashboardView, error) {
	user, err := s.resolver.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	enabled, err := s.resolver.EnabledMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &DashboardView{
		User:    *user,
		Metrics: make([]MetricDescriptor, 0, len(enabled)),
		Today:   make(map[string]any),
	}
	today := s.now().Format(time.DateOnly)
	for _, m := range enabled {
		view.Metrics = append(view.Metrics, describe(m))

		latest, err := s.entries.LatestEntries(ctx, userID, m.Name(), 1)
		if err != nil {
			return nil, fmt.Errorf("latest %s entry: %w", m.Name(), err)
		}
		if len(latest) == 1 && latest[0].Timestamp.Local().Format(time.DateOnly) == today {
			view.Today[m.Name()] = latest[0].Value.Any()
		}
	}

	if s.summaries != nil {
		view.Summary, _ = s.summaries.DailySummary(ctx, userID)
	}
	return view, nil
}

// Submit validates and records one value per enabled metric. Blank input is
// skipped, except for boolean metrics where a missing value means false.
// Per-metric failures are reported in the results, not as an error.
func (s *TrackerService) Submit(ctx context.Context, userID int64, values map[string]any, ts *time.Time) ([]SubmitResult, error) {
	if _, err := s.resolver.user(ctx, userID); err != nil {
		return nil, err
	}
	enabled, err := s.resolver.EnabledMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if ts != nil {
		at = *ts
	}

	var results []SubmitResult
	for _, m := range enabled {
		raw, present := values[m.Name()]
		if str, ok := raw.(string); ok {
			str = strings.TrimSpace(str)
			raw = str
			present = present && str != ""
		}
		if m.InputSchema().InputType == metrics.InputBoolean {
			if !present || raw == nil {
				raw = false
			}
		} else if !present || raw == nil {
			continue
		}

		if !m.Validate(raw) {
			results = append(results, SubmitResult{Metric: m.Name(), Error: "Invalid value"})
			continue
		}
		entry, err := m.Record(ctx, userID, raw, &at)
		if err != nil {
			s.logger.Error("Failed to record metric",
				zap.String("metric", m.Name()), zap.Int64("user_id", userID), zap.Error(err))
			results = append(results, SubmitResult{Metric: m.Name(), Error: err.Error()})
			continue
		}
		results = append(results, SubmitResult{Metric: m.Name(), Success: true, Value: entry.Value.Any()})
	}
	return results, nil
}

// Record validates and stores a single value for one metric, whether or not
// the user has it enabled.
func (s *TrackerService) Record(ctx context.Context, userID int64, metricName string, raw any, ts *time.Time) (*metrics.Entry, error) {
	if _, err := s.resolver.user(ctx, userID); err != nil {
		return nil, err
	}
	m, err := s.resolver.registry.Get(metricName)
	if err != nil {
		return nil, err
	}
	if !m.Validate(raw) {
		return nil, fmt.Errorf("%w for %s: %v", metrics.ErrInvalidValue, metricName, raw)
	}
	return m.Record(ctx, userID, raw, ts)
}

// Trends computes aggregates and series for every enabled metric
// concurrently. A metric that fails is logged and left out.
func (s *TrackerService) Trends(ctx context.Context, userID int64, days int) ([]MetricTrends, error) {
	if _, err := s.resolver.user(ctx, userID); err != nil {
		return nil, err
	}
	enabled, err := s.resolver.EnabledMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]*MetricTrends, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(trendWorkers)
	for i, m := range enabled {
		g.Go(func() error {
			agg, err := m.Aggregates(gctx, userID, days)
			if err != nil {
				s.logger.Warn("Error getting aggregates", zap.String("metric", m.Name()), zap.Error(err))
				return nil
			}
			tr, err := m.Trends(gctx, userID, days)
			if err != nil {
				s.logger.Warn("Error getting trends", zap.String("metric", m.Name()), zap.Error(err))
				return nil
			}
			results[i] = &MetricTrends{Metric: describe(m), Aggregate: agg, Trend: tr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]MetricTrends, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *TrackerService) SetMetricEnabled(ctx context.Context, userID int64, metricName string, enabled bool) error {
	if _, err := s.resolver.user(ctx, userID); err != nil {
		return err
	}
	if !s.resolver.registry.IsRegistered(metricName) {
		return fmt.Errorf("%w: %s", metrics.ErrMetricNotFound, metricName)
	}
	// Materialize the defaults first so toggling one metric keeps the rest.
	if _, err := s.resolver.EnabledNames(ctx, userID); err != nil {
		return err
	}
	return s.users.SetMetricEnabled(ctx, userID, metricName, enabled)
}

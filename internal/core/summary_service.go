package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"compass.dev/tracker/internal/llm"
	"compass.dev/tracker/internal/metrics"
	"compass.dev/tracker/internal/store"
	"compass.dev/tracker/internal/telemetry"
)

const (
	dailyWindowDays    = 7
	questionWindowDays = 30
	dailyMaxTokens     = 150
	questionMaxTokens  = 500
	trendMaxTokens     = 300
	maxDigestChars     = 4000

	dailySystemPrompt = "You're a supportive health tracking assistant. " +
		"Provide brief, encouraging insights based on user data. " +
		"Keep responses to 1-2 friendly sentences. No lectures, just positive observations."

	questionSystemPrompt = "You're a personal tracking assistant. Answer the user's question using only " +
		"the tracking data provided. If the data does not cover the question, say so plainly. " +
		"Be concise and do not make up numbers."

	trendSystemPrompt = "You are a data analysis assistant focused on health metrics. " +
		"Provide objective, actionable insights without being preachy. Focus on patterns and observations."
)

// Reasons reported in Answer when no text could be produced.
const (
	ReasonUnavailable = "LLM service is not available"
	ReasonNoData      = "No metric data recorded in the last 30 days"
	ReasonFailed      = "Could not generate an answer"
)

// Answer is the outcome of an ad-hoc LLM request. Reason is set when OK is
// false.
type Answer struct {
	Text   string `json:"text,omitempty"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// SummaryService builds cross-metric digests and turns them into LLM
// generated narratives. LLM and storage failures degrade to an absent
// message and are never returned to the caller.
type SummaryService struct {
	resolver *MetricResolver
	cache    SummaryCache
	llm      llm.Client
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger

	inflight singleflight.Group
}

type SummaryOption func(*SummaryService)

func WithSummaryClock(now func() time.Time) SummaryOption {
	return func(s *SummaryService) { s.now = now }
}

func NewSummaryService(resolver *MetricResolver, cache SummaryCache, client llm.Client, timeout time.Duration, logger *zap.Logger, opts ...SummaryOption) *SummaryService {
	s := &SummaryService{
		resolver: resolver,
		cache:    cache,
		llm:      client,
		timeout:  timeout,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DailySummary returns today's narrative for the user, generating and caching
// it on first use. ok is false when there is nothing to show.
func (s *SummaryService) DailySummary(ctx context.Context, userID int64) (string, bool) {
	today := s.now()
	key := fmt.Sprintf("%d:%s", userID, today.Format(time.DateOnly))

	v, _, _ := s.inflight.Do(key, func() (any, error) {
		return s.dailySummary(context.WithoutCancel(ctx), userID, today), nil
	})
	text := v.(string)
	return text, text != ""
}

func (s *SummaryService) dailySummary(ctx context.Context, userID int64, today time.Time) string {
	log := s.logger.With(zap.Int64("user_id", userID))

	cached, err := s.cache.GetDailySummary(ctx, userID, today)
	if err == nil {
		telemetry.SummaryCache.WithLabelValues("hit").Inc()
		return cached.Content
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Warn("Failed to read summary cache", zap.Error(err))
	}
	telemetry.SummaryCache.WithLabelValues("miss").Inc()

	if !s.llm.IsAvailable(ctx) {
		telemetry.LLMGenerations.WithLabelValues("daily", telemetry.OutcomeUnavailable).Inc()
		return ""
	}

	digest := s.digest(ctx, userID, dailyWindowDays)
	if digest == "" {
		telemetry.LLMGenerations.WithLabelValues("daily", telemetry.OutcomeEmpty).Inc()
		return ""
	}

	text, ok := s.generate(ctx, "daily", []llm.Message{
		{Role: llm.RoleSystem, Content: dailySystemPrompt},
		{Role: llm.RoleUser, Content: "Based on my recent tracking data:\n" + digest +
			"\n\nGive me a brief, encouraging message for today (1-2 sentences)."},
	}, dailyMaxTokens)
	if !ok {
		return ""
	}

	if _, err := s.cache.CreateDailySummary(ctx, userID, today, text); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Another process cached first; show what everyone else sees.
			if existing, err := s.cache.GetDailySummary(ctx, userID, today); err == nil {
				return existing.Content
			}
			return text
		}
		log.Warn("Failed to cache daily summary", zap.Error(err))
	}
	return text
}

// AnswerQuestion answers a free-form question from the last 30 days of data.
func (s *SummaryService) AnswerQuestion(ctx context.Context, userID int64, question string) Answer {
	if !s.llm.IsAvailable(ctx) {
		telemetry.LLMGenerations.WithLabelValues("question", telemetry.OutcomeUnavailable).Inc()
		return Answer{Reason: ReasonUnavailable}
	}
	digest := s.digest(ctx, userID, questionWindowDays)
	if digest == "" {
		telemetry.LLMGenerations.WithLabelValues("question", telemetry.OutcomeEmpty).Inc()
		return Answer{Reason: ReasonNoData}
	}

	text, ok := s.generate(ctx, "question", []llm.Message{
		{Role: llm.RoleSystem, Content: questionSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("My tracking data for the last %d days:\n%s\n\nQuestion: %s",
			questionWindowDays, digest, strings.TrimSpace(question))},
	}, questionMaxTokens)
	if !ok {
		return Answer{Reason: ReasonFailed}
	}
	return Answer{Text: text, OK: true}
}

// AnalyzeTrend asks for a short, objective reading of one metric's trend.
// Only an unknown metric name is reported as an error.
func (s *SummaryService) AnalyzeTrend(ctx context.Context, userID int64, metricName string, days int) (Answer, error) {
	m, err := s.resolver.registry.Get(metricName)
	if err != nil {
		return Answer{}, err
	}
	return s.analyzeTrend(ctx, m, userID, days), nil
}

func (s *SummaryService) analyzeTrend(ctx context.Context, m metrics.Metric, userID int64, days int) Answer {
	if !s.llm.IsAvailable(ctx) {
		telemetry.LLMGenerations.WithLabelValues("trend", telemetry.OutcomeUnavailable).Inc()
		return Answer{Reason: ReasonUnavailable}
	}
	agg, err := m.Aggregates(ctx, userID, days)
	if err != nil || agg.Count() == 0 {
		if err != nil {
			s.logger.Warn("Failed to aggregate metric", zap.String("metric", m.Name()), zap.Error(err))
		}
		telemetry.LLMGenerations.WithLabelValues("trend", telemetry.OutcomeEmpty).Inc()
		return Answer{Reason: fmt.Sprintf("No %s data recorded in the last %d days", m.DisplayName(), days)}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this %d-day trend for %s:\n  %s\n", days, m.DisplayName(), agg.Summary)
	if tr, err := m.Trends(ctx, userID, days); err == nil {
		for _, p := range tr.DataPoints {
			v := fmt.Sprint(p.Value)
			if p.Label != "" {
				v = p.Label
			}
			fmt.Fprintf(&b, "  %s: %s\n", p.Date, oneLine(v))
		}
	}
	b.WriteString("\nWhat patterns do you notice? Keep it brief (1-3 sentences).")

	text, ok := s.generate(ctx, "trend", []llm.Message{
		{Role: llm.RoleSystem, Content: trendSystemPrompt},
		{Role: llm.RoleUser, Content: bounded(b.String())},
	}, trendMaxTokens)
	if !ok {
		return Answer{Reason: ReasonFailed}
	}
	return Answer{Text: text, OK: true}
}

// digest lists every enabled metric that has data in the window, followed by
// any metric specific prompt fragments. Empty means nothing worth sending.
func (s *SummaryService) digest(ctx context.Context, userID int64, days int) string {
	enabled, err := s.resolver.EnabledMetrics(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to resolve enabled metrics", zap.Int64("user_id", userID), zap.Error(err))
		return ""
	}

	var lines, fragments []string
	for _, m := range enabled {
		agg, err := m.Aggregates(ctx, userID, days)
		if err != nil {
			s.logger.Warn("Skipping metric in digest",
				zap.String("metric", m.Name()), zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		if agg.Count() == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s:\n  %s", m.DisplayName(), agg.Summary))
		if p, ok := m.LLMPrompt(ctx, userID, agg.Stats); ok {
			fragments = append(fragments, p)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	out := strings.Join(lines, "\n")
	if len(fragments) > 0 {
		out += "\n\n" + strings.Join(fragments, "\n\n")
	}
	return bounded(out)
}

// generate runs one LLM call under the configured timeout and reports the
// text when the response is usable.
func (s *SummaryService) generate(ctx context.Context, purpose string, msgs []llm.Message, maxTokens int) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.llm.Generate(ctx, msgs, maxTokens)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		telemetry.LLMGenerations.WithLabelValues(purpose, telemetry.OutcomeError).Inc()
		s.logger.Warn("LLM generation failed",
			zap.String("purpose", purpose), zap.String("model", s.llm.Model()), zap.Error(err))
		return "", false
	}
	if !resp.Usable() {
		telemetry.LLMGenerations.WithLabelValues(purpose, telemetry.OutcomeEmpty).Inc()
		return "", false
	}
	telemetry.LLMGenerations.WithLabelValues(purpose, telemetry.OutcomeOK).Inc()
	return strings.TrimSpace(resp.Content), true
}

// bounded cuts s to maxDigestChars runes.
func bounded(s string) string {
	r := []rune(s)
	if len(r) <= maxDigestChars {
		return s
	}
	return string(r[:maxDigestChars])
}

func oneLine(v string) string {
	return strings.ReplaceAll(v, "\n", " ")
}

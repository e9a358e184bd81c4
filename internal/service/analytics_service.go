package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lexhub/comms-audit/internal/domain"
	"github.com/lexhub/comms-audit/internal/persistence"
	"github.com/lexhub/comms-audit/internal/repository"
	apperrors "github.com/lexhub/comms-audit/pkg/util/errorutil"
)

// DefaultTopAgents is the leaderboard size when none is requested.
const DefaultTopAgents = 5

// AnalyticsOverview bundles the report the operational hub renders.
type AnalyticsOverview struct {
	Daily     []domain.DailyCount `json:"daily"`
	TopAgents []domain.AgentCount `json:"top_agents"`
	Roles     []domain.RoleCount  `json:"roles"`
}

// AnalyticsService computes read-only aggregations over the audit log.
// Responses are cached in Redis with a short TTL; slightly stale numbers are
// acceptable for reporting.
type AnalyticsService struct {
	store  repository.LogStore
	cache  *persistence.Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewAnalyticsService constructs the service. cache may be nil.
func NewAnalyticsService(store repository.LogStore, cache *persistence.Redis, ttl time.Duration, logger *zap.Logger) *AnalyticsService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &AnalyticsService{store: store, cache: cache, ttl: ttl, logger: logger}
}

// DailySeries returns one bucket per day over [from, to] inclusive, zero
// filling days without data so the series never skips a day.
func (s *AnalyticsService) DailySeries(ctx context.Context, from, to time.Time) ([]domain.DailyCount, error) {
	fromDay := from.UTC().Truncate(24 * time.Hour)
	toDay := to.UTC().Truncate(24 * time.Hour)
	if fromDay.After(toDay) {
		return nil, apperrors.NewValidationError("date range start is after end", map[string]any{
			"from": from,
			"to":   to,
		})
	}

	cacheKey := fmt.Sprintf("analytics:daily:%s:%s",
		fromDay.Format("2006-01-02"), toDay.Format("2006-01-02"))
	var series []domain.DailyCount
	if s.cacheGet(ctx, cacheKey, &series) {
		return series, nil
	}

	counts, err := s.store.DailyCounts(ctx, fromDay, toDay.AddDate(0, 0, 1))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	byDay := make(map[time.Time]domain.DailyCount, len(counts))
	for _, c := range counts {
		byDay[c.Day.UTC().Truncate(24*time.Hour)] = c
	}

	series = make([]domain.DailyCount, 0, int(toDay.Sub(fromDay).Hours()/24)+1)
	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		bucket := domain.DailyCount{Day: day}
		if c, ok := byDay[day]; ok {
			bucket.Sent = c.Sent
			bucket.Failed = c.Failed
		}
		series = append(series, bucket)
	}

	s.cacheSet(ctx, cacheKey, series)
	return series, nil
}

// TopAgents returns the n busiest agents, ties broken by agent id.
func (s *AnalyticsService) TopAgents(ctx context.Context, n int) ([]domain.AgentCount, error) {
	if n <= 0 {
		n = DefaultTopAgents
	}
	cacheKey := fmt.Sprintf("analytics:topagents:%d", n)
	var agents []domain.AgentCount
	if s.cacheGet(ctx, cacheKey, &agents) {
		return agents, nil
	}

	agents, err := s.store.TopAgents(ctx, n)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if agents == nil {
		agents = []domain.AgentCount{}
	}
	s.cacheSet(ctx, cacheKey, agents)
	return agents, nil
}

// RoleDistribution returns per-role record counts over all time.
func (s *AnalyticsService) RoleDistribution(ctx context.Context) ([]domain.RoleCount, error) {
	const cacheKey = "analytics:roles"
	var roles []domain.RoleCount
	if s.cacheGet(ctx, cacheKey, &roles) {
		return roles, nil
	}

	roles, err := s.store.RoleCounts(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if roles == nil {
		roles = []domain.RoleCount{}
	}
	s.cacheSet(ctx, cacheKey, roles)
	return roles, nil
}

// Overview combines the three aggregations for the hub's dashboard.
func (s *AnalyticsService) Overview(ctx context.Context, from, to time.Time) (*AnalyticsOverview, error) {
	daily, err := s.DailySeries(ctx, from, to)
	if err != nil {
		return nil, err
	}
	topAgents, err := s.TopAgents(ctx, DefaultTopAgents)
	if err != nil {
		return nil, err
	}
	roles, err := s.RoleDistribution(ctx)
	if err != nil {
		return nil, err
	}
	return &AnalyticsOverview{Daily: daily, TopAgents: topAgents, Roles: roles}, nil
}

// cacheGet loads a cached value; any cache trouble is a miss, never an error.
func (s *AnalyticsService) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil || s.cache.Client == nil {
		return false
	}
	raw, err := s.cache.Client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Debug("discarding malformed analytics cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Debug("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
}

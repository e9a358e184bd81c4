package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexhub/comms-audit/internal/domain"
	apperrors "github.com/lexhub/comms-audit/pkg/util/errorutil"
)

func jan(day int) time.Time {
	return time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestDailySeriesZeroFillsEveryDay(t *testing.T) {
	store := seededStore(
		testEntry("d1", func(e *domain.LogEntry) { e.Timestamp = jan(1).Add(9 * time.Hour); e.Status = domain.StatusSent }),
		testEntry("d2", func(e *domain.LogEntry) { e.Timestamp = jan(1).Add(15 * time.Hour); e.Status = domain.StatusSent }),
		testEntry("d3", func(e *domain.LogEntry) { e.Timestamp = jan(2).Add(3 * time.Hour); e.Status = domain.StatusFailed }),
	)
	svc := NewAnalyticsService(store, nil, time.Minute, nopLogger())

	series, err := svc.DailySeries(context.Background(), jan(1), jan(3))

	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, domain.DailyCount{Day: jan(1), Sent: 2, Failed: 0}, series[0])
	assert.Equal(t, domain.DailyCount{Day: jan(2), Sent: 0, Failed: 1}, series[1])
	assert.Equal(t, domain.DailyCount{Day: jan(3), Sent: 0, Failed: 0}, series[2])
}

func TestDailySeriesRejectsInvertedRange(t *testing.T) {
	svc := NewAnalyticsService(seededStore(), nil, time.Minute, nopLogger())

	_, err := svc.DailySeries(context.Background(), jan(5), jan(2))

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestDailySeriesSingleDayRange(t *testing.T) {
	svc := NewAnalyticsService(seededStore(), nil, time.Minute, nopLogger())

	series, err := svc.DailySeries(context.Background(), jan(4), jan(4))

	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, jan(4), series[0].Day)
}

func TestTopAgentsDefaultsAndOrders(t *testing.T) {
	store := seededStore(
		testEntry("t1", func(e *domain.LogEntry) { e.AgentID = "a2" }),
		testEntry("t2", func(e *domain.LogEntry) { e.AgentID = "a2" }),
		testEntry("t3", func(e *domain.LogEntry) { e.AgentID = "a1" }),
		testEntry("t4", func(e *domain.LogEntry) { e.AgentID = "a1" }),
		testEntry("t5", func(e *domain.LogEntry) { e.AgentID = "a3" }),
	)
	svc := NewAnalyticsService(store, nil, time.Minute, nopLogger())

	top, err := svc.TopAgents(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, domain.AgentCount{AgentID: "a1", Count: 2}, top[0])
	assert.Equal(t, domain.AgentCount{AgentID: "a2", Count: 2}, top[1])
	assert.Equal(t, domain.AgentCount{AgentID: "a3", Count: 1}, top[2])
}

func TestRoleDistributionCountsAllTime(t *testing.T) {
	store := seededStore(
		testEntry("r1", func(e *domain.LogEntry) { e.AgentRole = domain.RoleSupervisor }),
		testEntry("r2", func(e *domain.LogEntry) { e.AgentRole = domain.RoleAgent }),
		testEntry("r3", func(e *domain.LogEntry) { e.AgentRole = domain.RoleAgent }),
	)
	svc := NewAnalyticsService(store, nil, time.Minute, nopLogger())

	roles, err := svc.RoleDistribution(context.Background())

	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, domain.RoleCount{Role: domain.RoleAgent, Count: 2}, roles[0])
	assert.Equal(t, domain.RoleCount{Role: domain.RoleSupervisor, Count: 1}, roles[1])
}

func TestOverviewCombinesAllAggregations(t *testing.T) {
	store := seededStore(
		testEntry("o1", func(e *domain.LogEntry) { e.Timestamp = jan(1); e.Status = domain.StatusDelivered }),
	)
	svc := NewAnalyticsService(store, nil, time.Minute, nopLogger())

	overview, err := svc.Overview(context.Background(), jan(1), jan(2))

	require.NoError(t, err)
	assert.Len(t, overview.Daily, 2)
	assert.Len(t, overview.TopAgents, 1)
	assert.Len(t, overview.Roles, 1)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexhub/comms-audit/internal/domain"
	"github.com/lexhub/comms-audit/internal/repository"
	apperrors "github.com/lexhub/comms-audit/pkg/util/errorutil"
)

func TestQueryRejectsInvertedDateRange(t *testing.T) {
	svc := NewAuditQueryService(seededStore(), testBackoff(), nopLogger())

	from := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -3)
	_, err := svc.Query(context.Background(), repository.LogFilter{From: &from, To: &to}, 1, 10)

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestQueryEmptyFilterReturnsNewestFirst(t *testing.T) {
	store := seededStore(
		testEntry("old", func(e *domain.LogEntry) {
			e.Timestamp = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		}),
		testEntry("new", func(e *domain.LogEntry) {
			e.Timestamp = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
		}),
	)
	svc := NewAuditQueryService(store, testBackoff(), nopLogger())

	result, err := svc.Query(context.Background(), repository.LogFilter{}, 0, 0)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, DefaultPageSize, result.Limit)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "new", result.Entries[0].ID)
}

func TestQueryClampsOversizedLimit(t *testing.T) {
	svc := NewAuditQueryService(seededStore(), testBackoff(), nopLogger())

	result, err := svc.Query(context.Background(), repository.LogFilter{}, 1, 10_000)

	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, result.Limit)
}

func TestQueryPageBeyondDataReturnsEmptyPage(t *testing.T) {
	svc := NewAuditQueryService(seededStore(testEntry("e1", nil)), testBackoff(), nopLogger())

	result, err := svc.Query(context.Background(), repository.LogFilter{}, 40, 10)

	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.Equal(t, 1, result.Total)
}

func TestQueryNoMatchingRecords(t *testing.T) {
	store := seededStore(testEntry("e1", func(e *domain.LogEntry) {
		e.Status = domain.StatusSent
		e.AgentID = "A2"
	}))
	svc := NewAuditQueryService(store, testBackoff(), nopLogger())

	failed := domain.StatusFailed
	agent := "A1"
	result, err := svc.Query(context.Background(), repository.LogFilter{Status: &failed, AgentID: &agent}, 1, 10)

	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.Zero(t, result.Total)
}

func TestQueryStatsComputedOverFilteredPredicate(t *testing.T) {
	store := seededStore(
		testEntry("s1", func(e *domain.LogEntry) { e.Status = domain.StatusDelivered; e.AgentID = "a1" }),
		testEntry("s2", func(e *domain.LogEntry) { e.Status = domain.StatusFailed; e.AgentID = "a1" }),
		testEntry("s3", func(e *domain.LogEntry) { e.Status = domain.StatusFailed; e.AgentID = "a2" }),
	)
	svc := NewAuditQueryService(store, testBackoff(), nopLogger())

	agent := "a1"
	result, err := svc.Query(context.Background(), repository.LogFilter{AgentID: &agent}, 1, 1)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, result.Entries, 1)
	assert.Equal(t, 1, result.Stats.TotalSent)
	assert.Equal(t, 1, result.Stats.TotalFailed)
	assert.Equal(t, 1, result.Stats.ActiveAgents)
}

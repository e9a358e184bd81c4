package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexhub/comms-audit/internal/domain"
	apperrors "github.com/lexhub/comms-audit/pkg/util/errorutil"
)

func TestByAgentReturnsOnlyThatAgentNewestFirst(t *testing.T) {
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	store := seededStore(
		testEntry("h1", func(e *domain.LogEntry) { e.AgentID = "a1"; e.Timestamp = base }),
		testEntry("h2", func(e *domain.LogEntry) { e.AgentID = "a1"; e.Timestamp = base.Add(time.Hour) }),
		testEntry("h3", func(e *domain.LogEntry) { e.AgentID = "a2"; e.Timestamp = base.Add(2 * time.Hour) }),
	)
	svc := NewAgentHistoryService(store, testBackoff(), nopLogger())

	entries, err := svc.ByAgent(context.Background(), "a1", 0)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "h2", entries[0].ID)
	assert.Equal(t, "h1", entries[1].ID)
}

func TestByAgentUnknownAgentYieldsEmptyList(t *testing.T) {
	svc := NewAgentHistoryService(seededStore(testEntry("h1", nil)), testBackoff(), nopLogger())

	entries, err := svc.ByAgent(context.Background(), "nobody", 0)

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestByAgentRejectsBlankAgentID(t *testing.T) {
	svc := NewAgentHistoryService(seededStore(), testBackoff(), nopLogger())

	_, err := svc.ByAgent(context.Background(), "  ", 0)

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestByAgentClampsLimit(t *testing.T) {
	entries := make([]domain.LogEntry, 0, MaxAgentHistoryLimit+10)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxAgentHistoryLimit+10; i++ {
		i := i
		entries = append(entries, testEntry(fmt.Sprintf("h%04d", i), func(e *domain.LogEntry) {
			e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		}))
	}
	svc := NewAgentHistoryService(seededStore(entries...), testBackoff(), nopLogger())

	got, err := svc.ByAgent(context.Background(), "agent-1", MaxAgentHistoryLimit*2)

	require.NoError(t, err)
	assert.Len(t, got, MaxAgentHistoryLimit)
}

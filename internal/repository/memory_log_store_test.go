package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexhub/comms-audit/internal/domain"
)

func seedEntry(id string, mutate func(*domain.LogEntry)) domain.LogEntry {
	entry := domain.LogEntry{
		ID:          id,
		AgentID:     "agent-1",
		AgentName:   "Dana Reyes",
		AgentEmail:  "dana@example.com",
		AgentRole:   domain.RoleAgent,
		AgentStatus: domain.AgentActive,
		Action:      "EMAIL_SENT",
		Type:        "EMAIL",
		Recipient:   "client@example.com",
		Subject:     "Case update",
		Content:     "Hello",
		Status:      domain.StatusSent,
		Timestamp:   time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(&entry)
	}
	return entry
}

func TestQueryFiltersCombineWithAND(t *testing.T) {
	store := NewMemoryLogStore()
	store.Insert(seedEntry("e1", func(e *domain.LogEntry) {
		e.Status = domain.StatusFailed
		e.AgentID = "a1"
	}))
	store.Insert(seedEntry("e2", func(e *domain.LogEntry) {
		e.Status = domain.StatusFailed
		e.AgentID = "a2"
	}))
	store.Insert(seedEntry("e3", func(e *domain.LogEntry) {
		e.Status = domain.StatusSent
		e.AgentID = "a1"
	}))

	failed := domain.StatusFailed
	agent := "a1"
	entries, total, _, err := store.Query(context.Background(), LogFilter{Status: &failed, AgentID: &agent}, 1, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
}

func TestQueryNoMatchesReturnsEmpty(t *testing.T) {
	store := NewMemoryLogStore()
	store.Insert(seedEntry("e1", func(e *domain.LogEntry) { e.Status = domain.StatusSent; e.AgentID = "a2" }))

	failed := domain.StatusFailed
	agent := "a1"
	entries, total, stats, err := store.Query(context.Background(), LogFilter{Status: &failed, AgentID: &agent}, 1, 10)

	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, total)
	assert.Zero(t, stats.TotalSent)
	assert.Zero(t, stats.TotalFailed)
}

func TestQuerySearchMatchesRecipientSubjectOrAgentName(t *testing.T) {
	store := NewMemoryLogStore()
	store.Insert(seedEntry("e1", func(e *domain.LogEntry) { e.Recipient = "maria@client.example" }))
	store.Insert(seedEntry("e2", func(e *domain.LogEntry) { e.Subject = "Maria contract review" }))
	store.Insert(seedEntry("e3", func(e *domain.LogEntry) { e.AgentName = "Maria Lopez" }))
	store.Insert(seedEntry("e4", nil))

	search := "maria"
	_, total, _, err := store.Query(context.Background(), LogFilter{Search: &search}, 1, 10)

	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestQueryDateRangeInclusive(t *testing.T) {
	store := NewMemoryLogStore()
	day := func(d int) time.Time { return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC) }
	for d := 1; d <= 5; d++ {
		id := fmt.Sprintf("e%d", d)
		ts := day(d)
		store.Insert(seedEntry(id, func(e *domain.LogEntry) { e.Timestamp = ts }))
	}

	from, to := day(2), day(4)
	entries, total, _, err := store.Query(context.Background(), LogFilter{From: &from, To: &to}, 1, 10)

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "e4", entries[0].ID)
	assert.Equal(t, "e2", entries[2].ID)
}

func TestQueryOrderingNewestFirstTiesByID(t *testing.T) {
	store := NewMemoryLogStore()
	ts := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	store.Insert(seedEntry("b", func(e *domain.LogEntry) { e.Timestamp = ts }))
	store.Insert(seedEntry("a", func(e *domain.LogEntry) { e.Timestamp = ts }))
	store.Insert(seedEntry("c", func(e *domain.LogEntry) { e.Timestamp = ts.Add(time.Hour) }))

	entries, _, _, err := store.Query(context.Background(), LogFilter{}, 1, 10)

	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "a", entries[1].ID)
	assert.Equal(t, "b", entries[2].ID)
}

func TestQueryPaginationCoversEveryIDOnce(t *testing.T) {
	store := NewMemoryLogStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	const n = 23
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("e%02d", i)
		ts := base.Add(time.Duration(i) * time.Minute)
		store.Insert(seedEntry(id, func(e *domain.LogEntry) { e.Timestamp = ts }))
	}

	const limit = 5
	seen := make(map[string]int)
	var previous *time.Time
	for page := 1; page <= 5; page++ {
		entries, total, _, err := store.Query(context.Background(), LogFilter{}, page, limit)
		require.NoError(t, err)
		assert.Equal(t, n, total)
		for i := range entries {
			seen[entries[i].ID]++
			if previous != nil {
				assert.False(t, entries[i].Timestamp.After(*previous), "descending order violated")
			}
			ts := entries[i].Timestamp
			previous = &ts
		}
	}
	assert.Len(t, seen, n)
	for id, count := range seen {
		assert.Equal(t, 1, count, "id %s appeared %d times", id, count)
	}
}

func TestQueryPageBeyondDataIsEmptyNotError(t *testing.T) {
	store := NewMemoryLogStore()
	store.Insert(seedEntry("e1", nil))

	entries, total, _, err := store.Query(context.Background(), LogFilter{}, 9, 10)

	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 1, total)
}

func TestQueryStatsCoverFilteredSetNotPage(t *testing.T) {
	store := NewMemoryLogStore()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("s%d", i)
		ts := base.Add(time.Duration(i) * time.Minute)
		status := domain.StatusSent
		if i%2 == 0 {
			status = domain.StatusFailed
		}
		agent := fmt.Sprintf("a%d", i%3)
		store.Insert(seedEntry(id, func(e *domain.LogEntry) {
			e.Timestamp = ts
			e.Status = status
			e.AgentID = agent
		}))
	}

	entries, total, stats, err := store.Query(context.Background(), LogFilter{}, 1, 2)

	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 6, total)
	assert.Equal(t, 3, stats.TotalSent)
	assert.Equal(t, 3, stats.TotalFailed)
	assert.Equal(t, 3, stats.ActiveAgents)
}

func TestGetByIDUnknownReturnsNotFound(t *testing.T) {
	store := NewMemoryLogStore()

	_, err := store.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByAgentIgnoresFiltersAndCaps(t *testing.T) {
	store := NewMemoryLogStore()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("m%d", i)
		ts := base.Add(time.Duration(i) * time.Hour)
		store.Insert(seedEntry(id, func(e *domain.LogEntry) {
			e.AgentID = "mailbox-agent"
			e.Timestamp = ts
		}))
	}
	store.Insert(seedEntry("other", func(e *domain.LogEntry) { e.AgentID = "someone-else" }))

	entries, err := store.GetByAgent(context.Background(), "mailbox-agent", 5)

	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "m6", entries[0].ID)
	for _, e := range entries {
		assert.Equal(t, "mailbox-agent", e.AgentID)
	}
}

func TestAppendHistoryGrowsInOrder(t *testing.T) {
	store := NewMemoryLogStore()
	store.Insert(seedEntry("e1", nil))

	for i := 0; i < 3; i++ {
		err := store.AppendHistory(context.Background(), "e1", domain.HistoryEvent{
			ID:        fmt.Sprintf("h%d", i),
			Action:    "Callback",
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	entry, err := store.GetByID(context.Background(), "e1")
	require.NoError(t, err)
	require.Len(t, entry.History, 3)
	assert.Equal(t, "h0", entry.History[0].ID)
	assert.Equal(t, "h2", entry.History[2].ID)
}

func TestAppendHistoryUnknownIDReturnsNotFound(t *testing.T) {
	store := NewMemoryLogStore()

	err := store.AppendHistory(context.Background(), "missing", domain.HistoryEvent{ID: "h1"})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompareAndSwapRetryEdgeIncrementsRetryCount(t *testing.T) {
	store := NewMemoryLogStore()
	store.Insert(seedEntry("e1", func(e *domain.LogEntry) {
		e.Status = domain.StatusFailed
		e.RetryCount = 2
	}))

	updated, err := store.CompareAndSwapStatus(context.Background(), "e1", domain.StatusFailed, domain.StatusPending)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, updated.Status)
	assert.Equal(t, 3, updated.RetryCount)
}

func TestCompareAndSwapNonRetryEdgeKeepsRetryCount(t *testing.T) {
	store := NewMemoryLogStore()
	store.Insert(seedEntry("e1", func(e *domain.LogEntry) { e.Status = domain.StatusSent }))

	updated, err := store.CompareAndSwapStatus(context.Background(), "e1", domain.StatusSent, domain.StatusDelivered)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, updated.Status)
	assert.Zero(t, updated.RetryCount)
	require.NotNil(t, updated.DeliveryTime)
}

func TestCompareAndSwapMismatchedStatusConflicts(t *testing.T) {
	store := NewMemoryLogStore()
	store.Insert(seedEntry("e1", func(e *domain.LogEntry) { e.Status = domain.StatusSent }))

	_, err := store.CompareAndSwapStatus(context.Background(), "e1", domain.StatusFailed, domain.StatusPending)

	assert.ErrorIs(t, err, ErrConflict)
}

func TestCompareAndSwapUnknownIDReturnsNotFound(t *testing.T) {
	store := NewMemoryLogStore()

	_, err := store.CompareAndSwapStatus(context.Background(), "missing", domain.StatusFailed, domain.StatusPending)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentCompareAndSwapExactlyOneWins(t *testing.T) {
	store := NewMemoryLogStore()
	store.Insert(seedEntry("e1", func(e *domain.LogEntry) { e.Status = domain.StatusFailed }))

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CompareAndSwapStatus(context.Background(), "e1", domain.StatusFailed, domain.StatusPending)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		if err == nil {
			wins++
		} else if assert.ErrorIs(t, err, ErrConflict) {
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)

	entry, err := store.GetByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.RetryCount)
}

func TestDailyCountsBucketsByUTCDay(t *testing.T) {
	store := NewMemoryLogStore()
	jan := func(d, h int) time.Time { return time.Date(2026, 1, d, h, 0, 0, 0, time.UTC) }
	store.Insert(seedEntry("d1", func(e *domain.LogEntry) { e.Timestamp = jan(1, 8); e.Status = domain.StatusSent }))
	store.Insert(seedEntry("d2", func(e *domain.LogEntry) { e.Timestamp = jan(1, 20); e.Status = domain.StatusDelivered }))
	store.Insert(seedEntry("d3", func(e *domain.LogEntry) { e.Timestamp = jan(2, 3); e.Status = domain.StatusFailed }))
	store.Insert(seedEntry("d4", func(e *domain.LogEntry) { e.Timestamp = jan(9, 3) }))

	counts, err := store.DailyCounts(context.Background(), jan(1, 0), jan(4, 0))

	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, jan(1, 0), counts[0].Day)
	assert.Equal(t, 2, counts[0].Sent)
	assert.Zero(t, counts[0].Failed)
	assert.Equal(t, jan(2, 0), counts[1].Day)
	assert.Equal(t, 1, counts[1].Failed)
}

func TestTopAgentsSortsByCountThenID(t *testing.T) {
	store := NewMemoryLogStore()
	seedCounts := map[string]int{"a-charlie": 2, "a-alpha": 3, "a-bravo": 3, "a-delta": 1}
	i := 0
	for agent, count := range seedCounts {
		for j := 0; j < count; j++ {
			id := fmt.Sprintf("t%d", i)
			store.Insert(seedEntry(id, func(e *domain.LogEntry) { e.AgentID = agent }))
			i++
		}
	}

	top, err := store.TopAgents(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "a-alpha", top[0].AgentID)
	assert.Equal(t, "a-bravo", top[1].AgentID)
	assert.Equal(t, "a-charlie", top[2].AgentID)
}

func TestRoleCountsCoverAllTime(t *testing.T) {
	store := NewMemoryLogStore()
	store.Insert(seedEntry("r1", func(e *domain.LogEntry) { e.AgentRole = domain.RoleAgent }))
	store.Insert(seedEntry("r2", func(e *domain.LogEntry) { e.AgentRole = domain.RoleAgent }))
	store.Insert(seedEntry("r3", func(e *domain.LogEntry) { e.AgentRole = domain.RoleAdmin }))

	roles, err := store.RoleCounts(context.Background())

	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, domain.RoleAgent, roles[0].Role)
	assert.Equal(t, 2, roles[0].Count)
	assert.Equal(t, domain.RoleAdmin, roles[1].Role)
}

func TestInsertFillsIntegrityHash(t *testing.T) {
	store := NewMemoryLogStore()
	store.Insert(seedEntry("e1", nil))

	entry, err := store.GetByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.IntegrityHash)
	assert.True(t, domain.VerifyIntegrity(entry))
}

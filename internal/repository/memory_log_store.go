package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lexhub/comms-audit/internal/domain"
)

// MemoryLogStore is a mutex-guarded in-memory LogStore. It backs local
// development when no Postgres DSN is configured, and the test suites. Its
// filter, ordering and CAS semantics are the reference behavior the Postgres
// store must match.
type MemoryLogStore struct {
	mu      sync.RWMutex
	entries map[string]*domain.LogEntry
}

// NewMemoryLogStore builds an empty store.
func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{entries: make(map[string]*domain.LogEntry)}
}

// Insert seeds a record. Dispatch-time creation belongs to the upstream
// sender, so Insert is not part of the LogStore contract; it exists for
// dev-mode seeding and tests. The integrity hash is filled in when absent.
func (s *MemoryLogStore) Insert(entry domain.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.IntegrityHash == "" {
		entry.IntegrityHash = domain.ComputeIntegrityHash(&entry)
	}
	s.entries[entry.ID] = &entry
}

// Len reports the number of stored records.
func (s *MemoryLogStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryLogStore) Query(ctx context.Context, filter LogFilter, page, limit int) ([]domain.LogEntry, int, domain.QueryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.LogEntry, 0, len(s.entries))
	agents := make(map[string]struct{})
	var stats domain.QueryStats
	for _, e := range s.entries {
		if !matchesFilter(e, filter) {
			continue
		}
		matched = append(matched, e)
		agents[e.AgentID] = struct{}{}
		if e.Status.SentLike() {
			stats.TotalSent++
		}
		if e.Status == domain.StatusFailed {
			stats.TotalFailed++
		}
	}
	stats.ActiveAgents = len(agents)

	sortNewestFirst(matched)

	total := len(matched)
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= total {
		return []domain.LogEntry{}, total, stats, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	out := make([]domain.LogEntry, 0, end-start)
	for _, e := range matched[start:end] {
		out = append(out, cloneEntry(e))
	}
	return out, total, stats, nil
}

func matchesFilter(e *domain.LogEntry, filter LogFilter) bool {
	if filter.AgentID != nil && e.AgentID != *filter.AgentID {
		return false
	}
	if filter.Role != nil && e.AgentRole != *filter.Role {
		return false
	}
	if filter.Action != nil && e.Action != *filter.Action {
		return false
	}
	if filter.Status != nil && e.Status != *filter.Status {
		return false
	}
	if filter.From != nil && e.Timestamp.Before(*filter.From) {
		return false
	}
	if filter.To != nil && e.Timestamp.After(*filter.To) {
		return false
	}
	if filter.Search != nil {
		needle := strings.ToLower(strings.TrimSpace(*filter.Search))
		if needle != "" {
			haystacks := []string{e.Recipient, e.Subject, e.AgentName}
			found := false
			for _, h := range haystacks {
				if strings.Contains(strings.ToLower(h), needle) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func sortNewestFirst(entries []*domain.LogEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

func (s *MemoryLogStore) GetByID(ctx context.Context, id string) (*domain.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := cloneEntry(e)
	return &clone, nil
}

func (s *MemoryLogStore) GetByAgent(ctx context.Context, agentID string, limit int) ([]domain.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.LogEntry, 0)
	for _, e := range s.entries {
		if e.AgentID == agentID {
			matched = append(matched, e)
		}
	}
	sortNewestFirst(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]domain.LogEntry, 0, len(matched))
	for _, e := range matched {
		out = append(out, cloneEntry(e))
	}
	return out, nil
}

func (s *MemoryLogStore) AppendHistory(ctx context.Context, id string, event domain.HistoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	event.LogID = id
	e.History = append(e.History, event)
	return nil
}

func (s *MemoryLogStore) CompareAndSwapStatus(ctx context.Context, id string, expected, next domain.DeliveryStatus) (*domain.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.Status != expected {
		return nil, ErrConflict
	}
	e.Status = next
	now := time.Now().UTC()
	switch {
	case expected == domain.StatusFailed && next == domain.StatusPending:
		e.RetryCount++
	case next == domain.StatusDelivered:
		e.DeliveryTime = &now
	case next == domain.StatusOpened:
		e.OpenTime = &now
	case next == domain.StatusClicked:
		e.ClickTime = &now
	}
	clone := cloneEntry(e)
	return &clone, nil
}

func (s *MemoryLogStore) DailyCounts(ctx context.Context, from, to time.Time) ([]domain.DailyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make(map[time.Time]*domain.DailyCount)
	for _, e := range s.entries {
		ts := e.Timestamp.UTC()
		if ts.Before(from) || !ts.Before(to) {
			continue
		}
		day := ts.Truncate(24 * time.Hour)
		bucket, ok := buckets[day]
		if !ok {
			bucket = &domain.DailyCount{Day: day}
			buckets[day] = bucket
		}
		if e.Status.SentLike() {
			bucket.Sent++
		}
		if e.Status == domain.StatusFailed {
			bucket.Failed++
		}
	}

	result := make([]domain.DailyCount, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day.Before(result[j].Day) })
	return result, nil
}

func (s *MemoryLogStore) TopAgents(ctx context.Context, n int) ([]domain.AgentCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.entries {
		counts[e.AgentID]++
	}
	result := make([]domain.AgentCount, 0, len(counts))
	for id, c := range counts {
		result = append(result, domain.AgentCount{AgentID: id, Count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count == result[j].Count {
			return result[i].AgentID < result[j].AgentID
		}
		return result[i].Count > result[j].Count
	})
	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result, nil
}

func (s *MemoryLogStore) RoleCounts(ctx context.Context) ([]domain.RoleCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.AgentRole]int)
	for _, e := range s.entries {
		counts[e.AgentRole]++
	}
	result := make([]domain.RoleCount, 0, len(counts))
	for role, c := range counts {
		result = append(result, domain.RoleCount{Role: role, Count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count == result[j].Count {
			return result[i].Role < result[j].Role
		}
		return result[i].Count > result[j].Count
	})
	return result, nil
}

func cloneEntry(e *domain.LogEntry) domain.LogEntry {
	clone := *e
	if e.History != nil {
		clone.History = make([]domain.HistoryEvent, len(e.History))
		copy(clone.History, e.History)
	}
	return clone
}

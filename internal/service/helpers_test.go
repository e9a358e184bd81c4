package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lexhub/comms-audit/internal/domain"
	"github.com/lexhub/comms-audit/internal/repository"
	"github.com/lexhub/comms-audit/internal/retry"
)

func testBackoff() *retry.Backoff {
	return retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  3,
	})
}

func testEntry(id string, mutate func(*domain.LogEntry)) domain.LogEntry {
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
		Content:     "Hello there",
		Status:      domain.StatusSent,
		Timestamp:   time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(&entry)
	}
	return entry
}

func seededStore(entries ...domain.LogEntry) *repository.MemoryLogStore {
	store := repository.NewMemoryLogStore()
	for _, e := range entries {
		store.Insert(e)
	}
	return store
}

// fakeTicketAPI scripts the external ticket service for thread tests.
type fakeTicketAPI struct {
	ticket *domain.Ticket
	err    error
	delay  time.Duration
	calls  int
}

func (f *fakeTicketAPI) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.ticket, nil
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

func strptr(s string) *string {
	return &s
}

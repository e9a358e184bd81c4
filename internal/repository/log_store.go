package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lexhub/comms-audit/internal/domain"
)

// Store-level sentinels; services translate these into API errors.
var (
	// ErrNotFound indicates an unknown record id.
	ErrNotFound = errors.New("log entry not found")
	// ErrConflict indicates a compare-and-swap lost against a concurrent writer.
	ErrConflict = errors.New("concurrent status modification")
)

// LogFilter captures audit search parameters. All fields are optional and
// combine with logical AND.
type LogFilter struct {
	Search  *string
	AgentID *string
	Role    *domain.AgentRole
	Action  *string
	Status  *domain.DeliveryStatus
	From    *time.Time
	To      *time.Time
}

// LogStore is the persistence contract for the audit log. Records are
// append-only: stores expose no delete, and history never shrinks.
//
// CompareAndSwapStatus performs the atomic status transition serializing
// concurrent writers per record id. When the edge is the retry edge
// (FAILED -> PENDING) the same atomic operation increments the retry count,
// so an accepted retry bumps it by exactly one. It returns the updated
// entry, ErrConflict when the record's status no longer matches expected,
// or ErrNotFound.
type LogStore interface {
	Query(ctx context.Context, filter LogFilter, page, limit int) ([]domain.LogEntry, int, domain.QueryStats, error)
	GetByID(ctx context.Context, id string) (*domain.LogEntry, error)
	GetByAgent(ctx context.Context, agentID string, limit int) ([]domain.LogEntry, error)
	AppendHistory(ctx context.Context, id string, event domain.HistoryEvent) error
	CompareAndSwapStatus(ctx context.Context, id string, expected, next domain.DeliveryStatus) (*domain.LogEntry, error)

	DailyCounts(ctx context.Context, from, to time.Time) ([]domain.DailyCount, error)
	TopAgents(ctx context.Context, n int) ([]domain.AgentCount, error)
	RoleCounts(ctx context.Context) ([]domain.RoleCount, error)
}

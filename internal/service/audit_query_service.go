package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/lexhub/comms-audit/internal/domain"
	"github.com/lexhub/comms-audit/internal/repository"
	"github.com/lexhub/comms-audit/internal/retry"
	apperrors "github.com/lexhub/comms-audit/pkg/util/errorutil"
)

const (
	// DefaultPageSize applies when the caller does not size the page.
	DefaultPageSize = 20
	// MaxPageSize bounds a single page regardless of the request.
	MaxPageSize = 100
)

// QueryResult is one page of the filtered audit table plus aggregates over
// the whole filtered set.
type QueryResult struct {
	Entries []domain.LogEntry
	Total   int
	Stats   domain.QueryStats
	Page    int
	Limit   int
}

// AuditQueryService executes paginated multi-predicate queries against the
// audit log.
type AuditQueryService struct {
	store   repository.LogStore
	backoff *retry.Backoff
	logger  *zap.Logger
}

// NewAuditQueryService constructs the service.
func NewAuditQueryService(store repository.LogStore, backoff *retry.Backoff, logger *zap.Logger) *AuditQueryService {
	return &AuditQueryService{store: store, backoff: backoff, logger: logger}
}

// Query validates the filter, clamps pagination and returns the requested
// page newest-first. A page past the end of the data is an empty page with
// the correct total, not an error.
func (s *AuditQueryService) Query(ctx context.Context, filter repository.LogFilter, page, limit int) (*QueryResult, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, apperrors.NewValidationError("date range start is after end", map[string]any{
			"from": filter.From,
			"to":   filter.To,
		})
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	var (
		entries []domain.LogEntry
		total   int
		stats   domain.QueryStats
	)
	err := s.backoff.RetryWithPredicate(ctx, func() error {
		var qerr error
		entries, total, stats, qerr = s.store.Query(ctx, filter, page, limit)
		return qerr
	}, isTransient)
	if err != nil {
		s.logger.Error("audit query failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	if entries == nil {
		entries = []domain.LogEntry{}
	}

	return &QueryResult{Entries: entries, Total: total, Stats: stats, Page: page, Limit: limit}, nil
}

// isTransient gates read-path retries: domain misses and cancelled contexts
// get no second attempt, anything else is assumed transient.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

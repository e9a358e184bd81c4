package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexhub/comms-audit/internal/domain"
	"github.com/lexhub/comms-audit/internal/events"
	"github.com/lexhub/comms-audit/internal/repository"
	"github.com/lexhub/comms-audit/internal/retry"
	apperrors "github.com/lexhub/comms-audit/pkg/util/errorutil"
)

// RedispatchService drives the delivery-status state machine for operator
// retries. Concurrency control is the store's compare-and-swap: of two racing
// retries on one record, exactly one wins.
type RedispatchService struct {
	store      repository.LogStore
	dispatcher events.Dispatcher
	backoff    *retry.Backoff
	logger     *zap.Logger
}

// NewRedispatchService constructs the service.
func NewRedispatchService(store repository.LogStore, dispatcher events.Dispatcher, backoff *retry.Backoff, logger *zap.Logger) *RedispatchService {
	return &RedispatchService{store: store, dispatcher: dispatcher, backoff: backoff, logger: logger}
}

// Retry requeues a failed delivery and returns the new retry count.
// Only FAILED records may be retried; a record already transitioned by a
// concurrent caller yields a conflict.
func (s *RedispatchService) Retry(ctx context.Context, id, performedBy string) (int, error) {
	entry, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperrors.NewNotFound("log entry", map[string]any{"id": id})
		}
		return 0, apperrors.NewInternalError(err)
	}
	if entry.Status != domain.StatusFailed {
		return 0, apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot retry delivery in status %s", entry.Status),
			map[string]any{"status": entry.Status})
	}

	updated, err := s.store.CompareAndSwapStatus(ctx, id, domain.StatusFailed, domain.StatusPending)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return 0, apperrors.NewConflict("delivery was already transitioned by a concurrent operation", map[string]any{"id": id})
		case errors.Is(err, repository.ErrNotFound):
			return 0, apperrors.NewNotFound("log entry", map[string]any{"id": id})
		}
		return 0, apperrors.NewInternalError(err)
	}

	s.appendHistory(ctx, id, domain.HistoryEvent{
		ID:          uuid.NewString(),
		LogID:       id,
		Action:      "Retry",
		PerformedBy: performedBy,
		Details:     "Manual redispatch requested",
		CreatedAt:   time.Now().UTC(),
	})

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventRetryRequested,
		LogID:     id,
		Actor:     performedBy,
		Timestamp: time.Now().UTC(),
		Payload: events.RetryRequestedPayload{
			AgentID:    updated.AgentID,
			Recipient:  updated.Recipient,
			RetryCount: updated.RetryCount,
		},
	})

	return updated.RetryCount, nil
}

// appendHistory retries the append until it succeeds or attempts run out.
// The CAS already took effect, so the append never re-evaluates it and an
// exhausted append does not fail the accepted retry.
func (s *RedispatchService) appendHistory(ctx context.Context, id string, event domain.HistoryEvent) {
	err := s.backoff.RetryWithPredicate(ctx, func() error {
		return s.store.AppendHistory(ctx, id, event)
	}, isTransient)
	if err != nil {
		s.logger.Error("history append failed after status change",
			zap.String("log_id", id),
			zap.String("action", event.Action),
			zap.Error(err))
	}
}

func (s *RedispatchService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

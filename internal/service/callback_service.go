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

// transportActor names the mail transport in history entries it causes.
const transportActor = "mail-transport"

// StatusCallbackInput carries one asynchronous delivery-status callback from
// the mail transport.
type StatusCallbackInput struct {
	EntryID      string
	Status       domain.DeliveryStatus
	SMTPResponse string
	ErrorMessage string
}

// CallbackService is the write path consuming mail-transport callbacks: it
// advances a record's status along the state machine and appends the
// corresponding history event.
type CallbackService struct {
	store      repository.LogStore
	dispatcher events.Dispatcher
	backoff    *retry.Backoff
	logger     *zap.Logger
}

// NewCallbackService constructs the service.
func NewCallbackService(store repository.LogStore, dispatcher events.Dispatcher, backoff *retry.Backoff, logger *zap.Logger) *CallbackService {
	return &CallbackService{store: store, dispatcher: dispatcher, backoff: backoff, logger: logger}
}

// Advance applies one status callback. Illegal edges are rejected; a record
// concurrently transitioned by another writer yields a conflict.
func (s *CallbackService) Advance(ctx context.Context, input StatusCallbackInput) error {
	if !input.Status.Valid() {
		return apperrors.NewValidationError("unknown delivery status", map[string]any{"status": input.Status})
	}

	entry, err := s.store.GetByID(ctx, input.EntryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("log entry", map[string]any{"id": input.EntryID})
		}
		return apperrors.NewInternalError(err)
	}
	if !entry.Status.CanTransitionTo(input.Status) {
		return apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot advance delivery from %s to %s", entry.Status, input.Status),
			map[string]any{"from": entry.Status, "to": input.Status})
	}

	updated, err := s.store.CompareAndSwapStatus(ctx, input.EntryID, entry.Status, input.Status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return apperrors.NewConflict("delivery status changed concurrently", map[string]any{"id": input.EntryID})
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NewNotFound("log entry", map[string]any{"id": input.EntryID})
		}
		return apperrors.NewInternalError(err)
	}

	details := input.SMTPResponse
	if input.ErrorMessage != "" {
		details = input.ErrorMessage
	}
	s.appendHistory(ctx, input.EntryID, domain.HistoryEvent{
		ID:          uuid.NewString(),
		LogID:       input.EntryID,
		Action:      string(input.Status),
		PerformedBy: transportActor,
		Details:     details,
		CreatedAt:   time.Now().UTC(),
	})

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventStatusAdvanced,
		LogID:     input.EntryID,
		Actor:     transportActor,
		Timestamp: time.Now().UTC(),
		Payload: events.StatusAdvancedPayload{
			OldStatus: entry.Status,
			NewStatus: input.Status,
		},
	})
	if input.Status == domain.StatusFailed {
		s.publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventDeliveryFailed,
			LogID:     input.EntryID,
			Actor:     transportActor,
			Timestamp: time.Now().UTC(),
			Payload: events.DeliveryFailedPayload{
				AgentID:      updated.AgentID,
				Recipient:    updated.Recipient,
				RetryCount:   updated.RetryCount,
				ErrorMessage: input.ErrorMessage,
			},
		})
	}
	return nil
}

func (s *CallbackService) appendHistory(ctx context.Context, id string, event domain.HistoryEvent) {
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

func (s *CallbackService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

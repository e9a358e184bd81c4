package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lexhub/comms-audit/internal/domain"
	"github.com/lexhub/comms-audit/internal/mailparse"
	"github.com/lexhub/comms-audit/internal/repository"
	apperrors "github.com/lexhub/comms-audit/pkg/util/errorutil"
)

// TicketAPI is the slice of the external ticket service this core needs.
type TicketAPI interface {
	GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error)
}

// ThreadService reconstructs a readable conversation from a seed log entry,
// preferring the ticket thread and degrading to a single-record thread.
type ThreadService struct {
	store   repository.LogStore
	tickets TicketAPI
	timeout time.Duration
	logger  *zap.Logger
}

// NewThreadService constructs the service. timeout bounds each ticket lookup.
func NewThreadService(store repository.LogStore, tickets TicketAPI, timeout time.Duration, logger *zap.Logger) *ThreadService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ThreadService{store: store, tickets: tickets, timeout: timeout, logger: logger}
}

// Resolve returns the conversation for a log entry, oldest message first.
// Ticket lookup failures of any kind (missing ticket, empty thread, timeout,
// transport error) are a designed fallback, never an error: the caller gets
// the one-message thread built from the entry itself. Only an unknown entry
// id is an error.
func (s *ThreadService) Resolve(ctx context.Context, entryID string) (*domain.Thread, error) {
	entry, err := s.store.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("log entry", map[string]any{"id": entryID})
		}
		return nil, apperrors.NewInternalError(err)
	}

	if !domain.VerifyIntegrity(entry) {
		s.logger.Warn("integrity hash mismatch on audit record",
			zap.String("id", entry.ID),
			zap.String("tracking_id", entry.TrackingID))
	}

	if entry.TicketID != nil && *entry.TicketID != "" {
		if thread := s.resolveTicket(ctx, entry); thread != nil {
			return thread, nil
		}
	}
	return fallbackThread(entry), nil
}

func (s *ThreadService) resolveTicket(ctx context.Context, entry *domain.LogEntry) *domain.Thread {
	ticketID := *entry.TicketID

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ticket, err := s.tickets.GetTicket(lookupCtx, ticketID)
	if err != nil {
		s.logger.Warn("ticket lookup failed, using single-record thread",
			zap.String("ticket_id", ticketID),
			zap.String("entry_id", entry.ID),
			zap.Error(err))
		return nil
	}
	if len(ticket.Messages) == 0 {
		s.logger.Warn("ticket has no messages, using single-record thread",
			zap.String("ticket_id", ticketID),
			zap.String("entry_id", entry.ID))
		return nil
	}

	messages := make([]domain.ThreadMessage, 0, len(ticket.Messages))
	for _, m := range ticket.Messages {
		main, quoted := mailparse.Split(m.Text)
		messages = append(messages, domain.ThreadMessage{
			Sender: m.Sender,
			SentAt: m.SentAt,
			Body:   main,
			Quoted: quoted,
		})
	}
	// Per-thread ordering is an invariant; do not trust upstream ordering.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})

	return &domain.Thread{
		Key:      ticket.ID,
		TicketID: entry.TicketID,
		Subject:  ticket.Subject,
		Messages: messages,
	}
}

func fallbackThread(entry *domain.LogEntry) *domain.Thread {
	sender := entry.AgentName
	if sender == "" {
		sender = entry.AgentEmail
	}
	main, quoted := mailparse.Split(entry.Content)
	return &domain.Thread{
		Key:      entry.ID,
		TicketID: entry.TicketID,
		Subject:  entry.Subject,
		Messages: []domain.ThreadMessage{{
			Sender: sender,
			SentAt: entry.Timestamp,
			Body:   main,
			Quoted: quoted,
		}},
	}
}

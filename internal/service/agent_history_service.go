package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lexhub/comms-audit/internal/domain"
	"github.com/lexhub/comms-audit/internal/repository"
	"github.com/lexhub/comms-audit/internal/retry"
	apperrors "github.com/lexhub/comms-audit/pkg/util/errorutil"
)

const (
	// DefaultAgentHistoryLimit caps the mailbox view when no limit is given.
	DefaultAgentHistoryLimit = 100
	// MaxAgentHistoryLimit is the hard ceiling for one request.
	MaxAgentHistoryLimit = 500
)

// AgentHistoryService serves the per-agent mailbox view: every record one
// agent produced, newest first, independent of any active audit filter.
type AgentHistoryService struct {
	store   repository.LogStore
	backoff *retry.Backoff
	logger  *zap.Logger
}

// NewAgentHistoryService constructs the service.
func NewAgentHistoryService(store repository.LogStore, backoff *retry.Backoff, logger *zap.Logger) *AgentHistoryService {
	return &AgentHistoryService{store: store, backoff: backoff, logger: logger}
}

// ByAgent returns up to limit records for one agent, newest first. An agent
// with no records yields an empty list, not an error.
func (s *AgentHistoryService) ByAgent(ctx context.Context, agentID string, limit int) ([]domain.LogEntry, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, apperrors.NewValidationError("agent id required", nil)
	}
	if limit <= 0 {
		limit = DefaultAgentHistoryLimit
	}
	if limit > MaxAgentHistoryLimit {
		limit = MaxAgentHistoryLimit
	}

	var entries []domain.LogEntry
	err := s.backoff.RetryWithPredicate(ctx, func() error {
		var qerr error
		entries, qerr = s.store.GetByAgent(ctx, agentID, limit)
		return qerr
	}, isTransient)
	if err != nil {
		s.logger.Error("agent history lookup failed", zap.String("agent_id", agentID), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	if entries == nil {
		entries = []domain.LogEntry{}
	}
	return entries, nil
}

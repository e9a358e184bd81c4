package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lexhub/comms-audit/internal/config"
	"github.com/lexhub/comms-audit/internal/events"
)

// AlertService watches delivery events and raises operator alerts when a
// recipient keeps failing. Delivery of the alerts themselves is stubbed to
// log statements until the alerting channel is wired up.
type AlertService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.AlertConfig
}

// NewAlertService creates the service.
func NewAlertService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.AlertConfig) *AlertService {
	return &AlertService{dispatcher: dispatcher, logger: logger, cfg: cfg}
}

// RegisterHandlers subscribes to events.
func (a *AlertService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventDeliveryFailed, a.handleDeliveryFailed)
	a.dispatcher.Subscribe(events.EventRetryRequested, a.handleRetryRequested)
}

func (a *AlertService) handleDeliveryFailed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DeliveryFailedPayload)
	if !ok {
		return nil
	}
	a.logger.Info("DeliveryFailed",
		zap.String("log_id", event.LogID),
		zap.String("recipient", payload.Recipient),
		zap.Int("retry_count", payload.RetryCount))

	if payload.RetryCount >= a.cfg.FailureThreshold {
		a.sendEmailAlertStub(ctx, event, payload)
		a.sendWebhookAlertStub(ctx, event)
	}
	return nil
}

func (a *AlertService) handleRetryRequested(ctx context.Context, event events.Event) error {
	a.logger.Info("RetryRequested",
		zap.String("log_id", event.LogID),
		zap.String("actor", event.Actor),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AlertService) sendEmailAlertStub(ctx context.Context, event events.Event, payload events.DeliveryFailedPayload) {
	if strings.TrimSpace(a.cfg.EmailFrom) == "" {
		return
	}
	a.logger.Debug("sendEmailAlertStub",
		zap.String("from", a.cfg.EmailFrom),
		zap.String("log_id", event.LogID),
		zap.String("recipient", payload.Recipient),
		zap.String("error", payload.ErrorMessage))
}

func (a *AlertService) sendWebhookAlertStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.WebhookURL) == "" {
		return
	}
	a.logger.Debug("sendWebhookAlertStub",
		zap.String("url", a.cfg.WebhookURL),
		zap.String("log_id", event.LogID),
		zap.String("event_type", string(event.Type)))
}

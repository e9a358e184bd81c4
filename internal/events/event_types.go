package events

import (
	"time"

	"github.com/lexhub/comms-audit/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRetryRequested EventType = "retry_requested"
	EventStatusAdvanced EventType = "status_advanced"
	EventDeliveryFailed EventType = "delivery_failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	LogID     string      `json:"log_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RetryRequestedPayload payload.
type RetryRequestedPayload struct {
	AgentID    string `json:"agent_id"`
	Recipient  string `json:"recipient"`
	RetryCount int    `json:"retry_count"`
}

// StatusAdvancedPayload payload.
type StatusAdvancedPayload struct {
	OldStatus domain.DeliveryStatus `json:"old_status"`
	NewStatus domain.DeliveryStatus `json:"new_status"`
}

// DeliveryFailedPayload payload.
type DeliveryFailedPayload struct {
	AgentID      string `json:"agent_id"`
	Recipient    string `json:"recipient"`
	RetryCount   int    `json:"retry_count"`
	ErrorMessage string `json:"error_message"`
}

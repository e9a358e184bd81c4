package dto

import (
	"time"

	"github.com/lexhub/comms-audit/internal/domain"
)

// LogEntryResponse is one audit record as rendered to the hub.
type LogEntryResponse struct {
	ID            string                 `json:"id"`
	AgentID       string                 `json:"agent_id"`
	AgentName     string                 `json:"agent_name"`
	AgentEmail    string                 `json:"agent_email"`
	AgentRole     domain.AgentRole       `json:"agent_role"`
	AgentStatus   string                 `json:"agent_status"`
	Action        string                 `json:"action"`
	Type          string                 `json:"type"`
	Recipient     string                 `json:"recipient"`
	Subject       string                 `json:"subject"`
	TicketID      *string                `json:"ticket_id,omitempty"`
	Status        domain.DeliveryStatus  `json:"status"`
	RetryCount    int                    `json:"retry_count"`
	Timestamp     time.Time              `json:"timestamp"`
	DeliveryTime  *time.Time             `json:"delivery_time,omitempty"`
	OpenTime      *time.Time             `json:"open_time,omitempty"`
	ClickTime     *time.Time             `json:"click_time,omitempty"`
	IPAddress     string                 `json:"ip_address,omitempty"`
	DeviceInfo    string                 `json:"device_info,omitempty"`
	Location      string                 `json:"location,omitempty"`
	TrackingID    string                 `json:"tracking_id,omitempty"`
	SMTPResponse  string                 `json:"smtp_response,omitempty"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	History       []HistoryEventResponse `json:"history,omitempty"`
}

// HistoryEventResponse is one audit-trail entry.
type HistoryEventResponse struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performed_by"`
	Details     string    `json:"details"`
	CreatedAt   time.Time `json:"created_at"`
}

// QueryStatsResponse aggregates over the filtered set.
type QueryStatsResponse struct {
	TotalSent    int `json:"total_sent"`
	TotalFailed  int `json:"total_failed"`
	ActiveAgents int `json:"active_agents"`
}

// ListMeta carries pagination state.
type ListMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// ListLogsResponse is one page of the audit table.
type ListLogsResponse struct {
	Data  []LogEntryResponse `json:"data"`
	Meta  ListMeta           `json:"meta"`
	Stats QueryStatsResponse `json:"stats"`
}

// ThreadMessageResponse is one message of a reconstructed conversation.
type ThreadMessageResponse struct {
	Sender string    `json:"sender"`
	SentAt time.Time `json:"sent_at"`
	Body   string    `json:"body"`
	Quoted *string   `json:"quoted"`
}

// ThreadResponse is a reconstructed conversation.
type ThreadResponse struct {
	Key      string                  `json:"key"`
	TicketID *string                 `json:"ticket_id,omitempty"`
	Subject  string                  `json:"subject"`
	Messages []ThreadMessageResponse `json:"messages"`
}

// RetryResponse reports the outcome of an accepted redispatch.
type RetryResponse struct {
	ID         string `json:"id"`
	RetryCount int    `json:"retry_count"`
}

// DeliveryCallbackRequest is the mail transport's status notification.
type DeliveryCallbackRequest struct {
	EntryID      string `json:"entry_id"`
	Status       string `json:"status"`
	SMTPResponse string `json:"smtp_response"`
	ErrorMessage string `json:"error_message"`
}

// DailyCountResponse is one bucket of the daily volume series.
type DailyCountResponse struct {
	Day    string `json:"day"`
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
}

// AgentCountResponse is one leaderboard row.
type AgentCountResponse struct {
	AgentID string `json:"agent_id"`
	Count   int    `json:"count"`
}

// RoleCountResponse is one role-distribution row.
type RoleCountResponse struct {
	Role  domain.AgentRole `json:"role"`
	Count int              `json:"count"`
}

// AnalyticsResponse bundles the hub's reporting widgets.
type AnalyticsResponse struct {
	Daily     []DailyCountResponse `json:"daily"`
	TopAgents []AgentCountResponse `json:"top_agents"`
	Roles     []RoleCountResponse  `json:"roles"`
}

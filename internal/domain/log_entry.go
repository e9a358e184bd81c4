package domain

import "time"

// DeliveryStatus enumerates lifecycle states for a delivery attempt.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "PENDING"
	StatusSent      DeliveryStatus = "SENT"
	StatusFailed    DeliveryStatus = "FAILED"
	StatusDelivered DeliveryStatus = "DELIVERED"
	StatusOpened    DeliveryStatus = "OPENED"
	StatusClicked   DeliveryStatus = "CLICKED"
)

// Valid reports whether the status is a known member of the enumeration.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusDelivered, StatusOpened, StatusClicked:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status machine allows the edge s -> next.
// FAILED -> PENDING is the retry edge and is the only way back into PENDING.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusSent || next == StatusFailed
	case StatusSent:
		return next == StatusDelivered || next == StatusOpened || next == StatusClicked
	case StatusFailed:
		return next == StatusPending
	}
	return false
}

// AgentRole enumerates operator roles appearing on audit records.
type AgentRole string

const (
	RoleAgent      AgentRole = "AGENT"
	RoleSupervisor AgentRole = "SUPERVISOR"
	RoleAdmin      AgentRole = "ADMIN"
)

// AgentOperationalStatus is the agent's account state at dispatch time.
type AgentOperationalStatus string

const (
	AgentActive    AgentOperationalStatus = "ACTIVE"
	AgentSuspended AgentOperationalStatus = "SUSPENDED"
)

// LogEntry is one immutable audit record of a communication attempt.
// Entries are created once at dispatch time; afterwards only status,
// retry count, the outcome timestamps and the history list may change.
type LogEntry struct {
	ID string

	AgentID     string
	AgentName   string
	AgentEmail  string
	AgentPhone  string
	AgentRole   AgentRole
	AgentStatus AgentOperationalStatus

	Action    string
	Type      string
	Recipient string
	Subject   string
	Content   string
	TicketID  *string

	Status     DeliveryStatus
	RetryCount int
	Timestamp  time.Time

	DeliveryTime *time.Time
	OpenTime     *time.Time
	ClickTime    *time.Time

	IPAddress     string
	DeviceInfo    string
	Location      string
	TrackingID    string
	IntegrityHash string
	SMTPResponse  string
	ErrorMessage  string

	History []HistoryEvent
}

// HistoryEvent is one append-only entry in a record's audit trail.
type HistoryEvent struct {
	ID          string
	LogID       string
	Action      string
	PerformedBy string
	Details     string
	CreatedAt   time.Time
}

// QueryStats aggregates counters over a filtered result set, not just the
// returned page. TotalSent counts every entry that left PENDING without
// failing (SENT and its downstream states).
type QueryStats struct {
	TotalSent    int
	TotalFailed  int
	ActiveAgents int
}

// DailyCount is one bucket of the daily volume series.
type DailyCount struct {
	Day    time.Time
	Sent   int
	Failed int
}

// AgentCount pairs an agent with their record count.
type AgentCount struct {
	AgentID string
	Count   int
}

// RoleCount pairs a role with its record count over all time.
type RoleCount struct {
	Role  AgentRole
	Count int
}

// SentLike reports whether the status counts toward TotalSent.
func (s DeliveryStatus) SentLike() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusOpened, StatusClicked:
		return true
	}
	return false
}

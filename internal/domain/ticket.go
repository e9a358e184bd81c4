package domain

import "time"

// TicketStatus enumerates lifecycle states reported by the ticket service.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusPending  TicketStatus = "PENDING"
	TicketStatusResolved TicketStatus = "RESOLVED"
	TicketStatusClosed   TicketStatus = "CLOSED"
)

// Ticket is the read model served by the external ticket service. The audit
// core never mutates tickets; it only reads them to reconstruct threads.
type Ticket struct {
	ID       string
	Subject  string
	UserID   string
	Status   TicketStatus
	Messages []TicketMessage
}

// TicketMessage is one message in a ticket thread, ordered by SentAt ascending.
type TicketMessage struct {
	Sender string
	Text   string
	SentAt time.Time
}

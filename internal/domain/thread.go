package domain

import "time"

// Thread is a reconstructed conversation. Key is the ticket id when the
// conversation came from a ticket, otherwise the seed entry id; callers use
// it to re-enter the same view without re-resolving.
type Thread struct {
	Key      string
	TicketID *string
	Subject  string
	Messages []ThreadMessage
}

// ThreadMessage is one presentational message, oldest first. Quoted holds the
// quoted-history segment split off the raw body; empty when the body carried
// no quoted content.
type ThreadMessage struct {
	Sender string
	SentAt time.Time
	Body   string
	Quoted string
}

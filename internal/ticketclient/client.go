// Package ticketclient talks to the platform's ticket service, the external
// system of record for support conversations.
package ticketclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lexhub/comms-audit/internal/config"
	"github.com/lexhub/comms-audit/internal/domain"
)

// ErrTicketNotFound indicates the ticket service knows no such ticket.
var ErrTicketNotFound = errors.New("ticket not found")

// Client fetches tickets over HTTP. The per-call deadline comes from the
// caller's context; Timeout on the underlying http.Client is a hard upper
// bound in case a caller forgets one.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a ticket service client.
func New(cfg config.TicketServiceConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout() + time.Second},
	}
}

type ticketPayload struct {
	Data struct {
		ID       string `json:"id"`
		Subject  string `json:"subject"`
		UserID   string `json:"user_id"`
		Status   string `json:"status"`
		Messages []struct {
			Sender    string    `json:"sender"`
			Text      string    `json:"text"`
			Timestamp time.Time `json:"timestamp"`
		} `json:"messages"`
	} `json:"data"`
}

// GetTicket retrieves one ticket with its full message thread.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	url := fmt.Sprintf("%s/api/v1/tickets/%s", c.baseURL, ticketID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTicketNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("ticket service returned status %d", resp.StatusCode)
	}

	var payload ticketPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode ticket response: %w", err)
	}

	ticket := &domain.Ticket{
		ID:      payload.Data.ID,
		Subject: payload.Data.Subject,
		UserID:  payload.Data.UserID,
		Status:  domain.TicketStatus(payload.Data.Status),
	}
	for _, m := range payload.Data.Messages {
		ticket.Messages = append(ticket.Messages, domain.TicketMessage{
			Sender: m.Sender,
			Text:   m.Text,
			SentAt: m.Timestamp,
		})
	}
	return ticket, nil
}

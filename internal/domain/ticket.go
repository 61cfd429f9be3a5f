package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets. Any state may be set
// from any other state.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	default:
		return false
	}
}

// ParseTicketStatus converts raw input into a TicketStatus.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("unknown ticket status %q", raw)
	}
	return status, nil
}

// Ticket is a support request. AuthorID is fixed at creation.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	AuthorID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

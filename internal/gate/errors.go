package gate

import "errors"

var (
	// ErrTicketNotFound is returned for unknown, expired or already resolved tickets.
	ErrTicketNotFound = errors.New("gate: ticket not found")

	// ErrInvalidDecision is returned when a decision is neither proceed nor abandon.
	ErrInvalidDecision = errors.New("gate: invalid decision")
)

package models

import "time"

// Status is the approval state of a trade. A trade starts as StatusPending and
// moves to exactly one of the other states; no transition ever leaves a
// non-pending state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusTimeout  Status = "timeout"
	StatusError    Status = "error"
)

// Terminal reports whether no further status transition is possible.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Trade is a single candidate signal awaiting human approval.
type Trade struct {
	ID        string
	Status    Status
	Request   TradeRequest
	CreatedAt time.Time
	ExpiresAt time.Time
	// DecidedAt is set exactly once, on the first transition out of pending.
	DecidedAt *time.Time
	// Error holds the diagnostic message when Status is StatusError.
	Error string
}

package withdrawal

import "github.com/marketplace-balance-ledger/internal/validation"

// Status is the lifecycle state of a withdrawal request
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

// statusDeleted is only used to describe a refused deletion.
const statusDeleted Status = "deleted"

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusRejected},
	StatusProcessing: {StatusPending, StatusRejected, StatusCompleted},
}

// ParseStatus validates a status received from a caller.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusProcessing, StatusCompleted, StatusRejected:
		return st, nil
	default:
		return "", validation.NewError("status", "must be one of pending processing completed rejected")
	}
}

// CanTransition reports whether an admin may move a withdrawal from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Reserves reports whether a withdrawal in this status holds funds against
// the account balance.
func (s Status) Reserves() bool {
	return s == StatusPending || s == StatusProcessing || s == StatusCompleted
}

// ReservingStatuses lists the statuses counted when recomputing a balance.
func ReservingStatuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusCompleted}
}

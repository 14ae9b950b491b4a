package orders

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// stockDeducted classifies every known status: true while an order in that
// status holds reserved stock. Shared by transition and deletion so the two
// call sites cannot drift.
var stockDeducted = map[Status]bool{
	StatusPending:   false,
	StatusConfirmed: true,
	StatusPreparing: true,
	StatusReady:     true,
	StatusCompleted: true,
	StatusCancelled: false,
}

func IsStockDeducted(s Status) bool { return stockDeducted[s] }

func KnownStatus(s Status) bool {
	_, ok := stockDeducted[s]
	return ok
}

// ParseStatus validates an incoming status string at the API boundary.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !KnownStatus(st) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

type stockAction int

const (
	stockKeep stockAction = iota
	stockReserve
	stockRelease
)

// planStock decides what a transition does to stock. A status outside the
// known set (legacy rows) leaves stock untouched; only the status is written.
func planStock(from, to Status) stockAction {
	if !KnownStatus(from) || !KnownStatus(to) {
		return stockKeep
	}
	was, will := IsStockDeducted(from), IsStockDeducted(to)
	switch {
	case !was && will:
		return stockReserve
	case was && !will:
		return stockRelease
	default:
		return stockKeep
	}
}

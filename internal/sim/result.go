package sim

import "errors"

// Action failure reasons. Actions never panic and never throw in the tick
// path; callers get a Result and decide how to present it.
var (
	ErrValidation     = errors.New("invalid input")
	ErrInsufficient   = errors.New("insufficient resources")
	ErrAlreadyOwned   = errors.New("upgrade already owned")
	ErrLocked         = errors.New("prerequisite not met")
	ErrUnknownUpgrade = errors.New("unknown upgrade")
)

// Result is the outcome of a single action call. Cost and Currency are set
// on successful purchases and sales so the caller can journal the cash flow.
type Result struct {
	OK       bool
	Err      error
	Cost     float64
	Currency string
}

func ok() Result { return Result{OK: true} }

func spent(cost float64, cur string) Result {
	return Result{OK: true, Cost: cost, Currency: cur}
}

// gained mirrors spent for actions that credit the player, such as stock
// sales. The caller flips the sign when journaling.
func gained(amount float64, cur string) Result {
	return Result{OK: true, Cost: amount, Currency: cur}
}

func fail(err error) Result { return Result{Err: err} }

package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrLineNotFound     = errors.New("purchase line not found")
	ErrProductNotFound  = errors.New("product not found")

	// ErrDuplicateRemito: the (supplier, remito_number) pair already exists.
	ErrDuplicateRemito = errors.New("remito already registered for this supplier")

	// ErrNotEditable: header/line mutation attempted outside BORRADOR.
	ErrNotEditable = errors.New("purchase content is frozen")

	// ErrReasonRequired: cancel called without a human-readable reason.
	ErrReasonRequired = errors.New("a cancellation reason is required")

	// ErrConcurrentUpdate: the guarded state write lost a version race.
	ErrConcurrentUpdate = errors.New("purchase was modified concurrently, retry")
)

// InvalidTransitionError rejects an operation that is not legal from the
// purchase's current state. Distinguishable from a successful no-op.
type InvalidTransitionError struct {
	Op   string
	From State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a purchase in state %s", e.Op, e.From)
}

// CooldownError rejects an apply-mode resend before the interval elapsed.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("resend cooldown active, retry in %ds", e.RetryAfterSeconds())
}

func (e *CooldownError) RetryAfterSeconds() int64 {
	return int64(math.Ceil(e.RetryAfter.Seconds()))
}

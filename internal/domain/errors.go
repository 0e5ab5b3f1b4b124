package domain

import (
	"errors"
	"fmt"
)

var ErrChannelNotFound = errors.New("channel not found")

// ProductionError is returned by the production pipeline when an attempt
// fails. PartialCostCents carries any non-refundable spend incurred before
// the failing stage (e.g. a paid sub-call that completed before the render
// died); the loop records it as an attempted_no_charge ledger entry.
type ProductionError struct {
	Stage            string
	PartialCostCents int64
	Err              error
}

func (e *ProductionError) Error() string {
	return fmt.Sprintf("production failed at stage %q: %v", e.Stage, e.Err)
}

func (e *ProductionError) Unwrap() error {
	return e.Err
}

package executor

import "errors"

var (
	// ErrUnitPanic marks a unit that panicked; the panic is contained to that unit.
	ErrUnitPanic = errors.New("unit panicked")

	// ErrNilUnit marks a unit submitted without a Run function.
	ErrNilUnit = errors.New("unit has no run function")
)

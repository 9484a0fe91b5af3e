package port

import "errors"

var (
	// ErrVersionConflict is returned when an optimistic version check on the
	// order row fails.
	ErrVersionConflict = errors.New("optimistic lock conflict")

	// ErrInsufficientStock is returned when a stock change would drive the
	// product's stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
)

package domain

import "time"

type MovementType string

const (
	MovementSale         MovementType = "sale"
	MovementCancellation MovementType = "cancellation"
	MovementReturn       MovementType = "return"
	MovementRestock      MovementType = "restock"
	MovementAdjustment   MovementType = "adjustment"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementSale, MovementCancellation, MovementReturn, MovementRestock, MovementAdjustment:
		return true
	}
	return false
}

// Inbound reports whether the movement type increases stock. Quantities are
// stored positive; the type carries the direction. Adjustments are excluded
// from directional totals and contribute only through their recorded reason.
func (t MovementType) Inbound() bool {
	switch t {
	case MovementCancellation, MovementReturn, MovementRestock:
		return true
	}
	return false
}

// StockMovement is one immutable ledger entry. Entries are never updated or
// removed once written; reporting accuracy depends on that.
type StockMovement struct {
	ID          string
	ProductID   string
	Type        MovementType
	Quantity    int // always positive, direction carried by Type
	OrderNumber string
	Actor       string
	Reason      string
	CreatedAt   time.Time
}

// StockSummary aggregates ledger movements over a window. TotalIn accumulates
// restock, cancellation and return quantities; TotalOut accumulates sales.
type StockSummary struct {
	ProductID string
	TotalIn   int
	TotalOut  int
	NetChange int
}

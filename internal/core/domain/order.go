package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// forbiddenTransitions lists the (from -> to) pairs the state machine rejects.
// Every pair not listed is allowed, including same-status transitions, which
// append a duplicate timeline entry rather than failing.
var forbiddenTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDelivered: {OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing},
	OrderStatusCancelled: {OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered},
	OrderStatusReturned:  {OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped},
}

// CanTransition reports whether the state machine permits moving from one
// status to another. Both statuses are assumed valid.
func CanTransition(from, to OrderStatus) bool {
	for _, blocked := range forbiddenTransitions[from] {
		if to == blocked {
			return false
		}
	}
	return true
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type LineItem struct {
	ProductID string
	Name      string
	SKU       string
	UnitPrice decimal.Decimal
	Quantity  int
}

// TimelineEntry is one step in an order's status history. The timeline is
// append-only: it starts with the implicit "created" pending entry and its
// last entry's status always equals the order's current status.
type TimelineEntry struct {
	Status    OrderStatus
	Timestamp time.Time
	Note      string
	Actor     string
}

type PaymentInfo struct {
	Status PaymentStatus
	PaidAt *time.Time
}

type ShippingInfo struct {
	TrackingNumber string
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
}

type Order struct {
	Number    string
	Status    OrderStatus
	Items     []LineItem
	Payment   PaymentInfo
	Shipping  ShippingInfo
	Timeline  []TimelineEntry
	Version   int // optimistic locking
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total sums unit price times quantity over all line items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

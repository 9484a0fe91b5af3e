package port

import (
	"context"
	"time"

	"github.com/rl1809/backoffice/internal/core/domain"
)

// StockEffect is one per-line-item stock change a transition wants applied.
// Delta is signed: positive restores stock, negative claims it. Movement is
// the ledger entry to append if the product update succeeds.
type StockEffect struct {
	ProductID string
	Delta     int
	Movement  domain.StockMovement
}

// TransitionUpdate is the unit of work for one status change: the
// version-checked order write, the timeline append and the stock effects,
// applied in a single transaction.
type TransitionUpdate struct {
	Number         string
	NewStatus      domain.OrderStatus
	Version        int
	TimelineEntry  domain.TimelineEntry
	TrackingNumber string               // set only when shipping info changes
	ShippedAt      *time.Time           // nil = unchanged
	DeliveredAt    *time.Time           // nil = unchanged
	PaymentStatus  domain.PaymentStatus // "" = unchanged
	PaidAt         *time.Time
	Effects        []StockEffect
}

// TransitionOutcome reports what was actually applied. Movements may be
// shorter than the requested effects: a per-item stock failure is skipped,
// recorded in Skipped, and does not abort the rest of the unit of work.
// StockLevels holds the post-change stock read inside the same transaction.
type TransitionOutcome struct {
	Movements   []domain.StockMovement
	StockLevels map[string]int
	Skipped     []StockEffect
}

type OrderRepository interface {
	// CreateOrder persists a new order with its items and initial timeline entry.
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder returns nil, nil when no order has that number.
	GetOrder(ctx context.Context, number string) (*domain.Order, error)

	ListOrders(ctx context.Context, status domain.OrderStatus, page, limit int) ([]domain.Order, int, error)

	// ApplyTransition applies the unit of work atomically, with a version
	// check on the order row for optimistic locking.
	ApplyTransition(ctx context.Context, upd TransitionUpdate) (*TransitionOutcome, error)

	// DeleteOrder removes the order and its items/timeline after applying the
	// stock-restoration effects in the same transaction.
	DeleteOrder(ctx context.Context, number string, version int, effects []StockEffect) (*TransitionOutcome, error)

	StatusBreakdown(ctx context.Context) ([]domain.StatusBreakdown, error)
}

type MovementFilter struct {
	ProductID string
	Type      domain.MovementType
	From      time.Time
	To        time.Time
	Page      int
	Limit     int
}

type InventoryRepository interface {
	// GetProduct returns nil, nil when the product does not exist.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// ApplyMovement atomically changes the product's stock by delta and
	// appends the ledger entry in the same transaction, returning the
	// post-change stock. The update is rejected when it would drive stock
	// negative.
	ApplyMovement(ctx context.Context, delta int, movement domain.StockMovement) (int, error)

	ListMovements(ctx context.Context, filter MovementFilter) ([]domain.StockMovement, int, error)

	Summary(ctx context.Context, productID string, from, to time.Time) (*domain.StockSummary, error)

	// SalesTotals sums sale-type movement quantities for the product since
	// the given time and reports the most recent sale timestamp.
	SalesTotals(ctx context.Context, productID string, since time.Time) (int, *time.Time, error)

	StockTrend(ctx context.Context, from, to time.Time) ([]domain.DailyStockTrend, error)
}

type AlertFilter struct {
	Level    domain.AlertLevel
	Category string
}

type AlertRepository interface {
	// GetAlertByProduct returns nil, nil when the product has no alert record.
	GetAlertByProduct(ctx context.Context, productID string) (*domain.LowStockAlert, error)

	// GetAlert returns nil, nil when no alert has that id.
	GetAlert(ctx context.Context, id string) (*domain.LowStockAlert, error)

	// SaveAlert inserts or updates the single alert record for the product.
	SaveAlert(ctx context.Context, alert *domain.LowStockAlert) error

	// ListActive returns unresolved alerts, newest first.
	ListActive(ctx context.Context, filter AlertFilter) ([]domain.LowStockAlert, error)
}

// AuditSink is a best-effort audit store: callers log append failures and
// continue, they never propagate them.
type AuditSink interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ByActor(ctx context.Context, actor string, limit int) ([]domain.AuditEntry, error)
	ByTarget(ctx context.Context, targetType, targetID string, limit int) ([]domain.AuditEntry, error)
	Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

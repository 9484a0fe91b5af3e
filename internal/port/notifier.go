package port

import (
	"context"

	"github.com/rl1809/backoffice/internal/core/domain"
)

// Notifier is the outbound notification collaborator. Every call is
// fire-and-forget from the core's point of view: failures are logged by the
// caller and never retried or propagated.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error
	OrderShipped(ctx context.Context, order *domain.Order) error
	LowStock(ctx context.Context, alert *domain.LowStockAlert) error
}

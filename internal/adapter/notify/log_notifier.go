package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/backoffice/internal/core/domain"
)

// LogNotifier stands in for the outbound email/notification collaborator: it
// records what would have been sent. Delivery integration replaces this
// adapter without touching the core.
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) OrderStatusChanged(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error {
	n.log.WithFields(logrus.Fields{
		"order":    order.Number,
		"previous": previous,
		"status":   order.Status,
	}).Info("notification: order status changed")
	return nil
}

func (n *LogNotifier) OrderShipped(ctx context.Context, order *domain.Order) error {
	n.log.WithFields(logrus.Fields{
		"order":    order.Number,
		"tracking": order.Shipping.TrackingNumber,
	}).Info("notification: order shipped")
	return nil
}

func (n *LogNotifier) LowStock(ctx context.Context, alert *domain.LowStockAlert) error {
	n.log.WithFields(logrus.Fields{
		"product_id": alert.ProductID,
		"level":      alert.Level,
		"stock":      alert.CurrentStock,
	}).Info("notification: low stock alert")
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/backoffice/internal/core/domain"
	"github.com/rl1809/backoffice/internal/port"
)

var (
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrOrderNotFound      = errors.New("order not found")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrStaleOrder         = errors.New("order too old to cancel or return")
	ErrDeletionRestricted = errors.New("order deletion restricted")
	ErrDuplicateRequest   = errors.New("duplicate request")
	ErrNoItems            = errors.New("order must have at least one item")
)

// staleOrderAge guards cancellations and returns: orders older than this
// cannot transition to cancelled or returned.
const staleOrderAge = 30 * 24 * time.Hour

// TransitionResult is what a successful status change reports back: the
// updated order, the ledger entries actually written (possibly fewer than the
// item count on partial stock failure) and the status the order came from.
type TransitionResult struct {
	Order          *domain.Order
	Movements      []domain.StockMovement
	PreviousStatus domain.OrderStatus
}

// OrderService owns the order status field. Transitions run under a per-order
// lock; the order row additionally carries a version checked on write, so two
// concurrent transitions can never both succeed against the same fromStatus.
type OrderService struct {
	orders    port.OrderRepository
	inventory port.InventoryRepository
	alerts    *AlertService
	audit     port.AuditSink
	notifier  port.Notifier
	locks     port.LockRepository
	log       *logrus.Logger
	opTimeout time.Duration
}

func NewOrderService(
	orders port.OrderRepository,
	inventory port.InventoryRepository,
	alerts *AlertService,
	audit port.AuditSink,
	notifier port.Notifier,
	locks port.LockRepository,
	log *logrus.Logger,
	opTimeout time.Duration,
) *OrderService {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &OrderService{
		orders:    orders,
		inventory: inventory,
		alerts:    alerts,
		audit:     audit,
		notifier:  notifier,
		locks:     locks,
		log:       log,
		opTimeout: opTimeout,
	}
}

// Create persists a new pending order with the implicit "created" timeline
// entry. Stock is not claimed at creation; that happens on confirmation.
func (s *OrderService) Create(ctx context.Context, items []domain.LineItem, actor string) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	now := time.Now()
	order := domain.Order{
		Number: "ORD-" + uuid.NewString(),
		Status: domain.OrderStatusPending,
		Items:  items,
		Payment: domain.PaymentInfo{
			Status: domain.PaymentStatusPending,
		},
		Timeline: []domain.TimelineEntry{{
			Status:    domain.OrderStatusPending,
			Timestamp: now,
			Note:      "order created",
			Actor:     actor,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

// Get returns the order or ErrOrderNotFound.
func (s *OrderService) Get(ctx context.Context, number string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	order, err := s.orders.GetOrder(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// List returns orders, optionally filtered by status, with a total count.
func (s *OrderService) List(ctx context.Context, status domain.OrderStatus, page, limit int) ([]domain.Order, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	orders, total, err := s.orders.ListOrders(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// StatusStats returns the per-status order count and revenue projection.
func (s *OrderService) StatusStats(ctx context.Context) ([]domain.StatusBreakdown, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	stats, err := s.orders.StatusBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	return stats, nil
}

// Transition applies one status change. Validation order: status validity,
// existence, transition legality, age guard. Stock effects, the timeline
// append and the status write are one transactional unit of work; alert
// reconciliation follows after commit against post-increment stock. The audit
// entry records the attempt whether it succeeded or failed; audit and
// notification failures are swallowed.
//
// A non-empty requestID makes retried requests fail fast with
// ErrDuplicateRequest instead of replaying the transition.
func (s *OrderService) Transition(ctx context.Context, number string, newStatus domain.OrderStatus, note, trackingNumber, requestID, actor string) (*TransitionResult, error) {
	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	if requestID != "" {
		idempotencyKey := fmt.Sprintf("transition:%s:%s", number, requestID)
		ok, err := s.locks.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	var result *TransitionResult
	prev := domain.OrderStatus("")
	err := s.locks.WithOrderLock(ctx, number, func(ctx context.Context) error {
		r, from, err := s.transitionLocked(ctx, number, newStatus, note, trackingNumber, actor)
		result = r
		prev = from
		return err
	})

	s.auditTransition(ctx, number, prev, newStatus, actor, err)

	if err != nil {
		return nil, err
	}

	s.dispatchNotification(result.Order, result.PreviousStatus, newStatus)
	return result, nil
}

func (s *OrderService) transitionLocked(ctx context.Context, number string, newStatus domain.OrderStatus, note, trackingNumber, actor string) (*TransitionResult, domain.OrderStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	order, err := s.orders.GetOrder(ctx, number)
	if err != nil {
		return nil, "", fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, "", ErrOrderNotFound
	}

	prev := order.Status
	if !domain.CanTransition(prev, newStatus) {
		return nil, prev, ErrIllegalTransition
	}
	if (newStatus == domain.OrderStatusCancelled || newStatus == domain.OrderStatusReturned) &&
		time.Since(order.CreatedAt) > staleOrderAge {
		return nil, prev, ErrStaleOrder
	}

	now := time.Now()
	upd := port.TransitionUpdate{
		Number:    number,
		NewStatus: newStatus,
		Version:   order.Version,
		TimelineEntry: domain.TimelineEntry{
			Status:    newStatus,
			Timestamp: now,
			Note:      note,
			Actor:     actor,
		},
	}

	upd.Effects = s.stockEffects(order, prev, newStatus, actor, now)

	if newStatus == domain.OrderStatusShipped && trackingNumber != "" {
		upd.TrackingNumber = trackingNumber
		upd.ShippedAt = &now
	}
	if newStatus == domain.OrderStatusDelivered {
		// Cash on delivery settles on delivery.
		upd.DeliveredAt = &now
		upd.PaymentStatus = domain.PaymentStatusPaid
		upd.PaidAt = &now
	}

	outcome, err := s.orders.ApplyTransition(ctx, upd)
	if err != nil {
		return nil, prev, fmt.Errorf("apply transition: %w", err)
	}

	for _, skipped := range outcome.Skipped {
		s.log.WithFields(logrus.Fields{
			"order":      number,
			"product_id": skipped.ProductID,
			"delta":      skipped.Delta,
		}).Error("per-item stock update failed, continuing with remaining items")
	}

	order.Status = newStatus
	order.Timeline = append(order.Timeline, upd.TimelineEntry)
	order.Version++
	order.UpdatedAt = now
	if upd.TrackingNumber != "" {
		order.Shipping.TrackingNumber = upd.TrackingNumber
		order.Shipping.ShippedAt = upd.ShippedAt
	}
	if upd.DeliveredAt != nil {
		order.Shipping.DeliveredAt = upd.DeliveredAt
		order.Payment.Status = domain.PaymentStatusPaid
		order.Payment.PaidAt = upd.PaidAt
	}

	s.reconcileAlerts(ctx, outcome.StockLevels)

	return &TransitionResult{
		Order:          order,
		Movements:      outcome.Movements,
		PreviousStatus: prev,
	}, prev, nil
}

// stockEffects builds the per-line-item stock changes a transition implies:
// a claim (sale entries) on first confirmation, a release (cancellation or
// return entries) on first entry into cancelled/returned.
func (s *OrderService) stockEffects(order *domain.Order, prev, next domain.OrderStatus, actor string, now time.Time) []port.StockEffect {
	releasing := (next == domain.OrderStatusCancelled || next == domain.OrderStatusReturned) &&
		prev != domain.OrderStatusCancelled && prev != domain.OrderStatusReturned
	claiming := next == domain.OrderStatusConfirmed && prev == domain.OrderStatusPending
	if !releasing && !claiming {
		return nil
	}

	mvType := domain.MovementSale
	sign := -1
	reason := "order confirmed"
	if releasing {
		sign = 1
		if next == domain.OrderStatusCancelled {
			mvType = domain.MovementCancellation
			reason = "order cancelled"
		} else {
			mvType = domain.MovementReturn
			reason = "order returned"
		}
	}

	effects := make([]port.StockEffect, 0, len(order.Items))
	for _, item := range order.Items {
		effects = append(effects, port.StockEffect{
			ProductID: item.ProductID,
			Delta:     sign * item.Quantity,
			Movement: domain.StockMovement{
				ID:          uuid.NewString(),
				ProductID:   item.ProductID,
				Type:        mvType,
				Quantity:    item.Quantity,
				OrderNumber: order.Number,
				Actor:       actor,
				Reason:      reason,
				CreatedAt:   now,
			},
		})
	}
	return effects
}

// Delete removes an order that has not entered fulfilment. A confirmed
// order's stock is restored first with the same ledger semantics as a
// cancellation.
func (s *OrderService) Delete(ctx context.Context, number, actor string) error {
	err := s.locks.WithOrderLock(ctx, number, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
		defer cancel()

		order, err := s.orders.GetOrder(ctx, number)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if order == nil {
			return ErrOrderNotFound
		}

		switch order.Status {
		case domain.OrderStatusProcessing, domain.OrderStatusShipped, domain.OrderStatusDelivered:
			return ErrDeletionRestricted
		}

		var effects []port.StockEffect
		if order.Status == domain.OrderStatusConfirmed {
			now := time.Now()
			for _, item := range order.Items {
				effects = append(effects, port.StockEffect{
					ProductID: item.ProductID,
					Delta:     item.Quantity,
					Movement: domain.StockMovement{
						ID:          uuid.NewString(),
						ProductID:   item.ProductID,
						Type:        domain.MovementCancellation,
						Quantity:    item.Quantity,
						OrderNumber: order.Number,
						Actor:       actor,
						Reason:      "order deleted",
						CreatedAt:   now,
					},
				})
			}
		}

		outcome, err := s.orders.DeleteOrder(ctx, number, order.Version, effects)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		for _, skipped := range outcome.Skipped {
			s.log.WithFields(logrus.Fields{
				"order":      number,
				"product_id": skipped.ProductID,
			}).Error("stock restoration failed during deletion")
		}

		s.reconcileAlerts(ctx, outcome.StockLevels)
		return nil
	})

	entry := domain.AuditEntry{
		ID:          uuid.NewString(),
		Actor:       actor,
		Action:      domain.AuditActionOrderDelete,
		TargetType:  domain.AuditTargetOrder,
		TargetID:    number,
		Description: fmt.Sprintf("order %s deleted", number),
		Severity:    domain.AuditSeverityHigh,
		Status:      domain.AuditStatusSuccess,
		CreatedAt:   time.Now(),
	}
	if err != nil {
		entry.Status = domain.AuditStatusFailed
		entry.ErrorMessage = err.Error()
		entry.Description = fmt.Sprintf("order %s deletion rejected", number)
	}
	s.appendAudit(ctx, entry)

	return err
}

// reconcileAlerts recomputes alerts for every product a transition touched,
// using the post-change stock read inside the transaction rather than a
// fresh read that could already be stale.
func (s *OrderService) reconcileAlerts(ctx context.Context, stockLevels map[string]int) {
	for productID, stock := range stockLevels {
		product, err := s.inventory.GetProduct(ctx, productID)
		if err != nil {
			s.log.WithError(err).WithField("product_id", productID).Error("product load failed, skipping alert reconciliation")
			continue
		}
		if product == nil {
			continue
		}
		product.Stock = stock
		product.InStock = stock > 0
		if err := s.alerts.Reconcile(ctx, product); err != nil {
			s.log.WithError(err).WithField("product_id", productID).Error("alert reconciliation failed")
		}
	}
}

func (s *OrderService) auditTransition(ctx context.Context, number string, prev, next domain.OrderStatus, actor string, opErr error) {
	severity := domain.AuditSeverityMedium
	if next == domain.OrderStatusCancelled || next == domain.OrderStatusReturned {
		severity = domain.AuditSeverityHigh
	}

	beforeJSON, _ := json.Marshal(map[string]string{"status": string(prev)})
	afterJSON, _ := json.Marshal(map[string]string{"status": string(next)})
	entry := domain.AuditEntry{
		ID:          uuid.NewString(),
		Actor:       actor,
		Action:      domain.AuditActionStatusChange,
		TargetType:  domain.AuditTargetOrder,
		TargetID:    number,
		Description: fmt.Sprintf("order %s status %s -> %s", number, prev, next),
		BeforeJSON:  string(beforeJSON),
		AfterJSON:   string(afterJSON),
		Severity:    severity,
		Status:      domain.AuditStatusSuccess,
		CreatedAt:   time.Now(),
	}
	if opErr != nil {
		entry.Status = domain.AuditStatusFailed
		entry.ErrorMessage = opErr.Error()
	}
	s.appendAudit(ctx, entry)
}

// dispatchNotification fires the external notification without blocking the
// request: shipping notice on shipped, generic update when the status
// actually changed. Failures are logged and never retried.
func (s *OrderService) dispatchNotification(order *domain.Order, prev, next domain.OrderStatus) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
		defer cancel()

		var err error
		switch {
		case next == domain.OrderStatusShipped:
			err = s.notifier.OrderShipped(ctx, order)
		case prev != next:
			err = s.notifier.OrderStatusChanged(ctx, order, prev)
		default:
			return
		}
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"order":  order.Number,
				"status": next,
			}).Warn("notification dispatch failed")
		}
	}()
}

func (s *OrderService) appendAudit(ctx context.Context, entry domain.AuditEntry) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"action": entry.Action,
			"target": entry.TargetID,
		}).Error("audit append failed")
	}
}

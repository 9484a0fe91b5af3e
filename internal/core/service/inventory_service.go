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
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidAdjustment = errors.New("adjustment would drive stock negative")
)

// InventoryService owns the stock ledger: every stock change flows through
// ApplyMovement so an immutable movement entry is written alongside it.
type InventoryService struct {
	inventory port.InventoryRepository
	alerts    *AlertService
	audit     port.AuditSink
	log       *logrus.Logger
}

func NewInventoryService(inventory port.InventoryRepository, alerts *AlertService, audit port.AuditSink, log *logrus.Logger) *InventoryService {
	return &InventoryService{
		inventory: inventory,
		alerts:    alerts,
		audit:     audit,
		log:       log,
	}
}

// Restock increases the product's stock, appends a restock ledger entry and
// reconciles the product's alert against the new level.
func (s *InventoryService) Restock(ctx context.Context, productID string, quantity int, actor, reason string) (*domain.Product, *domain.StockMovement, error) {
	if quantity <= 0 {
		return nil, nil, ErrInvalidQuantity
	}
	return s.applyChange(ctx, productID, quantity, domain.MovementRestock, domain.AuditActionStockRestock, actor, reason)
}

// Adjust applies a signed manual stock correction with an adjustment ledger
// entry. The signed delta is preserved in the entry's reason since quantities
// are stored positive.
func (s *InventoryService) Adjust(ctx context.Context, productID string, delta int, actor, reason string) (*domain.Product, *domain.StockMovement, error) {
	if delta == 0 {
		return nil, nil, ErrInvalidQuantity
	}
	reason = fmt.Sprintf("%s (delta %+d)", reason, delta)
	return s.applyChange(ctx, productID, delta, domain.MovementAdjustment, domain.AuditActionStockAdjust, actor, reason)
}

func (s *InventoryService) applyChange(ctx context.Context, productID string, delta int, mvType domain.MovementType, auditAction, actor, reason string) (*domain.Product, *domain.StockMovement, error) {
	product, err := s.inventory.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("load product: %w", err)
	}
	if product == nil {
		return nil, nil, ErrProductNotFound
	}

	before := product.Stock
	now := time.Now()
	quantity := delta
	if quantity < 0 {
		quantity = -quantity
	}
	movement := domain.StockMovement{
		ID:        uuid.NewString(),
		ProductID: productID,
		Type:      mvType,
		Quantity:  quantity,
		Actor:     actor,
		Reason:    reason,
		CreatedAt: now,
	}

	newStock, err := s.inventory.ApplyMovement(ctx, delta, movement)
	if err != nil {
		if errors.Is(err, port.ErrInsufficientStock) {
			return nil, nil, ErrInvalidAdjustment
		}
		return nil, nil, fmt.Errorf("apply movement: %w", err)
	}

	product.Stock = newStock
	product.InStock = newStock > 0

	// Alert state is a derived view; reconciliation failure is logged, not
	// propagated, and is repaired on the next touch of this product.
	if err := s.alerts.Reconcile(ctx, product); err != nil {
		s.log.WithError(err).WithField("product_id", productID).Error("alert reconciliation failed")
	}

	beforeJSON, _ := json.Marshal(map[string]int{"stock": before})
	afterJSON, _ := json.Marshal(map[string]int{"stock": newStock})
	s.appendAudit(ctx, domain.AuditEntry{
		ID:          uuid.NewString(),
		Actor:       actor,
		Action:      auditAction,
		TargetType:  domain.AuditTargetProduct,
		TargetID:    productID,
		Description: reason,
		BeforeJSON:  string(beforeJSON),
		AfterJSON:   string(afterJSON),
		Severity:    domain.AuditSeverityMedium,
		Status:      domain.AuditStatusSuccess,
		CreatedAt:   now,
	})

	return product, &movement, nil
}

// Movements lists ledger entries matching the filter with a total count.
func (s *InventoryService) Movements(ctx context.Context, filter port.MovementFilter) ([]domain.StockMovement, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	movements, total, err := s.inventory.ListMovements(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	return movements, total, nil
}

// Summary aggregates the product's ledger over the window.
func (s *InventoryService) Summary(ctx context.Context, productID string, from, to time.Time) (*domain.StockSummary, error) {
	summary, err := s.inventory.Summary(ctx, productID, from, to)
	if err != nil {
		return nil, fmt.Errorf("summarize movements: %w", err)
	}
	return summary, nil
}

// StockTrend returns the daily ledger activity projection for dashboards.
func (s *InventoryService) StockTrend(ctx context.Context, from, to time.Time) ([]domain.DailyStockTrend, error) {
	trend, err := s.inventory.StockTrend(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("stock trend: %w", err)
	}
	return trend, nil
}

func (s *InventoryService) appendAudit(ctx context.Context, entry domain.AuditEntry) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"action": entry.Action,
			"target": entry.TargetID,
		}).Error("audit append failed")
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/backoffice/internal/core/domain"
	"github.com/rl1809/backoffice/internal/port"
)

var ErrAlertNotFound = errors.New("alert not found")

// salesWindow is the trailing ledger window feeding the restock forecast.
const salesWindow = 30 * 24 * time.Hour

const alertRecipient = "inventory-team"

// AlertService derives the low-stock alert record per product from current
// stock and thresholds. Alerts are a recomputable view over product stock and
// the movement ledger: a missed reconciliation self-heals on the next touch.
type AlertService struct {
	alerts    port.AlertRepository
	inventory port.InventoryRepository
	audit     port.AuditSink
	notifier  port.Notifier
	log       *logrus.Logger
}

func NewAlertService(alerts port.AlertRepository, inventory port.InventoryRepository, audit port.AuditSink, notifier port.Notifier, log *logrus.Logger) *AlertService {
	return &AlertService{
		alerts:    alerts,
		inventory: inventory,
		audit:     audit,
		notifier:  notifier,
		log:       log,
	}
}

// Reconcile recomputes the product's alert from its current stock. It creates
// an alert lazily the first time stock falls to or below the low threshold,
// resolves it when stock recovers, reactivates a resolved alert when stock
// drops again, and refreshes the restock suggestion whenever the alert is or
// becomes active.
func (s *AlertService) Reconcile(ctx context.Context, product *domain.Product) error {
	low := product.EffectiveLowThreshold()
	critical := product.EffectiveCriticalThreshold()
	level, active := domain.DeriveAlertLevel(product.Stock, low, critical)

	alert, err := s.alerts.GetAlertByProduct(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("load alert: %w", err)
	}

	now := time.Now()

	if alert == nil {
		if !active {
			return nil
		}
		alert = &domain.LowStockAlert{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			CreatedAt: now,
		}
		s.applySnapshot(alert, product, low, critical)
		alert.Level = level
		alert.Restock = s.suggestRestock(ctx, product.ID, low)
		alert.UpdatedAt = now
		s.notifyLowStock(ctx, alert, now)

		if err := s.alerts.SaveAlert(ctx, alert); err != nil {
			return fmt.Errorf("save alert: %w", err)
		}
		s.log.WithFields(logrus.Fields{
			"product_id": product.ID,
			"level":      level,
			"stock":      product.Stock,
		}).Info("low stock alert created")
		return nil
	}

	s.applySnapshot(alert, product, low, critical)

	escalated := false
	switch {
	case !alert.Resolved && !active:
		alert.Resolved = true
		alert.Resolution = domain.ResolutionRestocked
		alert.ResolvedAt = &now
		alert.ResolvedBy = domain.ActorSystem
	case alert.Resolved && active:
		alert.Resolved = false
		alert.Resolution = ""
		alert.ResolvedAt = nil
		alert.ResolvedBy = ""
	}

	if active {
		escalated = alert.Level != domain.AlertLevelOutOfStock && level == domain.AlertLevelOutOfStock
		alert.Level = level
		alert.Restock = s.suggestRestock(ctx, product.ID, low)
	}
	alert.UpdatedAt = now

	if escalated {
		s.notifyLowStock(ctx, alert, now)
	}

	if err := s.alerts.SaveAlert(ctx, alert); err != nil {
		return fmt.Errorf("save alert: %w", err)
	}
	return nil
}

// ResolveManually marks the alert resolved regardless of current stock.
func (s *AlertService) ResolveManually(ctx context.Context, alertID, actor, reason string) (*domain.LowStockAlert, error) {
	alert, err := s.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("load alert: %w", err)
	}
	if alert == nil {
		return nil, ErrAlertNotFound
	}

	now := time.Now()
	alert.Resolved = true
	alert.Resolution = reason
	alert.ResolvedAt = &now
	alert.ResolvedBy = actor
	alert.UpdatedAt = now

	if err := s.alerts.SaveAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("save alert: %w", err)
	}

	s.appendAudit(ctx, domain.AuditEntry{
		ID:          uuid.NewString(),
		Actor:       actor,
		Action:      domain.AuditActionAlertResolve,
		TargetType:  domain.AuditTargetAlert,
		TargetID:    alertID,
		Description: fmt.Sprintf("alert for product %s resolved manually: %s", alert.ProductID, reason),
		Severity:    domain.AuditSeverityLow,
		Status:      domain.AuditStatusSuccess,
		CreatedAt:   now,
	})

	return alert, nil
}

// ActiveAlerts returns unresolved alerts, newest first.
func (s *AlertService) ActiveAlerts(ctx context.Context, filter port.AlertFilter) ([]domain.LowStockAlert, error) {
	alerts, err := s.alerts.ListActive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

func (s *AlertService) applySnapshot(alert *domain.LowStockAlert, product *domain.Product, low, critical int) {
	alert.ProductName = product.Name
	alert.SKU = product.SKU
	alert.Category = product.Category
	alert.Price = product.Price
	alert.CurrentStock = product.Stock
	alert.LowStockThreshold = low
	alert.CriticalStockThreshold = critical
}

func (s *AlertService) suggestRestock(ctx context.Context, productID string, lowThreshold int) domain.RestockSuggestion {
	totalSold, lastSale, err := s.inventory.SalesTotals(ctx, productID, time.Now().Add(-salesWindow))
	if err != nil {
		s.log.WithError(err).WithField("product_id", productID).Warn("sales window query failed, using conservative restock default")
		return domain.SuggestRestock(0, nil, lowThreshold)
	}
	return domain.SuggestRestock(totalSold, lastSale, lowThreshold)
}

func (s *AlertService) notifyLowStock(ctx context.Context, alert *domain.LowStockAlert, now time.Time) {
	status := "sent"
	if err := s.notifier.LowStock(ctx, alert); err != nil {
		status = "failed"
		s.log.WithError(err).WithField("product_id", alert.ProductID).Warn("low stock notification failed")
	}
	alert.Notifications = append(alert.Notifications, domain.AlertNotification{
		Channel:   "email",
		SentAt:    now,
		Recipient: alertRecipient,
		Status:    status,
	})
}

func (s *AlertService) appendAudit(ctx context.Context, entry domain.AuditEntry) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"action": entry.Action,
			"target": entry.TargetID,
		}).Error("audit append failed")
	}
}

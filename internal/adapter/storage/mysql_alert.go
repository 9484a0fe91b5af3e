package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/backoffice/internal/core/domain"
	"github.com/rl1809/backoffice/internal/port"
)

const alertColumns = `id, product_id, product_name, sku, category, price, current_stock,
	low_stock_threshold, critical_stock_threshold, level, resolved, resolved_at, resolved_by,
	resolution, recommended_quantity, avg_monthly_sales, last_sale_date, sales_velocity,
	notifications, created_at, updated_at`

func (m *MySQLAdapter) GetAlertByProduct(ctx context.Context, productID string) (*domain.LowStockAlert, error) {
	row := m.db.QueryRowContext(ctx,
		"SELECT "+alertColumns+" FROM low_stock_alerts WHERE product_id = ?", productID)
	return scanAlert(row)
}

func (m *MySQLAdapter) GetAlert(ctx context.Context, id string) (*domain.LowStockAlert, error) {
	row := m.db.QueryRowContext(ctx,
		"SELECT "+alertColumns+" FROM low_stock_alerts WHERE id = ?", id)
	return scanAlert(row)
}

// SaveAlert upserts on the product_id uniqueness constraint: exactly one
// alert record exists per product, reactivated in place rather than
// duplicated.
func (m *MySQLAdapter) SaveAlert(ctx context.Context, alert *domain.LowStockAlert) error {
	notifications, err := json.Marshal(alert.Notifications)
	if err != nil {
		return fmt.Errorf("marshal notifications: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO low_stock_alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			product_name = VALUES(product_name), sku = VALUES(sku), category = VALUES(category),
			price = VALUES(price), current_stock = VALUES(current_stock),
			low_stock_threshold = VALUES(low_stock_threshold),
			critical_stock_threshold = VALUES(critical_stock_threshold),
			level = VALUES(level), resolved = VALUES(resolved), resolved_at = VALUES(resolved_at),
			resolved_by = VALUES(resolved_by), resolution = VALUES(resolution),
			recommended_quantity = VALUES(recommended_quantity),
			avg_monthly_sales = VALUES(avg_monthly_sales), last_sale_date = VALUES(last_sale_date),
			sales_velocity = VALUES(sales_velocity), notifications = VALUES(notifications),
			updated_at = VALUES(updated_at)`,
		alert.ID, alert.ProductID, alert.ProductName, alert.SKU, alert.Category,
		alert.Price.String(), alert.CurrentStock, alert.LowStockThreshold,
		alert.CriticalStockThreshold, alert.Level, alert.Resolved, alert.ResolvedAt,
		nullable(alert.ResolvedBy), nullable(alert.Resolution),
		alert.Restock.RecommendedQuantity, alert.Restock.AverageMonthlySales,
		alert.Restock.LastSaleDate, alert.Restock.SalesVelocity,
		notifications, alert.CreatedAt, alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save alert: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListActive(ctx context.Context, filter port.AlertFilter) ([]domain.LowStockAlert, error) {
	conds := []string{"resolved = 0"}
	args := []any{}
	if filter.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, filter.Level)
	}
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, filter.Category)
	}

	rows, err := m.db.QueryContext(ctx,
		"SELECT "+alertColumns+" FROM low_stock_alerts WHERE "+strings.Join(conds, " AND ")+
			" ORDER BY updated_at DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.LowStockAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*domain.LowStockAlert, error) {
	var (
		alert         domain.LowStockAlert
		price         string
		resolvedAt    sql.NullTime
		resolvedBy    sql.NullString
		resolution    sql.NullString
		lastSaleDate  sql.NullTime
		notifications []byte
	)
	err := row.Scan(&alert.ID, &alert.ProductID, &alert.ProductName, &alert.SKU, &alert.Category,
		&price, &alert.CurrentStock, &alert.LowStockThreshold, &alert.CriticalStockThreshold,
		&alert.Level, &alert.Resolved, &resolvedAt, &resolvedBy, &resolution,
		&alert.Restock.RecommendedQuantity, &alert.Restock.AverageMonthlySales,
		&lastSaleDate, &alert.Restock.SalesVelocity, &notifications,
		&alert.CreatedAt, &alert.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	if alert.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	alert.ResolvedBy = resolvedBy.String
	alert.Resolution = resolution.String
	if lastSaleDate.Valid {
		alert.Restock.LastSaleDate = &lastSaleDate.Time
	}
	if len(notifications) > 0 {
		if err := json.Unmarshal(notifications, &alert.Notifications); err != nil {
			return nil, fmt.Errorf("unmarshal notifications: %w", err)
		}
	}
	return &alert, nil
}

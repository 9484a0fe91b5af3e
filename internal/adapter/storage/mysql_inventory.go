package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/backoffice/internal/core/domain"
	"github.com/rl1809/backoffice/internal/port"
)

func (m *MySQLAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var (
		product domain.Product
		price   string
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, sku, category, price, stock, in_stock,
		       low_stock_threshold, critical_stock_threshold, created_at, updated_at
		FROM products WHERE id = ?`, id,
	).Scan(&product.ID, &product.Name, &product.SKU, &product.Category, &price,
		&product.Stock, &product.InStock, &product.LowStockThreshold,
		&product.CriticalStockThreshold, &product.CreatedAt, &product.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	if product.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return &product, nil
}

func (m *MySQLAdapter) ApplyMovement(ctx context.Context, delta int, movement domain.StockMovement) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE products SET stock = stock + ?, in_stock = stock > 0, updated_at = ?
		WHERE id = ? AND stock + ? >= 0`,
		delta, movement.CreatedAt, movement.ProductID, delta)
	if err != nil {
		return 0, fmt.Errorf("update product stock: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return 0, port.ErrInsufficientStock
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, type, quantity, order_number, actor, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		movement.ID, movement.ProductID, movement.Type, movement.Quantity,
		nullable(movement.OrderNumber), movement.Actor, movement.Reason, movement.CreatedAt,
	); err != nil {
		return 0, fmt.Errorf("insert stock movement: %w", err)
	}

	var stock int
	if err := tx.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = ?", movement.ProductID).Scan(&stock); err != nil {
		return 0, fmt.Errorf("read post-change stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return stock, nil
}

func (m *MySQLAdapter) ListMovements(ctx context.Context, filter port.MovementFilter) ([]domain.StockMovement, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ProductID != "" {
		conds = append(conds, "product_id = ?")
		args = append(args, filter.ProductID)
	}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filter.Type)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, filter.To)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stock_movements"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, product_id, type, quantity, order_number, actor, reason, created_at
		FROM stock_movements`+where+`
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	var movements []domain.StockMovement
	for rows.Next() {
		var (
			mv          domain.StockMovement
			orderNumber sql.NullString
		)
		if err := rows.Scan(&mv.ID, &mv.ProductID, &mv.Type, &mv.Quantity,
			&orderNumber, &mv.Actor, &mv.Reason, &mv.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan movement: %w", err)
		}
		mv.OrderNumber = orderNumber.String
		movements = append(movements, mv)
	}
	return movements, total, rows.Err()
}

func (m *MySQLAdapter) Summary(ctx context.Context, productID string, from, to time.Time) (*domain.StockSummary, error) {
	summary := domain.StockSummary{ProductID: productID}
	err := m.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type IN ('restock', 'cancellation', 'return') THEN quantity ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN type = 'sale' THEN quantity ELSE 0 END), 0)
		FROM stock_movements
		WHERE product_id = ? AND created_at >= ? AND created_at < ?`,
		productID, from, to,
	).Scan(&summary.TotalIn, &summary.TotalOut)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	summary.NetChange = summary.TotalIn - summary.TotalOut
	return &summary, nil
}

func (m *MySQLAdapter) SalesTotals(ctx context.Context, productID string, since time.Time) (int, *time.Time, error) {
	var (
		total    int
		lastSale sql.NullTime
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0), MAX(created_at)
		FROM stock_movements
		WHERE product_id = ? AND type = 'sale' AND created_at >= ?`,
		productID, since,
	).Scan(&total, &lastSale)
	if err != nil {
		return 0, nil, fmt.Errorf("query sales totals: %w", err)
	}
	if !lastSale.Valid {
		return total, nil, nil
	}
	return total, &lastSale.Time, nil
}

func (m *MySQLAdapter) StockTrend(ctx context.Context, from, to time.Time) ([]domain.DailyStockTrend, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT DATE(created_at) AS day,
		       COALESCE(SUM(CASE WHEN type IN ('restock', 'cancellation', 'return') THEN quantity ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN type = 'sale' THEN quantity ELSE 0 END), 0),
		       COUNT(*)
		FROM stock_movements
		WHERE created_at >= ? AND created_at < ?
		GROUP BY day ORDER BY day`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("query stock trend: %w", err)
	}
	defer rows.Close()

	var trend []domain.DailyStockTrend
	for rows.Next() {
		var day domain.DailyStockTrend
		if err := rows.Scan(&day.Day, &day.TotalIn, &day.TotalOut, &day.Movements); err != nil {
			return nil, fmt.Errorf("scan stock trend: %w", err)
		}
		trend = append(trend, day)
	}
	return trend, rows.Err()
}

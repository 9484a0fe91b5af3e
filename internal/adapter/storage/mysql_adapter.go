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

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (number, status, payment_status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.Number, order.Status, order.Payment.Status, order.Version,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_number, product_id, name, sku, unit_price, quantity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			order.Number, item.ProductID, item.Name, item.SKU, item.UnitPrice.String(), item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	for _, entry := range order.Timeline {
		if err := insertTimelineEntry(ctx, tx, order.Number, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, number string) (*domain.Order, error) {
	var (
		order       domain.Order
		paidAt      sql.NullTime
		tracking    sql.NullString
		shippedAt   sql.NullTime
		deliveredAt sql.NullTime
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT number, status, payment_status, paid_at, tracking_number, shipped_at, delivered_at,
		       version, created_at, updated_at
		FROM orders WHERE number = ?`, number,
	).Scan(&order.Number, &order.Status, &order.Payment.Status, &paidAt, &tracking,
		&shippedAt, &deliveredAt, &order.Version, &order.CreatedAt, &order.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if paidAt.Valid {
		order.Payment.PaidAt = &paidAt.Time
	}
	order.Shipping.TrackingNumber = tracking.String
	if shippedAt.Valid {
		order.Shipping.ShippedAt = &shippedAt.Time
	}
	if deliveredAt.Valid {
		order.Shipping.DeliveredAt = &deliveredAt.Time
	}

	if order.Items, err = m.loadItems(ctx, number); err != nil {
		return nil, err
	}
	if order.Timeline, err = m.loadTimeline(ctx, number); err != nil {
		return nil, err
	}

	return &order, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context, status domain.OrderStatus, page, limit int) ([]domain.Order, int, error) {
	where := ""
	args := []any{}
	if status != "" {
		where = " WHERE status = ?"
		args = append(args, status)
	}

	var total int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := m.db.QueryContext(ctx, `
		SELECT number, status, payment_status, version, created_at, updated_at
		FROM orders`+where+`
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.Number, &order.Status, &order.Payment.Status,
			&order.Version, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		if orders[i].Items, err = m.loadItems(ctx, orders[i].Number); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

func (m *MySQLAdapter) ApplyTransition(ctx context.Context, upd port.TransitionUpdate) (*port.TransitionOutcome, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := upd.TimelineEntry.Timestamp
	set := []string{"status = ?", "version = version + 1", "updated_at = ?"}
	args := []any{upd.NewStatus, now}
	if upd.TrackingNumber != "" {
		set = append(set, "tracking_number = ?", "shipped_at = ?")
		args = append(args, upd.TrackingNumber, upd.ShippedAt)
	}
	if upd.DeliveredAt != nil {
		set = append(set, "delivered_at = ?")
		args = append(args, upd.DeliveredAt)
	}
	if upd.PaymentStatus != "" {
		set = append(set, "payment_status = ?", "paid_at = ?")
		args = append(args, upd.PaymentStatus, upd.PaidAt)
	}
	args = append(args, upd.Number, upd.Version)

	result, err := tx.ExecContext(ctx,
		"UPDATE orders SET "+strings.Join(set, ", ")+" WHERE number = ? AND version = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, port.ErrVersionConflict
	}

	if err := insertTimelineEntry(ctx, tx, upd.Number, upd.TimelineEntry); err != nil {
		return nil, err
	}

	outcome, err := applyStockEffects(ctx, tx, upd.Effects, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return outcome, nil
}

func (m *MySQLAdapter) DeleteOrder(ctx context.Context, number string, version int, effects []port.StockEffect) (*port.TransitionOutcome, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	outcome, err := applyStockEffects(ctx, tx, effects, time.Now())
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_timeline WHERE order_number = ?", number); err != nil {
		return nil, fmt.Errorf("delete timeline: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_number = ?", number); err != nil {
		return nil, fmt.Errorf("delete items: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE number = ? AND version = ?", number, version)
	if err != nil {
		return nil, fmt.Errorf("delete order: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, port.ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return outcome, nil
}

func (m *MySQLAdapter) StatusBreakdown(ctx context.Context) ([]domain.StatusBreakdown, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT o.status, COUNT(DISTINCT o.number), COALESCE(SUM(i.unit_price * i.quantity), 0)
		FROM orders o
		LEFT JOIN order_items i ON i.order_number = o.number
		GROUP BY o.status`)
	if err != nil {
		return nil, fmt.Errorf("query status breakdown: %w", err)
	}
	defer rows.Close()

	var breakdown []domain.StatusBreakdown
	for rows.Next() {
		var (
			row     domain.StatusBreakdown
			revenue string
		)
		if err := rows.Scan(&row.Status, &row.Count, &revenue); err != nil {
			return nil, fmt.Errorf("scan status breakdown: %w", err)
		}
		if row.Revenue, err = decimal.NewFromString(revenue); err != nil {
			return nil, fmt.Errorf("parse revenue: %w", err)
		}
		breakdown = append(breakdown, row)
	}
	return breakdown, rows.Err()
}

func (m *MySQLAdapter) loadItems(ctx context.Context, number string) ([]domain.LineItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, name, sku, unit_price, quantity
		FROM order_items WHERE order_number = ? ORDER BY id`, number)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var (
			item  domain.LineItem
			price string
		)
		if err := rows.Scan(&item.ProductID, &item.Name, &item.SKU, &price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse unit price: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) loadTimeline(ctx context.Context, number string) ([]domain.TimelineEntry, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT status, note, actor, created_at
		FROM order_timeline WHERE order_number = ? ORDER BY id`, number)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	var timeline []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(&entry.Status, &entry.Note, &entry.Actor, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan timeline entry: %w", err)
		}
		timeline = append(timeline, entry)
	}
	return timeline, rows.Err()
}

func insertTimelineEntry(ctx context.Context, tx *sql.Tx, number string, entry domain.TimelineEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_timeline (order_number, status, note, actor, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		number, entry.Status, entry.Note, entry.Actor, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert timeline entry: %w", err)
	}
	return nil
}

// applyStockEffects changes product stock one line item at a time. A product
// row that cannot absorb the change (missing, or the delta would drive stock
// negative) is skipped and reported in the outcome; the remaining items and
// the surrounding unit of work still proceed. Infra errors abort the tx.
func applyStockEffects(ctx context.Context, tx *sql.Tx, effects []port.StockEffect, now time.Time) (*port.TransitionOutcome, error) {
	outcome := &port.TransitionOutcome{StockLevels: make(map[string]int)}
	for _, eff := range effects {
		// MySQL applies SET assignments left to right, so in_stock reads the
		// already-updated stock value.
		result, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock + ?, in_stock = stock > 0, updated_at = ?
			WHERE id = ? AND stock + ? >= 0`,
			eff.Delta, now, eff.ProductID, eff.Delta)
		if err != nil {
			return nil, fmt.Errorf("update product stock: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			outcome.Skipped = append(outcome.Skipped, eff)
			continue
		}

		mv := eff.Movement
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, product_id, type, quantity, order_number, actor, reason, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			mv.ID, mv.ProductID, mv.Type, mv.Quantity, nullable(mv.OrderNumber), mv.Actor, mv.Reason, mv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("insert stock movement: %w", err)
		}

		var stock int
		if err := tx.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = ?", eff.ProductID).Scan(&stock); err != nil {
			return nil, fmt.Errorf("read post-change stock: %w", err)
		}
		outcome.StockLevels[eff.ProductID] = stock
		outcome.Movements = append(outcome.Movements, mv)
	}
	return outcome, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

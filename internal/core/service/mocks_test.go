package service

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/backoffice/internal/core/domain"
	"github.com/rl1809/backoffice/internal/port"
)

// memStore is an in-memory stand-in for the MySQL adapter covering every
// repository port the services depend on.
type memStore struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	products  map[string]*domain.Product
	movements []domain.StockMovement
	alerts    map[string]*domain.LowStockAlert // keyed by product id
	audit     []domain.AuditEntry

	auditErr  error
	failStock map[string]bool // product ids whose stock updates fail
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[string]*domain.Order),
		products:  make(map[string]*domain.Product),
		alerts:    make(map[string]*domain.LowStockAlert),
		failStock: make(map[string]bool),
	}
}

func (m *memStore) addProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.products[p.ID] = &cp
}

func (m *memStore) addOrder(o domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := copyOrder(&o)
	m.orders[o.Number] = cp
}

func (m *memStore) addAlert(a domain.LowStockAlert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := a
	m.alerts[a.ProductID] = &cp
}

func (m *memStore) stockOf(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID].Stock
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	cp.Timeline = append([]domain.TimelineEntry(nil), o.Timeline...)
	return &cp
}

// --- port.OrderRepository ---

func (m *memStore) CreateOrder(ctx context.Context, order domain.Order) error {
	m.addOrder(order)
	return nil
}

func (m *memStore) GetOrder(ctx context.Context, number string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[number]
	if !ok {
		return nil, nil
	}
	return copyOrder(order), nil
}

func (m *memStore) ListOrders(ctx context.Context, status domain.OrderStatus, page, limit int) ([]domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			out = append(out, *copyOrder(o))
		}
	}
	return out, len(out), nil
}

func (m *memStore) ApplyTransition(ctx context.Context, upd port.TransitionUpdate) (*port.TransitionOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[upd.Number]
	if !ok || order.Version != upd.Version {
		return nil, port.ErrVersionConflict
	}

	outcome := m.applyEffectsLocked(upd.Effects)

	order.Status = upd.NewStatus
	order.Timeline = append(order.Timeline, upd.TimelineEntry)
	order.Version++
	order.UpdatedAt = upd.TimelineEntry.Timestamp
	if upd.TrackingNumber != "" {
		order.Shipping.TrackingNumber = upd.TrackingNumber
		order.Shipping.ShippedAt = upd.ShippedAt
	}
	if upd.DeliveredAt != nil {
		order.Shipping.DeliveredAt = upd.DeliveredAt
	}
	if upd.PaymentStatus != "" {
		order.Payment.Status = upd.PaymentStatus
		order.Payment.PaidAt = upd.PaidAt
	}
	return outcome, nil
}

func (m *memStore) DeleteOrder(ctx context.Context, number string, version int, effects []port.StockEffect) (*port.TransitionOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[number]
	if !ok || order.Version != version {
		return nil, port.ErrVersionConflict
	}
	outcome := m.applyEffectsLocked(effects)
	delete(m.orders, number)
	return outcome, nil
}

func (m *memStore) StatusBreakdown(ctx context.Context) ([]domain.StatusBreakdown, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byStatus := make(map[domain.OrderStatus]*domain.StatusBreakdown)
	for _, o := range m.orders {
		row, ok := byStatus[o.Status]
		if !ok {
			row = &domain.StatusBreakdown{Status: o.Status}
			byStatus[o.Status] = row
		}
		row.Count++
		row.Revenue = row.Revenue.Add(o.Total())
	}
	var out []domain.StatusBreakdown
	for _, row := range byStatus {
		out = append(out, *row)
	}
	return out, nil
}

func (m *memStore) applyEffectsLocked(effects []port.StockEffect) *port.TransitionOutcome {
	outcome := &port.TransitionOutcome{StockLevels: make(map[string]int)}
	for _, eff := range effects {
		product, ok := m.products[eff.ProductID]
		if !ok || m.failStock[eff.ProductID] || product.Stock+eff.Delta < 0 {
			outcome.Skipped = append(outcome.Skipped, eff)
			continue
		}
		product.Stock += eff.Delta
		product.InStock = product.Stock > 0
		m.movements = append(m.movements, eff.Movement)
		outcome.Movements = append(outcome.Movements, eff.Movement)
		outcome.StockLevels[eff.ProductID] = product.Stock
	}
	return outcome
}

// --- port.InventoryRepository ---

func (m *memStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *product
	return &cp, nil
}

func (m *memStore) ApplyMovement(ctx context.Context, delta int, movement domain.StockMovement) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[movement.ProductID]
	if !ok || product.Stock+delta < 0 {
		return 0, port.ErrInsufficientStock
	}
	product.Stock += delta
	product.InStock = product.Stock > 0
	m.movements = append(m.movements, movement)
	return product.Stock, nil
}

func (m *memStore) ListMovements(ctx context.Context, filter port.MovementFilter) ([]domain.StockMovement, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StockMovement
	for _, mv := range m.movements {
		if filter.ProductID != "" && mv.ProductID != filter.ProductID {
			continue
		}
		if filter.Type != "" && mv.Type != filter.Type {
			continue
		}
		out = append(out, mv)
	}
	return out, len(out), nil
}

func (m *memStore) Summary(ctx context.Context, productID string, from, to time.Time) (*domain.StockSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := domain.StockSummary{ProductID: productID}
	for _, mv := range m.movements {
		if mv.ProductID != productID || mv.CreatedAt.Before(from) || !mv.CreatedAt.Before(to) {
			continue
		}
		switch {
		case mv.Type.Inbound():
			summary.TotalIn += mv.Quantity
		case mv.Type == domain.MovementSale:
			summary.TotalOut += mv.Quantity
		}
	}
	summary.NetChange = summary.TotalIn - summary.TotalOut
	return &summary, nil
}

func (m *memStore) SalesTotals(ctx context.Context, productID string, since time.Time) (int, *time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		total int
		last  *time.Time
	)
	for _, mv := range m.movements {
		if mv.ProductID != productID || mv.Type != domain.MovementSale || mv.CreatedAt.Before(since) {
			continue
		}
		total += mv.Quantity
		if last == nil || mv.CreatedAt.After(*last) {
			t := mv.CreatedAt
			last = &t
		}
	}
	return total, last, nil
}

func (m *memStore) StockTrend(ctx context.Context, from, to time.Time) ([]domain.DailyStockTrend, error) {
	return nil, nil
}

// --- port.AlertRepository ---

func (m *memStore) GetAlertByProduct(ctx context.Context, productID string) (*domain.LowStockAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[productID]
	if !ok {
		return nil, nil
	}
	cp := *alert
	return &cp, nil
}

func (m *memStore) GetAlert(ctx context.Context, id string) (*domain.LowStockAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, alert := range m.alerts {
		if alert.ID == id {
			cp := *alert
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) SaveAlert(ctx context.Context, alert *domain.LowStockAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *alert
	m.alerts[alert.ProductID] = &cp
	return nil
}

func (m *memStore) ListActive(ctx context.Context, filter port.AlertFilter) ([]domain.LowStockAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LowStockAlert
	for _, alert := range m.alerts {
		if alert.Resolved {
			continue
		}
		if filter.Level != "" && alert.Level != filter.Level {
			continue
		}
		if filter.Category != "" && alert.Category != filter.Category {
			continue
		}
		out = append(out, *alert)
	}
	return out, nil
}

// --- port.AuditSink ---

func (m *memStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.auditErr != nil {
		return m.auditErr
	}
	m.audit = append(m.audit, entry)
	return nil
}

func (m *memStore) ByActor(ctx context.Context, actor string, limit int) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (m *memStore) ByTarget(ctx context.Context, targetType, targetID string, limit int) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (m *memStore) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry(nil), m.audit...), nil
}

// mockLockRepo serializes per key with real mutexes so concurrent tests
// exercise the same exclusion the redis lock provides.
type mockLockRepo struct {
	mu          sync.Mutex
	keys        map[string]*sync.Mutex
	idempotency map[string]bool
}

func newMockLockRepo() *mockLockRepo {
	return &mockLockRepo{
		keys:        make(map[string]*sync.Mutex),
		idempotency: make(map[string]bool),
	}
}

func (m *mockLockRepo) WithOrderLock(ctx context.Context, orderNumber string, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	lock, ok := m.keys[orderNumber]
	if !ok {
		lock = &sync.Mutex{}
		m.keys[orderNumber] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

func (m *mockLockRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idempotency[key] {
		return false, nil
	}
	m.idempotency[key] = true
	return true, nil
}

// mockNotifier records dispatches.
type mockNotifier struct {
	mu       sync.Mutex
	statuses int
	shipped  int
	lowStock int
}

func (m *mockNotifier) OrderStatusChanged(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses++
	return nil
}

func (m *mockNotifier) OrderShipped(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shipped++
	return nil
}

func (m *mockNotifier) LowStock(ctx context.Context, alert *domain.LowStockAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lowStock++
	return nil
}

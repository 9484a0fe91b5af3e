package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusBreakdown is one row of the order-stats report: how many orders sit
// in a status and the revenue they represent. A plain GROUP BY projection,
// not part of the correctness-critical path.
type StatusBreakdown struct {
	Status  OrderStatus
	Count   int
	Revenue decimal.Decimal
}

// DailyStockTrend is one day of ledger activity across all products.
type DailyStockTrend struct {
	Day       time.Time
	TotalIn   int
	TotalOut  int
	Movements int
}

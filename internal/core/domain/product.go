package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default thresholds applied when a product carries no override.
const (
	DefaultLowStockThreshold      = 5
	DefaultCriticalStockThreshold = 1
)

// Product is the projection of a catalog product this core reads and whose
// stock it mutates. Catalog CRUD itself lives elsewhere.
type Product struct {
	ID                     string
	Name                   string
	SKU                    string
	Category               string
	Price                  decimal.Decimal
	Stock                  int
	InStock                bool
	LowStockThreshold      int // 0 means use DefaultLowStockThreshold
	CriticalStockThreshold int // 0 means use DefaultCriticalStockThreshold
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (p *Product) EffectiveLowThreshold() int {
	if p.LowStockThreshold > 0 {
		return p.LowStockThreshold
	}
	return DefaultLowStockThreshold
}

func (p *Product) EffectiveCriticalThreshold() int {
	if p.CriticalStockThreshold > 0 {
		return p.CriticalStockThreshold
	}
	return DefaultCriticalStockThreshold
}

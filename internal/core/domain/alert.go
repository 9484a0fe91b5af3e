package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type AlertLevel string

const (
	AlertLevelLow        AlertLevel = "low"
	AlertLevelCritical   AlertLevel = "critical"
	AlertLevelOutOfStock AlertLevel = "out_of_stock"
)

const ResolutionRestocked = "restocked"

// DeriveAlertLevel classifies stock against the thresholds. The second return
// is false when stock is healthy (above the low threshold) and no alert level
// applies. Evaluation priority: out_of_stock, then critical, then low.
func DeriveAlertLevel(stock, lowThreshold, criticalThreshold int) (AlertLevel, bool) {
	switch {
	case stock == 0:
		return AlertLevelOutOfStock, true
	case stock <= criticalThreshold:
		return AlertLevelCritical, true
	case stock <= lowThreshold:
		return AlertLevelLow, true
	}
	return "", false
}

// RestockSuggestion is a reorder forecast recomputed from a trailing 30-day
// ledger window every time the alert is touched.
type RestockSuggestion struct {
	RecommendedQuantity int
	AverageMonthlySales int
	LastSaleDate        *time.Time
	SalesVelocity       float64 // units per day
}

// SuggestRestock computes the reorder forecast. totalSold is the sale-type
// quantity over the trailing 30 days. With sales in the window the suggestion
// covers 45 days of projected demand, floored at twice the low threshold and
// at 10 units. Without sales it falls back to three times the low threshold.
func SuggestRestock(totalSold int, lastSale *time.Time, lowThreshold int) RestockSuggestion {
	if totalSold <= 0 {
		return RestockSuggestion{
			RecommendedQuantity: lowThreshold * 3,
			SalesVelocity:       0,
		}
	}

	velocity := float64(totalSold) / 30.0
	recommended := int(math.Ceil(velocity * 45))
	if floor := lowThreshold * 2; recommended < floor {
		recommended = floor
	}
	if recommended < 10 {
		recommended = 10
	}

	return RestockSuggestion{
		RecommendedQuantity: recommended,
		AverageMonthlySales: totalSold,
		LastSaleDate:        lastSale,
		SalesVelocity:       velocity,
	}
}

// AlertNotification records one delivery attempt for an alert. Append-only.
type AlertNotification struct {
	Channel   string
	SentAt    time.Time
	Recipient string
	Status    string
}

// LowStockAlert is the single active-or-resolved alert record per product.
// It is derived state: level and suggestion are always recomputable from the
// product's stock and the ledger. Alerts are reactivated, never deleted.
type LowStockAlert struct {
	ID                     string
	ProductID              string
	ProductName            string
	SKU                    string
	Category               string
	Price                  decimal.Decimal
	CurrentStock           int
	LowStockThreshold      int
	CriticalStockThreshold int
	Level                  AlertLevel
	Resolved               bool
	ResolvedAt             *time.Time
	ResolvedBy             string
	Resolution             string
	Restock                RestockSuggestion
	Notifications          []AlertNotification
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

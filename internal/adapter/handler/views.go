package handler

import (
	"time"

	"github.com/rl1809/backoffice/internal/core/domain"
)

type lineItemView struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

type timelineView struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
	Actor     string    `json:"actor"`
}

type orderView struct {
	Number         string         `json:"number"`
	Status         string         `json:"status"`
	Items          []lineItemView `json:"items"`
	Total          string         `json:"total"`
	PaymentStatus  string         `json:"paymentStatus"`
	PaidAt         *time.Time     `json:"paidAt,omitempty"`
	TrackingNumber string         `json:"trackingNumber,omitempty"`
	ShippedAt      *time.Time     `json:"shippedAt,omitempty"`
	DeliveredAt    *time.Time     `json:"deliveredAt,omitempty"`
	Timeline       []timelineView `json:"timeline"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func toOrderView(o *domain.Order) orderView {
	view := orderView{
		Number:         o.Number,
		Status:         string(o.Status),
		Total:          o.Total().String(),
		PaymentStatus:  string(o.Payment.Status),
		PaidAt:         o.Payment.PaidAt,
		TrackingNumber: o.Shipping.TrackingNumber,
		ShippedAt:      o.Shipping.ShippedAt,
		DeliveredAt:    o.Shipping.DeliveredAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	for _, item := range o.Items {
		view.Items = append(view.Items, lineItemView{
			ProductID: item.ProductID,
			Name:      item.Name,
			SKU:       item.SKU,
			UnitPrice: item.UnitPrice.String(),
			Quantity:  item.Quantity,
		})
	}
	for _, entry := range o.Timeline {
		view.Timeline = append(view.Timeline, timelineView{
			Status:    string(entry.Status),
			Timestamp: entry.Timestamp,
			Note:      entry.Note,
			Actor:     entry.Actor,
		})
	}
	return view
}

type auditView struct {
	ID           string    `json:"id"`
	Actor        string    `json:"actor"`
	Action       string    `json:"action"`
	TargetType   string    `json:"targetType"`
	TargetID     string    `json:"targetId"`
	Description  string    `json:"description"`
	BeforeJSON   string    `json:"before,omitempty"`
	AfterJSON    string    `json:"after,omitempty"`
	Severity     string    `json:"severity"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toAuditView(e *domain.AuditEntry) auditView {
	return auditView{
		ID:           e.ID,
		Actor:        e.Actor,
		Action:       e.Action,
		TargetType:   e.TargetType,
		TargetID:     e.TargetID,
		Description:  e.Description,
		BeforeJSON:   e.BeforeJSON,
		AfterJSON:    e.AfterJSON,
		Severity:     string(e.Severity),
		Status:       string(e.Status),
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt,
	}
}

type movementView struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	Type        string    `json:"type"`
	Quantity    int       `json:"quantity"`
	OrderNumber string    `json:"orderNumber,omitempty"`
	Actor       string    `json:"actor"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toMovementView(m *domain.StockMovement) movementView {
	return movementView{
		ID:          m.ID,
		ProductID:   m.ProductID,
		Type:        string(m.Type),
		Quantity:    m.Quantity,
		OrderNumber: m.OrderNumber,
		Actor:       m.Actor,
		Reason:      m.Reason,
		CreatedAt:   m.CreatedAt,
	}
}

type restockView struct {
	RecommendedQuantity int        `json:"recommendedQuantity"`
	AverageMonthlySales int        `json:"averageMonthlySales"`
	LastSaleDate        *time.Time `json:"lastSaleDate,omitempty"`
	SalesVelocity       float64    `json:"salesVelocity"`
}

type notificationView struct {
	Channel   string    `json:"channel"`
	SentAt    time.Time `json:"sentAt"`
	Recipient string    `json:"recipient"`
	Status    string    `json:"status"`
}

type alertView struct {
	ID                     string             `json:"id"`
	ProductID              string             `json:"productId"`
	ProductName            string             `json:"productName"`
	SKU                    string             `json:"sku"`
	Category               string             `json:"category,omitempty"`
	CurrentStock           int                `json:"currentStock"`
	LowStockThreshold      int                `json:"lowStockThreshold"`
	CriticalStockThreshold int                `json:"criticalStockThreshold"`
	Level                  string             `json:"alertLevel"`
	Resolved               bool               `json:"isResolved"`
	ResolvedAt             *time.Time         `json:"resolvedAt,omitempty"`
	ResolvedBy             string             `json:"resolvedBy,omitempty"`
	Resolution             string             `json:"resolution,omitempty"`
	Restock                restockView        `json:"restockSuggestion"`
	Notifications          []notificationView `json:"notifications,omitempty"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

func toAlertView(a *domain.LowStockAlert) alertView {
	view := alertView{
		ID:                     a.ID,
		ProductID:              a.ProductID,
		ProductName:            a.ProductName,
		SKU:                    a.SKU,
		Category:               a.Category,
		CurrentStock:           a.CurrentStock,
		LowStockThreshold:      a.LowStockThreshold,
		CriticalStockThreshold: a.CriticalStockThreshold,
		Level:                  string(a.Level),
		Resolved:               a.Resolved,
		ResolvedAt:             a.ResolvedAt,
		ResolvedBy:             a.ResolvedBy,
		Resolution:             a.Resolution,
		Restock: restockView{
			RecommendedQuantity: a.Restock.RecommendedQuantity,
			AverageMonthlySales: a.Restock.AverageMonthlySales,
			LastSaleDate:        a.Restock.LastSaleDate,
			SalesVelocity:       a.Restock.SalesVelocity,
		},
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	for _, n := range a.Notifications {
		view.Notifications = append(view.Notifications, notificationView{
			Channel:   n.Channel,
			SentAt:    n.SentAt,
			Recipient: n.Recipient,
			Status:    n.Status,
		})
	}
	return view
}

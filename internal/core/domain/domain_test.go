package domain

import (
	"testing"
	"time"
)

func TestCanTransition_ForbiddenPairs(t *testing.T) {
	forbidden := []struct {
		from OrderStatus
		to   OrderStatus
	}{
		{OrderStatusDelivered, OrderStatusPending},
		{OrderStatusDelivered, OrderStatusConfirmed},
		{OrderStatusDelivered, OrderStatusProcessing},
		{OrderStatusCancelled, OrderStatusConfirmed},
		{OrderStatusCancelled, OrderStatusProcessing},
		{OrderStatusCancelled, OrderStatusShipped},
		{OrderStatusCancelled, OrderStatusDelivered},
		{OrderStatusReturned, OrderStatusPending},
		{OrderStatusReturned, OrderStatusConfirmed},
		{OrderStatusReturned, OrderStatusProcessing},
		{OrderStatusReturned, OrderStatusShipped},
	}
	for _, pair := range forbidden {
		if CanTransition(pair.from, pair.to) {
			t.Errorf("expected %s -> %s to be forbidden", pair.from, pair.to)
		}
	}

	allowed := []struct {
		from OrderStatus
		to   OrderStatus
	}{
		{OrderStatusPending, OrderStatusConfirmed},
		{OrderStatusConfirmed, OrderStatusCancelled},
		{OrderStatusShipped, OrderStatusDelivered},
		{OrderStatusDelivered, OrderStatusReturned},
		{OrderStatusCancelled, OrderStatusPending},
		{OrderStatusReturned, OrderStatusReturned},
		{OrderStatusProcessing, OrderStatusProcessing}, // same-status is permitted
	}
	for _, pair := range allowed {
		if !CanTransition(pair.from, pair.to) {
			t.Errorf("expected %s -> %s to be allowed", pair.from, pair.to)
		}
	}
}

func TestDeriveAlertLevel(t *testing.T) {
	tests := []struct {
		stock  int
		level  AlertLevel
		active bool
	}{
		{0, AlertLevelOutOfStock, true},
		{1, AlertLevelCritical, true},
		{2, AlertLevelLow, true},
		{5, AlertLevelLow, true},
		{6, "", false},
		{100, "", false},
	}
	for _, tt := range tests {
		level, active := DeriveAlertLevel(tt.stock, 5, 1)
		if level != tt.level || active != tt.active {
			t.Errorf("stock %d: got (%q, %v), want (%q, %v)", tt.stock, level, active, tt.level, tt.active)
		}
	}
}

func TestSuggestRestock_NoSales(t *testing.T) {
	got := SuggestRestock(0, nil, 5)
	if got.RecommendedQuantity != 15 {
		t.Errorf("expected conservative default 15, got %d", got.RecommendedQuantity)
	}
	if got.SalesVelocity != 0 {
		t.Errorf("expected zero velocity, got %f", got.SalesVelocity)
	}
}

func TestSuggestRestock_Velocity(t *testing.T) {
	// 60 units over 30 days: 2/day, 45-day cover = 90.
	last := time.Now()
	got := SuggestRestock(60, &last, 5)
	if got.RecommendedQuantity != 90 {
		t.Errorf("expected 90, got %d", got.RecommendedQuantity)
	}
	if got.SalesVelocity != 2 {
		t.Errorf("expected velocity 2, got %f", got.SalesVelocity)
	}
	if got.LastSaleDate == nil || !got.LastSaleDate.Equal(last) {
		t.Errorf("expected last sale date preserved")
	}
}

func TestSuggestRestock_ThresholdFloor(t *testing.T) {
	// Velocity of 1/3 per day suggests 15, raised to the 2x-threshold floor.
	got := SuggestRestock(10, nil, 20)
	if got.RecommendedQuantity != 40 {
		t.Errorf("expected floor 40, got %d", got.RecommendedQuantity)
	}
}

func TestSuggestRestock_MinimumFloor(t *testing.T) {
	got := SuggestRestock(1, nil, 2)
	if got.RecommendedQuantity != 10 {
		t.Errorf("expected minimum 10, got %d", got.RecommendedQuantity)
	}
}

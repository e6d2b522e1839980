package models

import "time"

// OrderStatus mirrors the order subsystem's status values.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPlaced    OrderStatus = "placed"
	OrderAccepted  OrderStatus = "accepted"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// InactiveOrderStatuses lists statuses that no longer occupy a table.
var InactiveOrderStatuses = []OrderStatus{OrderCompleted, OrderCancelled}

// Order is the read-only view of a dine-in order used for occupancy checks.
type Order struct {
	ID          string      `json:"id"`
	TableNumber int         `json:"tableNumber"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// IsActive reports whether the order still keeps its table occupied.
func (o *Order) IsActive() bool {
	return o.Status != OrderCompleted && o.Status != OrderCancelled
}

// OccupancyWindow returns the inclusive span the order keeps its table:
// from preBuffer before seating until seating ends.
func (o *Order) OccupancyWindow(preBuffer, seating time.Duration) (start, end time.Time) {
	return o.CreatedAt.Add(-preBuffer), o.CreatedAt.Add(seating)
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPlaced, OrderAccepted, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

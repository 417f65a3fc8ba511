package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a customer's request tied to one table and one waiter.
// Invariant: Total = Subtotal + Tip, Tax is always zero.
type Order struct {
	Model
	TableID     uint            `gorm:"not null;index" json:"tableId"`
	Table       *Table          `json:"table,omitempty"`
	WaiterID    uint            `gorm:"not null;index" json:"waiterId"`
	Waiter      *User           `gorm:"foreignkey:WaiterID" json:"waiter,omitempty"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Tax         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"tax"`
	Tip         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"tip"`
	Total       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Notes       string          `json:"notes,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Items       []OrderItem     `gorm:"foreignkey:OrderID" json:"items"`
}

// OrderItem is one priced line of an order. UnitPrice is the menu price at the
// time the line was added and never follows later menu changes.
type OrderItem struct {
	Model
	OrderID    uint            `gorm:"not null;index" json:"orderId"`
	MenuItemID uint            `gorm:"not null;index" json:"menuItemId"`
	MenuItem   *MenuItem       `json:"menuItem,omitempty"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unitPrice"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalPrice"`
	Notes      string          `json:"notes,omitempty"`
}

// NewOrderItem snapshots the menu item's current price into a new line
func NewOrderItem(item *MenuItem, quantity int, notes string) OrderItem {
	return OrderItem{
		MenuItemID: item.ID,
		Quantity:   quantity,
		UnitPrice:  item.Price,
		TotalPrice: item.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Notes:      notes,
	}
}

// Recalculate derives subtotal and total from the order's items and tip
func (o *Order) Recalculate() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	o.Subtotal = subtotal
	o.Tax = decimal.Zero
	o.Total = subtotal.Add(o.Tip)
}

// OrderStatus represents the possible states of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderPreparing OrderStatus = "PREPARING"
	OrderReady     OrderStatus = "READY"
	OrderServed    OrderStatus = "SERVED"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// forward is the service pipeline in order
var forward = []OrderStatus{
	OrderPending,
	OrderConfirmed,
	OrderPreparing,
	OrderReady,
	OrderServed,
	OrderCompleted,
}

// HoldingStatuses lists the statuses of orders that keep their table OCCUPIED
var HoldingStatuses = []OrderStatus{OrderPending, OrderConfirmed, OrderPreparing, OrderReady}

// OpenStatuses lists the statuses of orders that still hold their table's attention
var OpenStatuses = []OrderStatus{OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderServed}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	return s == OrderCancelled || s.step() >= 0
}

// Terminal reports whether no further transition is possible
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// ReleasesTable reports whether reaching s frees the order's table
func (s OrderStatus) ReleasesTable() bool {
	return s == OrderServed || s == OrderCompleted || s == OrderCancelled
}

func (s OrderStatus) step() int {
	for i, st := range forward {
		if st == s {
			return i
		}
	}
	return -1
}

// CanTransition checks a status change against the order pipeline. Orders move
// one step forward at a time; CANCELLED is reachable from any non-terminal state.
func CanTransition(from, to OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown order status %q", ErrValidation, to)
	}
	if from.Terminal() {
		return fmt.Errorf("%w: order is already %s", ErrInvalidState, from)
	}
	if to == OrderCancelled {
		return nil
	}
	if to.step() != from.step()+1 {
		return fmt.Errorf("%w: cannot move order from %s to %s", ErrInvalidState, from, to)
	}
	return nil
}

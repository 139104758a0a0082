package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a meal order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusFailed    OrderStatus = "failed"
	StatusCancelled OrderStatus = "cancelled"
	StatusRefunded  OrderStatus = "refunded"
	StatusDelivered OrderStatus = "delivered"
)

// Display returns the human label used in summaries and emails
func (s OrderStatus) Display() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusPaid:
		return "Paid"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	case StatusRefunded:
		return "Refunded"
	case StatusDelivered:
		return "Delivered"
	}
	return string(s)
}

type Order struct {
	ID            uint                 `json:"id" gorm:"primaryKey"`
	Reference     string               `json:"reference" gorm:"uniqueIndex;size:64;not null"`
	UserID        *uint                `json:"user_id" gorm:"index"`
	User          *User                `json:"user,omitempty" gorm:"foreignKey:UserID"`
	FullName      string               `json:"full_name" gorm:"not null"`
	Email         string               `json:"email" gorm:"index;not null"`
	PhoneNumber   string               `json:"phone_number" gorm:"not null"`
	Address       string               `json:"address" gorm:"not null"`
	Subtotal      decimal.Decimal      `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	Tax           decimal.Decimal      `json:"tax" gorm:"type:decimal(12,2);not null"`
	Shipping      decimal.Decimal      `json:"shipping" gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal      `json:"total" gorm:"type:decimal(12,2);not null"`
	ItemsSnapshot string               `json:"items_snapshot" gorm:"type:text"`
	Status        OrderStatus          `json:"status" gorm:"index;not null;default:'pending'"`
	Items         []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Payment       *PaymentTransaction  `json:"payment,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// AmountKobo is the expected gateway amount in minor units
func (o Order) AmountKobo() int64 {
	return ToKobo(o.Total)
}

type OrderItemKind string

const (
	ItemKindMealPlan   OrderItemKind = "meal_plan"
	ItemKindCustomItem OrderItemKind = "custom_item"
)

// OrderItem snapshots everything a receipt needs so historical orders do
// not change when the catalog does. Macros are per unit: for a plan they
// cover one cycle of its meals.
type OrderItem struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	OrderID       uint            `json:"order_id" gorm:"index;not null"`
	Kind          OrderItemKind   `json:"kind" gorm:"not null"`
	MealPlanID    *uint           `json:"meal_plan_id"`
	FoodItemID    *uint           `json:"food_item_id"`
	Name          string          `json:"name" gorm:"not null"` // snapshot name
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Quantity      int             `json:"quantity" gorm:"not null"`
	TotalPrice    decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null"`
	MealCount     int             `json:"meal_count"`
	Days          int             `json:"days"`
	Density       Density         `json:"density"`
	Calories      int             `json:"calories"`
	Protein       decimal.Decimal `json:"protein" gorm:"type:decimal(10,2)"`
	Carbohydrates decimal.Decimal `json:"carbohydrates" gorm:"type:decimal(10,2)"`
	Fat           decimal.Decimal `json:"fat" gorm:"type:decimal(10,2)"`
}

type PaymentTransaction struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	OrderID          uint       `json:"order_id" gorm:"uniqueIndex;not null"`
	Gateway          string     `json:"gateway" gorm:"not null;default:'paystack'"`
	GatewayReference string     `json:"gateway_reference"`
	AuthorizationURL string     `json:"authorization_url"`
	RawResponse      string     `json:"-" gorm:"type:text"`
	PaidAt           *time.Time `json:"paid_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"index;not null"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	Actor      string      `json:"actor"`
	ChangedBy  *uint       `json:"changed_by"` // nil for gateway or guest driven changes
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs to exactly one of a user or a guest session key
type Cart struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     *uint      `json:"user_id" gorm:"uniqueIndex"`
	SessionKey *string    `json:"session_key,omitempty" gorm:"uniqueIndex;size:64"`
	Plans      []CartPlan `json:"plans,omitempty" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	Items      []CartItem `json:"items,omitempty" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartPlan is a meal plan in a cart. UnitPrice is snapshotted when the
// plan is added and only changes through an explicit refresh.
type CartPlan struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	CartID     uint            `json:"cart_id" gorm:"index;not null"`
	MealPlanID uint            `json:"meal_plan_id" gorm:"index;not null"`
	MealPlan   MealPlan        `json:"meal_plan" gorm:"foreignKey:MealPlanID"`
	Quantity   int             `json:"quantity" gorm:"not null;default:1"`
	UnitPrice  decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Items      []CartItem      `json:"items,omitempty" gorm:"foreignKey:CartPlanID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ComputedPrice is the snapshot unit price times quantity
func (p CartPlan) ComputedPrice() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// CartItem is a plan-derived meal when CartPlanID is set, otherwise a
// standalone custom selection. UnitPrice is snapshotted like CartPlan's.
type CartItem struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	CartID     uint            `json:"cart_id" gorm:"uniqueIndex:idx_cart_item_role;not null"`
	FoodItemID uint            `json:"food_item_id" gorm:"uniqueIndex:idx_cart_item_role;not null"`
	FoodItem   FoodItem        `json:"food_item" gorm:"foreignKey:FoodItemID"`
	CartPlanID *uint           `json:"cart_plan_id" gorm:"uniqueIndex:idx_cart_item_role"`
	Quantity   int             `json:"quantity" gorm:"not null;default:1"`
	UnitPrice  decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (i CartItem) IsCustom() bool {
	return i.CartPlanID == nil
}

func (i CartItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

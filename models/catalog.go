package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Density classifies food items and meal plans
type Density string

const (
	DensityLean  Density = "lean"
	DensityDense Density = "dense"
)

// Display returns the capitalised label shown on receipts
func (d Density) Display() string {
	switch d {
	case DensityLean:
		return "Lean"
	case DensityDense:
		return "Dense"
	}
	return string(d)
}

func (d Density) Valid() bool {
	return d == DensityLean || d == DensityDense
}

type Category string

const (
	CategoryBreakfast Category = "breakfast"
	CategoryLunch     Category = "lunch"
	CategoryDinner    Category = "dinner"
	CategorySnack     Category = "snack"
)

type SpiceLevel string

const (
	SpiceNone SpiceLevel = "none"
	SpiceMild SpiceLevel = "mild"
	SpiceHot  SpiceLevel = "hot"
)

type FoodItem struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	Name          string          `json:"name" gorm:"not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Description   string          `json:"description"`
	Ingredients   string          `json:"ingredients"`
	Calories      int             `json:"calories" gorm:"not null;default:0"`
	Protein       decimal.Decimal `json:"protein" gorm:"type:decimal(8,2);not null;default:0"`
	Carbohydrates decimal.Decimal `json:"carbohydrates" gorm:"type:decimal(8,2);not null;default:0"`
	Fat           decimal.Decimal `json:"fat" gorm:"type:decimal(8,2);not null;default:0"`
	FoodType      Density         `json:"food_type" gorm:"index;not null"`
	Category      Category        `json:"category" gorm:"index"`
	SpiceLevel    SpiceLevel      `json:"spice_level" gorm:"default:'none'"`
	ImageURL      string          `json:"image_url"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// MealPlan is a bundle of meals sold as one cart line.
// (meal_count, days, density) is unique.
type MealPlan struct {
	ID        uint                `json:"id" gorm:"primaryKey"`
	Title     string              `json:"title" gorm:"not null"`
	Slug      string              `json:"slug" gorm:"uniqueIndex;not null"`
	MealCount int                 `json:"meal_count" gorm:"uniqueIndex:idx_plan_shape;not null"`
	Days      int                 `json:"days" gorm:"uniqueIndex:idx_plan_shape;not null"`
	Density   Density             `json:"density" gorm:"uniqueIndex:idx_plan_shape;not null"`
	IsCustom  bool                `json:"is_custom" gorm:"not null;default:false"`
	Price     decimal.NullDecimal `json:"price" gorm:"type:decimal(12,2)"`
	Meals     []FoodItem          `json:"meals,omitempty" gorm:"many2many:meal_plan_meals;"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

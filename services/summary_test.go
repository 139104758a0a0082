package services

import (
	"testing"
	"time"

	"meal-order-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartSummary_SinglePlan(t *testing.T) {
	env := newTestEnv(t)
	a := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	b := seedFood(t, env.db, "Efo Riro", 2000, 350, "25")
	plan := seedPlan(t, env.db, "Lean 15", 15, 5, models.DensityLean, 8000, a, b)

	_, err := env.carts.AddPlan(guest("g1"), plan.ID, 1, false)
	require.NoError(t, err)

	sum, err := env.carts.Summary(guest("g1"), "Ada Obi")
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", sum.ReceiptFor)
	assert.Equal(t, "Lean", sum.PackageType)
	assert.Equal(t, "5 Days", sum.PlanDuration)
	assert.Equal(t, "75 meals", sum.TotalMeals)
	// (400+350) calories per cycle over 5 days
	assert.Equal(t, "3,750 calories", sum.TotalMacros.Calories)
	assert.Equal(t, "225 g Protein", sum.TotalMacros.Protein)
	assert.Equal(t, "100 g Carbohydrates", sum.TotalMacros.Carbohydrates)
	assert.Equal(t, "50 g Fat", sum.TotalMacros.Fat)
	assert.Equal(t, "₦8,000", sum.TotalMealsFee)
	assert.Equal(t, "₦8,000", sum.Total)
}

func TestCartSummary_MixedIsCustom(t *testing.T) {
	env := newTestEnv(t)
	a := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	plan := seedPlan(t, env.db, "Dense 21", 21, 7, models.DensityDense, 12000, a)

	_, err := env.carts.AddPlan(guest("g1"), plan.ID, 1, false)
	require.NoError(t, err)
	_, err = env.carts.UpdateCustomItem(guest("g1"), a.ID, 2)
	require.NoError(t, err)

	sum, err := env.carts.Summary(guest("g1"), "")
	require.NoError(t, err)
	assert.Equal(t, "custom", sum.PackageType)
	assert.Empty(t, sum.PlanDuration)
	assert.Equal(t, "149 meals", sum.TotalMeals)
	assert.Equal(t, "₦12,000", sum.TotalMealsFee, "meals fee covers plans only")
	assert.Equal(t, "₦15,000", sum.Total)
}

func TestCartSummary_Empty(t *testing.T) {
	sum := BuildCartSummary(&models.Cart{}, "guest")
	assert.Equal(t, "custom", sum.PackageType)
	assert.Equal(t, "0 meals", sum.TotalMeals)
	assert.Equal(t, "0 calories", sum.TotalMacros.Calories)
	assert.Equal(t, "₦0", sum.Total)
}

func TestBuildOrderSummary(t *testing.T) {
	order := &models.Order{
		Reference: "abc123",
		Status:    models.StatusPaid,
		Subtotal:  decimal.NewFromInt(16000),
		Shipping:  decimal.NewFromInt(1500),
		Total:     decimal.NewFromInt(17500),
		Items: []models.OrderItem{{
			Kind:          models.ItemKindMealPlan,
			Quantity:      2,
			TotalPrice:    decimal.NewFromInt(16000),
			MealCount:     15,
			Days:          5,
			Density:       models.DensityDense,
			Calories:      600,
			Protein:       decimal.NewFromInt(30),
			Carbohydrates: decimal.NewFromInt(50),
			Fat:           decimal.NewFromInt(10),
		}},
	}
	order.CreatedAt = time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)

	sum := BuildOrderSummary(order)
	assert.Equal(t, "March 07, 2024", sum.CreatedDate)
	assert.Equal(t, "Dense", sum.PackageType)
	assert.Equal(t, "5 Days", sum.PlanDuration)
	assert.Equal(t, "150 meals", sum.TotalMeals)
	assert.Equal(t, "6,000 calories", sum.TotalMacros.Calories)
	assert.Equal(t, "300 g Protein", sum.TotalMacros.Protein)
	assert.Equal(t, "₦16,000", sum.TotalMealsFee)
	assert.Equal(t, "₦1,500", sum.DeliveryFee)
	assert.Equal(t, "₦17,500", sum.Total)
	assert.Equal(t, "Paid", sum.StatusDisplay)
}

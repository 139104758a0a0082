package services

import (
	"errors"
	"strconv"
	"testing"

	"meal-order-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPlan_MaterialisesMeals(t *testing.T) {
	env := newTestEnv(t)
	a := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	b := seedFood(t, env.db, "Efo Riro", 2000, 350, "25")
	plan := seedPlan(t, env.db, "Lean 15", 15, 5, models.DensityLean, -1, a, b)

	view, err := env.carts.AddPlan(guest("g1"), plan.ID, 2, false)
	require.NoError(t, err)
	require.Len(t, view.Plans, 1)

	line := view.Plans[0]
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, decimal.NewFromInt(3500).Equal(line.UnitPrice), "unit price is the sum of meal prices")
	assert.True(t, decimal.NewFromInt(7000).Equal(line.ComputedPrice))
	assert.Len(t, line.Items, 2)
	assert.Empty(t, view.CustomItems)
	assert.True(t, decimal.NewFromInt(7000).Equal(view.TotalPrice))
}

func TestAddPlan_MergeIncrementsQuantity(t *testing.T) {
	env := newTestEnv(t)
	a := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	plan := seedPlan(t, env.db, "Lean 15", 15, 5, models.DensityLean, 8000, a)

	_, err := env.carts.AddPlan(guest("g1"), plan.ID, 1, true)
	require.NoError(t, err)
	view, err := env.carts.AddPlan(guest("g1"), plan.ID, 2, true)
	require.NoError(t, err)

	require.Len(t, view.Plans, 1)
	assert.Equal(t, 3, view.Plans[0].Quantity)

	var rows int64
	env.db.Model(&models.CartPlan{}).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestAddPlan_WithoutMergeAddsSecondLine(t *testing.T) {
	env := newTestEnv(t)
	a := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	plan := seedPlan(t, env.db, "Lean 15", 15, 5, models.DensityLean, 8000, a)

	_, err := env.carts.AddPlan(guest("g1"), plan.ID, 1, false)
	require.NoError(t, err)
	view, err := env.carts.AddPlan(guest("g1"), plan.ID, 1, false)
	require.NoError(t, err)
	assert.Len(t, view.Plans, 2)
}

func TestAddPlan_Rejections(t *testing.T) {
	env := newTestEnv(t)
	empty := seedPlan(t, env.db, "Empty", 15, 5, models.DensityDense, 100)

	_, err := env.carts.AddPlan(guest("g1"), empty.ID, 0, false)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = env.carts.AddPlan(guest("g1"), empty.ID, 1, false)
	assert.Equal(t, ErrPlanHasNoMeals, err)

	_, err = env.carts.AddPlan(guest("g1"), 9999, 1, false)
	assert.Equal(t, ErrPlanNotFound, err)
}

func TestUpdateCustomItem_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	food := seedFood(t, env.db, "Moi Moi", 1200, 300, "12")

	view, err := env.carts.UpdateCustomItem(guest("g1"), food.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.CustomItems, 1)
	assert.Equal(t, 2, view.CustomItems[0].Quantity)

	view, err = env.carts.UpdateCustomItem(guest("g1"), food.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, view.CustomItems[0].Quantity)

	view, err = env.carts.UpdateCustomItem(guest("g1"), food.ID, -3)
	require.NoError(t, err)
	assert.Empty(t, view.CustomItems, "reaching zero deletes the row")

	var rows int64
	env.db.Model(&models.CartItem{}).Count(&rows)
	assert.Equal(t, int64(0), rows)
}

func TestUpdateCustomItem_DecrementMissingIsError(t *testing.T) {
	env := newTestEnv(t)
	food := seedFood(t, env.db, "Moi Moi", 1200, 300, "12")

	_, err := env.carts.UpdateCustomItem(guest("g1"), food.ID, -1)
	assert.Equal(t, ErrItemNotInCart, err)

	var rows int64
	env.db.Model(&models.CartItem{}).Count(&rows)
	assert.Equal(t, int64(0), rows)
}

func TestUpdateCustomItem_UnknownFood(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.carts.UpdateCustomItem(guest("g1"), 42, 1)
	assert.Equal(t, ErrFoodItemNotFound, err)
}

func TestCustomItemCoexistsWithPlanMeal(t *testing.T) {
	env := newTestEnv(t)
	food := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	plan := seedPlan(t, env.db, "Lean 15", 15, 5, models.DensityLean, 8000, food)

	_, err := env.carts.AddPlan(guest("g1"), plan.ID, 1, false)
	require.NoError(t, err)
	view, err := env.carts.UpdateCustomItem(guest("g1"), food.ID, 1)
	require.NoError(t, err)

	assert.Len(t, view.Plans[0].Items, 1)
	assert.Len(t, view.CustomItems, 1)
}

func TestCartTotalInvariant(t *testing.T) {
	env := newTestEnv(t)
	a := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	b := seedFood(t, env.db, "Suya", 2500, 500, "30")
	c := seedFood(t, env.db, "Plantain", 700, 200, "2")
	p1 := seedPlan(t, env.db, "Lean 15", 15, 5, models.DensityLean, 8000, a)
	p2 := seedPlan(t, env.db, "Dense 21", 21, 7, models.DensityDense, -1, a, b)

	owner := guest("g1")
	_, err := env.carts.AddPlan(owner, p1.ID, 2, false)
	require.NoError(t, err)
	_, err = env.carts.AddPlan(owner, p2.ID, 1, false)
	require.NoError(t, err)
	_, err = env.carts.UpdateCustomItem(owner, c.ID, 3)
	require.NoError(t, err)
	_, err = env.carts.UpdateCustomItem(owner, b.ID, 1)
	require.NoError(t, err)

	cart, err := env.carts.Load(owner)
	require.NoError(t, err)

	expected := decimal.Zero
	for _, p := range cart.Plans {
		expected = expected.Add(p.ComputedPrice())
	}
	for _, it := range cart.Items {
		expected = expected.Add(it.TotalPrice())
	}
	assert.True(t, expected.Equal(CartTotal(cart)))
	// 2*8000 + (1500+2500) + 3*700 + 2500
	assert.True(t, decimal.NewFromInt(24600).Equal(CartTotal(cart)), CartTotal(cart).String())
}

func TestPriceSnapshotAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	a := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	plan := seedPlan(t, env.db, "Lean 15", 15, 5, models.DensityLean, -1, a)
	owner := guest("g1")

	_, err := env.carts.AddPlan(owner, plan.ID, 1, false)
	require.NoError(t, err)
	_, err = env.carts.UpdateCustomItem(owner, a.ID, 1)
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&a).Update("price", decimal.NewFromInt(2000)).Error)

	view, err := env.carts.Get(owner)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3000).Equal(view.TotalPrice), "prices stay snapshotted")

	view, err = env.carts.Refresh(owner)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4000).Equal(view.TotalPrice), view.TotalPrice.String())
}

func TestAddCustomSelection(t *testing.T) {
	env := newTestEnv(t)
	a := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	b := seedFood(t, env.db, "Suya", 2500, 500, "30")
	c := seedFood(t, env.db, "Plantain", 700, 200, "2")

	key := func(f models.FoodItem) string { return strconv.FormatUint(uint64(f.ID), 10) }
	view, err := env.carts.AddCustomSelection(guest("g1"), []uint{a.ID, b.ID, c.ID},
		map[string]int{key(a): 2, key(c): 0})
	require.NoError(t, err)

	require.Len(t, view.CustomItems, 2, "zero quantities are skipped")
	assert.Equal(t, a.ID, view.CustomItems[0].FoodItemID)
	assert.Equal(t, 2, view.CustomItems[0].Quantity)
	assert.Equal(t, 1, view.CustomItems[1].Quantity, "missing quantity defaults to one")

	_, err = env.carts.AddCustomSelection(guest("g1"), nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = env.carts.AddCustomSelection(guest("g1"), []uint{a.ID, 777}, nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRemoveItem(t *testing.T) {
	env := newTestEnv(t)
	a := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	plan := seedPlan(t, env.db, "Lean 15", 15, 5, models.DensityLean, 8000, a)
	owner := guest("g1")

	view, err := env.carts.AddPlan(owner, plan.ID, 1, false)
	require.NoError(t, err)
	_, err = env.carts.UpdateCustomItem(owner, a.ID, 1)
	require.NoError(t, err)

	planLine := view.Plans[0].ID
	view, err = env.carts.RemoveItem(owner, &planLine, nil)
	require.NoError(t, err)
	assert.Empty(t, view.Plans)
	assert.Len(t, view.CustomItems, 1)

	view, err = env.carts.RemoveItem(owner, nil, &a.ID)
	require.NoError(t, err)
	assert.Empty(t, view.CustomItems)

	var rows int64
	env.db.Model(&models.CartItem{}).Count(&rows)
	assert.Equal(t, int64(0), rows, "plan meals go with the plan")

	_, err = env.carts.RemoveItem(owner, &planLine, nil)
	assert.Equal(t, ErrCartPlanNotFound, err)
	_, err = env.carts.RemoveItem(owner, nil, &a.ID)
	assert.Equal(t, ErrCartItemNotFound, err)
	_, err = env.carts.RemoveItem(owner, nil, nil)
	assert.Equal(t, ErrRemoveTarget, err)
}

func TestMergeGuestCart(t *testing.T) {
	env := newTestEnv(t)
	a := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	b := seedFood(t, env.db, "Suya", 2500, 500, "30")
	shared := seedPlan(t, env.db, "Lean 15", 15, 5, models.DensityLean, 8000, a)
	guestOnly := seedPlan(t, env.db, "Dense 21", 21, 7, models.DensityDense, 12000, b)
	user := seedUser(t, env.db, "ada@example.com")

	_, err := env.carts.AddPlan(userOwner(user.ID), shared.ID, 1, false)
	require.NoError(t, err)
	_, err = env.carts.UpdateCustomItem(userOwner(user.ID), a.ID, 1)
	require.NoError(t, err)

	_, err = env.carts.AddPlan(guest("g1"), shared.ID, 2, false)
	require.NoError(t, err)
	_, err = env.carts.AddPlan(guest("g1"), guestOnly.ID, 1, false)
	require.NoError(t, err)
	_, err = env.carts.UpdateCustomItem(guest("g1"), a.ID, 2)
	require.NoError(t, err)
	_, err = env.carts.UpdateCustomItem(guest("g1"), b.ID, 1)
	require.NoError(t, err)

	view, err := env.carts.MergeGuestCart(user.ID, "g1")
	require.NoError(t, err)

	require.Len(t, view.Plans, 2)
	assert.Equal(t, shared.ID, view.Plans[0].MealPlanID)
	assert.Equal(t, 3, view.Plans[0].Quantity, "matching plans sum quantities")
	assert.Len(t, view.Plans[0].Items, 1)
	assert.Equal(t, guestOnly.ID, view.Plans[1].MealPlanID)
	assert.Len(t, view.Plans[1].Items, 1, "moved plans keep their meals")

	require.Len(t, view.CustomItems, 2)
	assert.Equal(t, 3, view.CustomItems[0].Quantity)
	assert.Equal(t, 1, view.CustomItems[1].Quantity)

	var guests int64
	env.db.Model(&models.Cart{}).Where("session_key = ?", "g1").Count(&guests)
	assert.Equal(t, int64(0), guests, "guest cart is deleted")

	var orphans int64
	env.db.Model(&models.CartItem{}).Where("cart_id <> ?", view.ID).Count(&orphans)
	assert.Equal(t, int64(0), orphans)
}

func TestMergeGuestCart_NoGuestCart(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env.db, "ada@example.com")

	view, err := env.carts.MergeGuestCart(user.ID, "missing")
	require.NoError(t, err)
	assert.Empty(t, view.Plans)
}

func TestCartTotalMeals(t *testing.T) {
	env := newTestEnv(t)
	a := seedFood(t, env.db, "Jollof", 1500, 400, "20")
	plan := seedPlan(t, env.db, "Lean 15", 15, 5, models.DensityLean, 8000, a)
	owner := guest("g1")

	_, err := env.carts.AddPlan(owner, plan.ID, 2, false)
	require.NoError(t, err)
	_, err = env.carts.UpdateCustomItem(owner, a.ID, 4)
	require.NoError(t, err)

	n, err := env.carts.TotalMeals(owner)
	require.NoError(t, err)
	assert.Equal(t, 15*5*2+4, n)
}

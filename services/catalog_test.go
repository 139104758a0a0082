package services

import (
	"errors"
	"fmt"
	"testing"

	"meal-order-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMeals(t *testing.T, env *testEnv, n int) []models.FoodItem {
	t.Helper()
	meals := make([]models.FoodItem, 0, n)
	for i := 0; i < n; i++ {
		meals = append(meals, seedFood(t, env.db, fmt.Sprintf("Meal %02d", i+1), 1000, 300, "10"))
	}
	return meals
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Lean 15 Meals", "lean-15-meals"},
		{"  Dense -- 21 ", "dense-21"},
		{"Chef's Pick!", "chef-s-pick"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Slugify(tc.in), tc.in)
	}
}

func TestListMealsFilters(t *testing.T) {
	env := newTestEnv(t)
	seedFood(t, env.db, "Jollof", 1500, 400, "20")
	dense := models.FoodItem{Name: "Pounded Yam", Price: decimal.NewFromInt(2500), FoodType: models.DensityDense, Category: models.CategoryDinner}
	require.NoError(t, env.db.Create(&dense).Error)

	all, err := env.catalog.ListMeals(MealFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyDense, err := env.catalog.ListMeals(MealFilter{Type: models.DensityDense})
	require.NoError(t, err)
	require.Len(t, onlyDense, 1)
	assert.Equal(t, "Pounded Yam", onlyDense[0].Name)

	lunch, err := env.catalog.ListMeals(MealFilter{Category: models.CategoryLunch})
	require.NoError(t, err)
	require.Len(t, lunch, 1)
	assert.Equal(t, "Jollof", lunch[0].Name)

	_, err = env.catalog.GetMeal(999)
	assert.Equal(t, ErrFoodItemNotFound, err)
}

func TestMealsByDay(t *testing.T) {
	env := newTestEnv(t)
	meals := seedMeals(t, env, 15)
	seedPlan(t, env.db, "Lean 15", 15, 5, models.DensityLean, 8000, meals...)

	out, err := env.catalog.MealsByDay(models.DensityLean, 15)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Days)
	assert.Equal(t, 3, out.MealsPerDay)
	require.Len(t, out.Schedule, 5)
	assert.Equal(t, 1, out.Schedule[0].Day)
	assert.Equal(t, "Meal 01", out.Schedule[0].Meals[0].Name)
	assert.Equal(t, "Meal 15", out.Schedule[4].Meals[2].Name)

	_, err = env.catalog.MealsByDay(models.DensityDense, 15)
	assert.Equal(t, ErrPlanNotFound, err)

	_, err = env.catalog.MealsByDay(models.DensityLean, 18)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = env.catalog.MealsByDay("heavy", 15)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestCustomSelection(t *testing.T) {
	env := newTestEnv(t)
	meals := seedMeals(t, env, 15)
	ids := make([]uint, len(meals))
	for i, m := range meals {
		ids[i] = m.ID
	}

	got, err := env.catalog.CustomSelection(ids)
	require.NoError(t, err)
	assert.Len(t, got, 15)

	_, err = env.catalog.CustomSelection(ids[:14])
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = env.catalog.CustomSelection(append(ids[:14:14], 9999))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateFood(t *testing.T) {
	env := newTestEnv(t)

	item, err := env.catalog.CreateFood(FoodItemInput{
		Name:     " Ofada Rice ",
		Price:    decimal.NewFromInt(1800),
		Calories: 520,
		FoodType: models.DensityDense,
		Category: models.CategoryLunch,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ofada Rice", item.Name)
	assert.Equal(t, models.SpiceNone, item.SpiceLevel)

	_, err = env.catalog.CreateFood(FoodItemInput{Price: decimal.Zero, FoodType: "heavy", Calories: -1})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "price")
	assert.Contains(t, verr.Fields, "food_type")
	assert.Contains(t, verr.Fields, "calories")
}

func TestCreatePlan(t *testing.T) {
	env := newTestEnv(t)
	meals := seedMeals(t, env, 15)
	ids := make([]uint, len(meals))
	for i, m := range meals {
		ids[i] = m.ID
	}

	plan, err := env.catalog.CreatePlan(MealPlanInput{
		Title:     "Lean Fifteen",
		MealCount: 15,
		Days:      5,
		Density:   models.DensityLean,
		Price:     decimal.NewNullDecimal(decimal.NewFromInt(8000)),
		MealIDs:   ids,
	})
	require.NoError(t, err)
	assert.Equal(t, "lean-fifteen", plan.Slug)
	assert.Len(t, plan.Meals, 15)

	_, err = env.catalog.CreatePlan(MealPlanInput{
		Title: "Another", MealCount: 15, Days: 5, Density: models.DensityLean, MealIDs: ids,
	})
	assert.True(t, errors.Is(err, ErrConflict), "one plan per shape")

	_, err = env.catalog.CreatePlan(MealPlanInput{
		Title: "Short", MealCount: 21, Days: 7, Density: models.DensityLean, MealIDs: ids,
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "meal_ids")

	_, err = env.catalog.CreatePlan(MealPlanInput{
		Title: "Ghost", MealCount: 1, Days: 1, Density: models.DensityDense, MealIDs: []uint{4242},
	})
	assert.True(t, errors.Is(err, ErrNotFound))

	bySlug, err := env.catalog.PlanBySlug("lean-fifteen")
	require.NoError(t, err)
	assert.Len(t, bySlug.Meals, 15)

	plans, err := env.catalog.ListPlans(models.DensityLean)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestPlanUnitPrice(t *testing.T) {
	meals := []models.FoodItem{{Price: decimal.NewFromInt(1000)}, {Price: decimal.RequireFromString("250.50")}}

	unset := models.MealPlan{Meals: meals}
	assert.Equal(t, "1250.5", planUnitPrice(unset).String())

	fixed := models.MealPlan{Meals: meals, Price: decimal.NewNullDecimal(decimal.NewFromInt(900))}
	assert.Equal(t, "900", planUnitPrice(fixed).String())
}

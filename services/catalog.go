package services

import (
	"errors"
	"fmt"
	"strings"

	"meal-order-api/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MinCustomSelection is the fewest meals a custom selection may contain
const MinCustomSelection = 15

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

type MealFilter struct {
	Type     models.Density
	Category models.Category
}

func (s *CatalogService) ListMeals(f MealFilter) ([]models.FoodItem, error) {
	var items []models.FoodItem
	q := s.db.Order("id")
	if f.Type != "" {
		q = q.Where("food_type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	return items, nil
}

func (s *CatalogService) GetMeal(id uint) (*models.FoodItem, error) {
	var item models.FoodItem
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFoodItemNotFound
		}
		return nil, fmt.Errorf("failed to load meal: %w", err)
	}
	return &item, nil
}

func (s *CatalogService) ListPlans(density models.Density) ([]models.MealPlan, error) {
	var plans []models.MealPlan
	q := s.db.Preload("Meals").Order("days, meal_count")
	if density != "" {
		q = q.Where("density = ?", density)
	}
	if err := q.Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

func (s *CatalogService) PlanBySlug(slug string) (*models.MealPlan, error) {
	var plan models.MealPlan
	if err := s.db.Preload("Meals").Where("slug = ?", slug).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	return &plan, nil
}

// DayMeals is one day of an admin-defined plan
type DayMeals struct {
	Day   int               `json:"day"`
	Meals []models.FoodItem `json:"meals"`
}

type PlanDays struct {
	Plan        models.MealPlan `json:"plan"`
	Days        int             `json:"days"`
	MealsPerDay int             `json:"meals_per_day"`
	Schedule    []DayMeals      `json:"schedule"`
}

var sizeToDays = map[int]int{15: 5, 21: 7}

// MealsByDay splits the admin-defined plan of the given density and size
// into days, in the order the meals were attached to the plan.
func (s *CatalogService) MealsByDay(density models.Density, size int) (*PlanDays, error) {
	if !density.Valid() {
		return nil, invalidField("type", "must be lean or dense")
	}
	days, ok := sizeToDays[size]
	if !ok {
		return nil, invalidField("size", "must be 15 or 21")
	}

	var plan models.MealPlan
	err := s.db.
		Preload("Meals", func(db *gorm.DB) *gorm.DB { return db.Order("food_items.id") }).
		Where("density = ? AND days = ? AND is_custom = ?", density, days, false).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	perDay := size / days
	out := &PlanDays{Plan: plan, Days: days, MealsPerDay: perDay}
	for d := 0; d < days; d++ {
		start := d * perDay
		if start >= len(plan.Meals) {
			break
		}
		end := start + perDay
		if end > len(plan.Meals) {
			end = len(plan.Meals)
		}
		out.Schedule = append(out.Schedule, DayMeals{Day: d + 1, Meals: plan.Meals[start:end]})
	}
	return out, nil
}

// CustomSelection resolves a user's hand-picked meals
func (s *CatalogService) CustomSelection(ids []uint) ([]models.FoodItem, error) {
	if len(ids) < MinCustomSelection {
		return nil, invalidField("meal_ids", fmt.Sprintf("select at least %d meals", MinCustomSelection))
	}
	items, err := mealsByIDs(s.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.FoodItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, items[id])
	}
	return out, nil
}

// mealsByIDs loads each distinct id once; any unknown id is a not found
func mealsByIDs(tx *gorm.DB, ids []uint) (map[uint]models.FoodItem, error) {
	var items []models.FoodItem
	if err := tx.Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load meals: %w", err)
	}
	byID := make(map[uint]models.FoodItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, newKind(ErrNotFound, fmt.Sprintf("Food item %d not found", id))
		}
	}
	return byID, nil
}

type FoodItemInput struct {
	Name          string
	Price         decimal.Decimal
	Description   string
	Ingredients   string
	Calories      int
	Protein       decimal.Decimal
	Carbohydrates decimal.Decimal
	Fat           decimal.Decimal
	FoodType      models.Density
	Category      models.Category
	SpiceLevel    models.SpiceLevel
	ImageURL      string
}

func (s *CatalogService) CreateFood(in FoodItemInput) (*models.FoodItem, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "is required"
	}
	if in.Price.IsNegative() || in.Price.IsZero() {
		fields["price"] = "must be greater than zero"
	}
	if !in.FoodType.Valid() {
		fields["food_type"] = "must be lean or dense"
	}
	if in.Calories < 0 {
		fields["calories"] = "must not be negative"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if in.SpiceLevel == "" {
		in.SpiceLevel = models.SpiceNone
	}

	item := models.FoodItem{
		Name:          strings.TrimSpace(in.Name),
		Price:         in.Price,
		Description:   in.Description,
		Ingredients:   in.Ingredients,
		Calories:      in.Calories,
		Protein:       in.Protein,
		Carbohydrates: in.Carbohydrates,
		Fat:           in.Fat,
		FoodType:      in.FoodType,
		Category:      in.Category,
		SpiceLevel:    in.SpiceLevel,
		ImageURL:      in.ImageURL,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to create food item: %w", err)
	}
	return &item, nil
}

type MealPlanInput struct {
	Title     string
	Slug      string
	MealCount int
	Days      int
	Density   models.Density
	IsCustom  bool
	Price     decimal.NullDecimal
	MealIDs   []uint
}

// CreatePlan validates the plan shape and stores it with its meals.
// Custom plans skip the meal count checks.
func (s *CatalogService) CreatePlan(in MealPlanInput) (*models.MealPlan, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "is required"
	}
	if !in.Density.Valid() {
		fields["density"] = "must be lean or dense"
	}
	if !in.IsCustom {
		if in.MealCount <= 0 {
			fields["meal_count"] = "must be greater than zero"
		}
		if in.Days <= 0 {
			fields["days"] = "must be greater than zero"
		}
		if len(in.MealIDs) > 0 && len(in.MealIDs) != in.MealCount {
			fields["meal_ids"] = fmt.Sprintf("plan needs exactly %d meals, got %d", in.MealCount, len(in.MealIDs))
		}
	}
	if in.Price.Valid && in.Price.Decimal.IsNegative() {
		fields["price"] = "must not be negative"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	slug := in.Slug
	if slug == "" {
		slug = Slugify(in.Title)
	}
	plan := models.MealPlan{
		Title:     strings.TrimSpace(in.Title),
		Slug:      slug,
		MealCount: in.MealCount,
		Days:      in.Days,
		Density:   in.Density,
		IsCustom:  in.IsCustom,
		Price:     in.Price,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var clash int64
		if err := tx.Model(&models.MealPlan{}).
			Where("(meal_count = ? AND days = ? AND density = ?) OR slug = ?", plan.MealCount, plan.Days, plan.Density, plan.Slug).
			Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return newKind(ErrConflict, "A meal plan with this shape or slug already exists")
		}
		if len(in.MealIDs) > 0 {
			byID, err := mealsByIDs(tx, in.MealIDs)
			if err != nil {
				return err
			}
			for _, id := range in.MealIDs {
				plan.Meals = append(plan.Meals, byID[id])
			}
		}
		return tx.Create(&plan).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}
	return &plan, nil
}

// Slugify lowercases s and joins its words with dashes
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// planUnitPrice is the fixed plan price if set, else the sum of its meals
func planUnitPrice(plan models.MealPlan) decimal.Decimal {
	if plan.Price.Valid {
		return plan.Price.Decimal
	}
	sum := decimal.Zero
	for _, m := range plan.Meals {
		sum = sum.Add(m.Price)
	}
	return sum
}

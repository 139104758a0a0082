package services

import (
	"fmt"

	"meal-order-api/models"

	"github.com/shopspring/decimal"
)

// summaryLine is one cart plan, custom item, or order item reduced to what
// the receipt needs. Macros are per unit; for plans they cover one cycle
// of the plan's meals and are scaled by days.
type summaryLine struct {
	plan      bool
	density   models.Density
	mealCount int
	days      int
	quantity  int
	total     decimal.Decimal

	calories      decimal.Decimal
	protein       decimal.Decimal
	carbohydrates decimal.Decimal
	fat           decimal.Decimal
}

type Macros struct {
	Calories      string `json:"calories"`
	Protein       string `json:"protein"`
	Carbohydrates string `json:"carbohydrates"`
	Fat           string `json:"fat"`
}

type aggregate struct {
	packageType  string
	planDuration string
	totalMeals   int
	calories     decimal.Decimal
	protein      decimal.Decimal
	carbs        decimal.Decimal
	fat          decimal.Decimal
	plansTotal   decimal.Decimal
	grandTotal   decimal.Decimal
}

// summarize classifies the purchase and totals meals and macros.
// A single plan with no custom items is reported by density with a
// duration; any other mix is "custom".
func summarize(lines []summaryLine) aggregate {
	agg := aggregate{packageType: "custom"}
	var plans, customs int
	var only summaryLine
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.quantity))
		agg.grandTotal = agg.grandTotal.Add(l.total)
		if l.plan {
			plans++
			only = l
			agg.totalMeals += l.mealCount * l.days * l.quantity
			scale := decimal.NewFromInt(int64(l.days)).Mul(qty)
			agg.calories = agg.calories.Add(l.calories.Mul(scale))
			agg.protein = agg.protein.Add(l.protein.Mul(scale))
			agg.carbs = agg.carbs.Add(l.carbohydrates.Mul(scale))
			agg.fat = agg.fat.Add(l.fat.Mul(scale))
			agg.plansTotal = agg.plansTotal.Add(l.total)
			continue
		}
		customs++
		agg.totalMeals += l.quantity
		agg.calories = agg.calories.Add(l.calories.Mul(qty))
		agg.protein = agg.protein.Add(l.protein.Mul(qty))
		agg.carbs = agg.carbs.Add(l.carbohydrates.Mul(qty))
		agg.fat = agg.fat.Add(l.fat.Mul(qty))
	}
	if plans == 1 && customs == 0 {
		agg.packageType = only.density.Display()
		agg.planDuration = fmt.Sprintf("%d Days", only.days)
	}
	return agg
}

func (a aggregate) macros() Macros {
	return Macros{
		Calories:      models.FormatNumber(a.calories) + " calories",
		Protein:       a.protein.String() + " g Protein",
		Carbohydrates: a.carbs.String() + " g Carbohydrates",
		Fat:           a.fat.String() + " g Fat",
	}
}

func (a aggregate) mealsLabel() string {
	return fmt.Sprintf("%d meals", a.totalMeals)
}

// CartSummary is the receipt-style view of a cart
type CartSummary struct {
	ReceiptFor    string `json:"receipt_for"`
	PackageType   string `json:"package_type"`
	PlanDuration  string `json:"plan_duration,omitempty"`
	TotalMeals    string `json:"total_meals"`
	TotalMacros   Macros `json:"total_macros"`
	TotalMealsFee string `json:"total_meals_fee"`
	Total         string `json:"total"`
}

// OrderSummary is the receipt-style view of a placed order
type OrderSummary struct {
	Reference     string             `json:"reference"`
	CreatedDate   string             `json:"created_date"`
	Status        models.OrderStatus `json:"status"`
	StatusDisplay string             `json:"status_display"`
	PackageType   string             `json:"package_type"`
	PlanDuration  string             `json:"plan_duration,omitempty"`
	TotalMeals    string             `json:"total_meals"`
	TotalMacros   Macros             `json:"total_macros"`
	TotalMealsFee string             `json:"total_meals_fee"`
	DeliveryFee   string             `json:"delivery_fee"`
	Total         string             `json:"total"`
}

func cartLines(cart *models.Cart) []summaryLine {
	var lines []summaryLine
	for _, p := range cart.Plans {
		l := summaryLine{
			plan:      true,
			density:   p.MealPlan.Density,
			mealCount: p.MealPlan.MealCount,
			days:      p.MealPlan.Days,
			quantity:  p.Quantity,
			total:     p.ComputedPrice(),
		}
		for _, it := range p.Items {
			addMacros(&l, it.FoodItem, it.Quantity)
		}
		lines = append(lines, l)
	}
	for _, it := range cart.Items {
		if !it.IsCustom() {
			continue
		}
		l := summaryLine{quantity: it.Quantity, total: it.TotalPrice()}
		addMacros(&l, it.FoodItem, 1)
		lines = append(lines, l)
	}
	return lines
}

func addMacros(l *summaryLine, f models.FoodItem, times int) {
	n := decimal.NewFromInt(int64(times))
	l.calories = l.calories.Add(decimal.NewFromInt(int64(f.Calories)).Mul(n))
	l.protein = l.protein.Add(f.Protein.Mul(n))
	l.carbohydrates = l.carbohydrates.Add(f.Carbohydrates.Mul(n))
	l.fat = l.fat.Add(f.Fat.Mul(n))
}

func orderLines(o *models.Order) []summaryLine {
	lines := make([]summaryLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, summaryLine{
			plan:          it.Kind == models.ItemKindMealPlan,
			density:       it.Density,
			mealCount:     it.MealCount,
			days:          it.Days,
			quantity:      it.Quantity,
			total:         it.TotalPrice,
			calories:      decimal.NewFromInt(int64(it.Calories)),
			protein:       it.Protein,
			carbohydrates: it.Carbohydrates,
			fat:           it.Fat,
		})
	}
	return lines
}

// BuildCartSummary expects Plans (with MealPlan and Items.FoodItem) and
// custom Items (with FoodItem) to be loaded.
func BuildCartSummary(cart *models.Cart, receiptFor string) CartSummary {
	agg := summarize(cartLines(cart))
	return CartSummary{
		ReceiptFor:    receiptFor,
		PackageType:   agg.packageType,
		PlanDuration:  agg.planDuration,
		TotalMeals:    agg.mealsLabel(),
		TotalMacros:   agg.macros(),
		TotalMealsFee: models.FormatNaira(agg.plansTotal),
		Total:         models.FormatNaira(CartTotal(cart)),
	}
}

// BuildOrderSummary works from the order's item snapshot alone
func BuildOrderSummary(o *models.Order) OrderSummary {
	agg := summarize(orderLines(o))
	return OrderSummary{
		Reference:     o.Reference,
		CreatedDate:   o.CreatedAt.Format("January 02, 2006"),
		Status:        o.Status,
		StatusDisplay: o.Status.Display(),
		PackageType:   agg.packageType,
		PlanDuration:  agg.planDuration,
		TotalMeals:    agg.mealsLabel(),
		TotalMacros:   agg.macros(),
		TotalMealsFee: models.FormatNaira(o.Subtotal),
		DeliveryFee:   models.FormatNaira(o.Shipping),
		Total:         models.FormatNaira(o.Total),
	}
}

// CartTotal is the sum of plan computed prices and custom item totals
func CartTotal(cart *models.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, p := range cart.Plans {
		total = total.Add(p.ComputedPrice())
	}
	for _, it := range cart.Items {
		if it.IsCustom() {
			total = total.Add(it.TotalPrice())
		}
	}
	return total
}

// CartCalories scales plan meals by days and quantity, custom items by quantity
func CartCalories(cart *models.Cart) int64 {
	return summarize(cartLines(cart)).calories.IntPart()
}

// CartMealCount is the number of individual meals in the cart
func CartMealCount(cart *models.Cart) int {
	return summarize(cartLines(cart)).totalMeals
}

package services

import (
	"errors"
	"fmt"
	"strconv"

	"meal-order-api/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartOwner identifies whose cart a request works on. A user id wins over
// a guest session key.
type CartOwner struct {
	UserID     *uint
	SessionKey string
}

func (o CartOwner) IsGuest() bool {
	return o.UserID == nil
}

var errNoCartOwner = errors.New("cart owner requires a user id or session key")

type CartService struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewCartService(db *gorm.DB, log *logrus.Logger) *CartService {
	return &CartService{db: db, log: log}
}

// ── Views ───────────────────────────────────────────────────────────

type CartItemView struct {
	ID         uint            `json:"id"`
	FoodItemID uint            `json:"food_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Calories   int             `json:"calories"`
}

type CartPlanView struct {
	ID            uint            `json:"id"`
	MealPlanID    uint            `json:"meal_plan_id"`
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	Density       models.Density  `json:"density"`
	MealCount     int             `json:"meal_count"`
	Days          int             `json:"days"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ComputedPrice decimal.Decimal `json:"computed_price"`
	Items         []CartItemView  `json:"items"`
}

type CartView struct {
	ID            uint            `json:"id"`
	Plans         []CartPlanView  `json:"plans"`
	CustomItems   []CartItemView  `json:"custom_items"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	TotalCalories int64           `json:"total_calories"`
}

func itemView(it models.CartItem) CartItemView {
	return CartItemView{
		ID:         it.ID,
		FoodItemID: it.FoodItemID,
		Name:       it.FoodItem.Name,
		Quantity:   it.Quantity,
		UnitPrice:  it.UnitPrice,
		TotalPrice: it.TotalPrice(),
		Calories:   it.FoodItem.Calories,
	}
}

func newCartView(cart *models.Cart) *CartView {
	v := &CartView{
		ID:            cart.ID,
		Plans:         []CartPlanView{},
		CustomItems:   []CartItemView{},
		TotalPrice:    CartTotal(cart),
		TotalCalories: CartCalories(cart),
	}
	for _, p := range cart.Plans {
		pv := CartPlanView{
			ID:            p.ID,
			MealPlanID:    p.MealPlanID,
			Title:         p.MealPlan.Title,
			Slug:          p.MealPlan.Slug,
			Density:       p.MealPlan.Density,
			MealCount:     p.MealPlan.MealCount,
			Days:          p.MealPlan.Days,
			Quantity:      p.Quantity,
			UnitPrice:     p.UnitPrice,
			ComputedPrice: p.ComputedPrice(),
			Items:         make([]CartItemView, 0, len(p.Items)),
		}
		for _, it := range p.Items {
			pv.Items = append(pv.Items, itemView(it))
		}
		v.Plans = append(v.Plans, pv)
	}
	for _, it := range cart.Items {
		v.CustomItems = append(v.CustomItems, itemView(it))
	}
	return v
}

// ── Lookup ──────────────────────────────────────────────────────────

func ownerScope(tx *gorm.DB, owner CartOwner) (*gorm.DB, error) {
	switch {
	case owner.UserID != nil:
		return tx.Where("user_id = ?", *owner.UserID), nil
	case owner.SessionKey != "":
		return tx.Where("session_key = ?", owner.SessionKey), nil
	}
	return nil, errNoCartOwner
}

// findCart returns nil without error when the owner has no cart yet
func findCart(tx *gorm.DB, owner CartOwner, lock bool) (*models.Cart, error) {
	q, err := ownerScope(tx, owner)
	if err != nil {
		return nil, err
	}
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var cart models.Cart
	err = q.First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

// cartFor gets or lazily creates the owner's cart
func cartFor(tx *gorm.DB, owner CartOwner, lock bool) (*models.Cart, error) {
	cart, err := findCart(tx, owner, lock)
	if err != nil || cart != nil {
		return cart, err
	}
	cart = &models.Cart{UserID: owner.UserID}
	if owner.UserID == nil {
		key := owner.SessionKey
		cart.SessionKey = &key
	}
	if err := tx.Create(cart).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

// loadCart fills Plans (with meal plan and child items) and the custom Items
func loadCart(tx *gorm.DB, cart *models.Cart) error {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id") }
	if err := tx.Preload("MealPlan").Preload("Items", byID).Preload("Items.FoodItem").
		Where("cart_id = ?", cart.ID).Order("id").Find(&cart.Plans).Error; err != nil {
		return fmt.Errorf("failed to load cart plans: %w", err)
	}
	if err := tx.Preload("FoodItem").
		Where("cart_id = ? AND cart_plan_id IS NULL", cart.ID).Order("id").Find(&cart.Items).Error; err != nil {
		return fmt.Errorf("failed to load cart items: %w", err)
	}
	return nil
}

func clearCart(tx *gorm.DB, cartID uint) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Where("cart_id = ?", cartID).Delete(&models.CartPlan{}).Error
}

// mutate runs fn against the owner's locked cart in one transaction and
// returns the resulting representation.
func (s *CartService) mutate(owner CartOwner, fn func(tx *gorm.DB, cart *models.Cart) error) (*CartView, error) {
	var view *CartView
	err := s.db.Transaction(func(tx *gorm.DB) error {
		cart, err := cartFor(tx, owner, true)
		if err != nil {
			return err
		}
		if err := fn(tx, cart); err != nil {
			return err
		}
		if err := loadCart(tx, cart); err != nil {
			return err
		}
		view = newCartView(cart)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Load returns the owner's cart fully loaded, creating it if needed
func (s *CartService) Load(owner CartOwner) (*models.Cart, error) {
	cart, err := cartFor(s.db, owner, false)
	if err != nil {
		return nil, err
	}
	if err := loadCart(s.db, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) Get(owner CartOwner) (*CartView, error) {
	cart, err := s.Load(owner)
	if err != nil {
		return nil, err
	}
	return newCartView(cart), nil
}

func (s *CartService) Summary(owner CartOwner, receiptFor string) (*CartSummary, error) {
	cart, err := s.Load(owner)
	if err != nil {
		return nil, err
	}
	sum := BuildCartSummary(cart, receiptFor)
	return &sum, nil
}

func (s *CartService) TotalMeals(owner CartOwner) (int, error) {
	cart, err := s.Load(owner)
	if err != nil {
		return 0, err
	}
	return CartMealCount(cart), nil
}

// ── Mutations ───────────────────────────────────────────────────────

// AddPlan adds quantity of a meal plan and materialises its meals as child
// items. With merge set, an existing line for the same plan is incremented.
func (s *CartService) AddPlan(owner CartOwner, planID uint, quantity int, merge bool) (*CartView, error) {
	if quantity <= 0 {
		return nil, invalidField("quantity", "quantity must be a positive integer")
	}
	return s.mutate(owner, func(tx *gorm.DB, cart *models.Cart) error {
		var plan models.MealPlan
		if err := tx.Preload("Meals").First(&plan, planID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return err
		}
		if len(plan.Meals) == 0 {
			return ErrPlanHasNoMeals
		}

		if merge {
			var existing models.CartPlan
			err := tx.Where("cart_id = ? AND meal_plan_id = ?", cart.ID, plan.ID).Order("id").First(&existing).Error
			if err == nil {
				return tx.Model(&existing).Update("quantity", existing.Quantity+quantity).Error
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		cp := models.CartPlan{
			CartID:     cart.ID,
			MealPlanID: plan.ID,
			Quantity:   quantity,
			UnitPrice:  planUnitPrice(plan),
		}
		if err := tx.Create(&cp).Error; err != nil {
			return err
		}
		children := make([]models.CartItem, 0, len(plan.Meals))
		for _, meal := range plan.Meals {
			children = append(children, models.CartItem{
				CartID:     cart.ID,
				FoodItemID: meal.ID,
				CartPlanID: &cp.ID,
				Quantity:   1,
				UnitPrice:  meal.Price,
			})
		}
		return tx.Create(&children).Error
	})
}

// adjustCustom applies a quantity delta to a standalone item. A missing row
// is created only for a positive delta; reaching zero deletes the row.
func adjustCustom(tx *gorm.DB, cartID uint, food models.FoodItem, change int) error {
	var item models.CartItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ? AND food_item_id = ? AND cart_plan_id IS NULL", cartID, food.ID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if change <= 0 {
			return ErrItemNotInCart
		}
		return tx.Create(&models.CartItem{
			CartID:     cartID,
			FoodItemID: food.ID,
			Quantity:   change,
			UnitPrice:  food.Price,
		}).Error
	}
	if err != nil {
		return err
	}

	qty := item.Quantity + change
	if qty <= 0 {
		return tx.Delete(&item).Error
	}
	return tx.Model(&item).Update("quantity", qty).Error
}

func (s *CartService) UpdateCustomItem(owner CartOwner, foodItemID uint, change int) (*CartView, error) {
	return s.mutate(owner, func(tx *gorm.DB, cart *models.Cart) error {
		var food models.FoodItem
		if err := tx.First(&food, foodItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFoodItemNotFound
			}
			return err
		}
		return adjustCustom(tx, cart.ID, food, change)
	})
}

// AddCustomSelection adds several meals at once. quantities is keyed by the
// meal id as a string; a missing key means 1 and non-positive values are skipped.
func (s *CartService) AddCustomSelection(owner CartOwner, mealIDs []uint, quantities map[string]int) (*CartView, error) {
	if len(mealIDs) == 0 {
		return nil, invalidField("meal_ids", "meal_ids must be a non-empty list")
	}
	return s.mutate(owner, func(tx *gorm.DB, cart *models.Cart) error {
		foods, err := mealsByIDs(tx, mealIDs)
		if err != nil {
			return err
		}
		seen := make(map[uint]bool, len(mealIDs))
		for _, id := range mealIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			qty := 1
			if q, ok := quantities[strconv.FormatUint(uint64(id), 10)]; ok {
				qty = q
			}
			if qty <= 0 {
				continue
			}
			if err := adjustCustom(tx, cart.ID, foods[id], qty); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveItem drops a whole plan line (with its meals) or a custom item
func (s *CartService) RemoveItem(owner CartOwner, cartPlanID, foodItemID *uint) (*CartView, error) {
	if cartPlanID == nil && foodItemID == nil {
		return nil, ErrRemoveTarget
	}
	return s.mutate(owner, func(tx *gorm.DB, cart *models.Cart) error {
		if cartPlanID != nil {
			var cp models.CartPlan
			err := tx.Where("id = ? AND cart_id = ?", *cartPlanID, cart.ID).First(&cp).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartPlanNotFound
			}
			if err != nil {
				return err
			}
			if err := tx.Where("cart_plan_id = ?", cp.ID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&cp).Error
		}

		res := tx.Where("cart_id = ? AND food_item_id = ? AND cart_plan_id IS NULL", cart.ID, *foodItemID).
			Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCartItemNotFound
		}
		return nil
	})
}

// Refresh re-snapshots every price in the cart from the live catalog. It is
// the only operation that changes a snapshotted price.
func (s *CartService) Refresh(owner CartOwner) (*CartView, error) {
	return s.mutate(owner, func(tx *gorm.DB, cart *models.Cart) error {
		var plans []models.CartPlan
		if err := tx.Preload("MealPlan.Meals").Where("cart_id = ?", cart.ID).Find(&plans).Error; err != nil {
			return err
		}
		for _, p := range plans {
			if err := tx.Model(&p).Update("unit_price", planUnitPrice(p.MealPlan)).Error; err != nil {
				return err
			}
		}

		var items []models.CartItem
		if err := tx.Preload("FoodItem").Where("cart_id = ?", cart.ID).Find(&items).Error; err != nil {
			return err
		}
		for _, it := range items {
			if it.UnitPrice.Equal(it.FoodItem.Price) {
				continue
			}
			if err := tx.Model(&it).Update("unit_price", it.FoodItem.Price).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ── Ownership changes ───────────────────────────────────────────────

// MergeGuestCart folds the guest cart for sessionKey into the user's cart.
// Plans match by meal plan and custom items by food item; matches have
// their quantities summed, everything else moves. The guest cart is
// deleted. All of it happens in one transaction.
func (s *CartService) MergeGuestCart(userID uint, sessionKey string) (*CartView, error) {
	owner := CartOwner{UserID: &userID}
	return s.mutate(owner, func(tx *gorm.DB, userCart *models.Cart) error {
		if sessionKey == "" {
			return nil
		}
		guest, err := findCart(tx, CartOwner{SessionKey: sessionKey}, true)
		if err != nil || guest == nil {
			return err
		}
		if guest.ID == userCart.ID {
			return nil
		}

		var guestPlans []models.CartPlan
		if err := tx.Where("cart_id = ?", guest.ID).Order("id").Find(&guestPlans).Error; err != nil {
			return err
		}
		for _, gp := range guestPlans {
			var existing models.CartPlan
			err := tx.Where("cart_id = ? AND meal_plan_id = ?", userCart.ID, gp.MealPlanID).Order("id").First(&existing).Error
			switch {
			case err == nil:
				if err := tx.Model(&existing).Update("quantity", existing.Quantity+gp.Quantity).Error; err != nil {
					return err
				}
				if err := tx.Where("cart_plan_id = ?", gp.ID).Delete(&models.CartItem{}).Error; err != nil {
					return err
				}
				if err := tx.Delete(&gp).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Model(&gp).Update("cart_id", userCart.ID).Error; err != nil {
					return err
				}
				if err := tx.Model(&models.CartItem{}).Where("cart_plan_id = ?", gp.ID).
					Update("cart_id", userCart.ID).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}

		var guestItems []models.CartItem
		if err := tx.Where("cart_id = ? AND cart_plan_id IS NULL", guest.ID).Find(&guestItems).Error; err != nil {
			return err
		}
		for _, gi := range guestItems {
			var existing models.CartItem
			err := tx.Where("cart_id = ? AND food_item_id = ? AND cart_plan_id IS NULL", userCart.ID, gi.FoodItemID).
				First(&existing).Error
			switch {
			case err == nil:
				if err := tx.Model(&existing).Update("quantity", existing.Quantity+gi.Quantity).Error; err != nil {
					return err
				}
				if err := tx.Delete(&gi).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Model(&gi).Update("cart_id", userCart.ID).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}

		return tx.Delete(guest).Error
	})
}

// ClearUserCart empties a registered user's cart
func (s *CartService) ClearUserCart(userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		cart, err := findCart(tx, CartOwner{UserID: &userID}, true)
		if err != nil || cart == nil {
			return err
		}
		return clearCart(tx, cart.ID)
	})
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"meal-order-api/events"
	"meal-order-api/models"
	"meal-order-api/notify"
	"meal-order-api/payments"
	"meal-order-api/statemachine"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActorCustomer records changes made through the customer-facing flow
const ActorCustomer = "customer"

type OrderService struct {
	db          *gorm.DB
	gateway     payments.Gateway
	notifier    *notify.Notifier
	publisher   events.Publisher
	carts       *CartService
	log         *logrus.Logger
	callbackURL string
	paidTopic   string
	now         func() time.Time
}

type OrderConfig struct {
	CallbackURL    string
	OrderPaidTopic string
}

func NewOrderService(db *gorm.DB, gw payments.Gateway, n *notify.Notifier, pub events.Publisher,
	carts *CartService, log *logrus.Logger, cfg OrderConfig) *OrderService {
	return &OrderService{
		db:          db,
		gateway:     gw,
		notifier:    n,
		publisher:   pub,
		carts:       carts,
		log:         log,
		callbackURL: cfg.CallbackURL,
		paidTopic:   cfg.OrderPaidTopic,
		now:         time.Now,
	}
}

// NewReference returns an opaque order reference
func NewReference() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ── Checkout ────────────────────────────────────────────────────────

type CheckoutInput struct {
	FullName    string
	Email       string
	PhoneNumber string
	Address     string
}

type CheckoutResult struct {
	Order            *models.Order
	AuthorizationURL string
	Reference        string
}

// snapshotEntry is one element of Order.ItemsSnapshot
type snapshotEntry struct {
	Type       models.OrderItemKind `json:"type"`
	MealPlanID uint                 `json:"meal_plan_id,omitempty"`
	FoodItemID uint                 `json:"food_item_id,omitempty"`
	Title      string               `json:"title,omitempty"`
	Name       string               `json:"name,omitempty"`
	Quantity   int                  `json:"quantity"`
	UnitPrice  decimal.Decimal      `json:"unit_price"`
	LineTotal  decimal.Decimal      `json:"line_total"`
}

func orderItemsFromCart(cart *models.Cart) ([]models.OrderItem, []snapshotEntry) {
	var items []models.OrderItem
	var snapshot []snapshotEntry
	for _, p := range cart.Plans {
		planID := p.MealPlanID
		line := summaryLine{}
		for _, it := range p.Items {
			addMacros(&line, it.FoodItem, it.Quantity)
		}
		items = append(items, models.OrderItem{
			Kind:          models.ItemKindMealPlan,
			MealPlanID:    &planID,
			Name:          p.MealPlan.Title,
			UnitPrice:     p.UnitPrice,
			Quantity:      p.Quantity,
			TotalPrice:    p.ComputedPrice(),
			MealCount:     p.MealPlan.MealCount,
			Days:          p.MealPlan.Days,
			Density:       p.MealPlan.Density,
			Calories:      int(line.calories.IntPart()),
			Protein:       line.protein,
			Carbohydrates: line.carbohydrates,
			Fat:           line.fat,
		})
		snapshot = append(snapshot, snapshotEntry{
			Type:       models.ItemKindMealPlan,
			MealPlanID: p.MealPlanID,
			Title:      p.MealPlan.Title,
			Quantity:   p.Quantity,
			UnitPrice:  p.UnitPrice,
			LineTotal:  p.ComputedPrice(),
		})
	}
	for _, it := range cart.Items {
		if !it.IsCustom() {
			continue
		}
		foodID := it.FoodItemID
		items = append(items, models.OrderItem{
			Kind:          models.ItemKindCustomItem,
			FoodItemID:    &foodID,
			Name:          it.FoodItem.Name,
			UnitPrice:     it.UnitPrice,
			Quantity:      it.Quantity,
			TotalPrice:    it.TotalPrice(),
			Density:       it.FoodItem.FoodType,
			Calories:      it.FoodItem.Calories,
			Protein:       it.FoodItem.Protein,
			Carbohydrates: it.FoodItem.Carbohydrates,
			Fat:           it.FoodItem.Fat,
		})
		snapshot = append(snapshot, snapshotEntry{
			Type:       models.ItemKindCustomItem,
			FoodItemID: it.FoodItemID,
			Name:       it.FoodItem.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			LineTotal:  it.TotalPrice(),
		})
	}
	return items, snapshot
}

// Checkout turns the owner's cart into a pending order and starts a gateway
// payment for it. The order is committed before the gateway is called; if
// initialization fails the result still carries the order and the error
// wraps ErrGatewayUnavailable.
func (s *OrderService) Checkout(ctx context.Context, owner CartOwner, in CheckoutInput) (*CheckoutResult, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := findCart(tx, owner, true)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartEmpty
		}
		if err := loadCart(tx, cart); err != nil {
			return err
		}
		if len(cart.Plans) == 0 && len(cart.Items) == 0 {
			return ErrCartEmpty
		}

		items, snapshot := orderItemsFromCart(cart)
		raw, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode items snapshot: %w", err)
		}
		subtotal := CartTotal(cart)
		order = models.Order{
			Reference:     NewReference(),
			UserID:        owner.UserID,
			FullName:      strings.TrimSpace(in.FullName),
			Email:         strings.ToLower(strings.TrimSpace(in.Email)),
			PhoneNumber:   strings.TrimSpace(in.PhoneNumber),
			Address:       strings.TrimSpace(in.Address),
			Subtotal:      subtotal,
			Tax:           decimal.Zero,
			Shipping:      decimal.Zero,
			Total:         subtotal,
			ItemsSnapshot: string(raw),
			Status:        models.StatusPending,
			Items:         items,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		payment := models.PaymentTransaction{OrderID: order.ID, Gateway: s.gateway.Name()}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to create payment record: %w", err)
		}
		order.Payment = &payment
		if err := tx.Create(&models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			Actor:     ActorCustomer,
			ChangedBy: owner.UserID,
			Note:      "Order placed at checkout",
		}).Error; err != nil {
			return err
		}
		return clearCart(tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"reference": order.Reference,
		"total":     order.Total.String(),
		"guest":     owner.IsGuest(),
	}).Info("order created")
	s.notifier.OrderReceipt(ctx, &order)

	res := &CheckoutResult{Order: &order, Reference: order.Reference}
	url, err := s.initializePayment(ctx, &order)
	if err != nil {
		return res, err
	}
	res.AuthorizationURL = url
	return res, nil
}

func (s *OrderService) initializePayment(ctx context.Context, order *models.Order) (string, error) {
	init, err := s.gateway.Initialize(ctx, payments.InitializeRequest{
		Email:       order.Email,
		AmountKobo:  order.AmountKobo(),
		Reference:   order.Reference,
		CallbackURL: s.callbackURL,
		Metadata: map[string]any{
			"order_id": order.ID,
			"user_id":  order.UserID,
			"is_guest": order.UserID == nil,
		},
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"reference": order.Reference,
			"error":     err.Error(),
		}).Error("payment initialization failed")
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	gatewayRef := init.Reference
	if gatewayRef == "" {
		gatewayRef = order.Reference
	}
	if err := s.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("order_id = ?", order.ID).
		Updates(map[string]any{
			"authorization_url": init.AuthorizationURL,
			"gateway_reference": gatewayRef,
			"raw_response":      string(init.Raw),
		}).Error; err != nil {
		return "", fmt.Errorf("failed to store payment initialization: %w", err)
	}
	return init.AuthorizationURL, nil
}

// RetryPayment hands back a payment link for a still-pending order,
// re-initializing with the gateway only when no link was issued before.
func (s *OrderService) RetryPayment(ctx context.Context, email, reference string) (*CheckoutResult, error) {
	order, err := s.orderByEmailAndReference(email, reference)
	if err != nil {
		return nil, err
	}
	if order.Status != models.StatusPending {
		return nil, ErrOrderNotPending
	}
	res := &CheckoutResult{Order: order, Reference: order.Reference}
	if order.Payment != nil && order.Payment.AuthorizationURL != "" {
		res.AuthorizationURL = order.Payment.AuthorizationURL
		return res, nil
	}
	url, err := s.initializePayment(ctx, order)
	if err != nil {
		return res, err
	}
	res.AuthorizationURL = url
	return res, nil
}

// ── Verification ────────────────────────────────────────────────────

type VerifyOutcome struct {
	Order         *models.Order
	AlreadyPaid   bool
	GatewayStatus string
}

// Verify reconciles an order with the gateway's record of its payment.
// The order row is locked for the whole check-then-act sequence and a paid
// order is returned untouched, so duplicate callbacks are harmless.
func (s *OrderService) Verify(ctx context.Context, reference string) (*VerifyOutcome, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, invalidField("reference", "reference is required")
	}

	res, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.log.WithFields(logrus.Fields{"reference": reference, "error": err.Error()}).Warn("payment verification failed")
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	out := &VerifyOutcome{GatewayStatus: res.Status}
	transitioned, failedNow := false, false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("reference = ?", reference).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		out.Order = &order

		if order.Status == models.StatusPaid {
			out.AlreadyPaid = true
			return nil
		}
		if expected := order.AmountKobo(); res.AmountKobo != expected {
			return &AmountMismatchError{Reference: reference, ExpectedKobo: expected, PaidKobo: res.AmountKobo}
		}
		if !res.Succeeded() {
			if res.Status == "failed" && statemachine.CanTransition(order.Status, models.StatusFailed, statemachine.ActorGateway) == nil {
				failedNow = true
				return s.transition(tx, &order, models.StatusFailed, statemachine.ActorGateway, nil, "Gateway reported failed payment")
			}
			return nil
		}
		if err := statemachine.CanTransition(order.Status, models.StatusPaid, statemachine.ActorGateway); err != nil {
			return err
		}

		paidAt := s.now()
		if res.PaidAt != nil {
			paidAt = *res.PaidAt
		}
		gatewayRef := res.GatewayID
		if gatewayRef == "" {
			gatewayRef = reference
		}
		payment := models.PaymentTransaction{OrderID: order.ID, Gateway: s.gateway.Name()}
		if err := tx.Where("order_id = ?", order.ID).FirstOrInit(&payment).Error; err != nil {
			return err
		}
		payment.GatewayReference = gatewayRef
		payment.RawResponse = string(res.Raw)
		payment.PaidAt = &paidAt
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}
		order.Payment = &payment
		transitioned = true
		return s.transition(tx, &order, models.StatusPaid, statemachine.ActorGateway, nil, "Payment verified with gateway")
	})
	if err != nil {
		var mismatch *AmountMismatchError
		if errors.As(err, &mismatch) {
			s.log.WithFields(logrus.Fields{
				"reference":     reference,
				"expected_kobo": mismatch.ExpectedKobo,
				"paid_kobo":     mismatch.PaidKobo,
			}).Error("payment amount mismatch, order left unpaid")
		}
		return out, err
	}

	if transitioned {
		s.afterPaid(ctx, out.Order)
	} else if failedNow {
		s.notifier.OrderStatusUpdate(ctx, out.Order)
	}
	if !out.AlreadyPaid && !res.Succeeded() {
		return out, ErrPaymentIncomplete
	}
	return out, nil
}

// afterPaid runs the side effects of a pending to paid move. None of them
// can undo the payment, so failures are only logged.
func (s *OrderService) afterPaid(ctx context.Context, order *models.Order) {
	entry := s.log.WithField("reference", order.Reference)
	entry.Info("order paid")

	if order.UserID != nil {
		if err := s.carts.ClearUserCart(*order.UserID); err != nil {
			entry.WithField("error", err.Error()).Warn("failed to clear cart after payment")
		}
	}

	paidAt := s.now()
	if order.Payment != nil && order.Payment.PaidAt != nil {
		paidAt = *order.Payment.PaidAt
	}
	ev := events.OrderPaidEvent{
		Reference:  order.Reference,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Total:      order.Total,
		AmountKobo: order.AmountKobo(),
		PaidAt:     paidAt.UTC(),
	}
	if err := events.PublishJSON(ctx, s.publisher, s.paidTopic, order.Reference, ev); err != nil {
		entry.WithField("error", err.Error()).Warn("failed to publish order paid event")
	}

	if err := s.db.WithContext(ctx).Where("order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
		entry.WithField("error", err.Error()).Warn("failed to load items for confirmation email")
	}
	s.notifier.OrderStatusUpdate(ctx, order)
}

// transition validates nothing; callers check the state machine first
func (s *OrderService) transition(tx *gorm.DB, order *models.Order, to models.OrderStatus, actor string, by *uint, note string) error {
	from := order.Status
	if err := tx.Model(order).Update("status", to).Error; err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = to
	return tx.Create(&models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		ChangedBy:  by,
		Note:       note,
	}).Error
}

// ── Lookups ─────────────────────────────────────────────────────────

func (s *OrderService) orderByEmailAndReference(email, reference string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").Preload("Payment").
		Where("reference = ? AND LOWER(email) = ?", strings.TrimSpace(reference), strings.ToLower(strings.TrimSpace(email))).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// Track lets a guest look up an order with the email used at checkout
func (s *OrderService) Track(email, reference string) (*OrderSummary, error) {
	order, err := s.orderByEmailAndReference(email, reference)
	if err != nil {
		return nil, err
	}
	sum := BuildOrderSummary(order)
	return &sum, nil
}

// PastOrders returns a user's orders newest first
func (s *OrderService) PastOrders(userID uint) ([]OrderSummary, error) {
	var orders []models.Order
	if err := s.db.Preload("Items").Where("user_id = ?", userID).
		Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	out := make([]OrderSummary, 0, len(orders))
	for i := range orders {
		out = append(out, BuildOrderSummary(&orders[i]))
	}
	return out, nil
}

// OrderForUser returns full order detail to its owner
func (s *OrderService) OrderForUser(userID uint, reference string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").Preload("Payment").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("reference = ?", reference).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, newKind(ErrForbidden, "This order does not belong to you")
	}
	return &order, nil
}

// ── Admin ───────────────────────────────────────────────────────────

type AdminOrderList struct {
	Orders       []models.Order `json:"orders"`
	Count        int            `json:"count"`
	Summary      map[string]int `json:"order_summary"`
	TotalRevenue string         `json:"total_revenue"`
}

// AdminList returns every order, optionally filtered by status, with
// per-status counts and revenue from paid and delivered orders.
func (s *OrderService) AdminList(status models.OrderStatus) (*AdminOrderList, error) {
	var orders []models.Order
	q := s.db.Preload("Items").Preload("Payment").Order("created_at desc, id desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	summary := map[string]int{}
	revenue := decimal.Zero
	for _, o := range orders {
		summary[string(o.Status)]++
		if o.Status == models.StatusPaid || o.Status == models.StatusDelivered {
			revenue = revenue.Add(o.Total)
		}
	}
	return &AdminOrderList{
		Orders:       orders,
		Count:        len(orders),
		Summary:      summary,
		TotalRevenue: models.FormatNaira(revenue),
	}, nil
}

// AdminSetStatus moves an order through the state machine as an admin
func (s *OrderService) AdminSetStatus(ctx context.Context, reference string, to models.OrderStatus, reason string, adminID uint) (*models.Order, models.OrderStatus, error) {
	if !statemachine.IsKnown(to) {
		return nil, "", invalidField("status", fmt.Sprintf("unknown status %q", to))
	}

	var order models.Order
	var from models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("reference = ?", reference).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		from = order.Status
		if err := statemachine.CanTransition(from, to, statemachine.ActorAdmin); err != nil {
			return err
		}
		if to == models.StatusPaid {
			now := s.now()
			if err := tx.Model(&models.PaymentTransaction{}).Where("order_id = ?", order.ID).
				Update("paid_at", now).Error; err != nil {
				return err
			}
		}
		note := "[ADMIN] " + reason
		return s.transition(tx, &order, to, statemachine.ActorAdmin, &adminID, strings.TrimSpace(note))
	})
	if err != nil {
		return nil, from, err
	}

	s.log.WithFields(logrus.Fields{
		"reference": order.Reference,
		"from":      from,
		"to":        to,
		"admin_id":  adminID,
	}).Info("order status changed by admin")

	if to == models.StatusPaid {
		if err := s.db.Preload("Payment").First(&order, order.ID).Error; err != nil {
			s.log.WithFields(logrus.Fields{"reference": order.Reference, "error": err.Error()}).
				Warn("failed to reload order after admin payment")
		}
		s.afterPaid(ctx, &order)
	} else {
		s.notifier.OrderStatusUpdate(ctx, &order)
	}
	return &order, from, nil
}

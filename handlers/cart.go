package handlers

import (
	"errors"
	"net/http"

	"meal-order-api/middleware"
	"meal-order-api/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetCart(c *gin.Context) {
	view, err := h.Carts.Get(cartOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type AddPlanRequest struct {
	PlanID   uint `json:"plan_id" binding:"required"`
	Quantity *int `json:"quantity"`
	Merge    bool `json:"merge"`
}

func (h *Handler) AddPlan(c *gin.Context) {
	var req AddPlanRequest
	if !bindJSON(c, &req) {
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	view, err := h.Carts.AddPlan(cartOwner(c), req.PlanID, qty, req.Merge)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type CustomItemRequest struct {
	FoodItem uint `json:"food_item" binding:"required"`
	Change   int  `json:"change" binding:"required"`
}

// UpdateCustomItem applies a signed quantity change to a standalone meal
func (h *Handler) UpdateCustomItem(c *gin.Context) {
	var req CustomItemRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.Carts.UpdateCustomItem(cartOwner(c), req.FoodItem, req.Change)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type CartSelectionRequest struct {
	MealIDs    []uint         `json:"meal_ids" binding:"required"`
	Quantities map[string]int `json:"quantities"`
}

func (h *Handler) AddCustomSelection(c *gin.Context) {
	var req CartSelectionRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.Carts.AddCustomSelection(cartOwner(c), req.MealIDs, req.Quantities)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type RemoveItemRequest struct {
	CartPlanID *uint `json:"cart_plan_id"`
	FoodItem   *uint `json:"food_item"`
}

func (h *Handler) RemoveItem(c *gin.Context) {
	var req RemoveItemRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.Carts.RemoveItem(cartOwner(c), req.CartPlanID, req.FoodItem)
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "Item removed from cart"
	if req.CartPlanID != nil {
		msg = "Plan removed from cart"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "cart": view})
}

// RefreshCart re-prices every line from the live catalog
func (h *Handler) RefreshCart(c *gin.Context) {
	view, err := h.Carts.Refresh(cartOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CartSummary is the receipt view of the cart, addressed to the signed-in
// user or to "Guest".
func (h *Handler) CartSummary(c *gin.Context) {
	receiptFor := "Guest"
	if id := middleware.CurrentUserID(c); id != nil {
		user, err := h.Accounts.Profile(*id)
		if err != nil && !errors.Is(err, services.ErrNotFound) {
			respondError(c, err)
			return
		}
		if user != nil {
			receiptFor = user.FullName
		}
	}
	sum, err := h.Carts.Summary(cartOwner(c), receiptFor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) CartTotalMeals(c *gin.Context) {
	n, err := h.Carts.TotalMeals(cartOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_meals": n})
}

type MergeCartRequest struct {
	SessionKey string `json:"session_key" binding:"required"`
}

// MergeCart folds a guest cart into the signed-in user's cart
func (h *Handler) MergeCart(c *gin.Context) {
	var req MergeCartRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.Carts.MergeGuestCart(middleware.GetUserID(c), req.SessionKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Guest cart merged", "cart": view})
}

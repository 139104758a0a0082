package handlers

import (
	"errors"
	"net/http"

	"meal-order-api/middleware"
	"meal-order-api/models"
	"meal-order-api/services"
	"meal-order-api/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AdminGetAllOrders returns all orders with per-status counts and revenue
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	list, err := h.Orders.AdminList(models.OrderStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type AdminStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Reason string             `json:"reason"`
}

// AdminUpdateOrderStatus moves an order through the state machine
func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	var req AdminStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	ref := c.Param("reference")
	order, from, err := h.Orders.AdminSetStatus(c.Request.Context(), ref, req.Status, req.Reason, middleware.GetUserID(c))
	if errors.Is(err, statemachine.ErrInvalidTransition) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":             err.Error(),
			"current_status":    from,
			"valid_next_states": statemachine.ValidTransitionsFrom(from),
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Order status updated",
		"reference":       order.Reference,
		"previous_status": from,
		"new_status":      order.Status,
	})
}

// AdminGetAllUsers returns all users, filtered by ?role
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	users, err := h.Accounts.ListUsers(models.UserRole(c.Query("role")))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, userJSON(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": out})
}

type FoodItemRequest struct {
	Name          string            `json:"name" binding:"required"`
	Price         decimal.Decimal   `json:"price"`
	Description   string            `json:"description"`
	Ingredients   string            `json:"ingredients"`
	Calories      int               `json:"calories"`
	Protein       decimal.Decimal   `json:"protein"`
	Carbohydrates decimal.Decimal   `json:"carbohydrates"`
	Fat           decimal.Decimal   `json:"fat"`
	FoodType      models.Density    `json:"food_type" binding:"required"`
	Category      models.Category   `json:"category"`
	SpiceLevel    models.SpiceLevel `json:"spice_level"`
	ImageURL      string            `json:"image_url"`
}

func (h *Handler) AdminCreateFood(c *gin.Context) {
	var req FoodItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.Catalog.CreateFood(services.FoodItemInput{
		Name:          req.Name,
		Price:         req.Price,
		Description:   req.Description,
		Ingredients:   req.Ingredients,
		Calories:      req.Calories,
		Protein:       req.Protein,
		Carbohydrates: req.Carbohydrates,
		Fat:           req.Fat,
		FoodType:      req.FoodType,
		Category:      req.Category,
		SpiceLevel:    req.SpiceLevel,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Food item created", "meal": item})
}

type MealPlanRequest struct {
	Title     string              `json:"title" binding:"required"`
	Slug      string              `json:"slug"`
	MealCount int                 `json:"meal_count"`
	Days      int                 `json:"days"`
	Density   models.Density      `json:"density" binding:"required"`
	IsCustom  bool                `json:"is_custom"`
	Price     decimal.NullDecimal `json:"price"`
	MealIDs   []uint              `json:"meal_ids"`
}

func (h *Handler) AdminCreatePlan(c *gin.Context) {
	var req MealPlanRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := h.Catalog.CreatePlan(services.MealPlanInput{
		Title:     req.Title,
		Slug:      req.Slug,
		MealCount: req.MealCount,
		Days:      req.Days,
		Density:   req.Density,
		IsCustom:  req.IsCustom,
		Price:     req.Price,
		MealIDs:   req.MealIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Meal plan created", "plan": plan})
}

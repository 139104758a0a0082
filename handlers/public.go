package handlers

import (
	"net/http"
	"strconv"

	"meal-order-api/models"
	"meal-order-api/services"
	"meal-order-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListMeals returns the food catalog, filtered by ?type and ?category
func (h *Handler) ListMeals(c *gin.Context) {
	h.listMeals(c, models.Density(c.Query("type")))
}

// MealsOfType serves the fixed /meals/lean and /meals/dense routes
func (h *Handler) MealsOfType(d models.Density) gin.HandlerFunc {
	return func(c *gin.Context) { h.listMeals(c, d) }
}

func (h *Handler) listMeals(c *gin.Context, d models.Density) {
	if d != "" && !d.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be lean or dense"})
		return
	}
	meals, err := h.Catalog.ListMeals(services.MealFilter{
		Type:     d,
		Category: models.Category(c.Query("category")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(meals), "meals": meals})
}

func (h *Handler) GetMeal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meal id"})
		return
	}
	meal, err := h.Catalog.GetMeal(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meal": meal})
}

type CustomSelectionRequest struct {
	MealIDs []uint `json:"meal_ids" binding:"required"`
}

// CustomSelection resolves a hand-picked list of meals without touching a cart
func (h *Handler) CustomSelection(c *gin.Context) {
	var req CustomSelectionRequest
	if !bindJSON(c, &req) {
		return
	}
	meals, err := h.Catalog.CustomSelection(req.MealIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(meals), "meals": meals})
}

// ListPlans returns meal plans, filtered by ?density
func (h *Handler) ListPlans(c *gin.Context) {
	h.listPlans(c, models.Density(c.Query("density")))
}

func (h *Handler) PlansOfDensity(d models.Density) gin.HandlerFunc {
	return func(c *gin.Context) { h.listPlans(c, d) }
}

func (h *Handler) listPlans(c *gin.Context, d models.Density) {
	if d != "" && !d.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "density must be lean or dense"})
		return
	}
	plans, err := h.Catalog.ListPlans(d)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(plans), "plans": plans})
}

func (h *Handler) PlanMeals(c *gin.Context) {
	plan, err := h.Catalog.PlanBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plan":  plan.Title,
		"slug":  plan.Slug,
		"count": len(plan.Meals),
		"meals": plan.Meals,
	})
}

// MealsByDay groups the admin-defined plan for ?type and ?size into days
func (h *Handler) MealsByDay(c *gin.Context) {
	size, err := strconv.Atoi(c.Query("size"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must be 15 or 21"})
		return
	}
	out, err := h.Catalog.MealsByDay(models.Density(c.Query("type")), size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"statuses":        statemachine.Statuses(),
		"terminal_states": statemachine.TerminalStatuses(),
		"description":     "Meal Order Payment Lifecycle State Machine",
	})
}

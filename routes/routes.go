package routes

import (
	"net/http"

	"meal-order-api/handlers"
	"meal-order-api/middleware"
	"meal-order-api/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the engine with the shared middleware and every route
func NewRouter(h *handlers.Handler, log *logrus.Logger) *gin.Engine {
	handlers.UseJSONFieldNames()

	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery(), middleware.CORS())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Meal Order API",
			"version": "1.0.0",
		})
	})

	// Welcome
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Meal Order API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []models.UserRole{models.RoleCustomer, models.RoleAdmin},
		})
	})

	SetupRoutes(r, h)
	return r
}

func SetupRoutes(r *gin.Engine, h *handlers.Handler) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/signup", h.Signup)
		public.POST("/auth/signin", h.Signin)
		public.POST("/auth/password-reset/request", h.RequestPasswordReset)
		public.POST("/auth/password-reset/verify-otp", h.VerifyOTP)
		public.POST("/auth/password-reset/reset-password", h.ResetPassword)

		// Catalog
		public.GET("/meals", h.ListMeals)
		public.GET("/meals/lean", h.MealsOfType(models.DensityLean))
		public.GET("/meals/dense", h.MealsOfType(models.DensityDense))
		public.GET("/meals/:id", h.GetMeal)
		public.POST("/meals/custom-selection", h.CustomSelection)
		public.GET("/plans", h.ListPlans)
		public.GET("/plans/lean", h.PlansOfDensity(models.DensityLean))
		public.GET("/plans/dense", h.PlansOfDensity(models.DensityDense))
		public.GET("/plans/admin-meals-by-day", h.MealsByDay)
		public.GET("/plans/:slug/meals", h.PlanMeals)

		// Payments and guest order lookup
		public.GET("/payments/verify", h.VerifyPayment)
		public.POST("/payments/retry", h.RetryPayment)
		public.POST("/orders/track", h.TrackOrder)

		// State machine info
		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Cart routes (guest or signed in) ───────────────────────────
	cart := r.Group("/api/cart")
	cart.Use(middleware.OptionalAuth(), middleware.GuestSession())
	{
		cart.GET("", h.GetCart)
		cart.GET("/summary", h.CartSummary)
		cart.GET("/total-meals", h.CartTotalMeals)
		cart.POST("/add-plan", h.AddPlan)
		cart.POST("/custom-item", h.UpdateCustomItem)
		cart.POST("/custom-selection", h.AddCustomSelection)
		cart.POST("/remove-item", h.RemoveItem)
		cart.POST("/refresh", h.RefreshCart)
		cart.POST("/checkout", h.Checkout)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(middleware.AuthRequired())
	{
		auth.GET("/profile", h.GetProfile)
		auth.PATCH("/profile", h.UpdateProfile)
		auth.POST("/profile/change-password", h.ChangePassword)
		auth.POST("/cart/merge", h.MergeCart)
		auth.GET("/orders", h.GetMyOrders)
		auth.GET("/orders/:reference", h.GetOrderDetail)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/orders", h.AdminGetAllOrders)
		admin.PUT("/orders/:reference/status", h.AdminUpdateOrderStatus)
		admin.GET("/users", h.AdminGetAllUsers)
		admin.POST("/foods", h.AdminCreateFood)
		admin.POST("/plans", h.AdminCreatePlan)
	}
}

package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"meal-order-api/middleware"
	"meal-order-api/services"
	"meal-order-api/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Handler holds the services every HTTP endpoint works through
type Handler struct {
	Catalog  *services.CatalogService
	Carts    *services.CartService
	Orders   *services.OrderService
	Accounts *services.AccountService

	// PaymentSuccessURL is where a verified payment redirects the browser.
	// Empty means answer with JSON instead.
	PaymentSuccessURL string
}

var tagNamesOnce sync.Once

// UseJSONFieldNames makes binding errors report json field names
func UseJSONFieldNames() {
	tagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid email address"
	case "min":
		return "Must be at least " + fe.Param()
	case "max":
		return "Must be at most " + fe.Param()
	case "len":
		return "Must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	}
	return "Invalid value"
}

// bindJSON decodes the body into req and answers 400 on failure
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fields})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	return false
}

// respondError maps a service error to its HTTP status
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	var mismatch *services.AmountMismatchError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": verr.Fields})
	case errors.As(err, &mismatch):
		c.JSON(http.StatusBadRequest, gin.H{
			"status":        false,
			"message":       "Amount mismatch. Payment flagged for manual review.",
			"reference":     mismatch.Reference,
			"expected_kobo": mismatch.ExpectedKobo,
			"paid_kobo":     mismatch.PaidKobo,
		})
	case errors.Is(err, statemachine.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway unavailable, please retry"})
	case errors.Is(err, services.ErrMailDelivery):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email"})
	default:
		middleware.Log(c).WithField("error", err.Error()).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// cartOwner identifies the caller's cart: their account if signed in,
// otherwise the guest session key.
func cartOwner(c *gin.Context) services.CartOwner {
	return services.CartOwner{
		UserID:     middleware.CurrentUserID(c),
		SessionKey: middleware.SessionKey(c),
	}
}

package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"meal-order-api/middleware"
	"meal-order-api/services"

	"github.com/gin-gonic/gin"
)

type CheckoutRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	Address     string `json:"address" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
}

// Checkout places an order from the caller's cart and hands back the
// gateway payment link. If the gateway cannot be reached the order still
// exists and can be paid later through RetryPayment.
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Orders.Checkout(c.Request.Context(), cartOwner(c), services.CheckoutInput{
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	})
	if err != nil {
		if res != nil && errors.Is(err, services.ErrGatewayUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":     "payment init failed",
				"reference": res.Reference,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authorization_url": res.AuthorizationURL,
		"reference":         res.Reference,
	})
}

type RetryPaymentRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Reference string `json:"reference" binding:"required"`
}

func (h *Handler) RetryPayment(c *gin.Context) {
	var req RetryPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Orders.RetryPayment(c.Request.Context(), req.Email, req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authorization_url": res.AuthorizationURL,
		"reference":         res.Reference,
	})
}

// VerifyPayment is the gateway's callback target. Paystack appends both
// reference and trxref; either is accepted.
func (h *Handler) VerifyPayment(c *gin.Context) {
	ref := strings.TrimSpace(c.Query("reference"))
	if ref == "" {
		ref = strings.TrimSpace(c.Query("trxref"))
	}
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "Missing reference"})
		return
	}

	out, err := h.Orders.Verify(c.Request.Context(), ref)
	switch {
	case errors.Is(err, services.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"status": false, "message": "Unable to verify payment with gateway."})
		return
	case errors.Is(err, services.ErrPaymentIncomplete):
		gatewayStatus := ""
		if out != nil {
			gatewayStatus = out.GatewayStatus
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"status":         false,
			"message":        "Payment not successful",
			"gateway_status": gatewayStatus,
			"reference":      ref,
		})
		return
	case err != nil:
		respondError(c, err)
		return
	}

	if out.AlreadyPaid {
		c.JSON(http.StatusOK, gin.H{"status": true, "message": "Order already paid.", "reference": ref})
		return
	}
	middleware.Log(c).WithField("reference", ref).Info("payment verified")
	if h.PaymentSuccessURL != "" {
		c.Redirect(http.StatusFound, successRedirect(h.PaymentSuccessURL, ref))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       true,
		"message":      "Payment verified",
		"reference":    ref,
		"order_status": out.Order.Status,
	})
}

func successRedirect(base, ref string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("reference", ref)
	u.RawQuery = q.Encode()
	return u.String()
}

type TrackOrderRequest struct {
	Email          string `json:"email" binding:"required,email"`
	OrderReference string `json:"order_reference" binding:"required"`
}

// TrackOrder lets a guest look up an order with the checkout email
func (h *Handler) TrackOrder(c *gin.Context) {
	var req TrackOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	sum, err := h.Orders.Track(req.Email, req.OrderReference)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// GetMyOrders returns the signed-in user's orders, newest first
func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.Orders.PastOrders(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

func (h *Handler) GetOrderDetail(c *gin.Context) {
	order, err := h.Orders.OrderForUser(middleware.GetUserID(c), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":   order,
		"summary": services.BuildOrderSummary(order),
	})
}

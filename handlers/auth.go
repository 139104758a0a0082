package handlers

import (
	"net/http"
	"strings"

	"meal-order-api/middleware"
	"meal-order-api/models"
	"meal-order-api/services"

	"github.com/gin-gonic/gin"
)

type SignupRequest struct {
	FullName        string `json:"full_name" binding:"required"`
	PhoneNumber     string `json:"phone_number" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type SigninRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func userJSON(u *models.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"full_name":    u.FullName,
		"email":        u.Email,
		"phone_number": u.PhoneNumber,
		"role":         u.Role,
	}
}

// mergeGuestCart folds the caller's guest cart into the user's. A failed
// merge never blocks signing in.
func (h *Handler) mergeGuestCart(c *gin.Context, userID uint) {
	key := strings.TrimSpace(c.GetHeader(middleware.SessionHeader))
	if key == "" {
		return
	}
	if _, err := h.Carts.MergeGuestCart(userID, key); err != nil {
		middleware.Log(c).WithField("error", err.Error()).Warn("guest cart merge failed")
	}
}

func (h *Handler) issueToken(c *gin.Context, status int, message string, user *models.User) {
	token, err := middleware.GenerateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(status, gin.H{
		"message": message,
		"token":   token,
		"user":    userJSON(user),
	})
}

// Signup creates a customer account
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Accounts.Signup(c.Request.Context(), services.SignupInput{
		FullName:        req.FullName,
		PhoneNumber:     req.PhoneNumber,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.mergeGuestCart(c, user.ID)
	h.issueToken(c, http.StatusCreated, "Account created successfully", user)
}

// Signin authenticates a user and returns a JWT
func (h *Handler) Signin(c *gin.Context) {
	var req SigninRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Accounts.Signin(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.mergeGuestCart(c, user.ID)
	h.issueToken(c, http.StatusOK, "Login successful", user)
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.Accounts.Profile(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}

type ProfileRequest struct {
	FullName    *string `json:"full_name"`
	PhoneNumber *string `json:"phone_number"`
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req ProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Accounts.UpdateProfile(middleware.GetUserID(c), services.ProfileUpdate{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": userJSON(user)})
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Accounts.ChangePassword(middleware.GetUserID(c), req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// ── Password reset ──────────────────────────────────────────────────

type ResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RequestPasswordReset answers the same way whether or not the email exists
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req ResetRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If that email is registered, a reset code has been sent"})
}

type VerifyOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	OTPCode string `json:"otp_code" binding:"required,len=6"`
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Accounts.VerifyOTP(req.Email, req.OTPCode); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP verified"})
}

type ResetPasswordRequest struct {
	Email           string `json:"email" binding:"required,email"`
	OTPCode         string `json:"otp_code" binding:"required,len=6"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Accounts.ResetPassword(req.Email, req.OTPCode, req.NewPassword, req.ConfirmPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meal-order-api/config"
	"meal-order-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "role": GetRole(c)})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := GenerateToken(&models.User{ID: 7, Email: "ada@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"role":"admin"}`, w.Body.String())
}

func TestAuthRequired_RejectsExpiredAndForeignTokens(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) { c.Status(http.StatusOK) })

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := expired.SignedString(config.JWTSecret)
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1})
	other, err := foreign.SignedString([]byte("someone-else"))
	require.NoError(t, err)

	for _, tok := range []string{signed, other, "garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
	}
}

func TestRoleRequired(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AuthRequired(), RoleRequired(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	token, err := GenerateToken(&models.User{ID: 3, Role: models.RoleCustomer})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Required role(s): admin")
}

func TestGuestSession(t *testing.T) {
	r := gin.New()
	r.GET("/cart", OptionalAuth(), GuestSession(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"key": SessionKey(c), "user": CurrentUserID(c) != nil})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/cart", nil))
	issued := w.Header().Get(SessionHeader)
	assert.Len(t, issued, 36)
	assert.Contains(t, w.Body.String(), issued)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(SessionHeader, "abc")
	w = serve(r, req)
	assert.Equal(t, "abc", w.Header().Get(SessionHeader))

	token, err := GenerateToken(&models.User{ID: 9, Role: models.RoleCustomer})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = serve(r, req)
	assert.Empty(t, w.Header().Get(SessionHeader))
	assert.JSONEq(t, `{"key":"","user":true}`, w.Body.String())
}

func TestRequestLoggerAndCORS(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(config.NewLogger("panic")), CORS())
	r.GET("/ping", func(c *gin.Context) {
		Log(c).Info("inside")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := serve(r, req)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), SessionHeader)

	w = serve(r, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

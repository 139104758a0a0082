package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHeader carries the guest cart token between client and server
const SessionHeader = "X-Session-Key"

const maxSessionKeyLen = 64

// GuestSession makes sure every anonymous request has a cart session key.
// A key sent by the client is reused, otherwise a new one is issued. Either
// way it is echoed back so the client can keep it.
func GuestSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(SessionHeader))
		if len(key) > maxSessionKeyLen {
			key = ""
		}
		if key == "" && CurrentUserID(c) == nil {
			key = uuid.NewString()
		}
		if key != "" {
			c.Set("sessionKey", key)
			c.Header(SessionHeader, key)
		}
		c.Next()
	}
}

// SessionKey returns the guest session key for this request, if any
func SessionKey(c *gin.Context) string {
	return c.GetString("sessionKey")
}

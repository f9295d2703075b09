package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Manager wires all HTTP middlewares with shared dependencies.
type Manager struct {
	adminKey string
}

// NewManager builds a middleware manager for the HTTP server.
func NewManager(adminKey string) *Manager {
	return &Manager{adminKey: adminKey}
}

// Admin restricts routes to requests presenting the shared admin key as
// the admin_key query parameter. An unconfigured key fails closed.
func (m *Manager) Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Query("admin_key")
		if m.adminKey == "" || key == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(m.adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid admin key"})
			return
		}
		c.Next()
	}
}

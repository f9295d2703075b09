package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func adminStatus(t *testing.T, configuredKey, target string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/protected", NewManager(configuredKey).Admin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)
	return w.Code
}

func TestAdmin_CorrectKey(t *testing.T) {
	if got := adminStatus(t, "s3cret", "/protected?admin_key=s3cret"); got != http.StatusOK {
		t.Errorf("got %d, want 200", got)
	}
}

func TestAdmin_WrongKey(t *testing.T) {
	if got := adminStatus(t, "s3cret", "/protected?admin_key=nope"); got != http.StatusForbidden {
		t.Errorf("got %d, want 403", got)
	}
}

func TestAdmin_MissingKey(t *testing.T) {
	if got := adminStatus(t, "s3cret", "/protected"); got != http.StatusForbidden {
		t.Errorf("got %d, want 403", got)
	}
}

func TestAdmin_UnconfiguredKeyFailsClosed(t *testing.T) {
	if got := adminStatus(t, "", "/protected?admin_key="); got != http.StatusForbidden {
		t.Errorf("got %d, want 403", got)
	}
	if got := adminStatus(t, "", "/protected?admin_key=anything"); got != http.StatusForbidden {
		t.Errorf("got %d, want 403", got)
	}
}

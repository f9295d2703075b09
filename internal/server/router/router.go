package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/server/handlers"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/server/middleware"
)

// New wires handlers and middleware into an HTTP router.
func New(handler *handlers.Handler, mw *middleware.Manager, allowOrigins []string) http.Handler {
	router := gin.Default()

	corsCfg := cors.DefaultConfig()
	if len(allowOrigins) == 1 && allowOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowOrigins
		corsCfg.AllowCredentials = true
	}
	router.Use(cors.New(corsCfg))

	router.GET("/", handler.Home)
	router.GET("/health", handler.Health)
	router.GET("/csrf-token", handler.CSRFToken)

	router.GET("/verify", handler.Verify)
	router.GET("/certificate", handler.Certificate)
	router.GET("/verify-management", handler.VerifyManagement)
	router.GET("/certificate-management", handler.CertificateManagement)

	router.GET("/generate-all", mw.Admin(), handler.GenerateAll)
	router.GET("/generate-all-management", mw.Admin(), handler.GenerateAllManagement)

	admin := router.Group("/admin")
	admin.Use(mw.Admin())
	{
		admin.GET("/logs", handler.AdminLogs)
		admin.GET("/suspicious-ips", handler.AdminSuspicious)
	}

	return router
}

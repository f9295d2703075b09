package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/admission"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/audit"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/certificate"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/fraud"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/roster"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/security"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/server/handlers"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/server/middleware"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/server/ratelimit"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/server/router"
)

const limiterSweepInterval = 5 * time.Minute

// NewServer assembles every component from the environment config and
// returns a ready-to-run HTTP server.
func NewServer() *http.Server {
	cfg := ConfigFromEnv()

	records := roster.New(cfg.StudentCSVPath, cfg.ManagementCSVPath)

	certs, err := certificate.New(certificate.Config{
		TemplatePath:           cfg.TemplateImage,
		ManagementTemplatePath: cfg.ManagementTemplateImage,
		OutputDir:              cfg.CertificatesDir,
		TemplatesDir:           cfg.TemplatesDir,
		FontPath:               cfg.FontPath,
		NameFontSize:           cfg.NameFontSize,
		NameX:                  cfg.NameX,
		NameY:                  cfg.NameY,
		NameColor:              cfg.NameColor,
		MgmtNameFontSize:       cfg.MgmtNameFontSize,
		MgmtNameX:              cfg.MgmtNameX,
		MgmtNameY:              cfg.MgmtNameY,
		MgmtNameColor:          cfg.MgmtNameColor,
		IDPrefix:               cfg.IDPrefix,
		MgmtIDPrefix:           cfg.MgmtIDPrefix,
	})
	if err != nil {
		log.Fatalf("error initializing certificate generator: %v", err)
	}

	auditLog, err := audit.NewLog(cfg.LogsDir)
	if err != nil {
		log.Fatalf("error initializing audit log: %v", err)
	}

	tokens := security.NewTokenIssuer(cfg.TokenMaxAge)
	limiter := ratelimit.NewLimiter()
	limiter.StartCleanup(limiterSweepInterval, cfg.RateLimitWindow)

	pipeline := admission.NewPipeline(tokens, limiter, auditLog)
	pipeline.MaxRequests = cfg.RateLimitMax
	pipeline.Window = cfg.RateLimitWindow

	detector := fraud.NewDetector(auditLog)
	detector.FailureThreshold = cfg.FraudFailureThreshold
	detector.SuccessThreshold = cfg.FraudSuccessThreshold

	if cfg.AdminKey == "" {
		log.Println("ADMIN_KEY is not set; admin endpoints will reject all requests")
	}

	handler := handlers.New(
		records, certs, pipeline, tokens, auditLog, detector,
		cfg.TemplatesDir,
		handlers.HealthPaths{
			StudentCSV:      cfg.StudentCSVPath,
			TemplateImage:   cfg.TemplateImage,
			CertificatesDir: cfg.CertificatesDir,
		},
	)
	mw := middleware.NewManager(cfg.AdminKey)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(handler, mw, cfg.AllowOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

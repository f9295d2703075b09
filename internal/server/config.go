package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config gathers every environment knob the server reads. Values are
// read once at startup; the CSV files themselves stay live-editable
// because the roster re-reads them.
type Config struct {
	Port int

	StudentCSVPath          string
	ManagementCSVPath       string
	CertificatesDir         string
	TemplatesDir            string
	TemplateImage           string
	ManagementTemplateImage string
	LogsDir                 string

	FontPath         string
	NameFontSize     float64
	NameX, NameY     float64
	NameColor        string
	MgmtNameFontSize float64
	MgmtNameX        float64
	MgmtNameY        float64
	MgmtNameColor    string
	IDPrefix         string
	MgmtIDPrefix     string

	AdminKey     string
	AllowOrigins []string

	RateLimitMax    int
	RateLimitWindow time.Duration
	TokenMaxAge     time.Duration

	FraudFailureThreshold int
	FraudSuccessThreshold int
}

// ConfigFromEnv reads the environment with the documented defaults.
func ConfigFromEnv() Config {
	return Config{
		Port: envInt("PORT", 8000),

		StudentCSVPath:          envStr("CSV_PATH", "students.csv"),
		ManagementCSVPath:       envStr("MANAGEMENT_CSV_PATH", "management.csv"),
		CertificatesDir:         envStr("CERTIFICATES_DIR", "certificates"),
		TemplatesDir:            envStr("TEMPLATES_DIR", "templates"),
		TemplateImage:           envStr("CERTIFICATE_TEMPLATE_IMAGE", "templates/certificate_template.jpg"),
		ManagementTemplateImage: envStr("MANAGEMENT_TEMPLATE_IMAGE", "templates/CertificateManagement.jpeg"),
		LogsDir:                 envStr("LOGS_DIR", "logs"),

		FontPath:         os.Getenv("CERT_FONT_PATH"),
		NameFontSize:     envFloat("CERT_NAME_FONT_SIZE", 70),
		NameX:            envFloat("CERT_NAME_X", 250),
		NameY:            envFloat("CERT_NAME_Y", 550),
		NameColor:        envStr("CERT_NAME_COLOR", "#000000"),
		MgmtNameFontSize: envFloat("CERT_MGMT_NAME_FONT_SIZE", 55),
		MgmtNameX:        envFloat("CERT_MGMT_NAME_X", 600),
		MgmtNameY:        envFloat("CERT_MGMT_NAME_Y", 500),
		MgmtNameColor:    envStr("CERT_MGMT_NAME_COLOR", envStr("CERT_NAME_COLOR", "#000000")),
		IDPrefix:         envStr("CERTIFICATE_ID_PREFIX", "CERT"),
		MgmtIDPrefix:     envStr("MANAGEMENT_CERT_ID_PREFIX", "CERT-MGMT"),

		AdminKey:     os.Getenv("ADMIN_KEY"),
		AllowOrigins: splitOrigins(envStr("CORS_ALLOW_ORIGINS", "*")),

		RateLimitMax:    envInt("RATE_LIMIT_MAX", 5),
		RateLimitWindow: time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		TokenMaxAge:     time.Duration(envInt("TOKEN_MAX_AGE_SECONDS", 3600)) * time.Second,

		FraudFailureThreshold: envInt("FRAUD_FAILURE_THRESHOLD", 5),
		FraudSuccessThreshold: envInt("FRAUD_SUCCESS_THRESHOLD", 3),
	}
}

func envStr(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return fallback
	}
	return value
}

func envFloat(name string, fallback float64) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(name)), 64)
	if err != nil {
		return fallback
	}
	return value
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

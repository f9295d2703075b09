package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/admission"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/audit"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/fraud"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/roster"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/security"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/types"
)

const (
	endpointCertificate     = "get_certificate"
	endpointMgmtCertificate = "get_management_certificate"

	adminLogLimit = 500
)

// RecordSource is the identity lookup this layer delegates to. A miss is
// roster.ErrNotFound; the handlers never tell the client which field was
// wrong.
type RecordSource interface {
	FindStudent(name, id string) (types.Student, error)
	FindManagement(name, id string) (types.Management, error)
	Students() ([]types.Student, error)
	Management() ([]types.Management, error)
}

// Renderer produces and caches certificate documents.
type Renderer interface {
	CertificateID(name, id string) string
	ManagementCertificateID(name, id string) string
	Exists(certID string) bool
	Path(certID string) string
	Generate(name, certID string) (string, error)
	GenerateManagement(name, certID string) (string, error)
}

// HealthPaths are the configured locations the health endpoint reports on.
type HealthPaths struct {
	StudentCSV      string
	TemplateImage   string
	CertificatesDir string
}

// Handler carries the dependencies shared by all HTTP handlers.
type Handler struct {
	roster   RecordSource
	certs    Renderer
	pipeline *admission.Pipeline
	tokens   *security.TokenIssuer
	audit    *audit.Log
	fraud    *fraud.Detector

	templatesDir string
	health       HealthPaths
}

// New wires a handler set.
func New(
	records RecordSource,
	certs Renderer,
	pipeline *admission.Pipeline,
	tokens *security.TokenIssuer,
	auditLog *audit.Log,
	detector *fraud.Detector,
	templatesDir string,
	health HealthPaths,
) *Handler {
	return &Handler{
		roster:       records,
		certs:        certs,
		pipeline:     pipeline,
		tokens:       tokens,
		audit:        auditLog,
		fraud:        detector,
		templatesDir: templatesDir,
		health:       health,
	}
}

// Home serves the static search form.
func (h *Handler) Home(c *gin.Context) {
	page := filepath.Join(h.templatesDir, "index.html")
	if _, err := os.Stat(page); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "template file not found"})
		return
	}
	c.File(page)
}

// Health responds with a service heartbeat and configured path status.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "running",
		"paths": gin.H{
			"csv":                     h.health.StudentCSV,
			"csv_exists":              fileExists(h.health.StudentCSV),
			"template_image":          h.health.TemplateImage,
			"template_exists":         fileExists(h.health.TemplateImage),
			"certificates_dir":        h.health.CertificatesDir,
			"certificates_dir_exists": fileExists(h.health.CertificatesDir),
		},
	})
}

// CSRFToken mints a single-use admission token for the certificate
// endpoints.
func (h *Handler) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrf_token": h.tokens.Issue()})
}

// Verify previews a student record without issuing anything.
func (h *Handler) Verify(c *gin.Context) {
	student, err := h.roster.FindStudent(c.Query("name"), c.Query("student_id"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":           student.Name,
		"email":          student.Email,
		"student_id":     student.StudentID,
		"course":         student.Course,
		"certificate_id": h.certs.CertificateID(student.Name, student.StudentID),
		"valid":          true,
	})
}

// VerifyManagement previews a management record.
func (h *Handler) VerifyManagement(c *gin.Context) {
	person, err := h.roster.FindManagement(c.Query("name"), c.Query("mgmt_id"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":           person.Name,
		"email":          person.Email,
		"position":       person.Position,
		"certificate_id": h.certs.ManagementCertificateID(person.Name, person.MgmtID),
		"valid":          true,
	})
}

// Certificate runs the admission pipeline and, when admitted, verifies
// the claim and serves the (possibly freshly rendered) PDF.
func (h *Handler) Certificate(c *gin.Context) {
	req := admission.Request{
		ClientKey: c.ClientIP(),
		Endpoint:  endpointCertificate,
		Name:      c.Query("name"),
		ClaimedID: c.Query("student_id"),
		Token:     c.Query("csrf_token"),
	}

	if rej := h.pipeline.Admit(req); rej != nil {
		c.JSON(rej.Status, gin.H{"error": rej.Message})
		return
	}

	student, err := h.roster.FindStudent(req.Name, req.ClaimedID)
	if err != nil {
		h.finishLookupError(c, req, err)
		return
	}

	certID := h.certs.CertificateID(student.Name, student.StudentID)
	if forced(c) || !h.certs.Exists(certID) {
		if _, err := h.certs.Generate(student.Name, certID); err != nil {
			h.pipeline.Finish(req, types.StatusFailed, types.ReasonRenderError)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error generating certificate"})
			return
		}
	}

	h.pipeline.Finish(req, types.StatusSuccess, "")
	c.FileAttachment(h.certs.Path(certID), certID+".pdf")
}

// CertificateManagement is Certificate for the management population.
func (h *Handler) CertificateManagement(c *gin.Context) {
	req := admission.Request{
		ClientKey: c.ClientIP(),
		Endpoint:  endpointMgmtCertificate,
		Name:      c.Query("name"),
		ClaimedID: c.Query("mgmt_id"),
		Token:     c.Query("csrf_token"),
	}

	if rej := h.pipeline.Admit(req); rej != nil {
		c.JSON(rej.Status, gin.H{"error": rej.Message})
		return
	}

	person, err := h.roster.FindManagement(req.Name, req.ClaimedID)
	if err != nil {
		h.finishLookupError(c, req, err)
		return
	}

	certID := h.certs.ManagementCertificateID(person.Name, person.MgmtID)
	if forced(c) || !h.certs.Exists(certID) {
		if _, err := h.certs.GenerateManagement(person.Name, certID); err != nil {
			h.pipeline.Finish(req, types.StatusFailed, types.ReasonRenderError)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error generating certificate"})
			return
		}
	}

	h.pipeline.Finish(req, types.StatusSuccess, "")
	c.FileAttachment(h.certs.Path(certID), certID+".pdf")
}

// GenerateAll renders every student certificate not yet on disk.
func (h *Handler) GenerateAll(c *gin.Context) {
	students, err := h.roster.Students()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	generated := make([]string, 0)
	skipped := make([]string, 0)
	for _, student := range students {
		certID := h.certs.CertificateID(student.Name, student.StudentID)
		if h.certs.Exists(certID) {
			skipped = append(skipped, certID)
			continue
		}
		if _, err := h.certs.Generate(student.Name, certID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		generated = append(generated, certID)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"total_students": len(students),
		"generated":      len(generated),
		"skipped":        len(skipped),
		"generated_ids":  generated,
		"skipped_ids":    skipped,
	})
}

// GenerateAllManagement renders every management certificate not yet on
// disk.
func (h *Handler) GenerateAllManagement(c *gin.Context) {
	people, err := h.roster.Management()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	generated := make([]string, 0)
	skipped := make([]string, 0)
	for _, person := range people {
		certID := h.certs.ManagementCertificateID(person.Name, person.MgmtID)
		if h.certs.Exists(certID) {
			skipped = append(skipped, certID)
			continue
		}
		if _, err := h.certs.GenerateManagement(person.Name, certID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		generated = append(generated, certID)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"total_management": len(people),
		"generated":        len(generated),
		"skipped":          len(skipped),
		"generated_ids":    generated,
		"skipped_ids":      skipped,
	})
}

// AdminLogs returns recent audit records, newest first.
func (h *Handler) AdminLogs(c *gin.Context) {
	logs, err := h.audit.Query(audit.Filter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read audit log"})
		return
	}

	if len(logs) > adminLogLimit {
		logs = logs[len(logs)-adminLogLimit:]
	}
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	if logs == nil {
		logs = []types.AuditRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_logs": len(logs),
		"logs":       logs,
	})
}

// AdminSuspicious returns the clients currently exceeding a fraud
// threshold.
func (h *Handler) AdminSuspicious(c *gin.Context) {
	window := fraud.DefaultWindow
	if raw := strings.TrimSpace(c.Query("window_minutes")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window_minutes must be a positive integer"})
			return
		}
		window = time.Duration(minutes) * time.Minute
	}

	flags, err := h.fraud.ListFlagged(window)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to analyze audit log"})
		return
	}
	if flags == nil {
		flags = []types.SuspicionFlag{}
	}

	c.JSON(http.StatusOK, gin.H{
		"suspicious_count": len(flags),
		"flags":            flags,
	})
}

// respondLookupError maps lookup failures for the unaudited verify
// endpoints.
func (h *Handler) respondLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roster.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found, please verify your details"})
	case errors.Is(err, os.ErrNotExist):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store is not available"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected error during verification"})
	}
}

// finishLookupError records the outcome and maps it for the audited
// certificate endpoints.
func (h *Handler) finishLookupError(c *gin.Context, req admission.Request, err error) {
	switch {
	case errors.Is(err, roster.ErrNotFound):
		h.pipeline.Finish(req, types.StatusFailed, types.ReasonNotFound)
		c.JSON(http.StatusNotFound, gin.H{"error": "not found, please verify your details"})
	case errors.Is(err, os.ErrNotExist):
		h.pipeline.Finish(req, types.StatusFailed, types.ReasonRenderError)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store is not available"})
	default:
		h.pipeline.Finish(req, types.StatusFailed, types.ReasonRenderError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected error during lookup"})
	}
}

func forced(c *gin.Context) bool {
	return strings.EqualFold(strings.TrimSpace(c.Query("force")), "true")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

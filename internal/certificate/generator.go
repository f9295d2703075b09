// Package certificate renders a verified display name onto a fixed visual
// template and caches the resulting PDF on disk keyed by certificate ID.
package certificate

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Config carries the fixed positioning/font parameters for both
// certificate variants. Zero values fall back to the defaults below.
type Config struct {
	TemplatePath           string
	ManagementTemplatePath string
	OutputDir              string
	TemplatesDir           string
	FontPath               string

	NameFontSize float64
	NameX, NameY float64
	NameColor    string

	MgmtNameFontSize float64
	MgmtNameX        float64
	MgmtNameY        float64
	MgmtNameColor    string

	// IDPrefix / MgmtIDPrefix are used when a display name sanitizes to
	// nothing and the certificate ID falls back to the raw identifier.
	IDPrefix     string
	MgmtIDPrefix string
}

// Generator renders certificates from template images.
type Generator struct {
	cfg Config
}

// New prepares the output directory and returns a generator.
func New(cfg Config) (*Generator, error) {
	if cfg.NameFontSize <= 0 {
		cfg.NameFontSize = 70
	}
	if cfg.NameX == 0 && cfg.NameY == 0 {
		cfg.NameX, cfg.NameY = 250, 550
	}
	if cfg.MgmtNameFontSize <= 0 {
		cfg.MgmtNameFontSize = 55
	}
	if cfg.MgmtNameX == 0 && cfg.MgmtNameY == 0 {
		cfg.MgmtNameX, cfg.MgmtNameY = 600, 500
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "CERT"
	}
	if cfg.MgmtIDPrefix == "" {
		cfg.MgmtIDPrefix = "CERT-MGMT"
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("certificate: create output dir: %w", err)
	}
	return &Generator{cfg: cfg}, nil
}

// CertificateID derives the cache key for a student certificate: the
// sanitized display name, or a prefixed id when nothing survives
// sanitization.
func (g *Generator) CertificateID(name, id string) string {
	return deriveID(name, g.cfg.IDPrefix, id)
}

// ManagementCertificateID is CertificateID for the management variant.
func (g *Generator) ManagementCertificateID(name, id string) string {
	return deriveID(name, g.cfg.MgmtIDPrefix, id)
}

func deriveID(name, prefix, id string) string {
	var b strings.Builder
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == ' ':
			b.WriteRune(ch)
		}
	}
	sanitized := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	if sanitized != "" {
		return sanitized
	}
	return prefix + "-" + id
}

// Exists reports whether the certificate is already cached on disk.
func (g *Generator) Exists(certID string) bool {
	_, err := os.Stat(g.Path(certID))
	return err == nil
}

// Path returns where the certificate PDF lives (or would live).
func (g *Generator) Path(certID string) string {
	return filepath.Join(g.cfg.OutputDir, certID+".pdf")
}

// Generate renders a student certificate and returns the output path.
func (g *Generator) Generate(name, certID string) (string, error) {
	return g.render(g.cfg.TemplatePath, name, certID,
		g.cfg.NameFontSize, g.cfg.NameX, g.cfg.NameY, g.cfg.NameColor)
}

// GenerateManagement renders a management certificate. The management
// template falls back to the student template when not configured.
func (g *Generator) GenerateManagement(name, certID string) (string, error) {
	template := g.cfg.ManagementTemplatePath
	if template == "" {
		template = g.cfg.TemplatePath
	}
	return g.render(template, name, certID,
		g.cfg.MgmtNameFontSize, g.cfg.MgmtNameX, g.cfg.MgmtNameY, g.cfg.MgmtNameColor)
}

func (g *Generator) render(template, name, certID string, fontSize, x, y float64, color string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("certificate: display name is empty")
	}

	width, height, err := imageSize(template)
	if err != nil {
		return "", err
	}

	fontPath, err := g.resolveFont()
	if err != nil {
		return "", err
	}

	// Template pixels map 1:1 to PDF points, so the configured name
	// coordinates mean the same thing they did for the raster template.
	orientation := "P"
	if width > height {
		orientation = "L"
	}
	// fpdf joins font file names onto its font directory (defaulting to
	// "."), which mangles absolute paths, so split the resolved path.
	pdf := fpdf.New(orientation, "pt", "A4", filepath.Dir(fontPath))
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat(orientation, fpdf.SizeType{Wd: width, Ht: height})

	pdf.ImageOptions(template, 0, 0, width, height, false,
		fpdf.ImageOptions{ReadDpi: false}, 0, "")

	pdf.AddUTF8Font("certname", "", filepath.Base(fontPath))
	pdf.SetFont("certname", "", fontSize)

	r, gr, b := parseHexColor(color)
	pdf.SetTextColor(r, gr, b)

	// Text positions at the baseline; the configured Y is the top of the
	// drawn name.
	pdf.Text(x, y+fontSize, name)

	out := g.Path(certID)
	if err := pdf.OutputFileAndClose(out); err != nil {
		return "", fmt.Errorf("certificate: write %s: %w", out, err)
	}
	return out, nil
}

// resolveFont picks the first usable TrueType font: the configured path,
// then the templates directory, then the usual system locations.
func (g *Generator) resolveFont() (string, error) {
	var candidates []string
	if g.cfg.FontPath != "" {
		candidates = append(candidates, g.cfg.FontPath)
	}
	if g.cfg.TemplatesDir != "" {
		candidates = append(candidates,
			filepath.Join(g.cfg.TemplatesDir, "DejaVuSans-Bold.ttf"),
			filepath.Join(g.cfg.TemplatesDir, "DejaVuSans.ttf"),
		)
	}
	candidates = append(candidates,
		"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"C:/Windows/Fonts/arialbd.ttf",
		"C:/Windows/Fonts/arial.ttf",
	)
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("certificate: no TrueType font found; set CERT_FONT_PATH or install one under %s", g.cfg.TemplatesDir)
}

func imageSize(path string) (width, height float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("certificate: template not found: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("certificate: decode template %s: %w", path, err)
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

// parseHexColor accepts #rrggbb or #rrggbbaa (alpha ignored); anything
// else renders black.
func parseHexColor(value string) (r, g, b int) {
	value = strings.TrimSpace(value)
	if len(value) < 7 || !strings.HasPrefix(value, "#") {
		return 0, 0, 0
	}
	parse := func(s string) int {
		n, err := strconv.ParseInt(s, 16, 32)
		if err != nil {
			return 0
		}
		return int(n)
	}
	return parse(value[1:3]), parse(value[3:5]), parse(value[5:7])
}

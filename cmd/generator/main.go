package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/certificate"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/roster"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/server"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("note: could not load .env file (%v); continuing with system environment", err)
	}
	log.SetPrefix("[cert-generator] ")
}

func main() {
	target := os.Getenv("GENERATOR_TARGET")
	if target == "" {
		log.Fatal("GENERATOR_TARGET environment variable is required (options: students, management)")
	}

	cfg := server.ConfigFromEnv()
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
		log.Fatalf("failed to initialize certificate generator: %v", err)
	}

	var generated, skipped int
	switch target {
	case "students":
		students, err := records.Students()
		if err != nil {
			log.Fatalf("failed to read student roster: %v", err)
		}
		for _, student := range students {
			certID := certs.CertificateID(student.Name, student.StudentID)
			if certs.Exists(certID) {
				skipped++
				continue
			}
			if _, err := certs.Generate(student.Name, certID); err != nil {
				log.Fatalf("failed to generate %s: %v", certID, err)
			}
			generated++
		}
	case "management":
		people, err := records.Management()
		if err != nil {
			log.Fatalf("failed to read management roster: %v", err)
		}
		for _, person := range people {
			certID := certs.ManagementCertificateID(person.Name, person.MgmtID)
			if certs.Exists(certID) {
				skipped++
				continue
			}
			if _, err := certs.GenerateManagement(person.Name, certID); err != nil {
				log.Fatalf("failed to generate %s: %v", certID, err)
			}
			generated++
		}
	default:
		log.Fatalf("Invalid GENERATOR_TARGET value: %s (options: students, management)", target)
	}

	log.Printf("Generation complete: %d generated, %d skipped", generated, skipped)
}

// Render a per-job cover letter from an HTML template
// The template receives the user's profile and the target job

package pdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"go-easyapply-automation/internal/models"
)

type Generator struct {
	templatePath string
}

func NewGenerator(templatePath string) *Generator {
	return &Generator{templatePath: templatePath}
}

type coverLetterData struct {
	Profile models.Profile
	Job     models.JobListing
	Date    string
}

// Generate renders the cover letter template for one job and returns
// the PDF bytes.
func (g *Generator) Generate(user *models.User, job *models.JobListing) ([]byte, error) {
	var profile models.Profile
	if len(user.ProfileJSON) > 0 {
		if err := json.Unmarshal(user.ProfileJSON, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse user profile: %w", err)
		}
	}

	funcMap := template.FuncMap{
		"upper": strings.ToUpper,
		"join":  strings.Join,
	}

	tmpl, err := template.New(filepath.Base(g.templatePath)).Funcs(funcMap).ParseFiles(g.templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	data := coverLetterData{
		Profile: profile,
		Job:     *job,
		Date:    time.Now().Format("January 2, 2006"),
	}

	// Execute template to a buffer
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	htmlContent := buf.String()

	// Use Playwright to render HTML to PDF
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("could not launch chromium browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create new page: %w", err)
	}
	defer page.Close()

	// Set the generated HTML content into the browser page
	if err := page.SetContent(htmlContent, playwright.PageSetContentOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		return nil, fmt.Errorf("could not set page content: %w", err)
	}

	// Generate the PDF
	pdfBytes, err := page.PDF(playwright.PagePdfOptions{
		Format:          playwright.String("A4"),
		PrintBackground: playwright.Bool(true),
		Margin: &playwright.Margin{
			Top:    playwright.String("2cm"),
			Bottom: playwright.String("2cm"),
			Left:   playwright.String("2cm"),
			Right:  playwright.String("2cm"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not generate PDF: %w", err)
	}

	return pdfBytes, nil
}

// SaveToFile is a helper to write a generated PDF to disk
func SaveToFile(pdfBytes []byte, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create directory: %w", err)
	}

	return os.WriteFile(outputPath, pdfBytes, 0644)
}

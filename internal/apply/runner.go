package apply

import (
	"context"
	"log"
	"path/filepath"

	"github.com/playwright-community/playwright-go"

	"go-easyapply-automation/internal/models"
)

// PageFactory opens pages inside the authenticated browser session.
type PageFactory interface {
	NewPage() (playwright.Page, error)
}

// CoverLetterRenderer produces a PDF cover letter tailored to one job.
type CoverLetterRenderer interface {
	Generate(user *models.User, job *models.JobListing) ([]byte, error)
}

// Runner binds the navigator to live browser pages, one page per
// application.
type Runner struct {
	pages    PageFactory
	opts     Options
	letters  CoverLetterRenderer
	saveFunc func(data []byte, path string) error
	cacheDir string
}

func NewRunner(pages PageFactory, opts Options) *Runner {
	return &Runner{pages: pages, opts: opts}
}

// WithCoverLetters enables per-job cover letter rendering. Generated
// PDFs land under dir and override the configured attachment path.
func (r *Runner) WithCoverLetters(renderer CoverLetterRenderer, save func([]byte, string) error, dir string) *Runner {
	r.letters = renderer
	r.saveFunc = save
	r.cacheDir = dir
	return r
}

func (r *Runner) Apply(ctx context.Context, user *models.User, job *models.JobListing, answers []models.Answer) Result {
	page, err := r.pages.NewPage()
	if err != nil {
		return errorResult("could not open browser page: %v", err)
	}

	//user-level attachment paths win over the configured defaults
	opts := r.opts
	if user.ResumePath != "" {
		opts.ResumePath = user.ResumePath
	}
	if user.CoverLetterPath != "" {
		opts.CoverLetterPath = user.CoverLetterPath
	}

	if r.letters != nil {
		if path, err := r.renderCoverLetter(user, job); err != nil {
			log.Printf("⚠️ Cover letter generation failed for %s, falling back to default: %v", job.Title, err)
		} else {
			opts.CoverLetterPath = path
		}
	}

	nav := NewNavigator(opts)
	return nav.Apply(ctx, NewPageDriver(page), job, answers)
}

func (r *Runner) renderCoverLetter(user *models.User, job *models.JobListing) (string, error) {
	data, err := r.letters.Generate(user, job)
	if err != nil {
		return "", err
	}
	path := filepath.Join(r.cacheDir, "cover-letter-"+job.ExternalID+".pdf")
	if err := r.saveFunc(data, path); err != nil {
		return "", err
	}
	return path, nil
}

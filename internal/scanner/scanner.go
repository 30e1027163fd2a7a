package scanner

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"go-easyapply-automation/internal/config"
	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/oracle"
	"go-easyapply-automation/utils"
)

const unknownLocation = "Unknown location"

// scan bounds
const (
	maxJobsPerScan = 60
	maxJobsPerPair = 15
	minLoadedCards = 10
	maxScrollTries = 6
)

// CheckpointError signals an interstitial verification page. It is a
// distinct type so callers can pause automation and ask for manual
// intervention instead of treating it as a generic scrape failure.
type CheckpointError struct {
	URL string
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint verification page detected: %s", e.URL)
}

// IsCheckpointURL matches LinkedIn's verification interstitials.
func IsCheckpointURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, "/checkpoint/") ||
		strings.Contains(lower, "/authwall") ||
		strings.Contains(lower, "/uas/login")
}

// SkipReason decides whether a score fails the gate. The bool reports
// whether the job should be skipped.
func SkipReason(score oracle.Score, threshold float64) (string, bool) {
	if score.Blacklisted {
		return "Company blacklisted", true
	}
	if score.Similarity < threshold {
		return fmt.Sprintf("Low similarity score: %.2f", score.Similarity), true
	}
	return "", false
}

// Repository is the subset of persistence the scanner needs.
type Repository interface {
	SaveJob(ctx context.Context, job *models.JobListing) (*models.JobListing, error)
	UpsertApplicationRecord(ctx context.Context, userID, jobID string, status models.ApplicationStatus, reason *string) error
}

type Stats struct {
	Scanned int
	Fresh   int
	Skipped int
}

// Scanner enumerates Easy Apply cards on LinkedIn search pages and
// writes a FRESH or SKIPPED application record per listing.
type Scanner struct {
	cfg     *config.Config
	scoring oracle.ScoringOracle
	repo    Repository
	seen    *SeenCache
}

func NewScanner(cfg *config.Config, scoring oracle.ScoringOracle, repo Repository) *Scanner {
	return &Scanner{
		cfg:     cfg,
		scoring: scoring,
		repo:    repo,
		seen:    NewSeenCache(cfg.CachePath),
	}
}

func (s *Scanner) Scan(ctx context.Context, page playwright.Page, user *models.User) (Stats, error) {
	var stats Stats
	log.Println("💼 Scanning LinkedIn Jobs (Easy Apply only)...")

	screenshotDebugger := utils.NewScreenShotDebugger()

	for _, keyword := range s.cfg.Keywords {
		for _, location := range s.cfg.Locations {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			if stats.Scanned >= maxJobsPerScan {
				log.Printf("  ⏹️ Scan cap reached (%d jobs)", maxJobsPerScan)
				return stats, nil
			}

			searchURL := fmt.Sprintf(
				"https://www.linkedin.com/jobs/search/?f_AL=true&keywords=%s&location=%s&sortBy=DD",
				url.QueryEscape(keyword), url.QueryEscape(location))
			log.Printf("  🔍 Searching: %q in %q", keyword, location)

			if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
				WaitUntil: playwright.WaitUntilStateDomcontentloaded,
				Timeout:   playwright.Float(30000),
			}); err != nil {
				log.Printf("    ⚠️ Failed to load search page: %v", err)
				continue
			}

			if IsCheckpointURL(page.URL()) {
				screenshotDebugger.CaptureAndLog(page, "checkpoint-detected", "🚨 Checkpoint verification page hit")
				return stats, &CheckpointError{URL: page.URL()}
			}

			utils.RandomDelay(2000, 3000)
			utils.MouseJiggle(page)

			cards, err := s.loadCards(page)
			if err != nil {
				log.Printf("    ⚠️ %v", err)
				continue
			}
			log.Printf("    📦 Found %d job cards", len(cards))

			pairCount := 0
			for _, card := range cards {
				if pairCount >= maxJobsPerPair || stats.Scanned >= maxJobsPerScan {
					break
				}

				job, ok := s.extractCard(card, keyword)
				if !ok {
					continue
				}

				if s.seen.IsSeen(job.ExternalID) {
					continue
				}

				pairCount++
				stats.Scanned++
				if s.gateAndRecord(ctx, user, job) {
					stats.Fresh++
				} else {
					stats.Skipped++
				}
				s.seen.Add([]string{job.ExternalID})

				utils.RandomDelay(300, 900)
			}
		}
	}

	log.Printf("  ✅ Scan finished: %d scanned, %d fresh, %d skipped", stats.Scanned, stats.Fresh, stats.Skipped)
	return stats, nil
}

// loadCards scrolls the results list until a minimum number of cards is
// present, stopping early when a scroll adds nothing (stalled load).
func (s *Scanner) loadCards(page playwright.Page) ([]playwright.Locator, error) {
	cardLocator := page.Locator("li.scaffold-layout__list-item, .job-card-container")

	if _, err := page.WaitForSelector("li.scaffold-layout__list-item, .job-card-container", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(15000),
	}); err != nil {
		return nil, fmt.Errorf("job list not found or empty")
	}

	prev := 0
	for attempt := 0; attempt < maxScrollTries; attempt++ {
		count, err := cardLocator.Count()
		if err != nil {
			break
		}
		if count >= minLoadedCards {
			break
		}
		if attempt > 0 && count == prev {
			log.Printf("    ℹ️ Load stalled at %d cards, stopping scroll", count)
			break
		}
		prev = count

		utils.SmoothScroll(page)
		utils.RandomDelay(800, 1500)
	}

	return cardLocator.All()
}

// extractCard pulls normalized fields off one card. Every extraction is
// individually fault-tolerant; only a missing id or a missing Easy Apply
// marker rejects the card.
func (s *Scanner) extractCard(card playwright.Locator, keyword string) (*models.JobListing, bool) {
	//only Easy Apply cards are actionable
	easyApply := card.Locator(".job-card-container__apply-method, span:has-text(\"Easy Apply\")").First()
	if count, _ := easyApply.Count(); count == 0 {
		return nil, false
	}

	externalID, _ := card.GetAttribute("data-job-id")
	if externalID == "" {
		if inner := card.Locator("[data-job-id]").First(); inner != nil {
			externalID, _ = inner.GetAttribute("data-job-id")
		}
	}
	if externalID == "" {
		//card without a stable id still gets a record, keyed randomly
		externalID = uuid.NewString()
	}

	//prefer the accessible name, fall back to the visible text
	titleEl := card.Locator("a.job-card-container__link").First()
	title, _ := titleEl.GetAttribute("aria-label")
	if strings.TrimSpace(title) == "" {
		title, _ = titleEl.TextContent()
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, false
	}

	company, _ := card.Locator(".artdeco-entity-lockup__subtitle, .job-card-container__primary-description").First().TextContent()

	//location selector chain, most to least specific
	location := unknownLocation
	for _, sel := range []string{
		".job-card-container__metadata-item",
		".artdeco-entity-lockup__caption",
		"li.job-card-container__metadata-wrapper",
	} {
		if text, err := card.Locator(sel).First().TextContent(playwright.LocatorTextContentOptions{
			Timeout: playwright.Float(500),
		}); err == nil && strings.TrimSpace(text) != "" {
			location = strings.TrimSpace(text)
			break
		}
	}

	href, _ := titleEl.GetAttribute("href")
	jobURL := href
	if jobURL != "" && !strings.HasPrefix(jobURL, "http") {
		jobURL = "https://www.linkedin.com" + jobURL
	}
	//strip tracking params for a canonical URL
	if idx := strings.Index(jobURL, "?"); idx != -1 {
		jobURL = jobURL[:idx]
	}

	return &models.JobListing{
		ExternalID: externalID,
		Title:      title,
		Company:    strings.TrimSpace(company),
		Location:   location,
		URL:        jobURL,
		Keywords:   []string{keyword},
	}, true
}

// gateAndRecord scores the job and persists it with a FRESH record or a
// SKIPPED record carrying the gate reason. Returns true when fresh.
func (s *Scanner) gateAndRecord(ctx context.Context, user *models.User, job *models.JobListing) bool {
	saved, err := s.repo.SaveJob(ctx, job)
	if err != nil {
		log.Printf("      ⚠️ Failed to save job %q: %v", job.Title, err)
		return false
	}

	score, err := s.scoring.ScoreJob(ctx, user, saved)
	if err != nil {
		log.Printf("      ⚠️ Scoring failed for %q: %v", job.Title, err)
		reason := "Scoring failed: " + err.Error()
		s.upsert(ctx, user.ID, saved.ID, models.StatusSkipped, &reason)
		return false
	}

	if reason, skip := SkipReason(score, s.cfg.SimilarityThreshold); skip {
		log.Printf("      🚫 %s - %s (%s)", saved.Title, saved.Company, reason)
		s.upsert(ctx, user.ID, saved.ID, models.StatusSkipped, &reason)
		return false
	}

	log.Printf("      ✅ %s - %s (%.2f)", saved.Title, saved.Company, score.Similarity)
	s.upsert(ctx, user.ID, saved.ID, models.StatusFresh, nil)
	return true
}

func (s *Scanner) upsert(ctx context.Context, userID, jobID string, status models.ApplicationStatus, reason *string) {
	if err := s.repo.UpsertApplicationRecord(ctx, userID, jobID, status, reason); err != nil {
		log.Printf("      ⚠️ Failed to persist application record: %v", err)
	}
}

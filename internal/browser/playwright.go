package browser

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/playwright-community/playwright-go"
)

const feedURL = "https://www.linkedin.com/feed/"

// Manager owns the playwright process, the browser, and one persistent
// authenticated context. Access is sequential; the scheduler never runs
// two applications at once.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser

	mu          sync.Mutex
	browserCtx  playwright.BrowserContext
	cookiesPath string
	verified    bool
}

func NewManager(ctx context.Context, cookiesPath string) (*Manager, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}

	return &Manager{
		pw:          pw,
		browser:     browser,
		cookiesPath: cookiesPath,
	}, nil
}

// EnsureSession creates the authenticated context on first use and
// verifies the login actually took. Subsequent calls are cheap.
func (m *Manager) EnsureSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browserCtx != nil && m.verified {
		return nil
	}

	if m.browserCtx == nil {
		browserCtx, err := m.browser.NewContext(playwright.BrowserNewContextOptions{
			UserAgent: playwright.String("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"),
			Viewport: &playwright.Size{
				Width:  1366,
				Height: 768,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create browser context: %w", err)
		}

		cookieFile := filepath.Join(m.cookiesPath, "cookies-linkedin.json")
		cookies, err := LoadCookies(cookieFile)
		if err != nil {
			browserCtx.Close()
			return fmt.Errorf("could not load session cookies: %w", err)
		}
		if err := browserCtx.AddCookies(cookies); err != nil {
			browserCtx.Close()
			return fmt.Errorf("failed to add cookies: %w", err)
		}
		log.Printf("🍪 Loaded %d session cookies", len(cookies))

		m.browserCtx = browserCtx
	}

	page, err := m.browserCtx.NewPage()
	if err != nil {
		return fmt.Errorf("failed to open verification page: %w", err)
	}
	defer page.Close()

	if _, err := page.Goto(feedURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	}); err != nil {
		return fmt.Errorf("failed to load feed: %w", err)
	}

	if _, err := page.WaitForSelector("#global-nav", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("login verification failed - global nav not found")
	}

	m.verified = true
	log.Println("✅ Session verified")
	return nil
}

// NewPage opens a page inside the authenticated context.
func (m *Manager) NewPage() (playwright.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browserCtx == nil {
		return nil, fmt.Errorf("no session: call EnsureSession first")
	}
	return m.browserCtx.NewPage()
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browserCtx != nil {
		if err := m.browserCtx.Close(); err != nil {
			log.Printf("⚠️ Failed to close browser context: %v", err)
		}
		m.browserCtx = nil
	}
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			log.Printf("⚠️ Failed to close browser: %v", err)
		}
	}
	if m.pw != nil {
		return m.pw.Stop()
	}
	return nil
}

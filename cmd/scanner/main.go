package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/config"
	"go-easyapply-automation/internal/database"
	"go-easyapply-automation/internal/oracle"
	"go-easyapply-automation/internal/scanner"
	"go-easyapply-automation/internal/telegram"
)

// One-shot discovery run: scan the configured searches, gate every
// listing, write the records, exit.
func main() {
	//load config
	cfg := config.Load()
	log.Printf("🔧 Config loaded. Keywords: %v", cfg.Keywords)

	//setup context with timeout = 10 mins
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	//init telegram bot
	bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Printf("⚠️ Telegram Bot unavailable, continuing without alerts: %v", err)
		bot = nil
	}

	//connect DB
	repo, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect database: %v", err)
	}
	defer repo.Close()

	user, err := repo.GetUser(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to load user: %v", err)
	}
	if user == nil {
		log.Fatal("❌ No user configured. Seed the users table first.")
	}

	//init playwright manager
	pwManager, err := browser.NewManager(ctx, cfg.CookiesPath)
	if err != nil {
		log.Fatalf("❌ Failed to init Playwright: %v", err)
	}
	defer pwManager.Close()

	if err := pwManager.EnsureSession(ctx); err != nil {
		log.Fatalf("❌ LinkedIn session unavailable: %v", err)
	}

	page, err := pwManager.NewPage()
	if err != nil {
		log.Fatalf("❌ Failed to create new page: %v", err)
	}
	defer page.Close()
	log.Println("✅ Browser initialized successfully!")

	scoring := oracle.NewEmbeddingScorer(cfg.AIAPIKey, cfg.ExcludeKeywords)
	jobScanner := scanner.NewScanner(cfg, scoring, repo)

	stats, err := jobScanner.Scan(ctx, page, user)
	if err != nil {
		var cp *scanner.CheckpointError
		if errors.As(err, &cp) {
			log.Printf("🚨 Checkpoint hit: %s", cp.URL)
			if bot != nil {
				if err := bot.SendCheckpointAlert(cp.URL); err != nil {
					log.Printf("⚠️ Failed to send checkpoint alert: %v", err)
				}
			}
			return
		}
		log.Fatalf("❌ Scan failed: %v", err)
	}

	log.Printf("📦 Scan complete. Scanned: %d, fresh: %d, skipped: %d", stats.Scanned, stats.Fresh, stats.Skipped)

	if bot != nil {
		summary := fmt.Sprintf("🔎 Discovery run finished.\nScanned: %d\nFresh: %d\nSkipped: %d", stats.Scanned, stats.Fresh, stats.Skipped)
		if err := bot.SendStatus(summary); err != nil {
			log.Printf("⚠️ Failed to send summary: %v", err)
		}
	}
}

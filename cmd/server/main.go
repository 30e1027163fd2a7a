package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"go-easyapply-automation/internal/apply"
	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/config"
	"go-easyapply-automation/internal/database"
	"go-easyapply-automation/internal/oracle"
	"go-easyapply-automation/internal/pdf"
	"go-easyapply-automation/internal/scanner"
	"go-easyapply-automation/internal/scheduler"
	"go-easyapply-automation/internal/telegram"
)

func main() {
	//load config
	cfg := config.Load()
	log.Printf("🔧 Config loaded. Keywords: %v", cfg.Keywords)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	//init telegram bot (optional: warns are logged locally without it)
	var notifier scheduler.Notifier
	bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Printf("⚠️ Telegram Bot unavailable, continuing without alerts: %v", err)
	} else {
		notifier = bot
		log.Println("🤖 Telegram Bot initialized.")
	}

	//connect DB
	repo, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect database: %v", err)
	}
	defer repo.Close()
	log.Println("🗄️ Database connected.")

	//init playwright manager
	pwManager, err := browser.NewManager(ctx, cfg.CookiesPath)
	if err != nil {
		log.Fatalf("❌ Failed to init Playwright: %v", err)
	}
	defer pwManager.Close()
	log.Println("✅ Browser initialized successfully!")

	//oracles
	scoring := oracle.NewEmbeddingScorer(cfg.AIAPIKey, cfg.ExcludeKeywords)
	answers := oracle.NewAnswerClient(cfg.AIAPIKey, cfg.ConfidenceThreshold)

	//applier
	runner := apply.NewRunner(pwManager, apply.Options{
		DryRun:          cfg.DryRun,
		Timeout:         time.Duration(cfg.ApplyTimeoutSec) * time.Second,
		ResumePath:      cfg.ResumePath,
		CoverLetterPath: cfg.CoverLetterPath,
	})
	//an .html cover letter means "render a tailored PDF per job"
	if strings.HasSuffix(cfg.CoverLetterPath, ".html") {
		runner.WithCoverLetters(pdf.NewGenerator(cfg.CoverLetterPath), pdf.SaveToFile, filepath.Join(cfg.CachePath, "coverletters"))
		log.Println("📄 Per-job cover letter rendering enabled.")
	}

	sched := scheduler.New(cfg, repo, answers, pwManager, runner, notifier)
	if err := sched.Start(ctx); err != nil {
		if errors.Is(err, scheduler.ErrSetupRequired) {
			log.Fatalf("❌ %v", err)
		}
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}
	defer sched.StopTimer()
	log.Println("🚀 Scheduler started.")

	jobScanner := scanner.NewScanner(cfg, scoring, repo)

	//control API
	r := gin.Default()

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, sched.GetStatus())
	})

	r.POST("/pause", func(c *gin.Context) {
		sched.Pause()
		c.JSON(http.StatusOK, gin.H{"status": "paused"})
	})

	r.POST("/resume", func(c *gin.Context) {
		sched.Resume()
		c.JSON(http.StatusOK, gin.H{"status": "running"})
	})

	r.POST("/run", func(c *gin.Context) {
		go sched.RunCycleNow(ctx)
		c.JSON(http.StatusAccepted, gin.H{"status": "cycle triggered"})
	})

	r.POST("/scan", func(c *gin.Context) {
		go runScan(ctx, jobScanner, pwManager, repo, sched, bot)
		c.JSON(http.StatusAccepted, gin.H{"status": "scan triggered"})
	})

	r.GET("/review", func(c *gin.Context) {
		user, err := repo.GetUser(c.Request.Context())
		if err != nil || user == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user configured"})
			return
		}
		count, err := repo.CountPendingReview(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pending_review": count})
	})

	r.POST("/review/:jobID/requeue", func(c *gin.Context) {
		user, err := repo.GetUser(c.Request.Context())
		if err != nil || user == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user configured"})
			return
		}
		if err := repo.RequeuePendingReview(c.Request.Context(), user.ID, c.Param("jobID")); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "requeued"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		log.Printf("Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

// runScan runs one discovery pass. A checkpoint pauses the scheduler
// and pings the operator so a human can clear it.
func runScan(ctx context.Context, s *scanner.Scanner, pwManager *browser.Manager, repo *database.Repository, sched *scheduler.Scheduler, bot *telegram.Bot) {
	user, err := repo.GetUser(ctx)
	if err != nil || user == nil {
		log.Printf("❌ Scan aborted, no user configured: %v", err)
		return
	}

	if err := pwManager.EnsureSession(ctx); err != nil {
		log.Printf("❌ Scan aborted, session unavailable: %v", err)
		return
	}

	page, err := pwManager.NewPage()
	if err != nil {
		log.Printf("❌ Scan aborted, could not open page: %v", err)
		return
	}
	defer page.Close()

	stats, err := s.Scan(ctx, page, user)
	if err != nil {
		var cp *scanner.CheckpointError
		if errors.As(err, &cp) {
			sched.Pause()
			log.Printf("🚨 Checkpoint hit, scheduler paused: %s", cp.URL)
			if bot != nil {
				if err := bot.SendCheckpointAlert(cp.URL); err != nil {
					log.Printf("⚠️ Failed to send checkpoint alert: %v", err)
				}
			}
			return
		}
		log.Printf("❌ Scan failed: %v", err)
		return
	}

	log.Printf("📦 Scan complete. Scanned: %d, fresh: %d, skipped: %d", stats.Scanned, stats.Fresh, stats.Skipped)
}

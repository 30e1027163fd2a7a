// Load envs from .env
// Load YAML config
// Validate config
// Provide default values

package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	TelegramToken  string `yaml:"telegram_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `yaml:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`
	DatabaseURL    string `yaml:"database_url" env:"DATABASE_URL"`
	AIAPIKey       string `yaml:"ai_api_key" env:"AI_API_KEY"`
	//Search criteria
	Keywords        []string `yaml:"keywords"`
	Locations       []string `yaml:"locations"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
	//Apply behavior
	DryRun              bool    `yaml:"dry_run"`
	HourlyCap           int     `yaml:"hourly_cap"`
	DailyCap            int     `yaml:"daily_cap"`
	CycleIntervalSec    int     `yaml:"cycle_interval_sec"`
	JobsPerCycle        int     `yaml:"jobs_per_cycle"`
	MinJobDelaySec      int     `yaml:"min_job_delay_sec"`
	MaxJobDelaySec      int     `yaml:"max_job_delay_sec"`
	ApplyTimeoutSec     int     `yaml:"apply_timeout_sec"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	//Paths
	CookiesPath     string `yaml:"cookies_path"`
	CachePath       string `yaml:"cache_path"`
	ResumePath      string `yaml:"resume_path"`
	CoverLetterPath string `yaml:"cover_letter_path"`
}

func Load() *Config {
	_ = godotenv.Load()

	//Load yaml config
	cfg := &Config{}

	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Printf("Warning: Could not read config.yaml: %v", err)
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("Error parsing config.yaml: %v", err)
		}
	}

	//Override with env vars
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.TelegramToken = token
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			log.Fatalf("Invalid TELEGRAM_CHAT_ID: %v", err)
		}
		cfg.TelegramChatID = id
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}

	if apiKey := os.Getenv("AI_API_KEY"); apiKey != "" {
		cfg.AIAPIKey = apiKey
	}

	//Set default values if not set
	if cfg.CookiesPath == "" {
		cfg.CookiesPath = "../.cookies"
	}

	if cfg.CachePath == "" {
		cfg.CachePath = "../.cache"
	}

	if cfg.HourlyCap == 0 {
		cfg.HourlyCap = 25
	}

	if cfg.DailyCap == 0 {
		cfg.DailyCap = 45
	}

	if cfg.CycleIntervalSec == 0 {
		cfg.CycleIntervalSec = 60
	}

	if cfg.JobsPerCycle == 0 {
		cfg.JobsPerCycle = 10
	}

	if cfg.MinJobDelaySec == 0 {
		cfg.MinJobDelaySec = 30
	}

	if cfg.MaxJobDelaySec == 0 {
		cfg.MaxJobDelaySec = 60
	}

	if cfg.ApplyTimeoutSec == 0 {
		cfg.ApplyTimeoutSec = 45
	}

	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.65
	}

	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.5
	}

	//Validate required fields
	if cfg.ResumePath == "" {
		log.Fatal("resume_path is required")
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	return cfg
}

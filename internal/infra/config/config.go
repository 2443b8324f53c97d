package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application. It is built
// once at process start and passed down; business logic never reads the
// environment directly.
type AppConfig struct {
	DatabaseURL string
	HTTPAddr    string
	AppURL      string // base URL used in notification CTA links

	CronSecret     string // shared secret expected in the X-Cron-Secret header
	InternalDomain string // email domain granted the manual-trigger allowance

	LogLevel    string
	Environment string

	BatchSize int           // items fetched per page
	RunBudget time.Duration // wall-clock budget for one run
	CronSpec  string        // in-process trigger schedule; empty disables it

	// Email transport (Resend-style). Empty API key disables email.
	ResendAPIKey string
	EmailFrom    string

	// SMS transport (Twilio-style). Empty SID disables SMS.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Outbound rate limits, sends per second.
	EmailRatePerSec float64
	SMSRatePerSec   float64

	// Optional operations channel for run summaries.
	TelegramToken string
	OpsChatID     int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.AppURL = strings.TrimRight(os.Getenv("APP_URL"), "/")
	if cfg.AppURL == "" {
		cfg.AppURL = "http://localhost:3000"
	}

	cfg.CronSecret = os.Getenv("CRON_SECRET")
	cfg.InternalDomain = os.Getenv("INTERNAL_DOMAIN")

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.BatchSize = 50
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		cfg.BatchSize, err = strconv.Atoi(v)
		if err != nil || cfg.BatchSize <= 0 {
			return nil, fmt.Errorf("invalid BATCH_SIZE %q", v)
		}
	}

	cfg.RunBudget = 50 * time.Second
	if v := os.Getenv("RUN_BUDGET"); v != "" {
		cfg.RunBudget, err = time.ParseDuration(v)
		if err != nil || cfg.RunBudget <= 0 {
			return nil, fmt.Errorf("invalid RUN_BUDGET %q", v)
		}
	}

	cfg.CronSpec = os.Getenv("CRON_SPEC")

	cfg.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	cfg.EmailFrom = os.Getenv("EMAIL_FROM")
	if cfg.ResendAPIKey != "" && cfg.EmailFrom == "" {
		return nil, fmt.Errorf("EMAIL_FROM is required when RESEND_API_KEY is set")
	}

	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.TwilioFromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	if cfg.TwilioAccountSID != "" && (cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "") {
		return nil, fmt.Errorf("TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required when TWILIO_ACCOUNT_SID is set")
	}

	cfg.EmailRatePerSec = 10
	if v := os.Getenv("EMAIL_RATE_PER_SEC"); v != "" {
		cfg.EmailRatePerSec, err = strconv.ParseFloat(v, 64)
		if err != nil || cfg.EmailRatePerSec <= 0 {
			return nil, fmt.Errorf("invalid EMAIL_RATE_PER_SEC %q", v)
		}
	}

	cfg.SMSRatePerSec = 1
	if v := os.Getenv("SMS_RATE_PER_SEC"); v != "" {
		cfg.SMSRatePerSec, err = strconv.ParseFloat(v, 64)
		if err != nil || cfg.SMSRatePerSec <= 0 {
			return nil, fmt.Errorf("invalid SMS_RATE_PER_SEC %q", v)
		}
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if chatID := os.Getenv("OPS_CHAT_ID"); chatID != "" {
		cfg.OpsChatID, err = strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OPS_CHAT_ID: %w", err)
		}
	}
	if cfg.TelegramToken != "" && cfg.OpsChatID == 0 {
		return nil, fmt.Errorf("OPS_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	return cfg, nil
}

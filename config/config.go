package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	Env    string
	AppURL string

	DBDriver string
	DBDSN    string

	SupabaseJWTSecret string
	SupabaseAudience  string

	WhopAPIKey            string
	WhopAPIURL            string
	WhopWebhookSecret     string
	WhopWebhookTolerance  time.Duration
	WhopCheckoutReturnURL string
	PlansFile             string

	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAIRequestsPerS float64
	MaxSourceChars     int

	TranscriberBackend string
	WhisperServerURL   string

	YouTubeAPIKey string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	RedisURL string

	StorageBackend       string
	DriveCredentialsFile string
	DriveFolder          string

	UploadDir        string
	MaxUploadBytes   int
	WorkerInterval   time.Duration
	StaleSessionTTL  time.Duration
	SessionGraceTime time.Duration
}

var AppConfig *Config

// Load reads the optional env file and populates AppConfig.
func Load(envFiles ...string) {
	_ = godotenv.Load(envFiles...)

	AppConfig = &Config{
		Port:   GetEnv("PORT", "3000"),
		Env:    GetEnv("ENV", "development"),
		AppURL: GetEnv("APP_URL", "http://localhost:3000"),

		DBDriver: GetEnv("DB_DRIVER", "sqlite3"),
		DBDSN:    GetEnv("DATABASE_URL", "./data/newton.db"),

		SupabaseJWTSecret: GetEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseAudience:  GetEnv("SUPABASE_JWT_AUDIENCE", "authenticated"),

		WhopAPIKey:            GetEnv("WHOP_API_KEY", ""),
		WhopAPIURL:            GetEnv("WHOP_API_URL", "https://api.whop.com"),
		WhopWebhookSecret:     GetEnv("WHOP_WEBHOOK_SECRET", ""),
		WhopWebhookTolerance:  GetEnvDuration("WHOP_WEBHOOK_TOLERANCE", 5*time.Minute),
		WhopCheckoutReturnURL: GetEnv("WHOP_CHECKOUT_RETURN_URL", ""),
		PlansFile:             GetEnv("PLANS_FILE", ""),

		OpenAIAPIKey:       GetEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      GetEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:        GetEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIRequestsPerS: GetEnvFloat("OPENAI_REQUESTS_PER_SECOND", 2),
		MaxSourceChars:     GetEnvInt("MAX_SOURCE_CHARS", 60000),

		TranscriberBackend: GetEnv("TRANSCRIBER", "openai"),
		WhisperServerURL:   GetEnv("WHISPER_SERVER_URL", "http://127.0.0.1:8080"),

		YouTubeAPIKey: GetEnv("YOUTUBE_API_KEY", ""),

		SendGridAPIKey:    GetEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: GetEnv("SENDGRID_FROM_EMAIL", "hello@newton.study"),
		SendGridFromName:  GetEnv("SENDGRID_FROM_NAME", "Newton"),

		RedisURL: GetEnv("REDIS_URL", ""),

		StorageBackend:       GetEnv("STORAGE_BACKEND", "local"),
		DriveCredentialsFile: GetEnv("DRIVE_CREDENTIALS_FILE", ""),
		DriveFolder:          GetEnv("DRIVE_FOLDER", "newton-uploads"),

		UploadDir:        GetEnv("UPLOAD_DIR", "./data/uploads"),
		MaxUploadBytes:   GetEnvInt("MAX_UPLOAD_BYTES", 200*1024*1024),
		WorkerInterval:   GetEnvDuration("WORKER_INTERVAL", 15*time.Second),
		StaleSessionTTL:  GetEnvDuration("STALE_SESSION_TTL", 10*time.Minute),
		SessionGraceTime: GetEnvDuration("SESSION_GRACE", 2*time.Minute),
	}

	if AppConfig.SupabaseJWTSecret == "" {
		log.Fatal("SUPABASE_JWT_SECRET is required")
	}
	if AppConfig.WhopWebhookSecret == "" {
		log.Fatal("WHOP_WEBHOOK_SECRET is required")
	}
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package setup

import (
	"context"
	"fmt"
	"log/slog"
	"newton/app"
	"newton/config"
	"newton/database"
	"newton/drive"
	"newton/mailer"
	"newton/pkg/ai"
	"newton/pkg/transcriber"
	"newton/pkg/whop"
	"newton/pkg/youtube"
	"newton/processing"
	"newton/ratelimit"
	"newton/storage"
	"strings"
	"time"
)

// Services are the long-running pieces that need an orderly shutdown
type Services struct {
	DB           *database.DB
	Worker       *processing.Worker
	Mailer       *mailer.Mailer
	closeLimiter func()
}

// InitDatabase opens the configured database and runs migrations
func InitDatabase(cfg *config.Config, logger *slog.Logger) (*database.DB, error) {
	db, err := database.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("database initialized", "driver", cfg.DBDriver)
	return db, nil
}

// InitApp builds the external clients, the application services and the
// background upload worker
func InitApp(ctx context.Context, cfg *config.Config, db *database.DB, logger *slog.Logger) (*app.App, *Services, error) {
	catalog, err := config.LoadPlanCatalog(cfg.PlansFile)
	if err != nil {
		return nil, nil, err
	}

	blobs, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	limiter, closeLimiter := ratelimit.New(ctx, cfg.RedisURL)

	mail := mailer.New(mailer.Config{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
		AppURL:    cfg.AppURL,
		Timeout:   10 * time.Second,
	})
	if !mail.Enabled() {
		logger.Warn("SENDGRID_API_KEY not set, email notifications disabled")
	}

	deps := app.Deps{
		Catalog:           catalog,
		Blobs:             blobs,
		Verifier:          whop.NewVerifier(cfg.WhopWebhookSecret, cfg.WhopWebhookTolerance),
		Notifier:          mail,
		Limiter:           limiter,
		JWTSecret:         cfg.SupabaseJWTSecret,
		JWTAudience:       cfg.SupabaseAudience,
		CheckoutReturnURL: cfg.WhopCheckoutReturnURL,
		MaxUploadBytes:    int64(cfg.MaxUploadBytes),
		SessionGrace:      cfg.SessionGraceTime,
	}

	// Interfaces stay nil when a client is not configured
	if cfg.OpenAIAPIKey != "" {
		deps.Generator = ai.NewClient(ai.Config{
			APIKey:            cfg.OpenAIAPIKey,
			BaseURL:           cfg.OpenAIBaseURL,
			Model:             cfg.OpenAIModel,
			Timeout:           2 * time.Minute,
			MaxRetries:        3,
			RequestsPerSecond: cfg.OpenAIRequestsPerS,
			MaxSourceChars:    cfg.MaxSourceChars,
		})
	} else {
		logger.Warn("OPENAI_API_KEY not set, note generation disabled")
	}

	if cfg.WhopAPIKey != "" {
		deps.Checkout = whop.NewClient(whop.Config{
			APIKey:  cfg.WhopAPIKey,
			APIURL:  cfg.WhopAPIURL,
			Timeout: 15 * time.Second,
		})
	} else {
		logger.Warn("WHOP_API_KEY not set, checkout disabled")
	}

	application := app.New(database.NewRepository(db), deps, logger)

	worker := processing.NewWorker(application.Repo, blobs, application.Generation, processing.Config{
		BaseInterval:    cfg.WorkerInterval,
		StaleSessionTTL: cfg.StaleSessionTTL,
	})
	worker.SetSessionCloser(application.Study)

	if backend := initTranscriber(cfg, logger); backend != nil {
		worker.SetTranscriber(backend)
	}

	if cfg.YouTubeAPIKey != "" {
		videos, err := youtube.NewClient(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			logger.Warn("youtube client unavailable, imports will use transcripts only", "error", err)
		} else {
			worker.SetVideoLookup(videos)
		}
	}

	application.Uploads.SetProcessor(worker)
	worker.Start()
	logger.Info("upload worker started", "interval", cfg.WorkerInterval)

	return application, &Services{
		DB:           db,
		Worker:       worker,
		Mailer:       mail,
		closeLimiter: closeLimiter,
	}, nil
}

func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Provider, error) {
	switch cfg.StorageBackend {
	case "drive":
		client, err := drive.NewClient(ctx, cfg.DriveCredentialsFile)
		if err != nil {
			return nil, err
		}
		logger.Info("storing uploads in google drive", "folder", cfg.DriveFolder, "cache", cfg.UploadDir)
		return storage.NewDriveProvider(client, cfg.DriveFolder, cfg.UploadDir)
	case "", "local":
		return storage.NewLocalProvider(cfg.UploadDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func initTranscriber(cfg *config.Config, logger *slog.Logger) transcriber.Backend {
	switch cfg.TranscriberBackend {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, audio transcription disabled")
			return nil
		}
		t, err := transcriber.New(transcriber.Config{
			APIKey:  cfg.OpenAIAPIKey,
			APIUrl:  strings.TrimRight(cfg.OpenAIBaseURL, "/") + "/audio/transcriptions",
			Timeout: 10 * time.Minute,
		})
		if err != nil {
			logger.Warn("transcriber unavailable", "error", err)
			return nil
		}
		return t
	case "local":
		t, err := transcriber.NewLocal(transcriber.LocalConfig{
			ServerURL: cfg.WhisperServerURL,
			Timeout:   10 * time.Minute,
		})
		if err != nil {
			logger.Warn("local transcriber unavailable", "error", err)
			return nil
		}
		return t
	case "", "none":
		return nil
	default:
		logger.Warn("unknown transcriber backend", "backend", cfg.TranscriberBackend)
		return nil
	}
}

// Shutdown performs graceful shutdown of all services
func Shutdown(s *Services, logger *slog.Logger) {
	if s == nil {
		return
	}
	logger.Info("shutting down services...")

	if s.Worker != nil {
		s.Worker.Stop()
		logger.Info("upload worker stopped")
	}

	if s.Mailer != nil {
		s.Mailer.Close()
	}

	if s.closeLimiter != nil {
		s.closeLimiter()
	}

	if s.DB != nil {
		s.DB.Close()
		logger.Info("database closed")
	}
}

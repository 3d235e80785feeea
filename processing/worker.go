package processing

import (
	"context"
	"log/slog"
	"newton/models"
	"newton/pkg/transcriber"
	"newton/pkg/youtube"
	"newton/services"
	"newton/storage"
	"sync"
	"time"
)

// Repository is the upload state storage the worker needs
type Repository interface {
	GetPendingUploads(limit int) ([]models.Upload, error)
	GetUploadByID(uploadID string) (*models.Upload, error)
	ClaimUpload(uploadID string) (bool, error)
	SetUploadTranscript(uploadID, transcript string) error
	MarkUploadFailed(uploadID, errorMsg string) error
	AbandonUpload(uploadID, errorMsg string) error
	ResetStuckUploads(olderThan time.Time) (int64, error)
}

// StudyPackGenerator turns source text into a saved note with quiz and
// flashcards. SaveStudyPack also marks the upload completed.
type StudyPackGenerator interface {
	CheckUploadQuota(upload *models.Upload) (*models.Entitlements, error)
	GenerateStudyPack(ctx context.Context, source, titleHint string, limits models.Limits) (*services.StudyPack, error)
	SaveStudyPack(userID string, source models.NoteSource, uploadID string, pack *services.StudyPack) (*models.Note, error)
}

// VideoLookup fetches YouTube metadata
type VideoLookup interface {
	GetVideo(ctx context.Context, videoID string) (*youtube.Video, error)
}

// SessionCloser ends study sessions that stopped sending heartbeats
type SessionCloser interface {
	CloseStaleSessions(ttl time.Duration, batch int) (int, error)
}

// Config controls polling, retries and housekeeping
type Config struct {
	BaseInterval    time.Duration // poll interval while there is work
	MaxInterval     time.Duration // poll interval when idle
	RetryBase       time.Duration // delay before the first retry, doubled per attempt
	FreshAge        time.Duration // new uploads younger than this are left to ProcessNow
	StuckAfter      time.Duration // processing uploads older than this are requeued
	StaleSessionTTL time.Duration
	ProcessTimeout  time.Duration
	BatchSize       int
	Concurrency     int
}

func (c Config) withDefaults() Config {
	if c.BaseInterval <= 0 {
		c.BaseInterval = 15 * time.Second
	}
	if c.MaxInterval < c.BaseInterval {
		c.MaxInterval = 4 * c.BaseInterval
	}
	if c.RetryBase <= 0 {
		c.RetryBase = time.Minute
	}
	if c.FreshAge <= 0 {
		c.FreshAge = 30 * time.Second
	}
	if c.StuckAfter <= 0 {
		c.StuckAfter = 30 * time.Minute
	}
	if c.StaleSessionTTL <= 0 {
		c.StaleSessionTTL = 10 * time.Minute
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = 15 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	return c
}

// Worker turns pending uploads into notes in the background
// See domain-specific files:
// - executor.go: Extraction and generation for one upload
// - retry.go: Retry and backoff strategies
type Worker struct {
	repo            Repository
	blobs           storage.Provider
	generation      StudyPackGenerator
	transcriber     transcriber.Backend
	videos          VideoLookup
	sessions        SessionCloser
	cfg             Config
	currentInterval time.Duration
	running         bool
	mu              sync.Mutex
	stopChan        chan struct{}
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	now             func() time.Time
}

var _ services.Processor = (*Worker)(nil)

// NewWorker creates a new processing worker instance
func NewWorker(repo Repository, blobs storage.Provider, generation StudyPackGenerator, cfg Config) *Worker {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		repo:            repo,
		blobs:           blobs,
		generation:      generation,
		cfg:             cfg,
		currentInterval: cfg.BaseInterval,
		stopChan:        make(chan struct{}),
		ctx:             ctx,
		cancel:          cancel,
		now:             time.Now,
	}
}

// SetTranscriber enables audio uploads
func (w *Worker) SetTranscriber(t transcriber.Backend) {
	w.transcriber = t
}

// SetVideoLookup enables YouTube metadata lookups
func (w *Worker) SetVideoLookup(v VideoLookup) {
	w.videos = v
}

// SetSessionCloser enables stale study session cleanup on each tick
func (w *Worker) SetSessionCloser(s SessionCloser) {
	w.sessions = s
}

// Start begins the background processing loop
func (w *Worker) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	slog.Info("Starting upload processing worker", "interval", w.cfg.BaseInterval)

	w.wg.Add(1)
	go w.run()
}

// Stop ends the loop, cancels in-flight work and waits for it to return
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.cancel()
		w.wg.Wait()
		return
	}
	slog.Info("Stopping upload processing worker")
	close(w.stopChan)
	w.running = false
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}

// run is the main worker loop with adaptive backoff
func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.currentInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.tick()

	for {
		select {
		case <-ticker.C:
			hadWork := w.tick()

			w.mu.Lock()
			if hadWork {
				if w.currentInterval != w.cfg.BaseInterval {
					w.currentInterval = w.cfg.BaseInterval
					ticker.Reset(w.currentInterval)
					slog.Debug("Work found, reset worker interval", "interval", w.currentInterval)
				}
			} else if w.currentInterval < w.cfg.MaxInterval {
				w.currentInterval = w.cfg.MaxInterval
				ticker.Reset(w.currentInterval)
				slog.Debug("No work, increased worker interval", "interval", w.currentInterval)
			}
			w.mu.Unlock()
		case <-w.stopChan:
			return
		}
	}
}

// tick runs housekeeping and one processing batch. Returns true if any
// upload was attempted.
func (w *Worker) tick() bool {
	w.housekeeping()
	return w.processPending(w.ctx) > 0
}

func (w *Worker) housekeeping() {
	now := w.now()

	if n, err := w.repo.ResetStuckUploads(now.Add(-w.cfg.StuckAfter)); err != nil {
		slog.Error("Failed to reset stuck uploads", "error", err)
	} else if n > 0 {
		slog.Warn("Requeued stuck uploads", "count", n)
	}

	if w.sessions != nil {
		if n, err := w.sessions.CloseStaleSessions(w.cfg.StaleSessionTTL, 100); err != nil {
			slog.Error("Failed to close stale study sessions", "error", err)
		} else if n > 0 {
			slog.Info("Closed stale study sessions", "count", n)
		}
	}
}

// ProcessNow attempts an upload immediately (non-blocking).
// Called right after an upload is accepted or retried. A stopped worker
// leaves the upload to the next poll.
func (w *Worker) ProcessNow(uploadID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		slog.Debug("Worker not running, upload left queued", "upload_id", uploadID)
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		upload, err := w.repo.GetUploadByID(uploadID)
		if err != nil {
			slog.Error("Failed to load upload", "upload_id", uploadID, "error", err)
			return
		}
		if upload == nil {
			return
		}
		w.attempt(w.ctx, upload)
	}()
}

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"newton/database"
	"newton/models"
	"newton/pkg/extract"
	"newton/pkg/youtube"
	"newton/storage"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// sniffBytes is how much of an upload is read to detect its type
const sniffBytes = 3072

// UploadService accepts files and YouTube links for background processing
type UploadService struct {
	repo       UploadRepository
	blobs      storage.Provider
	generation *GenerationService
	processor  Processor
	maxBytes   int64
	now        func() time.Time
}

// NewUploadService creates a new upload service. maxBytes is the hard cap
// applied regardless of plan; processor may be nil.
func NewUploadService(repo UploadRepository, blobs storage.Provider, generation *GenerationService, processor Processor, maxBytes int64) *UploadService {
	return &UploadService{
		repo:       repo,
		blobs:      blobs,
		generation: generation,
		processor:  processor,
		maxBytes:   maxBytes,
		now:        time.Now,
	}
}

// SetProcessor wires the background processor after construction
func (us *UploadService) SetProcessor(p Processor) {
	us.processor = p
}

// planMaxBytes is the smaller of the plan's upload limit and the hard cap
func (us *UploadService) planMaxBytes(limits models.Limits) int64 {
	limit := us.maxBytes
	if limits.MaxUploadMB != models.Unlimited {
		planMax := int64(limits.MaxUploadMB) * 1024 * 1024
		if limit <= 0 || planMax < limit {
			limit = planMax
		}
	}
	return limit
}

// ==================== CREATE OPERATIONS ====================

// CreateFromFile sniffs, checks and stores an uploaded document or recording.
// size is the declared size, or -1 when unknown.
func (us *UploadService) CreateFromFile(ctx context.Context, userID, filename string, size int64, r io.Reader) (*models.Upload, error) {
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	detected, err := extract.Detect(bytes.NewReader(head))
	if errors.Is(err, extract.ErrUnsupportedType) {
		return nil, ErrUnsupportedUpload
	}
	if err != nil {
		return nil, err
	}

	kind := models.UploadKindPDF
	if detected.Kind == extract.KindAudio {
		kind = models.UploadKindAudio
	}

	ent, err := us.generation.CheckQuota(userID)
	if err != nil {
		return nil, err
	}
	if kind == models.UploadKindAudio && !ent.Limits.AudioUploads {
		return nil, ErrFeatureNotInPlan
	}

	limit := us.planMaxBytes(ent.Limits)
	if size > 0 && limit > 0 && size > limit {
		return nil, ErrUploadTooLarge
	}

	id := uuid.New().String()
	ext := detected.Extension
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(filename))
	}
	key := storage.UploadKey(userID, id, ext)

	stored, err := us.blobs.Put(ctx, key, io.MultiReader(bytes.NewReader(head), r), limit)
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, ErrUploadTooLarge
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	now := us.now().UTC()
	upload := &models.Upload{
		ID:          id,
		UserID:      userID,
		Kind:        kind,
		Filename:    filepath.Base(filename),
		MimeType:    detected.MimeType,
		SizeBytes:   stored,
		StoragePath: key,
		Status:      models.ProcessingPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := us.repo.CreateUpload(upload); err != nil {
		if delErr := us.blobs.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "Failed to remove orphaned blob", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	slog.InfoContext(ctx, "Upload accepted", "upload_id", id, "user_id", userID, "kind", kind, "bytes", stored)
	us.kick(id)
	return upload, nil
}

// CreateFromYouTube queues a YouTube video; a pasted transcript is used as
// the source text when present
func (us *UploadService) CreateFromYouTube(ctx context.Context, userID string, req models.YouTubeImportRequest) (*models.Upload, error) {
	videoID, err := youtube.ParseVideoID(req.URL)
	if err != nil {
		return nil, err
	}

	ent, err := us.generation.CheckQuota(userID)
	if err != nil {
		return nil, err
	}
	if !ent.Limits.YouTubeImports {
		return nil, ErrFeatureNotInPlan
	}

	now := us.now().UTC()
	upload := &models.Upload{
		ID:         uuid.New().String(),
		UserID:     userID,
		Kind:       models.UploadKindYouTube,
		Filename:   videoID,
		SourceURL:  "https://www.youtube.com/watch?v=" + videoID,
		Transcript: strings.TrimSpace(req.Transcript),
		SizeBytes:  int64(len(req.Transcript)),
		Status:     models.ProcessingPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := us.repo.CreateUpload(upload); err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	slog.InfoContext(ctx, "YouTube import accepted", "upload_id", upload.ID, "user_id", userID, "video_id", videoID)
	us.kick(upload.ID)
	return upload, nil
}

func (us *UploadService) kick(uploadID string) {
	if us.processor != nil {
		us.processor.ProcessNow(uploadID)
	}
}

// ==================== READ OPERATIONS ====================

func (us *UploadService) Get(userID, uploadID string) (*models.Upload, error) {
	upload, err := us.repo.GetUpload(userID, uploadID)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, ErrUploadNotFound
	}
	return upload, nil
}

func (us *UploadService) List(userID string, limit, offset int) ([]models.Upload, error) {
	if limit < 1 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}
	return us.repo.ListUploads(userID, limit, offset)
}

// ==================== STATE OPERATIONS ====================

// Retry puts a failed or abandoned upload back in the queue
func (us *UploadService) Retry(userID, uploadID string) (*models.Upload, error) {
	upload, err := us.Get(userID, uploadID)
	if err != nil {
		return nil, err
	}
	if upload.Status != models.ProcessingFailed && upload.Status != models.ProcessingAbandoned {
		return nil, ErrUploadNotRetryable
	}

	err = us.repo.RetryUpload(userID, uploadID)
	if database.IsNotFound(err) {
		// Raced with another retry
		return nil, ErrUploadNotRetryable
	}
	if err != nil {
		return nil, err
	}

	us.kick(uploadID)
	return us.Get(userID, uploadID)
}

// Delete removes an upload and its stored file. The generated note is kept.
func (us *UploadService) Delete(ctx context.Context, userID, uploadID string) error {
	upload, err := us.Get(userID, uploadID)
	if err != nil {
		return err
	}

	err = us.repo.DeleteUpload(userID, uploadID)
	if database.IsNotFound(err) {
		return ErrUploadNotFound
	}
	if err != nil {
		return err
	}

	if upload.StoragePath != "" {
		if err := us.blobs.Delete(ctx, upload.StoragePath); err != nil {
			slog.WarnContext(ctx, "Failed to delete upload blob", "upload_id", uploadID, "error", err)
		}
	}
	return nil
}

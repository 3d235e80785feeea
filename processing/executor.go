package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"newton/models"
	"newton/pkg/extract"
	"newton/services"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

var (
	errNoTranscriber = errors.New("audio transcription is not configured")
	errNoVideoSource = errors.New("no transcript provided and YouTube lookups are not configured")
)

// ==================== BATCH EXECUTION ====================

// processPending retrieves and processes due uploads with bounded concurrency.
// Returns how many uploads were attempted.
func (w *Worker) processPending(ctx context.Context) int {
	uploads, err := w.repo.GetPendingUploads(w.cfg.BatchSize)
	if err != nil {
		slog.Error("Failed to get pending uploads", "error", err)
		return 0
	}
	if len(uploads) == 0 {
		return 0
	}

	ready := filterReady(uploads, w.now(), w.cfg.FreshAge, w.cfg.RetryBase)
	if len(ready) == 0 {
		return 0
	}

	slog.Info("Processing pending uploads", "count", len(ready))

	var eg errgroup.Group
	eg.SetLimit(w.cfg.Concurrency)
	for i := range ready {
		upload := ready[i]
		eg.Go(func() error {
			w.attempt(ctx, &upload)
			return nil
		})
	}
	_ = eg.Wait()

	return len(ready)
}

// attempt claims one upload and runs it to completion or failure
func (w *Worker) attempt(ctx context.Context, upload *models.Upload) {
	if ctx.Err() != nil {
		return
	}

	claimed, err := w.repo.ClaimUpload(upload.ID)
	if err != nil {
		slog.Error("Failed to claim upload", "upload_id", upload.ID, "error", err)
		return
	}
	if !claimed {
		// Another attempt got there first
		return
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.ProcessTimeout)
	defer cancel()

	noteID, err := w.process(ctx, upload)
	if err == nil {
		slog.Info("Upload processed", "upload_id", upload.ID, "user_id", upload.UserID, "note_id", noteID)
		return
	}

	if errors.Is(err, context.Canceled) && w.ctx.Err() != nil {
		// Shutting down; ResetStuckUploads requeues it
		slog.Warn("Upload processing interrupted", "upload_id", upload.ID)
		return
	}

	msg := truncateError(err.Error())
	if isPermanent(err) {
		slog.Warn("Abandoning upload", "upload_id", upload.ID, "error", err)
		if markErr := w.repo.AbandonUpload(upload.ID, msg); markErr != nil {
			slog.Error("Failed to abandon upload", "upload_id", upload.ID, "error", markErr)
		}
		return
	}

	slog.Warn("Upload processing failed", "upload_id", upload.ID, "attempt", upload.RetryCount+1, "error", err)
	if markErr := w.repo.MarkUploadFailed(upload.ID, msg); markErr != nil {
		slog.Error("Failed to mark upload failed", "upload_id", upload.ID, "error", markErr)
	}
}

// process re-checks the quota, extracts the source text, generates the study
// pack and saves it. Returns the new note id.
func (w *Worker) process(ctx context.Context, upload *models.Upload) (string, error) {
	ent, err := w.generation.CheckUploadQuota(upload)
	if errors.Is(err, services.ErrQuotaExceeded) {
		return "", permanent(err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to check quota: %w", err)
	}

	source, titleHint, err := w.sourceText(ctx, upload)
	if err != nil {
		return "", err
	}

	pack, err := w.generation.GenerateStudyPack(ctx, source, titleHint, ent.Limits)
	if err != nil {
		return "", err
	}

	note, err := w.generation.SaveStudyPack(upload.UserID, upload.Kind.NoteSource(), upload.ID, pack)
	if err != nil {
		return "", err
	}
	return note.ID, nil
}

// ==================== TEXT EXTRACTION ====================

// sourceText returns the text to generate from and a title hint
func (w *Worker) sourceText(ctx context.Context, upload *models.Upload) (string, string, error) {
	switch upload.Kind {
	case models.UploadKindYouTube:
		return w.youtubeText(ctx, upload)
	case models.UploadKindPDF, models.UploadKindAudio:
		titleHint := strings.TrimSuffix(upload.Filename, filepath.Ext(upload.Filename))
		// Text from an earlier attempt
		if upload.Transcript != "" {
			return upload.Transcript, titleHint, nil
		}

		text, err := w.fileText(ctx, upload)
		if err != nil {
			return "", "", err
		}
		if err := w.repo.SetUploadTranscript(upload.ID, text); err != nil {
			slog.Warn("Failed to cache extracted text", "upload_id", upload.ID, "error", err)
		}
		return text, titleHint, nil
	}
	return "", "", permanent(fmt.Errorf("unknown upload kind %q", upload.Kind))
}

func (w *Worker) fileText(ctx context.Context, upload *models.Upload) (string, error) {
	if upload.Kind == models.UploadKindAudio && w.transcriber == nil {
		return "", permanent(errNoTranscriber)
	}

	path, err := w.blobs.LocalPath(ctx, upload.StoragePath)
	if err != nil {
		return "", fmt.Errorf("failed to locate upload file: %w", err)
	}

	if upload.Kind == models.UploadKindPDF {
		text, err := extract.PDFFile(path)
		if err != nil && !errors.Is(err, extract.ErrNoText) {
			return "", permanent(err)
		}
		return text, err
	}

	result, err := w.transcriber.TranscribeFile(ctx, path, "")
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	text := extract.CollapseWhitespace(result.Text)
	if text == "" {
		return "", extract.ErrNoText
	}
	return text, nil
}

// youtubeText combines the video metadata with the pasted transcript.
// Either one alone is enough.
func (w *Worker) youtubeText(ctx context.Context, upload *models.Upload) (string, string, error) {
	videoID := upload.Filename
	transcript := strings.TrimSpace(upload.Transcript)

	if w.videos == nil {
		if transcript == "" {
			return "", "", permanent(errNoVideoSource)
		}
		return "Transcript:\n" + transcript, "", nil
	}

	video, err := w.videos.GetVideo(ctx, videoID)
	if err != nil {
		if transcript == "" || isPermanent(err) {
			return "", "", err
		}
		slog.Warn("YouTube lookup failed, using transcript only", "upload_id", upload.ID, "error", err)
		return "Transcript:\n" + transcript, "", nil
	}

	text := video.Text()
	if transcript != "" {
		text += "\nTranscript:\n" + transcript
	}
	return text, video.Title, nil
}

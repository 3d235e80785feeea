package processing

import (
	"errors"
	"newton/models"
	"newton/pkg/extract"
	"newton/pkg/youtube"
	"newton/storage"
	"time"
)

// ==================== RETRY LOGIC & BACKOFF ====================

// maxErrorLen caps the error message stored on an upload
const maxErrorLen = 500

// permanentError marks a failure that retrying cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// isPermanent reports whether err should abandon the upload right away
func isPermanent(err error) bool {
	var pe *permanentError
	if errors.As(err, &pe) {
		return true
	}
	return errors.Is(err, extract.ErrNoText) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, youtube.ErrVideoNotFound)
}

// retryDelay is how long a failed upload waits before its next attempt:
// base, 2*base, 4*base...
func retryDelay(base time.Duration, retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	return base << (retryCount - 1)
}

// filterReady drops uploads that are not due yet. New uploads younger than
// freshAge are skipped since ProcessNow is already handling them; failed
// uploads wait out their backoff.
func filterReady(uploads []models.Upload, now time.Time, freshAge, retryBase time.Duration) []models.Upload {
	var ready []models.Upload

	for _, upload := range uploads {
		if upload.Status == models.ProcessingFailed && upload.LastAttemptAt != nil {
			if now.Sub(*upload.LastAttemptAt) >= retryDelay(retryBase, upload.RetryCount) {
				ready = append(ready, upload)
			}
			continue
		}
		if upload.RetryCount == 0 && now.Sub(upload.UpdatedAt) < freshAge {
			continue
		}
		ready = append(ready, upload)
	}

	return ready
}

func truncateError(msg string) string {
	if len(msg) <= maxErrorLen {
		return msg
	}
	return msg[:maxErrorLen-3] + "..."
}

package services

import (
	"errors"
	"fmt"
	"time"
)

// Common service-level errors
var (
	// Auth errors
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidUserInfo = errors.New("invalid user information")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrForbidden       = errors.New("forbidden")
	ErrUserNotFound    = errors.New("user not found")

	// Entitlement errors
	ErrQuotaExceeded    = errors.New("monthly note limit reached for your plan")
	ErrFeatureNotInPlan = errors.New("this feature is not included in your plan")
	ErrUploadTooLarge   = errors.New("file exceeds the upload size allowed by your plan")
	ErrUnknownPlan      = errors.New("unknown plan")
	ErrCheckoutDisabled = errors.New("checkout is not configured")

	// Generation errors
	ErrGenerationDisabled = errors.New("note generation is not configured")

	// Note errors
	ErrNoteNotFound = errors.New("note not found")
	ErrQuizNotFound = errors.New("quiz not generated yet")

	// Upload errors
	ErrUploadNotFound     = errors.New("upload not found")
	ErrUnsupportedUpload  = errors.New("only PDF and audio files are supported")
	ErrUploadNotRetryable = errors.New("only failed uploads can be retried")

	// Flashcard errors
	ErrFlashcardNotFound = errors.New("flashcard not found")

	// Study errors
	ErrSessionNotFound = errors.New("study session not found")
	ErrSessionEnded    = errors.New("study session already ended")

	// Friendship errors
	ErrCannotFriendSelf     = errors.New("you cannot send a friend request to yourself")
	ErrFriendshipExists     = errors.New("friendship already exists")
	ErrFriendshipNotFound   = errors.New("friendship not found")
	ErrFriendshipNotPending = errors.New("friend request is no longer pending")

	// Room errors
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomClosed   = errors.New("room is closed")
	ErrRoomFull     = errors.New("room is full")

	// Challenge errors
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeEnded    = errors.New("challenge has ended")
	ErrInvalidChallenge  = errors.New("challenge must end after it starts and have a positive goal")
)

// RateLimitError is returned when a caller exceeds a sliding-window limit.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.RetryAfter.Round(time.Second))
}

// IsRateLimited reports whether err is a RateLimitError.
func IsRateLimited(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	ok := errors.As(err, &rle)
	return rle, ok
}

package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
	ErrTooLarge   = errors.New("blob exceeds size limit")
)

// Provider is the interface for upload blob backends
type Provider interface {
	// ==================== BLOB OPERATIONS ====================

	// Put streams r into key, reading at most maxBytes (0 means no limit),
	// and returns the number of bytes stored
	Put(ctx context.Context, key string, r io.Reader, maxBytes int64) (int64, error)

	// Open returns a reader for a stored blob
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a blob; deleting a missing blob is not an error
	Delete(ctx context.Context, key string) error

	// ==================== UTILITY OPERATIONS ====================

	// LocalPath returns a filesystem path for the blob, for tools such as
	// ffmpeg and the PDF reader that need a real file
	LocalPath(ctx context.Context, key string) (string, error)
}

// UploadKey is the blob key of an upload's original file.
func UploadKey(userID, uploadID, ext string) string {
	return userID + "/" + uploadID + ext
}

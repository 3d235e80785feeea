package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// FileManager handles generic file operations in Google Drive
type FileManager struct {
	client *Client
}

// NewFileManager creates a new file manager
func NewFileManager(client *Client) *FileManager {
	return &FileManager{client: client}
}

// EscapeQuery quotes a value for use inside a single-quoted Drive query string
func EscapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// IsNotFound reports whether err is a Drive 404
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// Find searches for a file by name in a specific folder
func (fm *FileManager) Find(ctx context.Context, filename, parentID string) (*drive.File, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", EscapeQuery(filename), EscapeQuery(parentID))
	fileList, err := fm.client.Service().Files.List().
		Q(query).
		Fields("files(id, name, size, createdTime, modifiedTime)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	if len(fileList.Files) == 0 {
		return nil, nil
	}

	return fileList.Files[0], nil
}

// Download opens the content of a file; the caller closes it
func (fm *FileManager) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := fm.client.Service().Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Create creates a new file with the given content
func (fm *FileManager) Create(ctx context.Context, name, parentID, mimeType string, content io.Reader) (*drive.File, error) {
	fileMetadata := &drive.File{
		Name:     name,
		Parents:  []string{parentID},
		MimeType: mimeType,
	}

	file, err := fm.client.Service().Files.Create(fileMetadata).
		Media(content).
		Fields("id, size, createdTime, modifiedTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	return file, nil
}

// Update updates an existing file's content
func (fm *FileManager) Update(ctx context.Context, fileID string, content io.Reader) error {
	_, err := fm.client.Service().Files.Update(fileID, &drive.File{}).
		Media(content).
		Context(ctx).
		Do()
	return err
}

// Delete permanently deletes a file
func (fm *FileManager) Delete(ctx context.Context, fileID string) error {
	return fm.client.Service().Files.Delete(fileID).Context(ctx).Do()
}

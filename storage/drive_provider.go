package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"newton/drive"
	"strings"
)

// DriveProvider keeps upload blobs in a Google Drive folder, one subfolder
// per user. A local cache directory holds the copies that processing reads.
type DriveProvider struct {
	files   *drive.FileManager
	folders *drive.FolderManager
	root    string
	cache   *LocalProvider
}

var _ Provider = (*DriveProvider)(nil)

// NewDriveProvider stores blobs under the rootFolder folder of the Drive
// account behind client, caching them in cacheDir
func NewDriveProvider(client *drive.Client, rootFolder, cacheDir string) (*DriveProvider, error) {
	cache, err := NewLocalProvider(cacheDir)
	if err != nil {
		return nil, err
	}
	if rootFolder == "" {
		rootFolder = "newton-uploads"
	}

	return &DriveProvider{
		files:   drive.NewFileManager(client),
		folders: drive.NewFolderManager(client),
		root:    rootFolder,
		cache:   cache,
	}, nil
}

// splitKey maps "user/name" keys onto a user folder and a file name
func splitKey(key string) (folder, name string, err error) {
	folder, name, ok := strings.Cut(key, "/")
	if !ok || folder == "" || name == "" || strings.Contains(name, "/") || strings.Contains(key, "\\") {
		return "", "", ErrInvalidKey
	}
	return folder, name, nil
}

// userFolder returns the folder of a key's user; with create unset a
// missing folder yields ""
func (d *DriveProvider) userFolder(ctx context.Context, folder string, create bool) (string, error) {
	rootID, err := d.folders.GetOrCreate(ctx, d.root, "")
	if err != nil {
		return "", fmt.Errorf("failed to resolve drive root folder: %w", err)
	}
	if create {
		return d.folders.GetOrCreate(ctx, folder, rootID)
	}
	return d.folders.Find(ctx, folder, rootID)
}

func (d *DriveProvider) find(ctx context.Context, key string) (string, error) {
	folder, name, err := splitKey(key)
	if err != nil {
		return "", err
	}
	folderID, err := d.userFolder(ctx, folder, false)
	if err != nil || folderID == "" {
		return "", err
	}
	file, err := d.files.Find(ctx, name, folderID)
	if err != nil || file == nil {
		return "", err
	}
	return file.Id, nil
}

// ==================== BLOB OPERATIONS ====================

func (d *DriveProvider) Put(ctx context.Context, key string, r io.Reader, maxBytes int64) (int64, error) {
	folder, name, err := splitKey(key)
	if err != nil {
		return 0, err
	}

	// The size limit is enforced while spooling into the cache
	n, err := d.cache.Put(ctx, key, r, maxBytes)
	if err != nil {
		return 0, err
	}

	folderID, err := d.userFolder(ctx, folder, true)
	if err != nil {
		d.cache.Delete(ctx, key)
		return 0, err
	}

	f, err := d.cache.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if _, err := d.files.Create(ctx, name, folderID, "application/octet-stream", f); err != nil {
		d.cache.Delete(ctx, key)
		return 0, fmt.Errorf("failed to upload blob to drive: %w", err)
	}

	slog.Debug("Stored blob in drive", "key", key, "bytes", n)
	return n, nil
}

func (d *DriveProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := d.cache.Open(ctx, key)
	if !errors.Is(err, ErrNotFound) {
		return rc, err
	}

	fileID, err := d.find(ctx, key)
	if err != nil {
		return nil, err
	}
	if fileID == "" {
		return nil, ErrNotFound
	}

	rc, err = d.files.Download(ctx, fileID)
	if drive.IsNotFound(err) {
		return nil, ErrNotFound
	}
	return rc, err
}

func (d *DriveProvider) Delete(ctx context.Context, key string) error {
	if err := d.cache.Delete(ctx, key); err != nil {
		return err
	}

	fileID, err := d.find(ctx, key)
	if err != nil || fileID == "" {
		return err
	}

	if err := d.files.Delete(ctx, fileID); err != nil && !drive.IsNotFound(err) {
		return fmt.Errorf("failed to delete blob from drive: %w", err)
	}
	return nil
}

// ==================== UTILITY OPERATIONS ====================

// LocalPath downloads the blob into the cache when it is not there already
func (d *DriveProvider) LocalPath(ctx context.Context, key string) (string, error) {
	path, err := d.cache.LocalPath(ctx, key)
	if !errors.Is(err, ErrNotFound) {
		return path, err
	}

	rc, err := d.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	if _, err := d.cache.Put(ctx, key, rc, 0); err != nil {
		return "", err
	}
	return d.cache.LocalPath(ctx, key)
}

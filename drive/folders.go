package drive

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/drive/v3"
)

const folderMimeType = "application/vnd.google-apps.folder"

// FolderManager handles folder operations in Google Drive
type FolderManager struct {
	client *Client

	mu    sync.Mutex
	cache map[string]string // parentID + "/" + name -> folder id
}

// NewFolderManager creates a new folder manager
func NewFolderManager(client *Client) *FolderManager {
	return &FolderManager{
		client: client,
		cache:  make(map[string]string),
	}
}

// GetOrCreate returns the ID of a folder, creating it if it doesn't exist
func (fm *FolderManager) GetOrCreate(ctx context.Context, name string, parentID string) (string, error) {
	// If no parent is specified, use "root" for the account's main Drive folder
	if parentID == "" {
		parentID = "root"
	}

	cacheKey := parentID + "/" + name
	fm.mu.Lock()
	id, ok := fm.cache[cacheKey]
	fm.mu.Unlock()
	if ok {
		return id, nil
	}

	id, err := fm.Find(ctx, name, parentID)
	if err != nil {
		return "", err
	}

	if id == "" {
		fileMetadata := &drive.File{
			Name:     name,
			MimeType: folderMimeType,
			Parents:  []string{parentID},
		}

		file, err := fm.client.Service().Files.Create(fileMetadata).
			Fields("id").
			Context(ctx).
			Do()
		if err != nil {
			return "", err
		}
		id = file.Id
	}

	fm.mu.Lock()
	fm.cache[cacheKey] = id
	fm.mu.Unlock()
	return id, nil
}

// Find returns the ID of a folder in parentID, or "" if there is none
func (fm *FolderManager) Find(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false and '%s' in parents",
		EscapeQuery(name), folderMimeType, EscapeQuery(parentID))

	fileList, err := fm.client.Service().Files.List().
		Q(query).
		Fields("files(id)").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}

	if len(fileList.Files) > 0 {
		return fileList.Files[0].Id, nil
	}
	return "", nil
}

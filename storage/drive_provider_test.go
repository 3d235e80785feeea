package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"newton/drive"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// ==================== FAKE DRIVE ====================

type fakeFile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Parent string `json:"-"`
	Data   []byte `json:"-"`
}

type fakeDrive struct {
	mu     sync.Mutex
	files  map[string]*fakeFile
	nextID int
}

var (
	queryName   = regexp.MustCompile(`name='((?:[^'\\]|\\.)*)'`)
	queryParent = regexp.MustCompile(`'((?:[^'\\]|\\.)*)' in parents`)
	unescape    = strings.NewReplacer(`\'`, `'`, `\\`, `\`)
)

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
		q := r.URL.Query().Get("q")
		name := unescape.Replace(queryName.FindStringSubmatch(q)[1])
		parent := unescape.Replace(queryParent.FindStringSubmatch(q)[1])

		matches := []*fakeFile{}
		for _, file := range f.files {
			if file.Name == name && file.Parent == parent {
				matches = append(matches, file)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"files": matches})

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
		meta, data := f.readCreate(r)
		f.nextID++
		file := &fakeFile{
			ID:     fmt.Sprintf("file-%d", f.nextID),
			Name:   meta.Name,
			Parent: meta.Parents[0],
			Data:   data,
		}
		f.files[file.ID] = file
		json.NewEncoder(w).Encode(file)

	case r.Method == http.MethodGet:
		file, ok := f.files[r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(file.Data)

	case r.Method == http.MethodDelete:
		delete(f.files, r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

type createMeta struct {
	Name    string   `json:"name"`
	Parents []string `json:"parents"`
}

// readCreate decodes folder creates (plain JSON) and multipart media uploads
func (f *fakeDrive) readCreate(r *http.Request) (createMeta, []byte) {
	var meta createMeta
	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		json.NewDecoder(r.Body).Decode(&meta)
		return meta, nil
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	part, _ := mr.NextPart()
	json.NewDecoder(part).Decode(&meta)
	part, _ = mr.NextPart()
	data, _ := io.ReadAll(part)
	return meta, data
}

func (f *fakeDrive) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

func newDriveProvider(t *testing.T) (*DriveProvider, *fakeDrive) {
	t.Helper()

	fake := &fakeDrive{files: map[string]*fakeFile{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := drive.NewClientWithOptions(context.Background(),
		option.WithEndpoint(server.URL+"/drive/v3/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	p, err := NewDriveProvider(client, "", t.TempDir())
	require.NoError(t, err)
	return p, fake
}

// ==================== TESTS ====================

func TestSplitKey(t *testing.T) {
	folder, name, err := splitKey(UploadKey("user-1", "upload-1", ".pdf"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", folder)
	assert.Equal(t, "upload-1.pdf", name)

	for _, key := range []string{"", "no-slash", "/name", "user/", "user/a/b", `user\name`} {
		_, _, err := splitKey(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `o\'brien`, drive.EscapeQuery("o'brien"))
	assert.Equal(t, `a\\b`, drive.EscapeQuery(`a\b`))
}

func TestDriveProvider(t *testing.T) {
	ctx := context.Background()
	p, fake := newDriveProvider(t)
	key := UploadKey("user-1", "upload-1", ".pdf")

	n, err := p.Put(ctx, key, strings.NewReader("%PDF-1.7 body"), 1024)
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)
	// root folder, user folder and the blob
	assert.Equal(t, 3, fake.count())

	t.Run("Cache miss reads from drive", func(t *testing.T) {
		require.NoError(t, p.cache.Delete(ctx, key))

		path, err := p.LocalPath(ctx, key)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.7 body", string(data))
	})

	t.Run("Too large is not uploaded", func(t *testing.T) {
		_, err := p.Put(ctx, UploadKey("user-1", "big", ".pdf"), strings.NewReader(strings.Repeat("x", 100)), 10)
		assert.ErrorIs(t, err, ErrTooLarge)
		assert.Equal(t, 3, fake.count())
	})

	t.Run("Delete removes both copies", func(t *testing.T) {
		require.NoError(t, p.Delete(ctx, key))
		assert.Equal(t, 2, fake.count())

		_, err := p.Open(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)

		// Deleting again is not an error
		require.NoError(t, p.Delete(ctx, key))
	})

	t.Run("Unknown user", func(t *testing.T) {
		_, err := p.LocalPath(ctx, UploadKey("nobody", "x", ".pdf"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

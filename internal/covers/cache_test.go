package covers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func imageServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewCache(t *testing.T) {
	tmpDir := t.TempDir()
	cacheDir := filepath.Join(tmpDir, "covers")

	cache, err := NewCache(cacheDir, nil)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}

	if cache.CacheDir() != cacheDir {
		t.Errorf("expected cache dir %s, got %s", cacheDir, cache.CacheDir())
	}

	// Verify directory was created
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Error("cache directory was not created")
	}
}

func TestGetCover_EmptyURL(t *testing.T) {
	cache, _ := NewCache(t.TempDir(), nil)

	path, err := cache.GetCover(context.Background(), 1, "")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path for empty URL, got %s", path)
	}
}

func TestGetCover_FetchAndCache(t *testing.T) {
	var hits atomic.Int32
	server := imageServer(t, &hits)
	cache, _ := NewCache(t.TempDir(), nil)
	ctx := context.Background()

	// First request should fetch
	path1, err := cache.GetCover(ctx, 1, server.URL+"/cover")
	if err != nil {
		t.Fatalf("GetCover failed: %v", err)
	}
	if !strings.HasSuffix(path1, ".png") {
		t.Errorf("expected .png extension from content, got %s", path1)
	}
	if _, err := os.Stat(path1); os.IsNotExist(err) {
		t.Error("cached file does not exist")
	}

	// Second request should use cache
	path2, err := cache.GetCover(ctx, 1, server.URL+"/cover")
	if err != nil {
		t.Fatalf("GetCover (cached) failed: %v", err)
	}
	if path1 != path2 {
		t.Error("expected same path for cached request")
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 download, got %d", hits.Load())
	}
}

func TestGetCover_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cache, _ := NewCache(t.TempDir(), nil)

	_, err := cache.GetCover(context.Background(), 1, server.URL+"/notfound.jpg")
	if err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestGetCover_NotAnImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>Not found</body></html>"))
	}))
	defer server.Close()

	cache, _ := NewCache(t.TempDir(), nil)

	_, err := cache.GetCover(context.Background(), 1, server.URL+"/cover.jpg")
	if err == nil {
		t.Fatal("expected error for an HTML body")
	}
	entries, _ := os.ReadDir(cache.CacheDir())
	if len(entries) != 0 {
		t.Errorf("expected nothing cached, found %d files", len(entries))
	}
}

func TestInvalidateCover(t *testing.T) {
	server := imageServer(t, nil)
	cache, _ := NewCache(t.TempDir(), nil)

	// Fetch and cache a cover
	path, err := cache.GetCover(context.Background(), 1, server.URL+"/cover.png")
	if err != nil {
		t.Fatalf("GetCover failed: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("cached file does not exist")
	}

	// Invalidate
	err = cache.InvalidateCover(1)
	if err != nil {
		t.Fatalf("InvalidateCover failed: %v", err)
	}

	// Verify file is gone
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cached file should be deleted after invalidation")
	}
}

func TestCoverPrefix(t *testing.T) {
	cache, _ := NewCache(t.TempDir(), nil)

	// Same URL should give same name
	name1 := cache.coverPrefix(1, "https://example.com/cover.jpg")
	name2 := cache.coverPrefix(1, "https://example.com/cover.jpg")
	if name1 != name2 {
		t.Error("same inputs should produce same filename")
	}

	// Different URL should give different name
	name3 := cache.coverPrefix(1, "https://example.com/other.jpg")
	if name1 == name3 {
		t.Error("different URLs should produce different filenames")
	}

	// Different book ID should give different name
	name4 := cache.coverPrefix(2, "https://example.com/cover.jpg")
	if name1 == name4 {
		t.Error("different book IDs should produce different filenames")
	}
}

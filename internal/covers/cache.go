// Package covers downloads book cover images into a local directory so they
// can be opened offline.
package covers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// maxCoverSize bounds a single download.
const maxCoverSize = 5 << 20

var ErrNotAnImage = errors.New("cover is not an image")

// Cache handles local caching of book cover images.
type Cache struct {
	cacheDir   string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewCache creates a new cover cache at the specified directory.
func NewCache(cacheDir string, log logrus.FieldLogger) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Cache{
		cacheDir: cacheDir,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logging.OrDiscard(log).WithField("component", "covers"),
	}, nil
}

// DefaultDir is the per-user cache location.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "mylibrary", "covers"), nil
}

// GetCover returns the cached cover for a book, or fetches and caches it if not present.
// Returns the file path to the cached cover, or empty string if coverURL is empty.
func (c *Cache) GetCover(ctx context.Context, bookID int64, coverURL string) (string, error) {
	if coverURL == "" {
		return "", nil
	}

	prefix := c.coverPrefix(bookID, coverURL)
	if matches, _ := filepath.Glob(filepath.Join(c.cacheDir, prefix+".*")); len(matches) > 0 {
		return matches[0], nil
	}

	path, err := c.fetchAndCache(ctx, coverURL, prefix)
	if err != nil {
		return "", err
	}
	c.log.WithFields(logrus.Fields{"book_id": bookID, "path": path}).Debug("cover cached")
	return path, nil
}

// InvalidateCover removes every cached cover for a book.
func (c *Cache) InvalidateCover(bookID int64) error {
	pattern := filepath.Join(c.cacheDir, fmt.Sprintf("cover_%d_*", bookID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

// coverPrefix is the file name without extension; the extension comes from
// the downloaded content.
func (c *Cache) coverPrefix(bookID int64, coverURL string) string {
	hash := sha256.Sum256([]byte(coverURL))
	return fmt.Sprintf("cover_%d_%x", bookID, hash[:8])
}

func (c *Cache) fetchAndCache(ctx context.Context, url, prefix string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "MyLibrary/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch cover: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxCoverSize {
		return "", fmt.Errorf("cover exceeds %d bytes", maxCoverSize)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotAnImage, mime.String())
	}

	// Write to a temp file in the same directory, then rename atomically
	tmpFile, err := os.CreateTemp(c.cacheDir, "cover_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := io.Copy(tmpFile, bytes.NewReader(data)); err != nil {
		return "", err
	}
	tmpFile.Close()

	cachePath := filepath.Join(c.cacheDir, prefix+mime.Extension())
	if err := os.Rename(tmpPath, cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}

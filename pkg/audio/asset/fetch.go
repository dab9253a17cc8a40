// ABOUTME: Remote sound fetcher
// ABOUTME: Downloads http(s) sound files into a sha256-keyed cache directory
package asset

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// fetcher manages sound downloads
type fetcher struct {
	cacheDir string
	client   *http.Client
}

func newFetcher(cacheDir string, client *http.Client) (*fetcher, error) {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "voicepool-sounds")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if client == nil {
		client = &http.Client{}
	}

	return &fetcher{
		cacheDir: cacheDir,
		client:   client,
	}, nil
}

// isRemote reports whether path must be downloaded first
func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// fetch downloads url unless it is already cached and returns the local path
func (f *fetcher) fetch(url string) (string, error) {
	// Create a cache key from URL hash
	hash := sha256.Sum256([]byte(url))
	filename := fmt.Sprintf("%x%s", hash[:8], getExtension(url))
	cachePath := filepath.Join(f.cacheDir, filename)

	if _, err := os.Stat(cachePath); err == nil {
		log.Printf("Sound cache hit: %s", cachePath)
		return cachePath, nil
	}

	log.Printf("Downloading sound: %s", url)
	resp, err := f.client.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download sound: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sound download failed: HTTP %d", resp.StatusCode)
	}

	// Write to a temp name so a failed download never looks cached
	tmp, err := os.CreateTemp(f.cacheDir, filename+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save sound: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save sound: %w", err)
	}
	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save sound: %w", err)
	}

	log.Printf("Sound saved: %s", cachePath)
	return cachePath, nil
}

// getExtension extracts file extension from URL
func getExtension(url string) string {
	// Remove query string
	url = strings.Split(url, "?")[0]
	return strings.ToLower(filepath.Ext(url))
}

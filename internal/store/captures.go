package store

import (
	"fmt"
	"os"
	"path/filepath"

	"matchbot/internal/config"
	"matchbot/internal/types"
)

// CapturesCacheDir returns the path to the screenshot cache directory.
// On macOS this is ~/Library/Caches/matchbot/captures/
func CapturesCacheDir() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "captures"), nil
}

// SaveCapture writes a screenshot's PNG bytes to a timestamped file.
// Returns the path to the saved file.
func SaveCapture(capture *types.Capture) (string, error) {
	dir, err := CapturesCacheDir()
	if err != nil {
		return "", err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%s.png", capture.TakenAt.Format("2006-01-02T15-04-05"), capture.ID)
	path := filepath.Join(dir, filename)

	if err := os.WriteFile(path, capture.Image, 0644); err != nil {
		return "", err
	}

	return path, nil
}

// Package store persists experiment reports to the local filesystem or Redis.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/giantswarm/rating-eval/internal/runner"
)

// ErrNotFound is returned when a run ID has no stored report.
var ErrNotFound = errors.New("run not found")

// Reader looks up stored reports.
type Reader interface {
	// Get returns the report and its per-strategy predictions.
	Get(ctx context.Context, runID string) (*runner.Report, error)
	// List returns run metadata, newest first. Predictions are not loaded.
	List(ctx context.Context) ([]*runner.Report, error)
}

// Store is a Reader that also accepts new reports.
type Store interface {
	runner.Sink
	Reader
}

// ValidateRunID rejects IDs that could escape the results directory or
// collide with Redis key separators.
func ValidateRunID(runID string) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run_id is required")
	}
	if strings.Contains(runID, string(filepath.Separator)) || strings.Contains(runID, "/") {
		return fmt.Errorf("path separators are not allowed")
	}
	if runID == "." || runID == ".." {
		return fmt.Errorf("path traversal is not allowed")
	}
	if strings.ContainsAny(runID, ": ") {
		return fmt.Errorf("invalid run_id %q", runID)
	}
	return nil
}

// sanitizeFilename replaces characters unsafe for filenames with underscores.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}

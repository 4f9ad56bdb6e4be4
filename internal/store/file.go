package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/giantswarm/rating-eval/internal/runner"
)

// Artifact file names inside a run directory.
const (
	ResultSetFile         = "resultset.json"
	EvaluationResultsFile = "evaluation_results.csv"
	ComparisonMetricsFile = "comparison_metrics.csv"
	predictionsFileSuffix = "_predictions.json"
)

// FileStore writes each run to <dir>/<run id>/.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root results directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// RunDir returns the directory holding runID's artifacts.
func (s *FileStore) RunDir(runID string) string {
	return filepath.Join(s.dir, runID)
}

// PredictionsFile returns the file name holding one strategy's predictions.
func PredictionsFile(strategyName string) string {
	return sanitizeFilename(strategyName) + predictionsFileSuffix
}

// Save writes the run metadata, both CSV exports and one predictions file
// per strategy.
func (s *FileStore) Save(_ context.Context, report *runner.Report) error {
	if err := ValidateRunID(report.ID); err != nil {
		return err
	}

	runDir := s.RunDir(report.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeJSON(filepath.Join(runDir, ResultSetFile), report); err != nil {
		return fmt.Errorf("failed to write run metadata: %w", err)
	}

	for _, res := range report.Results {
		if err := writeJSON(filepath.Join(runDir, PredictionsFile(res.Strategy)), res); err != nil {
			return fmt.Errorf("failed to write predictions for strategy %s: %w", res.Strategy, err)
		}
	}

	if err := writeCSV(filepath.Join(runDir, EvaluationResultsFile), report, WriteEvaluationResults); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(runDir, ComparisonMetricsFile), report, WriteComparisonMetrics); err != nil {
		return err
	}

	slog.Info("results saved", "run_id", report.ID, "path", runDir)
	return nil
}

// Get reads a run's metadata and per-strategy predictions.
func (s *FileStore) Get(_ context.Context, runID string) (*runner.Report, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}

	report, err := readReport(filepath.Join(s.RunDir(runID), ResultSetFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	for _, name := range report.Strategies {
		data, err := os.ReadFile(filepath.Join(s.RunDir(runID), PredictionsFile(name)))
		if err != nil {
			slog.Debug("predictions file missing", "run_id", runID, "strategy", name, "error", err)
			continue
		}
		var res runner.StrategyResult
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("failed to parse predictions for strategy %s: %w", name, err)
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// List returns the metadata of every run directory, newest first.
// Directories without a readable resultset.json are skipped.
func (s *FileStore) List(_ context.Context) ([]*runner.Report, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var reports []*runner.Report
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		report, err := readReport(filepath.Join(s.dir, e.Name(), ResultSetFile))
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Timestamp.After(reports[j].Timestamp)
	})
	return reports, nil
}

func readReport(path string) (*runner.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report runner.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse run metadata: %w", err)
	}
	return &report, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeCSV(path string, report *runner.Report, write func(io.Writer, *runner.Report) error) error {
	var buf bytes.Buffer
	if err := write(&buf, report); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

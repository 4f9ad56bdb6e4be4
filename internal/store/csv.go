package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/giantswarm/rating-eval/internal/runner"
)

const (
	reviewPreviewRunes      = 200
	explanationPreviewRunes = 100
)

// WriteEvaluationResults writes one row per sampled review with each
// strategy's prediction next to the ground truth.
func WriteEvaluationResults(w io.Writer, report *runner.Report) error {
	cw := csv.NewWriter(w)

	header := []string{"review_text", "actual_rating"}
	for _, name := range report.Strategies {
		header = append(header, name+"_predicted", name+"_explanation", name+"_valid_json")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, item := range report.Samples {
		row := []string{preview(item.ReviewText, reviewPreviewRunes, "..."), strconv.Itoa(item.ActualRating)}
		for _, name := range report.Strategies {
			res, _ := report.Result(name)
			if i >= len(res.Predictions) {
				row = append(row, "", "", "")
				continue
			}
			p := res.Predictions[i]
			predicted := ""
			if p.HasStars() {
				predicted = strconv.Itoa(p.Stars())
			}
			row = append(row,
				predicted,
				preview(p.Explanation, explanationPreviewRunes, ""),
				strconv.FormatBool(p.IsValidJSON),
			)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write evaluation results: %w", err)
	}
	return nil
}

// WriteComparisonMetrics writes one row of summary statistics per strategy.
func WriteComparisonMetrics(w io.Writer, report *runner.Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{
		"strategy", "accuracy", "json_validity_rate", "consistency_rate",
		"mean_absolute_error", "valid_predictions", "total_predictions",
	}); err != nil {
		return err
	}

	for _, name := range report.Strategies {
		s := report.Summaries[name]
		if err := cw.Write([]string{
			name,
			formatFloat(s.Accuracy),
			formatFloat(s.JSONValidityRate),
			formatFloat(s.ConsistencyRate),
			formatFloat(s.MeanAbsoluteError),
			strconv.Itoa(s.ValidPredictions),
			strconv.Itoa(s.TotalPredictions),
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write comparison metrics: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// preview keeps the first n runes of s, appending suffix when it cut anything.
func preview(s string, n int, suffix string) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + suffix
		}
		count++
	}
	return s
}

package cmd

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/giantswarm/rating-eval/internal/metrics"
	"github.com/giantswarm/rating-eval/internal/runner"
)

// printReport writes the comparison table and key insights of report.
func printReport(w io.Writer, report *runner.Report) {
	_, _ = fmt.Fprintf(w, "Run ID: %s\n", report.ID)
	_, _ = fmt.Fprintf(w, "Duration: %.1fs\n", report.Duration)
	if report.Partial {
		_, _ = fmt.Fprintln(w, "Status: partial (interrupted)")
	}
	_, _ = fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STRATEGY\tACCURACY\tJSON VALIDITY\tCONSISTENCY\tMAE\tVALID")
	for _, name := range report.Strategies {
		s, ok := report.Summaries[name]
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(tw, "%s\t%.2f%%\t%.2f%%\t%.2f%%\t%s\t%d/%d\n",
			name, s.Accuracy, s.JSONValidityRate, s.ConsistencyRate,
			formatMAE(s.MeanAbsoluteError), s.ValidPredictions, s.TotalPredictions)
	}
	_ = tw.Flush()

	in := report.Insights
	_, _ = fmt.Fprintln(w, "\nKey insights:")
	printBest(w, "Best accuracy", in.Accuracy, "%")
	printBest(w, "Best JSON validity", in.JSONValidity, "%")
	printBest(w, "Most consistent", in.Consistency, "%")
	printBest(w, "Lowest MAE", in.LowestMAE, "")
}

func printBest(w io.Writer, label string, b metrics.Best, unit string) {
	if b.Strategy == "" {
		_, _ = fmt.Fprintf(w, "  - %s: n/a\n", label)
		return
	}
	_, _ = fmt.Fprintf(w, "  - %s: %s (%.2f%s)\n", label, b.Strategy, b.Value, unit)
}

func formatMAE(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

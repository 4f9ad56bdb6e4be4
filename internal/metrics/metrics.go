// Package metrics aggregates per-strategy predictions into summary statistics.
package metrics

import (
	"encoding/json"
	"math"

	"github.com/giantswarm/rating-eval/internal/prediction"
)

// Summary holds the comparative statistics for one strategy.
// Rates are percentages; MeanAbsoluteError is +Inf when no prediction
// carried a rating.
type Summary struct {
	Accuracy          float64 `json:"accuracy"`
	JSONValidityRate  float64 `json:"json_validity_rate"`
	ConsistencyRate   float64 `json:"consistency_rate"`
	MeanAbsoluteError float64 `json:"mean_absolute_error"`
	ValidPredictions  int     `json:"valid_predictions"`
	TotalPredictions  int     `json:"total_predictions"`
}

// MarshalJSON encodes an undefined MAE as null, since JSON has no infinity.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	out := struct {
		alias
		MeanAbsoluteError *float64 `json:"mean_absolute_error"`
	}{alias: alias(s)}
	if !math.IsInf(s.MeanAbsoluteError, 0) && !math.IsNaN(s.MeanAbsoluteError) {
		mae := s.MeanAbsoluteError
		out.MeanAbsoluteError = &mae
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a null MAE as +Inf.
func (s *Summary) UnmarshalJSON(data []byte) error {
	type alias Summary
	in := struct {
		*alias
		MeanAbsoluteError *float64 `json:"mean_absolute_error"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.MeanAbsoluteError == nil {
		s.MeanAbsoluteError = math.Inf(1)
	} else {
		s.MeanAbsoluteError = *in.MeanAbsoluteError
	}
	return nil
}

// Compute derives a Summary from ground-truth ratings, the full-pass
// predictions, and the consistency-pass predictions.
//
// Predictions without a rating count toward the validity denominator only.
// Consistency pairs the first len(consistency) full-pass predictions with the
// consistency pass positionally.
func Compute(actual []int, predictions, consistency []prediction.Prediction) Summary {
	s := Summary{TotalPredictions: len(predictions)}

	validJSON := 0
	for _, p := range predictions {
		if p.IsValidJSON {
			validJSON++
		}
	}
	s.JSONValidityRate = percent(validJSON, len(predictions))

	correct := 0
	absErr := 0.0
	for i, p := range predictions {
		if i >= len(actual) || !p.HasStars() {
			continue
		}
		want, got := actual[i], p.Stars()
		s.ValidPredictions++
		if want == got {
			correct++
		}
		absErr += math.Abs(float64(want - got))
	}
	s.Accuracy = percent(correct, s.ValidPredictions)
	if s.ValidPredictions > 0 {
		s.MeanAbsoluteError = absErr / float64(s.ValidPredictions)
	} else {
		s.MeanAbsoluteError = math.Inf(1)
	}

	agree := 0
	for i, second := range consistency {
		if i >= len(predictions) {
			break
		}
		first := predictions[i]
		if first.HasStars() && second.HasStars() && first.Stars() == second.Stars() {
			agree++
		}
	}
	s.ConsistencyRate = percent(agree, len(consistency))

	return s
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

package metrics

import "math"

// Best names the winning strategy for one metric.
type Best struct {
	Strategy string  `json:"strategy"`
	Value    float64 `json:"value"`
}

// Insights highlights the best strategy per metric.
type Insights struct {
	Accuracy     Best `json:"best_accuracy"`
	JSONValidity Best `json:"best_json_validity"`
	Consistency  Best `json:"best_consistency"`
	// LowestMAE is empty when no strategy produced a finite MAE.
	LowestMAE Best `json:"lowest_mae"`
}

// Rank picks the best strategy per metric. order fixes the iteration order so
// ties resolve to the earliest strategy.
func Rank(order []string, summaries map[string]Summary) Insights {
	var in Insights
	first := true
	for _, name := range order {
		s, ok := summaries[name]
		if !ok {
			continue
		}
		if first {
			in.Accuracy = Best{name, s.Accuracy}
			in.JSONValidity = Best{name, s.JSONValidityRate}
			in.Consistency = Best{name, s.ConsistencyRate}
			first = false
		} else {
			if s.Accuracy > in.Accuracy.Value {
				in.Accuracy = Best{name, s.Accuracy}
			}
			if s.JSONValidityRate > in.JSONValidity.Value {
				in.JSONValidity = Best{name, s.JSONValidityRate}
			}
			if s.ConsistencyRate > in.Consistency.Value {
				in.Consistency = Best{name, s.ConsistencyRate}
			}
		}
		if math.IsInf(s.MeanAbsoluteError, 0) {
			continue
		}
		if in.LowestMAE.Strategy == "" || s.MeanAbsoluteError < in.LowestMAE.Value {
			in.LowestMAE = Best{name, s.MeanAbsoluteError}
		}
	}
	return in
}

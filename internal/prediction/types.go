// Package prediction turns a model reply into a validated star-rating
// prediction. It owns the extract -> validate -> retry pipeline; callers only
// ever receive a Prediction value, never an error.
package prediction

// Rating bounds accepted for predicted_stars.
const (
	MinStars = 1
	MaxStars = 5
)

// Prediction is the normalized outcome of one model invocation for one review.
//
// IsValidJSON implies PredictedStars is set and within [MinStars, MaxStars]
// and Error is empty. A nil PredictedStars implies IsValidJSON is false.
type Prediction struct {
	PredictedStars *int   `json:"predicted_stars"`
	Explanation    string `json:"explanation"`
	IsValidJSON    bool   `json:"is_valid_json"`
	RawResponse    string `json:"raw_response"`
	Error          string `json:"error,omitempty"`
	Attempts       int    `json:"attempts,omitempty"`
}

// Valid builds a successful prediction.
func Valid(stars int, explanation, raw string) Prediction {
	return Prediction{
		PredictedStars: &stars,
		Explanation:    explanation,
		IsValidJSON:    true,
		RawResponse:    raw,
	}
}

// Failed builds a failed prediction carrying a diagnostic message.
func Failed(msg, raw string) Prediction {
	return Prediction{
		IsValidJSON: false,
		RawResponse: raw,
		Error:       msg,
	}
}

// HasStars reports whether the prediction carries a rating.
func (p Prediction) HasStars() bool {
	return p.PredictedStars != nil
}

// Stars returns the predicted rating, or 0 when absent.
func (p Prediction) Stars() int {
	if p.PredictedStars == nil {
		return 0
	}
	return *p.PredictedStars
}

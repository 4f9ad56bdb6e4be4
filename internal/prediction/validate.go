package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// FormatError is returned when the extracted text is not a JSON object.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return "response is not a JSON object: " + e.Err.Error()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// RangeError is returned when predicted_stars is missing, not a whole number,
// or outside [MinStars, MaxStars].
type RangeError struct {
	Value any
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid rating: %v", e.Value)
}

// Validate parses extracted text into a rating and explanation.
func Validate(text string) (int, string, error) {
	// UseNumber keeps numbers that overflow float64 decodable, so they
	// surface as a RangeError.
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return 0, "", &FormatError{Err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return 0, "", &FormatError{Err: fmt.Errorf("unexpected data after JSON object")}
	}
	if record == nil {
		// "null" decodes without error into a nil map.
		return 0, "", &FormatError{Err: fmt.Errorf("got null")}
	}

	raw, ok := record["predicted_stars"]
	if !ok {
		return 0, "", &RangeError{Value: nil}
	}

	num, ok := raw.(json.Number)
	if !ok {
		return 0, "", &RangeError{Value: raw}
	}
	value, err := num.Float64()
	if err != nil {
		return 0, "", &RangeError{Value: num}
	}
	if value != math.Floor(value) || value < MinStars || value > MaxStars {
		return 0, "", &RangeError{Value: value}
	}

	return int(value), explanationOf(record["explanation"]), nil
}

func explanationOf(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return e
	default:
		return fmt.Sprint(e)
	}
}

package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		stars       int
		explanation string
		formatErr   bool
		rangeErr    bool
	}{
		{name: "integer", input: `{"predicted_stars": 4, "explanation": "ok"}`, stars: 4, explanation: "ok"},
		{name: "whole float", input: `{"predicted_stars": 5.0, "explanation": "great"}`, stars: 5, explanation: "great"},
		{name: "lower bound", input: `{"predicted_stars": 1}`, stars: 1},
		{name: "missing explanation defaults empty", input: `{"predicted_stars": 3}`, stars: 3},
		{name: "null explanation", input: `{"predicted_stars": 3, "explanation": null}`, stars: 3},
		{name: "numeric explanation kept as text", input: `{"predicted_stars": 2, "explanation": 7}`, stars: 2, explanation: "7"},
		{name: "not json", input: "not json", formatErr: true},
		{name: "empty", input: "", formatErr: true},
		{name: "array", input: `[4]`, formatErr: true},
		{name: "null", input: `null`, formatErr: true},
		{name: "trailing text", input: `{"predicted_stars": 4} thanks`, formatErr: true},
		{name: "missing stars", input: `{"explanation": "x"}`, rangeErr: true},
		{name: "string stars", input: `{"predicted_stars": "4"}`, rangeErr: true},
		{name: "bool stars", input: `{"predicted_stars": true}`, rangeErr: true},
		{name: "null stars", input: `{"predicted_stars": null}`, rangeErr: true},
		{name: "zero", input: `{"predicted_stars": 0}`, rangeErr: true},
		{name: "six", input: `{"predicted_stars": 6}`, rangeErr: true},
		{name: "fractional", input: `{"predicted_stars": 4.5}`, rangeErr: true},
		{name: "negative", input: `{"predicted_stars": -1}`, rangeErr: true},
		{name: "exponent form", input: `{"predicted_stars": 4e0}`, stars: 4},
		{name: "overflowing number", input: `{"predicted_stars": 1e400}`, rangeErr: true},
		{name: "overflowing negative number", input: `{"predicted_stars": -1e400}`, rangeErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stars, explanation, err := Validate(tt.input)
			switch {
			case tt.formatErr:
				var fe *FormatError
				assert.ErrorAs(t, err, &fe)
			case tt.rangeErr:
				var re *RangeError
				assert.ErrorAs(t, err, &re)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.stars, stars)
				assert.Equal(t, tt.explanation, explanation)
			}
		})
	}
}

func TestExtractThenValidateRoundTrip(t *testing.T) {
	raw := "```json\n{\"predicted_stars\": 4, \"explanation\": \"ok\"}\n```"

	stars, explanation, err := Validate(ExtractPayload(raw))
	require.NoError(t, err)
	assert.Equal(t, 4, stars)
	assert.Equal(t, "ok", explanation)
}

func TestErrorMessages(t *testing.T) {
	_, _, err := Validate(`{"predicted_stars": 9}`)
	assert.EqualError(t, err, "invalid rating: 9")

	_, _, err = Validate("nope")
	assert.ErrorContains(t, err, "response is not a JSON object")
}

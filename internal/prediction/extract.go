package prediction

import "strings"

const fence = "```"

// languageTags are the fence info strings stripped when they run straight into
// the payload (e.g. "json{...}").
var languageTags = []string{"json", "JSON"}

// ExtractPayload strips incidental formatting such as fenced code blocks from
// a raw model reply and returns the text most likely to hold the JSON record.
// It never fails; validation decides whether the result is usable.
func ExtractPayload(raw string) string {
	trimmed := strings.TrimSpace(raw)

	if !strings.HasPrefix(trimmed, fence) {
		return trimmed
	}

	// parts[0] is the empty text before the opening fence.
	parts := strings.Split(trimmed, fence)
	if len(parts) < 2 {
		return trimmed
	}

	inner := parts[1]
	for _, tag := range languageTags {
		if strings.HasPrefix(inner, tag) {
			inner = inner[len(tag):]
			break
		}
	}

	inner = strings.TrimSpace(inner)
	if inner == "" {
		return trimmed
	}
	return inner
}

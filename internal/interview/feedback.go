package interview

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Feedback is the strict result shape required from the evaluation prompt.
type Feedback struct {
	Feedback string  `json:"feedback"`
	Score    float64 `json:"score"`
}

// ErrUnparseable tags provider output that cannot be used as feedback. The
// caller maps it to PARSE_FAILURE; nothing may be persisted before the parse
// succeeds.
var ErrUnparseable = errors.New("feedback unparseable")

// ParseFeedback extracts {feedback, score} from raw provider output. Models
// sometimes wrap the JSON in code fences despite instructions, so fences and
// surrounding whitespace are stripped before decoding. The score must be a
// whole number in [1,10].
func ParseFeedback(raw string) (Feedback, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return Feedback{}, fmt.Errorf("%w: empty output", ErrUnparseable)
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	var fb struct {
		Feedback *string  `json:"feedback"`
		Score    *float64 `json:"score"`
	}
	if err := dec.Decode(&fb); err != nil {
		return Feedback{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if fb.Feedback == nil {
		return Feedback{}, fmt.Errorf("%w: missing feedback field", ErrUnparseable)
	}
	if fb.Score == nil {
		return Feedback{}, fmt.Errorf("%w: missing score field", ErrUnparseable)
	}

	score := *fb.Score
	if score != math.Trunc(score) || score < 1 || score > 10 {
		return Feedback{}, fmt.Errorf("%w: score %v out of range", ErrUnparseable, score)
	}

	return Feedback{Feedback: *fb.Feedback, Score: score}, nil
}

// stripFences removes a leading ```json / ``` marker and a trailing ```
// fence, then trims whitespace.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

package interview

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedbackPlainJSON(t *testing.T) {
	fb, err := ParseFeedback(`{"feedback": "Good use of STAR.", "score": 8}`)
	require.NoError(t, err)
	assert.Equal(t, "Good use of STAR.", fb.Feedback)
	assert.Equal(t, 8.0, fb.Score)
}

func TestParseFeedbackFencedJSON(t *testing.T) {
	raw := "```json\n{\"feedback\": \"Solid answer.\", \"score\": 7}\n```"
	fb, err := ParseFeedback(raw)
	require.NoError(t, err)
	assert.Equal(t, "Solid answer.", fb.Feedback)
	assert.Equal(t, 7.0, fb.Score)
}

func TestParseFeedbackBareFence(t *testing.T) {
	raw := "```\n{\"feedback\": \"ok\", \"score\": 5}\n```"
	fb, err := ParseFeedback(raw)
	require.NoError(t, err)
	assert.Equal(t, 5.0, fb.Score)
}

func TestParseFeedbackSurroundingWhitespace(t *testing.T) {
	raw := "\n\n  {\"feedback\": \"fine\", \"score\": 10}  \n"
	fb, err := ParseFeedback(raw)
	require.NoError(t, err)
	assert.Equal(t, 10.0, fb.Score)
}

func TestParseFeedbackRejectsBadOutput(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"whitespace only":  "   \n\t ",
		"prose":            "The candidate did well overall.",
		"truncated":        `{"feedback": "cut off`,
		"missing score":    `{"feedback": "no score here"}`,
		"missing feedback": `{"score": 6}`,
		"string score":     `{"feedback": "x", "score": "seven"}`,
		"fractional score": `{"feedback": "x", "score": 7.5}`,
		"score too low":    `{"feedback": "x", "score": 0}`,
		"score too high":   `{"feedback": "x", "score": 11}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFeedback(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnparseable))
		})
	}
}

func TestStripFencesLeavesPlainTextAlone(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}

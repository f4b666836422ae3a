package config

import (
	"os"
	"strconv"
	"time"

	"github.com/nextround/backend/internal/interview"
)

// InterviewConfig holds the interview engine tunables. The question budget
// and rubric wording were hard-coded inconsistently across earlier route
// versions; both are configuration now.
type InterviewConfig struct {
	QuestionBudget int           // questions per session
	Rubric         string        // evaluation instruction sent to the model
	LLMTimeout     time.Duration // per-call completion deadline
}

func LoadInterviewConfig() InterviewConfig {
	cfg := InterviewConfig{
		QuestionBudget: 5,
		Rubric:         interview.DefaultRubric,
		LLMTimeout:     60 * time.Second,
	}

	if v := os.Getenv("INTERVIEW_QUESTION_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QuestionBudget = n
		}
	}
	if v := os.Getenv("INTERVIEW_RUBRIC"); v != "" {
		cfg.Rubric = v
	}
	if v := os.Getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLMTimeout = time.Duration(n) * time.Second
		}
	}
	return cfg
}

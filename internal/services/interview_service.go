package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/nextround/backend/config"
	"github.com/nextround/backend/internal/interview"
	"github.com/nextround/backend/internal/models"
	"github.com/nextround/backend/internal/providers/llm"
	pgrepo "github.com/nextround/backend/internal/repositories/postgres"
	"github.com/nextround/backend/internal/utils"
)

// AnswerResult is what the candidate gets back after an evaluated answer.
type AnswerResult struct {
	Feedback      string  `json:"feedback"`
	Score         int     `json:"score"`
	AvgScore      float64 `json:"avg_score"`
	QuestionsLeft int     `json:"questions_left"`
}

// InterviewService owns the session lifecycle: question generation, answer
// evaluation, and the terminal transitions. Sessions are independent; all
// state lives in the store between requests.
type InterviewService interface {
	Start(ctx context.Context, userID, position, level, typ string, technologies []string) (*models.InterviewSession, error)
	Get(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error)
	List(ctx context.Context, userID string) ([]models.InterviewSession, error)
	Questions(ctx context.Context, userID, sessionID string) ([]models.Question, error)
	NextQuestion(ctx context.Context, userID, sessionID string) (*models.Question, error)
	SubmitAnswer(ctx context.Context, userID, sessionID, questionID, answer string) (*AnswerResult, error)
	Stop(ctx context.Context, userID, sessionID string) error
	Delete(ctx context.Context, userID, sessionID string) error
}

type interviewService struct {
	interviews pgrepo.InterviewRepository
	users      pgrepo.UserRepository
	provider   llm.Provider
	cfg        config.InterviewConfig
}

func NewInterviewService(interviews pgrepo.InterviewRepository, users pgrepo.UserRepository, provider llm.Provider, cfg config.InterviewConfig) InterviewService {
	return &interviewService{interviews: interviews, users: users, provider: provider, cfg: cfg}
}

func (s *interviewService) Start(ctx context.Context, userID, position, level, typ string, technologies []string) (*models.InterviewSession, error) {
	const op = "InterviewService.Start"

	if userID == "" || position == "" || level == "" || typ == "" || len(technologies) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "position, level, type, and technologies are required", nil)
	}

	now := time.Now().UTC()
	sess := &models.InterviewSession{
		ID:            uuid.NewString(),
		UserID:        userID,
		Position:      position,
		Level:         level,
		Type:          typ,
		QuestionsLeft: s.cfg.QuestionBudget,
		StartTime:     now,
	}
	for _, name := range technologies {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		sess.Technologies = append(sess.Technologies, models.Technology{
			ID:        uuid.NewString(),
			Name:      name,
			SessionID: sess.ID,
			UserID:    userID,
		})
	}
	if len(sess.Technologies) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "technologies are required", nil)
	}

	if err := s.interviews.CreateSession(ctx, sess); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create interview session", err)
	}
	return sess, nil
}

func (s *interviewService) Get(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	const op = "InterviewService.Get"
	return s.ownedSession(ctx, op, userID, sessionID)
}

func (s *interviewService) List(ctx context.Context, userID string) ([]models.InterviewSession, error) {
	const op = "InterviewService.List"

	rows, err := s.interviews.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list interview sessions", err)
	}
	return rows, nil
}

func (s *interviewService) Questions(ctx context.Context, userID, sessionID string) ([]models.Question, error) {
	const op = "InterviewService.Questions"

	if _, err := s.ownedSession(ctx, op, userID, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.interviews.ListQuestions(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list questions", err)
	}
	return rows, nil
}

// NextQuestion runs the question generation step. Guards run in a fixed
// order, each a distinct failure; the provider call happens before any write
// so a failed call leaves the session untouched.
func (s *interviewService) NextQuestion(ctx context.Context, userID, sessionID string) (*models.Question, error) {
	const op = "InterviewService.NextQuestion"

	sess, err := s.ownedSession(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Ended() {
		return nil, utils.E(utils.CodeSessionEnded, op, "interview session has ended", nil)
	}
	if sess.QuestionsLeft <= 0 {
		// terminal business condition: auto-stop the session
		if err := s.interviews.EndSession(ctx, sessionID, time.Now().UTC()); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to end exhausted session", err)
		}
		return nil, utils.E(utils.CodeBudgetExhausted, op, "you have hit your question limit for this session", nil)
	}

	last, err := s.interviews.LatestQuestion(ctx, sessionID)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to load latest question", err)
	}
	if last != nil && last.Answer == nil {
		return nil, utils.E(utils.CodePendingAnswer, op, "the last question needs to be answered first", nil)
	}

	persona, err := s.persona(ctx, op, userID, sess)
	if err != nil {
		return nil, err
	}

	var turns []llm.Turn
	if last == nil {
		turns = interview.IntroductionTurns(persona)
	} else {
		turns = interview.ContinuationTurns(persona, last.Question)
	}

	text, err := s.complete(ctx, op, turns)
	if err != nil {
		return nil, err
	}

	q := &models.Question{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Question:  text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.interviews.InsertQuestion(ctx, q); err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrNoBudget):
			// a concurrent request spent the last slot
			_ = s.interviews.EndSession(ctx, sessionID, time.Now().UTC())
			return nil, utils.E(utils.CodeBudgetExhausted, op, "you have hit your question limit for this session", nil)
		case errors.Is(err, pgrepo.ErrPendingAnswer):
			return nil, utils.E(utils.CodePendingAnswer, op, "the last question needs to be answered first", nil)
		default:
			return nil, utils.E(utils.CodeInternal, op, "failed to save question", err)
		}
	}
	return q, nil
}

// SubmitAnswer runs the answer evaluation step. Nothing is persisted until
// the provider output has been parsed successfully; a parse failure leaves
// the question unanswered so the candidate can resubmit.
func (s *interviewService) SubmitAnswer(ctx context.Context, userID, sessionID, questionID, answer string) (*AnswerResult, error) {
	const op = "InterviewService.SubmitAnswer"

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "answer is required", nil)
	}
	if questionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "question_id is required", nil)
	}

	sess, err := s.ownedSession(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Ended() {
		return nil, utils.E(utils.CodeSessionEnded, op, "interview session has ended", nil)
	}

	q, err := s.interviews.GetQuestion(ctx, questionID, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "question not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load question", err)
	}
	if q.Answer != nil {
		return nil, utils.E(utils.CodeConflict, op, "question has already been answered", nil)
	}

	persona, err := s.persona(ctx, op, userID, sess)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, op, interview.EvaluationTurns(persona, q.Question, s.cfg.Rubric, answer))
	if err != nil {
		return nil, err
	}

	fb, err := interview.ParseFeedback(raw)
	if err != nil {
		return nil, utils.E(utils.CodeParseFailure, op, "could not parse the evaluation result, please resubmit", err)
	}

	payload, _ := json.Marshal(fb)
	resp := &models.Response{
		ID:         uuid.NewString(),
		QuestionID: q.ID,
		SessionID:  sessionID,
		Feedback:   fb.Feedback,
		Score:      int(fb.Score),
		Raw:        datatypes.JSON(payload),
		CreatedAt:  time.Now().UTC(),
	}

	avg, err := s.interviews.SaveEvaluation(ctx, q.ID, answer, resp)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAlreadyAnswered) {
			return nil, utils.E(utils.CodeConflict, op, "question has already been answered", nil)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to save evaluation", err)
	}

	return &AnswerResult{
		Feedback:      fb.Feedback,
		Score:         int(fb.Score),
		AvgScore:      avg,
		QuestionsLeft: sess.QuestionsLeft,
	}, nil
}

// Stop is idempotent: stopping an already-terminal session succeeds without
// effect.
func (s *interviewService) Stop(ctx context.Context, userID, sessionID string) error {
	const op = "InterviewService.Stop"

	if _, err := s.ownedSession(ctx, op, userID, sessionID); err != nil {
		return err
	}
	if err := s.interviews.EndSession(ctx, sessionID, time.Now().UTC()); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to stop interview session", err)
	}
	return nil
}

func (s *interviewService) Delete(ctx context.Context, userID, sessionID string) error {
	const op = "InterviewService.Delete"

	if err := s.interviews.DeleteSession(ctx, sessionID, userID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "interview session not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete interview session", err)
	}
	return nil
}

func (s *interviewService) ownedSession(ctx context.Context, op, userID, sessionID string) (*models.InterviewSession, error) {
	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	sess, err := s.interviews.GetSessionForUser(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load interview session", err)
	}
	return sess, nil
}

func (s *interviewService) persona(ctx context.Context, op, userID string, sess *models.InterviewSession) (interview.Persona, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return interview.Persona{}, utils.E(utils.CodeInternal, op, "failed to load candidate", err)
	}
	techs := make([]string, 0, len(sess.Technologies))
	for _, t := range sess.Technologies {
		techs = append(techs, t.Name)
	}
	return interview.Persona{
		CandidateName: user.Firstname,
		Position:      sess.Position,
		Level:         sess.Level,
		Type:          sess.Type,
		Technologies:  techs,
	}, nil
}

// complete invokes the provider under the configured deadline. A timeout or
// empty result is a generation failure, never a hang and never partial state.
func (s *interviewService) complete(ctx context.Context, op string, turns []llm.Turn) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
	defer cancel()

	text, err := s.provider.Complete(cctx, turns)
	if err != nil {
		return "", utils.E(utils.CodeGenerationFailed, op, "question generation failed, please retry", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", utils.E(utils.CodeGenerationFailed, op, "question generation returned no text, please retry", nil)
	}
	return text, nil
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nextround/backend/config"
	"github.com/nextround/backend/internal/interview"
	"github.com/nextround/backend/internal/models"
	"github.com/nextround/backend/internal/providers/llm"
	pgrepo "github.com/nextround/backend/internal/repositories/postgres"
	"github.com/nextround/backend/internal/utils"
)

// scriptedProvider returns canned outputs in order, repeating the last one
// once the script runs out.
type scriptedProvider struct {
	outputs []string
	err     error
	calls   int
}

func (p *scriptedProvider) Complete(_ context.Context, _ []llm.Turn) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if len(p.outputs) == 0 {
		return "What is a goroutine?", nil
	}
	out := p.outputs[0]
	if len(p.outputs) > 1 {
		p.outputs = p.outputs[1:]
	}
	return out, nil
}

func (p *scriptedProvider) Close() error { return nil }

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.InterviewSession{},
		&models.Technology{},
		&models.Question{},
		&models.Response{},
	))
	return db
}

type interviewFixture struct {
	svc      InterviewService
	repo     pgrepo.InterviewRepository
	provider *scriptedProvider
	userID   string
}

func newInterviewFixture(t *testing.T, budget int, provider *scriptedProvider) *interviewFixture {
	t.Helper()

	db := testDB(t)
	users := pgrepo.NewUserRepo(db)
	interviews := pgrepo.NewInterviewRepo(db)

	user := &models.User{
		ID:                uuid.NewString(),
		Firstname:         "Dana",
		Username:          "dana",
		Email:             "dana@example.com",
		IsAccountVerified: true,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, users.Create(context.Background(), user))

	cfg := config.InterviewConfig{
		QuestionBudget: budget,
		Rubric:         interview.DefaultRubric,
		LLMTimeout:     5 * time.Second,
	}
	return &interviewFixture{
		svc:      NewInterviewService(interviews, users, provider, cfg),
		repo:     interviews,
		provider: provider,
		userID:   user.ID,
	}
}

func (f *interviewFixture) startSession(t *testing.T) *models.InterviewSession {
	t.Helper()
	sess, err := f.svc.Start(context.Background(), f.userID, "Backend Engineer", "mid", "technical", []string{"Go", "PostgreSQL"})
	require.NoError(t, err)
	return sess
}

func TestStartSession(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{})

	sess := f.startSession(t)
	assert.Equal(t, 5, sess.QuestionsLeft)
	assert.Nil(t, sess.AvgScore)
	assert.Nil(t, sess.EndTime)
	assert.Len(t, sess.Technologies, 2)
}

func TestStartSessionValidation(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{})

	_, err := f.svc.Start(context.Background(), f.userID, "", "mid", "technical", []string{"Go"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = f.svc.Start(context.Background(), f.userID, "SRE", "mid", "technical", nil)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = f.svc.Start(context.Background(), f.userID, "SRE", "mid", "technical", []string{"  "})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestNextQuestionGenerates(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{outputs: []string{"Hi Dana, what is a channel?"}})
	sess := f.startSession(t)

	q, err := f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi Dana, what is a channel?", q.Question)
	assert.Nil(t, q.Answer)

	got, err := f.svc.Get(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.QuestionsLeft)
}

func TestNextQuestionBlockedWhilePending(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{})
	sess := f.startSession(t)

	_, err := f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)

	_, err = f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	assert.True(t, utils.IsCode(err, utils.CodePendingAnswer))

	// no budget was spent on the rejected call
	got, err := f.svc.Get(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.QuestionsLeft)
}

func TestSubmitAnswerAndAverage(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{outputs: []string{
		"First question?",
		`{"feedback": "Strong structure.", "score": 8}`,
		"Second question?",
		"```json\n{\"feedback\": \"A bit thin.\", \"score\": 6}\n```",
	}})
	sess := f.startSession(t)

	q1, err := f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)

	res, err := f.svc.SubmitAnswer(context.Background(), f.userID, sess.ID, q1.ID, "In my last role...")
	require.NoError(t, err)
	assert.Equal(t, "Strong structure.", res.Feedback)
	assert.Equal(t, 8, res.Score)
	assert.InDelta(t, 80.0, res.AvgScore, 0.001)

	q2, err := f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)

	res, err = f.svc.SubmitAnswer(context.Background(), f.userID, sess.ID, q2.ID, "I would use...")
	require.NoError(t, err)
	assert.Equal(t, 6, res.Score)
	assert.InDelta(t, 70.0, res.AvgScore, 0.001)

	got, err := f.svc.Get(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AvgScore)
	assert.InDelta(t, 70.0, *got.AvgScore, 0.001)
}

func TestSubmitAnswerTwiceConflicts(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{outputs: []string{
		"Question?",
		`{"feedback": "ok", "score": 7}`,
	}})
	sess := f.startSession(t)

	q, err := f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)

	_, err = f.svc.SubmitAnswer(context.Background(), f.userID, sess.ID, q.ID, "answer")
	require.NoError(t, err)

	_, err = f.svc.SubmitAnswer(context.Background(), f.userID, sess.ID, q.ID, "another answer")
	assert.True(t, utils.IsCode(err, utils.CodeConflict))
}

func TestBudgetExhaustionEndsSession(t *testing.T) {
	f := newInterviewFixture(t, 1, &scriptedProvider{outputs: []string{
		"Only question?",
		`{"feedback": "done", "score": 10}`,
	}})
	sess := f.startSession(t)

	q, err := f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitAnswer(context.Background(), f.userID, sess.ID, q.ID, "answer")
	require.NoError(t, err)

	_, err = f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	assert.True(t, utils.IsCode(err, utils.CodeBudgetExhausted))

	got, err := f.svc.Get(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Ended())

	// once terminal, every mutation reports the ended state
	_, err = f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	assert.True(t, utils.IsCode(err, utils.CodeSessionEnded))
	_, err = f.svc.SubmitAnswer(context.Background(), f.userID, sess.ID, q.ID, "late answer")
	assert.True(t, utils.IsCode(err, utils.CodeSessionEnded))
}

func TestGenerationFailureLeavesSessionUntouched(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{err: errors.New("upstream down")})
	sess := f.startSession(t)

	_, err := f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	assert.True(t, utils.IsCode(err, utils.CodeGenerationFailed))

	got, err := f.svc.Get(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.QuestionsLeft)

	qs, err := f.svc.Questions(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestParseFailureAllowsResubmit(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{outputs: []string{
		"Question?",
		"I think the candidate did quite well overall.",
		`{"feedback": "retry worked", "score": 9}`,
	}})
	sess := f.startSession(t)

	q, err := f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)

	_, err = f.svc.SubmitAnswer(context.Background(), f.userID, sess.ID, q.ID, "answer")
	assert.True(t, utils.IsCode(err, utils.CodeParseFailure))

	// nothing was persisted, so the same question accepts a resubmission
	res, err := f.svc.SubmitAnswer(context.Background(), f.userID, sess.ID, q.ID, "answer")
	require.NoError(t, err)
	assert.Equal(t, 9, res.Score)
	assert.Equal(t, "retry worked", res.Feedback)
}

func TestStopIsIdempotent(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{})
	sess := f.startSession(t)

	require.NoError(t, f.svc.Stop(context.Background(), f.userID, sess.ID))
	require.NoError(t, f.svc.Stop(context.Background(), f.userID, sess.ID))

	got, err := f.svc.Get(context.Background(), f.userID, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Ended())

	_, err = f.svc.NextQuestion(context.Background(), f.userID, sess.ID)
	assert.True(t, utils.IsCode(err, utils.CodeSessionEnded))
}

func TestSessionOwnership(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{})
	sess := f.startSession(t)

	stranger := uuid.NewString()
	_, err := f.svc.Get(context.Background(), stranger, sess.ID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	_, err = f.svc.NextQuestion(context.Background(), stranger, sess.ID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	err = f.svc.Delete(context.Background(), stranger, sess.ID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestDeleteSession(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{})
	sess := f.startSession(t)

	require.NoError(t, f.svc.Delete(context.Background(), f.userID, sess.ID))

	_, err := f.svc.Get(context.Background(), f.userID, sess.ID)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestListSessions(t *testing.T) {
	f := newInterviewFixture(t, 5, &scriptedProvider{})
	f.startSession(t)
	f.startSession(t)

	rows, err := f.svc.List(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

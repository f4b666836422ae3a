package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nextround/backend/internal/models"
	"github.com/nextround/backend/internal/utils"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// a single connection keeps the in-memory database alive across queries
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

func seedSession(t *testing.T, repo InterviewRepository, userID string, budget int) *models.InterviewSession {
	t.Helper()

	sess := &models.InterviewSession{
		ID:            uuid.NewString(),
		UserID:        userID,
		Position:      "Backend Engineer",
		Level:         "mid",
		Type:          "technical",
		QuestionsLeft: budget,
		StartTime:     time.Now().UTC(),
		Technologies: []models.Technology{
			{ID: uuid.NewString(), Name: "Go", UserID: userID},
		},
	}
	sess.Technologies[0].SessionID = sess.ID
	require.NoError(t, repo.CreateSession(context.Background(), sess))
	return sess
}

func seedQuestion(t *testing.T, repo InterviewRepository, sess *models.InterviewSession, at time.Time) *models.Question {
	t.Helper()

	q := &models.Question{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Question:  "Tell me about a project you are proud of.",
		CreatedAt: at,
	}
	require.NoError(t, repo.InsertQuestion(context.Background(), q))
	return q
}

func answerQuestion(t *testing.T, repo InterviewRepository, sess *models.InterviewSession, q *models.Question, score int) float64 {
	t.Helper()

	avg, err := repo.SaveEvaluation(context.Background(), q.ID, "my answer", &models.Response{
		ID:         uuid.NewString(),
		QuestionID: q.ID,
		SessionID:  sess.ID,
		Feedback:   "good",
		Score:      score,
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	return avg
}

func TestInsertQuestionDecrementsBudget(t *testing.T) {
	repo := NewInterviewRepo(testDB(t))
	sess := seedSession(t, repo, uuid.NewString(), 3)

	seedQuestion(t, repo, sess, time.Now().UTC())

	got, err := repo.GetSessionForUser(context.Background(), sess.ID, sess.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QuestionsLeft)
}

func TestInsertQuestionBlockedByPendingAnswer(t *testing.T) {
	repo := NewInterviewRepo(testDB(t))
	sess := seedSession(t, repo, uuid.NewString(), 3)

	now := time.Now().UTC()
	seedQuestion(t, repo, sess, now)

	err := repo.InsertQuestion(context.Background(), &models.Question{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Question:  "another one",
		CreatedAt: now.Add(time.Second),
	})
	require.ErrorIs(t, err, ErrPendingAnswer)

	// the rejected insert must not burn budget
	got, err := repo.GetSessionForUser(context.Background(), sess.ID, sess.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QuestionsLeft)
}

func TestInsertQuestionBlockedByBudget(t *testing.T) {
	repo := NewInterviewRepo(testDB(t))
	sess := seedSession(t, repo, uuid.NewString(), 1)

	q := seedQuestion(t, repo, sess, time.Now().UTC())
	answerQuestion(t, repo, sess, q, 7)

	err := repo.InsertQuestion(context.Background(), &models.Question{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Question:  "one too many",
		CreatedAt: time.Now().UTC().Add(time.Second),
	})
	assert.ErrorIs(t, err, ErrNoBudget)
}

func TestInsertQuestionBlockedByEndedSession(t *testing.T) {
	repo := NewInterviewRepo(testDB(t))
	sess := seedSession(t, repo, uuid.NewString(), 3)

	require.NoError(t, repo.EndSession(context.Background(), sess.ID, time.Now().UTC()))

	err := repo.InsertQuestion(context.Background(), &models.Question{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Question:  "after the end",
		CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ErrNoBudget)
}

func TestSaveEvaluationRecomputesAverage(t *testing.T) {
	repo := NewInterviewRepo(testDB(t))
	sess := seedSession(t, repo, uuid.NewString(), 5)

	now := time.Now().UTC()
	q1 := seedQuestion(t, repo, sess, now)
	avg := answerQuestion(t, repo, sess, q1, 8)
	assert.InDelta(t, 80.0, avg, 0.001)

	q2 := seedQuestion(t, repo, sess, now.Add(time.Second))
	avg = answerQuestion(t, repo, sess, q2, 6)
	assert.InDelta(t, 70.0, avg, 0.001)

	got, err := repo.GetSessionForUser(context.Background(), sess.ID, sess.UserID)
	require.NoError(t, err)
	require.NotNil(t, got.AvgScore)
	assert.InDelta(t, 70.0, *got.AvgScore, 0.001)
}

func TestSaveEvaluationRejectsSecondAnswer(t *testing.T) {
	repo := NewInterviewRepo(testDB(t))
	sess := seedSession(t, repo, uuid.NewString(), 5)

	q := seedQuestion(t, repo, sess, time.Now().UTC())
	answerQuestion(t, repo, sess, q, 9)

	_, err := repo.SaveEvaluation(context.Background(), q.ID, "second try", &models.Response{
		ID:         uuid.NewString(),
		QuestionID: q.ID,
		SessionID:  sess.ID,
		Feedback:   "again",
		Score:      2,
		CreatedAt:  time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	// the first evaluation survives untouched
	got, err := repo.GetSessionForUser(context.Background(), sess.ID, sess.UserID)
	require.NoError(t, err)
	require.NotNil(t, got.AvgScore)
	assert.InDelta(t, 90.0, *got.AvgScore, 0.001)
}

func TestEndSessionIdempotent(t *testing.T) {
	repo := NewInterviewRepo(testDB(t))
	sess := seedSession(t, repo, uuid.NewString(), 5)

	first := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.EndSession(context.Background(), sess.ID, first))
	require.NoError(t, repo.EndSession(context.Background(), sess.ID, first.Add(time.Hour)))

	got, err := repo.GetSessionForUser(context.Background(), sess.ID, sess.UserID)
	require.NoError(t, err)
	require.NotNil(t, got.EndTime)
	assert.WithinDuration(t, first, *got.EndTime, time.Millisecond)
}

func TestDeleteSessionCascades(t *testing.T) {
	db := testDB(t)
	repo := NewInterviewRepo(db)
	sess := seedSession(t, repo, uuid.NewString(), 5)

	q := seedQuestion(t, repo, sess, time.Now().UTC())
	answerQuestion(t, repo, sess, q, 5)

	require.NoError(t, repo.DeleteSession(context.Background(), sess.ID, sess.UserID))

	_, err := repo.GetSessionForUser(context.Background(), sess.ID, sess.UserID)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&models.Question{}).Where("session_id = ?", sess.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Response{}).Where("session_id = ?", sess.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Technology{}).Where("session_id = ?", sess.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDeleteSessionWrongUser(t *testing.T) {
	repo := NewInterviewRepo(testDB(t))
	sess := seedSession(t, repo, uuid.NewString(), 5)

	err := repo.DeleteSession(context.Background(), sess.ID, uuid.NewString())
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestUserStats(t *testing.T) {
	repo := NewInterviewRepo(testDB(t))
	userID := uuid.NewString()

	s1 := seedSession(t, repo, userID, 5)
	q := seedQuestion(t, repo, s1, time.Now().UTC())
	answerQuestion(t, repo, s1, q, 8)
	seedSession(t, repo, userID, 5)

	sessions, total, err := repo.UserStats(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sessions)
	assert.InDelta(t, 80.0, total, 0.001)
}

package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/nextround/backend/internal/models"
	"github.com/nextround/backend/internal/utils"
)

// Store-level outcomes of the guarded interview writes. The service maps
// these onto the user-facing error taxonomy.
var (
	ErrNoBudget        = errors.New("no remaining question budget")
	ErrPendingAnswer   = errors.New("latest question is unanswered")
	ErrAlreadyAnswered = errors.New("question already answered")
)

type InterviewRepository interface {
	CreateSession(ctx context.Context, s *models.InterviewSession) error
	GetSessionForUser(ctx context.Context, sessionID, userID string) (*models.InterviewSession, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]models.InterviewSession, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
	EndSession(ctx context.Context, sessionID string, at time.Time) error

	LatestQuestion(ctx context.Context, sessionID string) (*models.Question, error)
	GetQuestion(ctx context.Context, questionID, sessionID string) (*models.Question, error)
	ListQuestions(ctx context.Context, sessionID string) ([]models.Question, error)
	InsertQuestion(ctx context.Context, q *models.Question) error

	SaveEvaluation(ctx context.Context, questionID, answer string, resp *models.Response) (avg float64, err error)

	UserStats(ctx context.Context, userID string) (sessions int64, totalScore float64, err error)
}

type interviewRepo struct {
	db *gorm.DB
}

func NewInterviewRepo(db *gorm.DB) InterviewRepository {
	return &interviewRepo{db: db}
}

func (r *interviewRepo) CreateSession(ctx context.Context, s *models.InterviewSession) error {
	// Technologies ride along via the association.
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *interviewRepo) GetSessionForUser(ctx context.Context, sessionID, userID string) (*models.InterviewSession, error) {
	var s models.InterviewSession
	err := r.db.WithContext(ctx).
		Preload("Technologies").
		Where("id = ? AND user_id = ?", sessionID, userID).
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *interviewRepo) ListSessionsByUser(ctx context.Context, userID string) ([]models.InterviewSession, error) {
	var rows []models.InterviewSession
	err := r.db.WithContext(ctx).
		Preload("Technologies").
		Where("user_id = ?", userID).
		Order("start_time DESC").
		Find(&rows).Error
	return rows, err
}

func (r *interviewRepo) DeleteSession(ctx context.Context, sessionID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", sessionID, userID).
			Delete(&models.InterviewSession{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrNotFound
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.Response{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sessionID).Delete(&models.Technology{}).Error
	})
}

// EndSession marks the session terminal. Already-ended sessions are left
// untouched, which makes stop idempotent.
func (r *interviewRepo) EndSession(ctx context.Context, sessionID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ? AND end_time IS NULL", sessionID).
		UpdateColumn("end_time", at).Error
}

func (r *interviewRepo) LatestQuestion(ctx context.Context, sessionID string) (*models.Question, error) {
	var q models.Question
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(1).
		Take(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &q, err
}

func (r *interviewRepo) GetQuestion(ctx context.Context, questionID, sessionID string) (*models.Question, error) {
	var q models.Question
	err := r.db.WithContext(ctx).
		Where("id = ? AND session_id = ?", questionID, sessionID).
		Take(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &q, err
}

func (r *interviewRepo) ListQuestions(ctx context.Context, sessionID string) ([]models.Question, error) {
	var rows []models.Question
	err := r.db.WithContext(ctx).
		Preload("Response").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// InsertQuestion applies the budget decrement and the question insert as one
// transaction. The guarded decrement runs first: besides enforcing the
// budget, its row write serializes concurrent generators for the same
// session, so the pending-answer re-check that follows cannot race.
func (r *interviewRepo) InsertQuestion(ctx context.Context, q *models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.InterviewSession{}).
			Where("id = ? AND questions_left > 0 AND end_time IS NULL", q.SessionID).
			UpdateColumn("questions_left", gorm.Expr("questions_left - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoBudget
		}

		var last models.Question
		err := tx.Where("session_id = ?", q.SessionID).
			Order("created_at DESC").
			Limit(1).
			Take(&last).Error
		if err == nil && last.Answer == nil {
			return ErrPendingAnswer
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(q).Error
	})
}

// SaveEvaluation sets the answer, inserts the response, and overwrites the
// session average with a fresh aggregate, all in one transaction. The
// average is recomputed from the responses table, never patched
// incrementally.
func (r *interviewRepo) SaveEvaluation(ctx context.Context, questionID, answer string, resp *models.Response) (float64, error) {
	var avg float64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Question{}).
			Where("id = ? AND answer IS NULL", questionID).
			UpdateColumn("answer", answer)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyAnswered
		}

		if err := tx.Create(resp).Error; err != nil {
			return err
		}

		var agg struct {
			Total int64
			N     int64
		}
		if err := tx.Model(&models.Response{}).
			Select("COALESCE(SUM(score), 0) AS total, COUNT(*) AS n").
			Where("session_id = ?", resp.SessionID).
			Scan(&agg).Error; err != nil {
			return err
		}
		avg = float64(agg.Total) / (float64(agg.N) * 10) * 100

		return tx.Model(&models.InterviewSession{}).
			Where("id = ?", resp.SessionID).
			UpdateColumn("avg_score", avg).Error
	})
	return avg, err
}

func (r *interviewRepo) UserStats(ctx context.Context, userID string) (int64, float64, error) {
	var agg struct {
		N     int64
		Total float64
	}
	err := r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Select("COUNT(*) AS n, COALESCE(SUM(avg_score), 0) AS total").
		Where("user_id = ?", userID).
		Scan(&agg).Error
	return agg.N, agg.Total, err
}

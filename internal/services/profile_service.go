package services

import (
	"context"
	"errors"
	"time"

	"github.com/nextround/backend/internal/cache"
	mongorepo "github.com/nextround/backend/internal/repositories/mongo"
	pgrepo "github.com/nextround/backend/internal/repositories/postgres"
	"github.com/nextround/backend/internal/utils"
)

const profileCacheTTL = 60 * time.Second

// ProfileSummary is the aggregate view shown on the profile page.
type ProfileSummary struct {
	Firstname         string  `json:"firstname"`
	Lastname          string  `json:"lastname"`
	Username          string  `json:"username"`
	Email             string  `json:"email"`
	PhoneNumber       string  `json:"phone_number"`
	IsAccountVerified bool    `json:"is_account_verified"`
	Posts             int64   `json:"posts"`
	Answers           int64   `json:"answers"`
	MockInterviews    int64   `json:"mock_interviews"`
	TotalScore        float64 `json:"total_score"`
}

type ProfileService interface {
	Summary(ctx context.Context, userID string) (*ProfileSummary, error)
}

type profileService struct {
	users      pgrepo.UserRepository
	interviews pgrepo.InterviewRepository
	posts      mongorepo.PostRepository
	cache      cache.Cache
}

func NewProfileService(users pgrepo.UserRepository, interviews pgrepo.InterviewRepository, posts mongorepo.PostRepository, c cache.Cache) ProfileService {
	return &profileService{users: users, interviews: interviews, posts: posts, cache: c}
}

func (s *profileService) Summary(ctx context.Context, userID string) (*ProfileSummary, error) {
	const op = "ProfileService.Summary"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	cacheKey := "profile:" + userID
	if s.cache != nil {
		var cached ProfileSummary
		if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}

	sessions, totalScore, err := s.interviews.UserStats(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load interview stats", err)
	}
	postCount, err := s.posts.CountPostsByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count posts", err)
	}
	answerCount, err := s.posts.CountAnswersByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count answers", err)
	}

	out := &ProfileSummary{
		Firstname:         user.Firstname,
		Lastname:          user.Lastname,
		Username:          user.Username,
		Email:             user.Email,
		PhoneNumber:       user.PhoneNumber,
		IsAccountVerified: user.IsAccountVerified,
		Posts:             postCount,
		Answers:           answerCount,
		MockInterviews:    sessions,
		TotalScore:        totalScore,
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, cacheKey, out, profileCacheTTL)
	}
	return out, nil
}

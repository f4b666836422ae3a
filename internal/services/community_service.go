package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/nextround/backend/internal/models"
	mongorepo "github.com/nextround/backend/internal/repositories/mongo"
	pgrepo "github.com/nextround/backend/internal/repositories/postgres"
	"github.com/nextround/backend/internal/utils"
)

const answerMinLen = 20

// PostWithAnswers is the detail view of one community post.
type PostWithAnswers struct {
	Post    models.Post         `json:"post"`
	Answers []models.PostAnswer `json:"answers"`
}

type CommunityService interface {
	CreatePost(ctx context.Context, userID, title, content string, tags []string) (*models.Post, error)
	ListPosts(ctx context.Context, page, limit int) ([]models.Post, int64, error)
	GetPost(ctx context.Context, postID string) (*PostWithAnswers, error)
	DeletePost(ctx context.Context, userID, postID string) error
	ToggleLike(ctx context.Context, userID, postID string) (liked bool, err error)
	PostAnswer(ctx context.Context, userID, postID, answer string) (*models.PostAnswer, error)
	DeleteAnswer(ctx context.Context, userID, answerID string) error
	MyAnswers(ctx context.Context, userID string) ([]models.PostAnswer, error)
}

type communityService struct {
	posts mongorepo.PostRepository
	users pgrepo.UserRepository
}

func NewCommunityService(posts mongorepo.PostRepository, users pgrepo.UserRepository) CommunityService {
	return &communityService{posts: posts, users: users}
}

func (s *communityService) CreatePost(ctx context.Context, userID, title, content string, tags []string) (*models.Post, error) {
	const op = "CommunityService.CreatePost"

	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title and content are required", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}

	post := &models.Post{
		PostID:  uuid.NewString(),
		UserID:  userID,
		Author:  user.Firstname,
		Title:   title,
		Content: content,
		Tags:    tags,
		Likes:   []string{},
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create post", err)
	}
	return post, nil
}

func (s *communityService) ListPosts(ctx context.Context, page, limit int) ([]models.Post, int64, error) {
	const op = "CommunityService.ListPosts"

	rows, total, err := s.posts.ListPosts(ctx, page, limit)
	if err != nil {
		return nil, 0, utils.E(utils.CodeInternal, op, "failed to list posts", err)
	}
	return rows, total, nil
}

func (s *communityService) GetPost(ctx context.Context, postID string) (*PostWithAnswers, error) {
	const op = "CommunityService.GetPost"

	if postID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "post_id is required", nil)
	}
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "post not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load post", err)
	}
	answers, err := s.posts.ListAnswersByPost(ctx, postID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load answers", err)
	}
	return &PostWithAnswers{Post: *post, Answers: answers}, nil
}

func (s *communityService) DeletePost(ctx context.Context, userID, postID string) error {
	const op = "CommunityService.DeletePost"

	if err := s.posts.DeletePost(ctx, postID, userID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "post not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete post", err)
	}
	return nil
}

func (s *communityService) ToggleLike(ctx context.Context, userID, postID string) (bool, error) {
	const op = "CommunityService.ToggleLike"

	if postID == "" {
		return false, utils.E(utils.CodeInvalidArgument, op, "post_id is required", nil)
	}
	liked, err := s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return false, utils.E(utils.CodeNotFound, op, "post not found", err)
		}
		return false, utils.E(utils.CodeInternal, op, "failed to toggle like", err)
	}
	return liked, nil
}

func (s *communityService) PostAnswer(ctx context.Context, userID, postID, answer string) (*models.PostAnswer, error) {
	const op = "CommunityService.PostAnswer"

	answer = strings.TrimSpace(answer)
	if postID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "post_id is required", nil)
	}
	if len(answer) < answerMinLen {
		return nil, utils.E(utils.CodeInvalidArgument, op, "answer needs a minimum of 20 characters", nil)
	}

	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "post not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load post", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}

	a := &models.PostAnswer{
		AnswerID: uuid.NewString(),
		PostID:   postID,
		UserID:   userID,
		Author:   user.Firstname,
		Answer:   answer,
	}
	if err := s.posts.CreateAnswer(ctx, a); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save answer", err)
	}
	return a, nil
}

func (s *communityService) DeleteAnswer(ctx context.Context, userID, answerID string) error {
	const op = "CommunityService.DeleteAnswer"

	if err := s.posts.DeleteAnswer(ctx, answerID, userID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "answer not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete answer", err)
	}
	return nil
}

func (s *communityService) MyAnswers(ctx context.Context, userID string) ([]models.PostAnswer, error) {
	const op = "CommunityService.MyAnswers"

	rows, err := s.posts.ListAnswersByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list answers", err)
	}
	return rows, nil
}

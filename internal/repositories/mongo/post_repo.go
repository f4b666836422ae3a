package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nextround/backend/internal/models"
	"github.com/nextround/backend/internal/utils"
)

type PostRepository interface {
	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	ListPosts(ctx context.Context, page, limit int) ([]models.Post, int64, error)
	DeletePost(ctx context.Context, postID, userID string) error
	ToggleLike(ctx context.Context, postID, userID string) (liked bool, err error)

	CreateAnswer(ctx context.Context, a *models.PostAnswer) error
	ListAnswersByPost(ctx context.Context, postID string) ([]models.PostAnswer, error)
	ListAnswersByUser(ctx context.Context, userID string) ([]models.PostAnswer, error)
	DeleteAnswer(ctx context.Context, answerID, userID string) error

	CountPostsByUser(ctx context.Context, userID string) (int64, error)
	CountAnswersByUser(ctx context.Context, userID string) (int64, error)
}

type postRepo struct {
	posts   *mongo.Collection
	answers *mongo.Collection
}

func NewPostRepo(db *mongo.Database) PostRepository {
	return &postRepo{
		posts:   db.Collection("posts"),
		answers: db.Collection("post_answers"),
	}
}

func (r *postRepo) CreatePost(ctx context.Context, p *models.Post) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	_, err := r.posts.InsertOne(ctx, p)
	return err
}

func (r *postRepo) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var p models.Post
	err := r.posts.FindOne(ctx, bson.M{"post_id": postID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *postRepo) ListPosts(ctx context.Context, page, limit int) ([]models.Post, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	total, err := r.posts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var rows []models.Post
	if err := cur.All(ctx, &rows); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *postRepo) DeletePost(ctx context.Context, postID, userID string) error {
	res, err := r.posts.DeleteOne(ctx, bson.M{"post_id": postID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return utils.ErrNotFound
	}
	_, err = r.answers.DeleteMany(ctx, bson.M{"post_id": postID})
	return err
}

// ToggleLike adds the user to the like set, or removes them if already
// present. $addToSet reports no modification for duplicates, which is how
// the unlike branch is detected.
func (r *postRepo) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	res, err := r.posts.UpdateOne(ctx,
		bson.M{"post_id": postID},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, utils.ErrNotFound
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	_, err = r.posts.UpdateOne(ctx,
		bson.M{"post_id": postID},
		bson.M{"$pull": bson.M{"likes": userID}},
	)
	return false, err
}

func (r *postRepo) CreateAnswer(ctx context.Context, a *models.PostAnswer) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.answers.InsertOne(ctx, a)
	return err
}

func (r *postRepo) ListAnswersByPost(ctx context.Context, postID string) ([]models.PostAnswer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.answers.Find(ctx, bson.M{"post_id": postID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.PostAnswer
	err = cur.All(ctx, &rows)
	return rows, err
}

func (r *postRepo) ListAnswersByUser(ctx context.Context, userID string) ([]models.PostAnswer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.answers.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.PostAnswer
	err = cur.All(ctx, &rows)
	return rows, err
}

func (r *postRepo) DeleteAnswer(ctx context.Context, answerID, userID string) error {
	res, err := r.answers.DeleteOne(ctx, bson.M{"answer_id": answerID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *postRepo) CountPostsByUser(ctx context.Context, userID string) (int64, error) {
	return r.posts.CountDocuments(ctx, bson.M{"user_id": userID})
}

func (r *postRepo) CountAnswersByUser(ctx context.Context, userID string) (int64, error) {
	return r.answers.CountDocuments(ctx, bson.M{"user_id": userID})
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a community board question. Likes holds the user ids that liked the
// post; a like is a toggle per user.
type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID    string             `bson:"post_id" json:"post_id"` // uuid v4
	UserID    string             `bson:"user_id" json:"user_id"`
	Author    string             `bson:"author" json:"author"` // firstname at posting time
	Title     string             `bson:"title" json:"title"`
	Content   string             `bson:"content" json:"content"`
	Tags      []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Likes     []string           `bson:"likes" json:"likes"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type PostAnswer struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AnswerID  string             `bson:"answer_id" json:"answer_id"` // uuid v4
	PostID    string             `bson:"post_id" json:"post_id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Author    string             `bson:"author" json:"author"`
	Answer    string             `bson:"answer" json:"answer"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

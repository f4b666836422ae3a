package models

import (
	"time"

	"gorm.io/datatypes"
)

// InterviewSession is one mock-interview run. QuestionsLeft is the remaining
// question budget; it only ever decreases. EndTime set means the session is
// terminal: no further questions or answers are accepted.
type InterviewSession struct {
	ID            string       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID        string       `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Position      string       `gorm:"column:position;type:text" json:"position"`
	Level         string       `gorm:"column:level;type:text" json:"level"`
	Type          string       `gorm:"column:type;type:text" json:"type"` // technical|behavioral
	QuestionsLeft int          `gorm:"column:questions_left" json:"questions_left"`
	AvgScore      *float64     `gorm:"column:avg_score" json:"avg_score"` // 0-100, nil until first scored answer
	StartTime     time.Time    `gorm:"column:start_time" json:"start_time"`
	EndTime       *time.Time   `gorm:"column:end_time" json:"end_time"`
	Technologies  []Technology `gorm:"foreignKey:SessionID" json:"technologies,omitempty"`
	Questions     []Question   `gorm:"foreignKey:SessionID" json:"questions,omitempty"`
}

func (InterviewSession) TableName() string { return "interview_sessions" }

// Ended reports whether the session is in a terminal state.
func (s *InterviewSession) Ended() bool { return s.EndTime != nil }

type Technology struct {
	ID        string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string `gorm:"column:name;type:text" json:"name"`
	SessionID string `gorm:"column:session_id;type:uuid;index" json:"session_id"`
	UserID    string `gorm:"column:user_id;type:uuid" json:"user_id"`
}

func (Technology) TableName() string { return "technologies" }

// Question holds one generated interview question. Answer stays nil until the
// candidate submits; at most one unanswered question exists per session.
type Question struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID string    `gorm:"column:session_id;type:uuid;index" json:"session_id"`
	UserID    string    `gorm:"column:user_id;type:uuid" json:"user_id"`
	Question  string    `gorm:"column:question;type:text" json:"question"`
	Answer    *string   `gorm:"column:answer;type:text" json:"answer"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	Response  *Response `gorm:"foreignKey:QuestionID" json:"response,omitempty"`
}

func (Question) TableName() string { return "questions" }

// Response is the scored feedback for an answered question. The unique index
// on question_id enforces one response per question at the store layer.
type Response struct {
	ID         string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	QuestionID string         `gorm:"column:question_id;type:uuid;uniqueIndex" json:"question_id"`
	SessionID  string         `gorm:"column:session_id;type:uuid;index" json:"session_id"`
	Feedback   string         `gorm:"column:feedback;type:text" json:"feedback"`
	Score      int            `gorm:"column:score" json:"score"` // 1..10
	Raw        datatypes.JSON `gorm:"column:raw;type:jsonb" json:"-"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Response) TableName() string { return "responses" }

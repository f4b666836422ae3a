package models

import "time"

type User struct {
	ID                string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Firstname         string    `gorm:"column:firstname;type:text" json:"firstname"`
	Lastname          string    `gorm:"column:lastname;type:text" json:"lastname"`
	Username          string    `gorm:"column:username;type:text;uniqueIndex" json:"username"`
	Email             string    `gorm:"column:email;type:text;uniqueIndex" json:"email"`
	PhoneNumber       string    `gorm:"column:phone_number;type:text" json:"phone_number"`
	PasswordHash      string    `gorm:"column:password_hash;type:text" json:"-"`
	IsAccountVerified bool      `gorm:"column:is_account_verified" json:"is_account_verified"`
	CreatedAt         time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }

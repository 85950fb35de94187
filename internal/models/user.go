package models

import "time"

// User represents the users table. Users only exist to obtain API tokens.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	PasswordHash string    `gorm:"not null;size:255" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

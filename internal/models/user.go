package models

import (
	"strings"
	"time"
)

// User mirrors the identity provider's subject. Rows are created lazily on the
// first write that references the caller and are never deleted here.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at"`

	AuthID    string `gorm:"uniqueIndex;size:128;not null" json:"id"`
	Email     string `gorm:"size:255" json:"email"`
	FirstName string `gorm:"size:128" json:"first_name"`
	LastName  string `gorm:"size:128" json:"last_name"`
}

// DisplayName is what note listings show as the author.
func (u *User) DisplayName() string {
	if u == nil {
		return "Unknown"
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return "Unknown"
	}
	return name
}

// UserSummary is the slice of a User exposed on opportunity reads:
// identity and name only, no profile fields.
type UserSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.AuthID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

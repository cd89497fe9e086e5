package models

import "gorm.io/gorm"

// Roles a user can have.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered member of the site.
type User struct {
	gorm.Model
	Username     string `gorm:"size:150;unique;not null"`
	Email        string `gorm:"size:255;unique;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:50;not null;default:'user';index"`
	// Avatar is a path relative to the media root, empty when unset.
	Avatar string `gorm:"size:255"`
}

// IsAdmin reports whether the user may maintain site-wide data such as tags.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

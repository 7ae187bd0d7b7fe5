package models

import "time"

// User is an account holder. UserSlug is the primary identifier, a
// 10-char URL-safe slug.
type User struct {
	UserSlug     string    `json:"user_slug"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

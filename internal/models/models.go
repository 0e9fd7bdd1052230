// Package models defines the data structures shared by go-newsroom packages
package models

import (
	"slices"
	"time"
)

// Role names stored in user_roles
const (
	RoleUser       = "ROLE_USER"
	RoleJournalist = "ROLE_JOURNALIST"
	RoleAdmin      = "ROLE_ADMIN"
)

// DefaultRoles is the role set every self-registered user starts with
var DefaultRoles = []string{RoleUser}

// Category is reference data an article is filed under
type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`   // display name in the select list
	Alias     string    `json:"alias" db:"alias"` // path segment of the article URL
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Article represents a blog article (main DB)
type Article struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Alias         string    `json:"alias" db:"alias"` // slug of Title, set once after validation
	Content       string    `json:"content" db:"content"`
	FeaturedImage string    `json:"featured_image" db:"featured_image"` // stored filename, empty when none
	CategoryID    int64     `json:"category_id" db:"category_id"`
	AuthorID      int64     `json:"author_id" db:"author_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	// Materialized by queries, never lazy
	Category *Category `json:"category,omitempty" db:"-"`
	Author   *User     `json:"author,omitempty" db:"-"`
}

// User represents a registered member
type User struct {
	ID               int64      `json:"id" db:"id"`
	FirstName        string     `json:"firstname" db:"firstname"`
	LastName         string     `json:"lastname" db:"lastname"`
	Email            string     `json:"email" db:"email"`
	Password         string     `json:"-" db:"password_hash"` // bcrypt digest once persisted
	Roles            []string   `json:"roles" db:"-"`
	SessionID        string     `json:"-" db:"session_id"`                          // Current active session (64 chars)
	LastLoginIP      string     `json:"last_login_ip" db:"last_login_ip"`           // IP of last login (for logging only)
	SessionExpiresAt *time.Time `json:"session_expires_at" db:"session_expires_at"` // Session expiration (sliding)
	LoginAttempts    int        `json:"login_attempts" db:"login_attempts"`         // Failed login attempts counter
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// DisplayName returns "First Last", falling back to the email
func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	if u.FirstName == "" {
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}

// HasRole reports whether role is part of the user's role set
func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// FlashMessage is a one-time notice shown on the next rendered page
type FlashMessage struct {
	Type    string // "success" or "error"
	Message string
}

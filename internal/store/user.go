package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"simplekanban/internal/database"
	"simplekanban/internal/models"
)

// CreateUser inserts a new active user. A second active account on the
// same email surfaces as ErrDuplicateEmail.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_slug, name, email, password_hash, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
	`, user.UserSlug, user.Name, user.Email, user.PasswordHash, now, now)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserBySlug loads a user by slug.
func (s *Store) GetUserBySlug(ctx context.Context, userSlug string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT user_slug, name, email, password_hash, is_active, created_at, updated_at
		FROM users WHERE user_slug = ?
	`, userSlug).Scan(&u.UserSlug, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

// GetActiveUserByEmail loads the active user holding email, if any.
func (s *Store) GetActiveUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT user_slug, name, email, password_hash, is_active, created_at, updated_at
		FROM users WHERE email = ? AND is_active = 1
	`, email).Scan(&u.UserSlug, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

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

// ListMemberships returns the board's memberships with their users,
// oldest first.
func (s *Store) ListMemberships(ctx context.Context, boardSlug string) ([]models.BoardMembership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.board_slug, m.role, m.display_name, m.created_at,
		       u.user_slug, u.name, u.email
		FROM board_memberships m
		JOIN users u ON u.user_slug = m.user_slug
		WHERE m.board_slug = ?
		ORDER BY m.created_at
	`, boardSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := make([]models.BoardMembership, 0)
	for rows.Next() {
		var m models.BoardMembership
		if err := rows.Scan(&m.BoardSlug, &m.Role, &m.DisplayName, &m.CreatedAt,
			&m.User.UserSlug, &m.User.Name, &m.User.Email); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// GetMemberRole returns the role the user holds on the board.
func (s *Store) GetMemberRole(ctx context.Context, boardSlug, userSlug string) (int, error) {
	var role int
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM board_memberships WHERE board_slug = ? AND user_slug = ?
	`, boardSlug, userSlug).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("could not get member role: %w", err)
	}
	return role, nil
}

// IsMember reports whether the user holds a membership on the board.
func (s *Store) IsMember(ctx context.Context, boardSlug, userSlug string) (bool, error) {
	_, err := s.GetMemberRole(ctx, boardSlug, userSlug)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateMembership adds a member to the board, enforcing the membership
// cap and the new_members_allowed flag under lock.
func (s *Store) CreateMembership(ctx context.Context, boardSlug, userSlug string, role int) error {
	now := time.Now().UTC()
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var newMembersAllowed bool
		err := tx.QueryRowContext(ctx, `
			SELECT new_members_allowed FROM boards WHERE board_slug = ?`+s.db.ForUpdate(),
			boardSlug,
		).Scan(&newMembersAllowed)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !newMembersAllowed {
			return ErrNewMembersNotAllowed
		}

		count, err := s.lockedIndexes(ctx, tx, "board_memberships", "role", "board_slug = ?", boardSlug)
		if err != nil {
			return err
		}
		if count >= models.MaxBoardMembers {
			return ErrBoardFull
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO board_memberships (board_slug, user_slug, role, display_name, created_at, updated_at)
			VALUES (?, ?, ?, '', ?, ?)
		`, boardSlug, userSlug, role, now, now)
		return err
	})
}

// UpdateMemberRole sets a member's role. No cascading side effects
// beyond the caller's re-broadcast.
func (s *Store) UpdateMemberRole(ctx context.Context, boardSlug, userSlug string, role int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE board_memberships SET role = ?, updated_at = ?
		WHERE board_slug = ? AND user_slug = ?
	`, role, time.Now().UTC(), boardSlug, userSlug)
	if err == nil {
		err = expectOneRow(res, "member role update")
	}
	if err != nil {
		return models.NewOperationFailed(models.CmdRole, "Member role not updated", err)
	}
	return nil
}

// UpdateMemberDisplayName sets the member's display name. A uniqueness
// conflict surfaces as a distinguishable duplicate-name condition.
func (s *Store) UpdateMemberDisplayName(ctx context.Context, boardSlug, userSlug, displayName string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE board_memberships SET display_name = ?, updated_at = ?
		WHERE board_slug = ? AND user_slug = ?
	`, displayName, time.Now().UTC(), boardSlug, userSlug)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.NewDuplicateDisplayName(err)
		}
		return models.NewOperationFailed(models.CmdDisplayName, "Member display_name not updated", err)
	}
	if err := expectOneRow(res, "display name update"); err != nil {
		return models.NewOperationFailed(models.CmdDisplayName, "Member display_name not updated", err)
	}
	return nil
}

// RemoveMember deletes a membership. Exactly one row must be affected.
func (s *Store) RemoveMember(ctx context.Context, boardSlug, userSlug, command string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM board_memberships WHERE board_slug = ? AND user_slug = ?
	`, boardSlug, userSlug)
	if err == nil {
		err = expectOneRow(res, "member remove")
	}
	if err != nil {
		return models.NewOperationFailed(command, "Member not removed from board", err)
	}
	return nil
}

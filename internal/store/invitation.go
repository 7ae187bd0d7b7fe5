package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"simplekanban/internal/models"
)

// CreateInvitation records a pending (board, email) join. Unique per
// pair.
func (s *Store) CreateInvitation(ctx context.Context, boardSlug, email string) (*models.Invitation, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (board_slug, email, created_at) VALUES (?, ?, ?)
	`, boardSlug, email, now)
	if err != nil {
		return nil, fmt.Errorf("invitation not created: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("invitation not created: %w", err)
	}
	return &models.Invitation{
		InvitationID: id,
		BoardSlug:    boardSlug,
		Email:        email,
		CreatedAt:    now,
	}, nil
}

// DeleteInvitation removes an invitation and its tokens (cascade).
func (s *Store) DeleteInvitation(ctx context.Context, invitationID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM invitations WHERE invitation_id = ?
	`, invitationID)
	return err
}

// CountMembersAndInvites returns members plus pending invites, the
// quantity the membership cap is enforced against at invite time.
func (s *Store) CountMembersAndInvites(ctx context.Context, boardSlug string) (int, error) {
	var members, invites int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM board_memberships WHERE board_slug = ?
	`, boardSlug).Scan(&members)
	if err != nil {
		return 0, err
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM invitations WHERE board_slug = ?
	`, boardSlug).Scan(&invites)
	if err != nil {
		return 0, err
	}
	return members + invites, nil
}

// HasMemberWithEmail reports whether an active member of the board holds
// the email.
func (s *Store) HasMemberWithEmail(ctx context.Context, boardSlug, email string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM board_memberships m
		JOIN users u ON u.user_slug = m.user_slug
		WHERE m.board_slug = ? AND u.email = ? AND u.is_active = 1
	`, boardSlug, email).Scan(&count)
	return count > 0, err
}

// HasInviteForEmail reports whether the email already has a pending
// invitation on the board.
func (s *Store) HasInviteForEmail(ctx context.Context, boardSlug, email string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM invitations WHERE board_slug = ? AND email = ?
	`, boardSlug, email).Scan(&count)
	return count > 0, err
}

// CreateInviteToken stores the hashed single-use credential for an
// invitation.
func (s *Store) CreateInviteToken(ctx context.Context, invitationID int64, digest, tokenKey string, expiry time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invite_tokens (digest, invitation_id, token_key, expiry, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, digest, invitationID, tokenKey, expiry, time.Now().UTC())
	return err
}

// LookupInviteToken resolves a hashed invite credential to its pending
// invitation. Expired tokens are deleted on sight and report ErrNotFound.
func (s *Store) LookupInviteToken(ctx context.Context, digest string) (*models.Invitation, error) {
	var inv models.Invitation
	var expiry time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT i.invitation_id, i.board_slug, i.email, i.created_at, t.expiry
		FROM invite_tokens t
		JOIN invitations i ON i.invitation_id = t.invitation_id
		WHERE t.digest = ?
	`, digest).Scan(&inv.InvitationID, &inv.BoardSlug, &inv.Email, &inv.CreatedAt, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if expiry.Before(time.Now()) {
		s.db.ExecContext(ctx, `DELETE FROM invite_tokens WHERE digest = ?`, digest)
		return nil, ErrNotFound
	}
	return &inv, nil
}

// DeleteExpiredInviteTokens removes invite tokens past their expiry and
// returns how many were deleted.
func (s *Store) DeleteExpiredInviteTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM invite_tokens WHERE expiry < ?
	`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"simplekanban/pkg/auth"
)

func TestInviteTokenRoundTrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)

	invitation, err := s.CreateInvitation(ctx, board.BoardSlug, "invitee@example.com")
	if err != nil {
		t.Fatalf("CreateInvitation failed: %v", err)
	}

	token, err := auth.GenerateInviteToken()
	if err != nil {
		t.Fatalf("GenerateInviteToken failed: %v", err)
	}
	digest := auth.HashInviteToken(token)
	err = s.CreateInviteToken(ctx, invitation.InvitationID, digest, auth.InviteTokenKey(token), time.Now().Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("CreateInviteToken failed: %v", err)
	}

	got, err := s.LookupInviteToken(ctx, digest)
	if err != nil {
		t.Fatalf("LookupInviteToken failed: %v", err)
	}
	if got.InvitationID != invitation.InvitationID || got.Email != "invitee@example.com" {
		t.Fatalf("lookup returned %+v", got)
	}

	// The raw token never matches; only its digest does
	if _, err := s.LookupInviteToken(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("raw token resolved: %v", err)
	}
}

func TestExpiredInviteTokenIsGone(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)

	invitation, err := s.CreateInvitation(ctx, board.BoardSlug, "late@example.com")
	if err != nil {
		t.Fatalf("CreateInvitation failed: %v", err)
	}

	digest := auth.HashInviteToken("expired-token")
	if err := s.CreateInviteToken(ctx, invitation.InvitationID, digest, "expired-", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("CreateInviteToken failed: %v", err)
	}

	if _, err := s.LookupInviteToken(ctx, digest); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired token resolved: %v", err)
	}
}

func TestDeleteExpiredInviteTokens(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)

	live, err := s.CreateInvitation(ctx, board.BoardSlug, "live@example.com")
	if err != nil {
		t.Fatalf("CreateInvitation failed: %v", err)
	}
	stale, err := s.CreateInvitation(ctx, board.BoardSlug, "stale@example.com")
	if err != nil {
		t.Fatalf("CreateInvitation failed: %v", err)
	}

	liveDigest := auth.HashInviteToken("live-token")
	if err := s.CreateInviteToken(ctx, live.InvitationID, liveDigest, "live-tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateInviteToken failed: %v", err)
	}
	if err := s.CreateInviteToken(ctx, stale.InvitationID, auth.HashInviteToken("stale-token"), "stale-to", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("CreateInviteToken failed: %v", err)
	}

	deleted, err := s.DeleteExpiredInviteTokens(ctx)
	if err != nil {
		t.Fatalf("DeleteExpiredInviteTokens failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, err := s.LookupInviteToken(ctx, liveDigest); err != nil {
		t.Fatalf("live token was deleted: %v", err)
	}
}

func TestInvitePreconditionHelpers(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)

	count, err := s.CountMembersAndInvites(ctx, board.BoardSlug)
	if err != nil {
		t.Fatalf("CountMembersAndInvites failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 (admin only)", count)
	}

	if _, err := s.CreateInvitation(ctx, board.BoardSlug, "invitee@example.com"); err != nil {
		t.Fatalf("CreateInvitation failed: %v", err)
	}

	count, _ = s.CountMembersAndInvites(ctx, board.BoardSlug)
	if count != 2 {
		t.Fatalf("count = %d, want 2 after invite", count)
	}

	isMember, err := s.HasMemberWithEmail(ctx, board.BoardSlug, admin.Email)
	if err != nil || !isMember {
		t.Fatalf("HasMemberWithEmail = %v, %v, want true", isMember, err)
	}
	invited, err := s.HasInviteForEmail(ctx, board.BoardSlug, "invitee@example.com")
	if err != nil || !invited {
		t.Fatalf("HasInviteForEmail = %v, %v, want true", invited, err)
	}
	invited, _ = s.HasInviteForEmail(ctx, board.BoardSlug, "other@example.com")
	if invited {
		t.Fatal("HasInviteForEmail true for uninvited email")
	}
}

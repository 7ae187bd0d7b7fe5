package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"simplekanban/internal/database"
	"simplekanban/internal/models"
	"simplekanban/internal/services"
	"simplekanban/internal/store"
)

func setupSessionHandler(t *testing.T) (*BoardSessionHandler, *store.Store, func()) {
	t.Helper()
	tmpFile := fmt.Sprintf("test_session_%s.db", models.NewSlug())
	db, err := database.New(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	cleanup := func() {
		db.Close()
		os.Remove(tmpFile)
	}

	s := store.New(db)
	h := NewBoardSessionHandler(
		s,
		services.NewGroupBroadcaster(),
		services.NoopThrottler{},
		services.NewAuthorizer(s),
		services.LogMailer{},
		nil,
		"http://localhost:3000",
		7*24*time.Hour,
	)
	return h, s, cleanup
}

func createSessionUser(t *testing.T, s *store.Store, name string) *models.User {
	t.Helper()
	user := &models.User{
		UserSlug:     models.NewSlug(),
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", models.NewSlug()),
		PasswordHash: "argon2id$x$y",
	}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func TestAdmitMember(t *testing.T) {
	h, s, cleanup := setupSessionHandler(t)
	defer cleanup()
	ctx := context.Background()

	admin := createSessionUser(t, s, "Admin")
	board, err := s.CreateBoard(ctx, "Test Board", admin.UserSlug, true, true)
	if err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}

	sess, cerr := h.admit(ctx, board.BoardSlug, admin.UserSlug, "", slog.Default())
	if cerr != nil {
		t.Fatalf("admit rejected a member: %v", cerr)
	}
	if sess.board.BoardSlug != board.BoardSlug || sess.user.UserSlug != admin.UserSlug {
		t.Fatalf("session = %+v", sess)
	}
}

func TestAdmitRejectsDeactivatedUser(t *testing.T) {
	h, s, cleanup := setupSessionHandler(t)
	defer cleanup()
	ctx := context.Background()

	admin := createSessionUser(t, s, "Admin")
	board, err := s.CreateBoard(ctx, "Test Board", admin.UserSlug, true, true)
	if err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}

	// Deactivation after login must cut off board access even while the
	// user's token is still valid
	if _, err := s.DB().ExecContext(ctx, `UPDATE users SET is_active = 0 WHERE user_slug = ?`, admin.UserSlug); err != nil {
		t.Fatalf("Failed to deactivate user: %v", err)
	}

	sess, cerr := h.admit(ctx, board.BoardSlug, admin.UserSlug, "", slog.Default())
	if cerr == nil {
		t.Fatalf("deactivated user admitted: %+v", sess)
	}
	if cerr.Code != models.CodeUserFailed {
		t.Fatalf("error code = %q, want %q", cerr.Code, models.CodeUserFailed)
	}
}

func TestAdmitRejectsNonMember(t *testing.T) {
	h, s, cleanup := setupSessionHandler(t)
	defer cleanup()
	ctx := context.Background()

	admin := createSessionUser(t, s, "Admin")
	outsider := createSessionUser(t, s, "Outsider")
	board, err := s.CreateBoard(ctx, "Test Board", admin.UserSlug, true, true)
	if err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}

	_, cerr := h.admit(ctx, board.BoardSlug, outsider.UserSlug, "", slog.Default())
	if cerr == nil {
		t.Fatal("non-member without invite token admitted")
	}
	if cerr.Code != models.CodeBoardFailed {
		t.Fatalf("error code = %q, want %q", cerr.Code, models.CodeBoardFailed)
	}
}

func TestUpdateMemberRoleRejectsSelf(t *testing.T) {
	h, s, cleanup := setupSessionHandler(t)
	defer cleanup()
	ctx := context.Background()

	admin := createSessionUser(t, s, "Admin")
	board, err := s.CreateBoard(ctx, "Test Board", admin.UserSlug, true, true)
	if err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}
	sess := &session{board: board, user: admin, logger: slog.Default()}

	raw := []byte(fmt.Sprintf(`{"command":%q,"user_slug":%q,"role":3}`, models.CmdRole, admin.UserSlug))
	err = h.updateMemberRole(ctx, sess, raw)
	var cerr *models.ClientError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if cerr.Message != "Cannot update own role" {
		t.Fatalf("error message = %q", cerr.Message)
	}
}

func TestRemoveMemberRejectsSelf(t *testing.T) {
	h, s, cleanup := setupSessionHandler(t)
	defer cleanup()
	ctx := context.Background()

	admin := createSessionUser(t, s, "Admin")
	board, err := s.CreateBoard(ctx, "Test Board", admin.UserSlug, true, true)
	if err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}
	sess := &session{board: board, user: admin, logger: slog.Default()}

	raw := []byte(fmt.Sprintf(`{"command":%q,"user_slug":%q}`, models.CmdRemove, admin.UserSlug))
	err = h.removeMember(ctx, sess, raw)
	var cerr *models.ClientError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if cerr.Message != "Cannot remove admin" {
		t.Fatalf("error message = %q", cerr.Message)
	}
}

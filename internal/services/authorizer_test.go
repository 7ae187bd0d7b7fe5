package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"simplekanban/internal/database"
	"simplekanban/internal/models"
	"simplekanban/internal/store"
)

type authFixture struct {
	authorizer *Authorizer
	board      *models.Board
	admin      *models.User
	moderator  *models.User
	member     *models.User
	outsider   *models.User
}

func setupAuthFixture(t *testing.T) (*authFixture, func()) {
	t.Helper()
	tmpFile := fmt.Sprintf("test_authorizer_%s.db", models.NewSlug())
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
	ctx := context.Background()

	newUser := func(name string) *models.User {
		user := &models.User{
			UserSlug:     models.NewSlug(),
			Name:         name,
			Email:        fmt.Sprintf("%s@example.com", models.NewSlug()),
			PasswordHash: "argon2id$x$y",
		}
		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("Failed to create test user: %v", err)
		}
		return user
	}

	f := &authFixture{
		authorizer: NewAuthorizer(s),
		admin:      newUser("Admin"),
		moderator:  newUser("Moderator"),
		member:     newUser("Member"),
		outsider:   newUser("Outsider"),
	}
	f.board, err = s.CreateBoard(ctx, "Test Board", f.admin.UserSlug, true, true)
	if err != nil {
		t.Fatalf("Failed to create test board: %v", err)
	}
	if err := s.CreateMembership(ctx, f.board.BoardSlug, f.moderator.UserSlug, models.RoleModerator); err != nil {
		t.Fatalf("Failed to add moderator: %v", err)
	}
	if err := s.CreateMembership(ctx, f.board.BoardSlug, f.member.UserSlug, models.RoleMember); err != nil {
		t.Fatalf("Failed to add member: %v", err)
	}

	return f, cleanup
}

func assertNotAllowed(t *testing.T, err error, command string) {
	t.Helper()
	var cerr *models.ClientError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if cerr.Command != command {
		t.Fatalf("error command = %q, want %q", cerr.Command, command)
	}
}

func TestCheckStaffAdminOnly(t *testing.T) {
	f, cleanup := setupAuthFixture(t)
	defer cleanup()
	ctx := context.Background()

	adminOnly := []string{
		models.CmdTitle,
		models.CmdRole,
		models.CmdRemove,
		models.CmdDeleteBoard,
	}
	for _, command := range adminOnly {
		if err := f.authorizer.CheckStaff(ctx, f.board.BoardSlug, f.admin.UserSlug, command, true); err != nil {
			t.Fatalf("admin rejected for %s: %v", command, err)
		}
		err := f.authorizer.CheckStaff(ctx, f.board.BoardSlug, f.moderator.UserSlug, command, true)
		if err == nil {
			t.Fatalf("moderator allowed admin-only %s", command)
		}
		assertNotAllowed(t, err, command)
		if err := f.authorizer.CheckStaff(ctx, f.board.BoardSlug, f.member.UserSlug, command, true); err == nil {
			t.Fatalf("member allowed admin-only %s", command)
		}
	}
}

func TestCheckStaffModeratorCommands(t *testing.T) {
	f, cleanup := setupAuthFixture(t)
	defer cleanup()
	ctx := context.Background()

	if err := f.authorizer.CheckStaff(ctx, f.board.BoardSlug, f.admin.UserSlug, models.CmdCreateCol, false); err != nil {
		t.Fatalf("admin rejected: %v", err)
	}
	if err := f.authorizer.CheckStaff(ctx, f.board.BoardSlug, f.moderator.UserSlug, models.CmdCreateCol, false); err != nil {
		t.Fatalf("moderator rejected: %v", err)
	}

	err := f.authorizer.CheckStaff(ctx, f.board.BoardSlug, f.member.UserSlug, models.CmdCreateCol, false)
	if err == nil {
		t.Fatal("member allowed a staff command")
	}
	assertNotAllowed(t, err, models.CmdCreateCol)

	// Non-members have no role at all
	if err := f.authorizer.CheckStaff(ctx, f.board.BoardSlug, f.outsider.UserSlug, models.CmdCreateCol, false); err == nil {
		t.Fatal("outsider allowed a staff command")
	}
}

func TestCheckNotAdmin(t *testing.T) {
	f, cleanup := setupAuthFixture(t)
	defer cleanup()
	ctx := context.Background()

	// The admin may not leave the board
	err := f.authorizer.CheckNotAdmin(ctx, f.board.BoardSlug, f.admin.UserSlug, models.CmdLeave)
	if err == nil {
		t.Fatal("admin allowed to leave the board")
	}
	assertNotAllowed(t, err, models.CmdLeave)

	if err := f.authorizer.CheckNotAdmin(ctx, f.board.BoardSlug, f.moderator.UserSlug, models.CmdLeave); err != nil {
		t.Fatalf("moderator rejected from leaving: %v", err)
	}
	if err := f.authorizer.CheckNotAdmin(ctx, f.board.BoardSlug, f.member.UserSlug, models.CmdLeave); err != nil {
		t.Fatalf("member rejected from leaving: %v", err)
	}
}

package services

import (
	"context"

	"simplekanban/internal/models"
	"simplekanban/internal/store"
)

// Authorizer answers role questions for board commands.
type Authorizer struct {
	store *store.Store
}

// NewAuthorizer creates an authorizer over the store.
func NewAuthorizer(s *store.Store) *Authorizer {
	return &Authorizer{store: s}
}

// CheckStaff verifies the user holds a staff role on the board: ADMIN
// when adminOnly, otherwise ADMIN or MODERATOR. Violations surface as a
// client-visible not-allowed error tagged with the command.
func (a *Authorizer) CheckStaff(ctx context.Context, boardSlug, userSlug, command string, adminOnly bool) error {
	role, err := a.store.GetMemberRole(ctx, boardSlug, userSlug)
	if err != nil {
		return models.NewNotAllowed(command)
	}
	if adminOnly && role != models.RoleAdmin {
		return models.NewNotAllowed(command)
	}
	if role != models.RoleAdmin && role != models.RoleModerator {
		return models.NewNotAllowed(command)
	}
	return nil
}

// CheckNotAdmin verifies the target member is not the board admin.
// Commands that demote or remove members must never touch the admin.
func (a *Authorizer) CheckNotAdmin(ctx context.Context, boardSlug, targetSlug, command string) error {
	role, err := a.store.GetMemberRole(ctx, boardSlug, targetSlug)
	if err != nil {
		return models.NewNotAllowed(command)
	}
	if role == models.RoleAdmin {
		return models.NewNotAllowed(command)
	}
	return nil
}

// IsMember verifies the user holds any membership on the board.
func (a *Authorizer) IsMember(ctx context.Context, boardSlug, userSlug string) (bool, error) {
	return a.store.IsMember(ctx, boardSlug, userSlug)
}

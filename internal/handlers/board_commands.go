package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"simplekanban/internal/models"
	"simplekanban/internal/store"
	"simplekanban/pkg/auth"
)

const maxFieldLength = 255

// dispatch routes a decoded command to its handler. Unknown commands
// are a validation error, not a disconnect.
func (h *BoardSessionHandler) dispatch(ctx context.Context, sess *session, command string, raw []byte) error {
	switch command {
	case models.CmdCreateMsg:
		return h.createMsg(ctx, sess, raw)
	case models.CmdTitle:
		return h.updateBoardTitle(ctx, sess, raw)
	case models.CmdCreateTask:
		return h.createTask(ctx, sess, raw)
	case models.CmdUpdateTask:
		return h.updateTask(ctx, sess, raw)
	case models.CmdMoveTask:
		return h.moveTask(ctx, sess, raw)
	case models.CmdDeleteTask:
		return h.deleteTask(ctx, sess, raw)
	case models.CmdCreateCol:
		return h.createColumn(ctx, sess, raw)
	case models.CmdUpdateCol:
		return h.updateColumn(ctx, sess, raw)
	case models.CmdMoveCol:
		return h.moveColumn(ctx, sess, raw)
	case models.CmdDeleteCol:
		return h.deleteColumn(ctx, sess, raw)
	case models.CmdDisplayName:
		return h.updateMemberDisplayName(ctx, sess, raw)
	case models.CmdRole:
		return h.updateMemberRole(ctx, sess, raw)
	case models.CmdLeave:
		return h.leaveBoard(ctx, sess)
	case models.CmdRemove:
		return h.removeMember(ctx, sess, raw)
	case models.CmdDeleteBoard:
		return h.deleteBoard(ctx, sess)
	case models.CmdInvite:
		return h.inviteMember(ctx, sess, raw)
	default:
		return models.NewInvalidCommand(command)
	}
}

// decode unmarshals a command payload, reporting failures as invalid
// content tagged with the command.
func decode(raw []byte, command string, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return models.NewInvalidContent(err, command)
	}
	return nil
}

// requireText strips and bounds-checks a required text field.
func requireText(value *string, field, command string) (string, error) {
	if value == nil {
		return "", models.NewInvalidContent(fmt.Errorf("%s is required", field), command)
	}
	text := strings.TrimSpace(*value)
	if text == "" {
		return "", models.NewInvalidContent(fmt.Errorf("%s cannot be empty", field), command)
	}
	if len(text) > maxFieldLength {
		return "", models.NewInvalidContent(fmt.Errorf("%s cannot be longer than %d chars", field, maxFieldLength), command)
	}
	return text, nil
}

// requireID bounds-checks a required positive integer ID field.
func requireID(value *int64, field, command string) (int64, error) {
	if value == nil || *value <= 0 {
		return 0, models.NewInvalidContent(fmt.Errorf("%s is required", field), command)
	}
	return *value, nil
}

func (h *BoardSessionHandler) createMsg(ctx context.Context, sess *session, raw []byte) error {
	if !sess.board.MessagesAllowed {
		return models.NewNotAllowed(models.CmdCreateMsg)
	}

	var payload struct {
		BoardMsg *string `json:"board_msg"`
	}
	if err := decode(raw, models.CmdCreateMsg, &payload); err != nil {
		return err
	}
	text, err := requireText(payload.BoardMsg, "board_msg", models.CmdCreateMsg)
	if err != nil {
		return err
	}

	msg, err := h.store.CreateMessage(ctx, sess.board.BoardSlug, sess.user, text)
	if err != nil {
		return err
	}
	return h.groupUpdate(ctx, sess, models.CodeMsgCreated, msg)
}

func (h *BoardSessionHandler) updateBoardTitle(ctx context.Context, sess *session, raw []byte) error {
	if err := h.authorizer.CheckStaff(ctx, sess.board.BoardSlug, sess.user.UserSlug, models.CmdTitle, true); err != nil {
		return err
	}

	var payload struct {
		BoardTitle *string `json:"board_title"`
	}
	if err := decode(raw, models.CmdTitle, &payload); err != nil {
		return err
	}
	title, err := requireText(payload.BoardTitle, "board_title", models.CmdTitle)
	if err != nil {
		return err
	}

	board, err := h.store.UpdateBoardTitle(ctx, sess.board.BoardSlug, title)
	if err != nil {
		return err
	}
	sess.board = board
	return h.groupUpdate(ctx, sess, models.CodeBoardUpdated, board)
}

func (h *BoardSessionHandler) createTask(ctx context.Context, sess *session, raw []byte) error {
	var payload struct {
		ColumnID *int64  `json:"column_id"`
		Text     *string `json:"text"`
	}
	if err := decode(raw, models.CmdCreateTask, &payload); err != nil {
		return err
	}
	columnID, err := requireID(payload.ColumnID, "column_id", models.CmdCreateTask)
	if err != nil {
		return err
	}
	text, err := requireText(payload.Text, "text", models.CmdCreateTask)
	if err != nil {
		return err
	}

	if _, err := h.store.CreateTask(ctx, sess.board.BoardSlug, columnID, text); err != nil {
		return err
	}
	return h.publishTasks(ctx, sess)
}

func (h *BoardSessionHandler) updateTask(ctx context.Context, sess *session, raw []byte) error {
	var payload struct {
		TaskID *int64  `json:"task_id"`
		Text   *string `json:"text"`
	}
	if err := decode(raw, models.CmdUpdateTask, &payload); err != nil {
		return err
	}
	taskID, err := requireID(payload.TaskID, "task_id", models.CmdUpdateTask)
	if err != nil {
		return err
	}
	text, err := requireText(payload.Text, "text", models.CmdUpdateTask)
	if err != nil {
		return err
	}

	if _, err := h.store.UpdateTask(ctx, taskID, text); err != nil {
		return err
	}
	return h.publishTasks(ctx, sess)
}

func (h *BoardSessionHandler) moveTask(ctx context.Context, sess *session, raw []byte) error {
	var payload struct {
		TaskID    *int64 `json:"task_id"`
		ColumnID  *int64 `json:"column_id"`
		TaskIndex *int   `json:"task_index"`
	}
	if err := decode(raw, models.CmdMoveTask, &payload); err != nil {
		return err
	}
	taskID, err := requireID(payload.TaskID, "task_id", models.CmdMoveTask)
	if err != nil {
		return err
	}
	columnID, err := requireID(payload.ColumnID, "column_id", models.CmdMoveTask)
	if err != nil {
		return err
	}
	if payload.TaskIndex == nil {
		return models.NewInvalidContent(errors.New("task_index is required"), models.CmdMoveTask)
	}

	if _, err := h.store.MoveTask(ctx, taskID, columnID, *payload.TaskIndex); err != nil {
		return err
	}
	return h.publishTasks(ctx, sess)
}

func (h *BoardSessionHandler) deleteTask(ctx context.Context, sess *session, raw []byte) error {
	var payload struct {
		TaskID *int64 `json:"task_id"`
	}
	if err := decode(raw, models.CmdDeleteTask, &payload); err != nil {
		return err
	}
	taskID, err := requireID(payload.TaskID, "task_id", models.CmdDeleteTask)
	if err != nil {
		return err
	}

	if err := h.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	return h.publishTasks(ctx, sess)
}

func (h *BoardSessionHandler) createColumn(ctx context.Context, sess *session, raw []byte) error {
	if err := h.authorizer.CheckStaff(ctx, sess.board.BoardSlug, sess.user.UserSlug, models.CmdCreateCol, false); err != nil {
		return err
	}

	var payload struct {
		ColumnTitle *string `json:"column_title"`
		WIPLimitOn  *bool   `json:"wip_limit_on"`
		WIPLimit    *int    `json:"wip_limit"`
	}
	if err := decode(raw, models.CmdCreateCol, &payload); err != nil {
		return err
	}
	title, err := requireText(payload.ColumnTitle, "column_title", models.CmdCreateCol)
	if err != nil {
		return err
	}
	if payload.WIPLimitOn == nil {
		return models.NewInvalidContent(errors.New("wip_limit_on is required"), models.CmdCreateCol)
	}
	if payload.WIPLimit == nil || *payload.WIPLimit <= 0 {
		return models.NewInvalidContent(errors.New("wip_limit is required"), models.CmdCreateCol)
	}

	if _, err := h.store.CreateColumn(ctx, sess.board.BoardSlug, title, *payload.WIPLimitOn, *payload.WIPLimit); err != nil {
		return err
	}
	return h.publishColumns(ctx, sess)
}

func (h *BoardSessionHandler) updateColumn(ctx context.Context, sess *session, raw []byte) error {
	if err := h.authorizer.CheckStaff(ctx, sess.board.BoardSlug, sess.user.UserSlug, models.CmdUpdateCol, false); err != nil {
		return err
	}

	var payload struct {
		ColumnID    *int64  `json:"column_id"`
		ColumnTitle *string `json:"column_title"`
		WIPLimitOn  *bool   `json:"wip_limit_on"`
		WIPLimit    *int    `json:"wip_limit"`
	}
	if err := decode(raw, models.CmdUpdateCol, &payload); err != nil {
		return err
	}
	columnID, err := requireID(payload.ColumnID, "column_id", models.CmdUpdateCol)
	if err != nil {
		return err
	}

	update := store.ColumnUpdate{
		WIPLimitOn: payload.WIPLimitOn,
	}
	if payload.ColumnTitle != nil {
		title, err := requireText(payload.ColumnTitle, "column_title", models.CmdUpdateCol)
		if err != nil {
			return err
		}
		update.ColumnTitle = &title
	}
	if payload.WIPLimit != nil && *payload.WIPLimit > 0 {
		update.WIPLimit = payload.WIPLimit
	}

	if _, err := h.store.UpdateColumn(ctx, columnID, update); err != nil {
		return err
	}
	return h.publishColumns(ctx, sess)
}

func (h *BoardSessionHandler) moveColumn(ctx context.Context, sess *session, raw []byte) error {
	if err := h.authorizer.CheckStaff(ctx, sess.board.BoardSlug, sess.user.UserSlug, models.CmdMoveCol, false); err != nil {
		return err
	}

	var payload struct {
		ColumnID    *int64 `json:"column_id"`
		ColumnIndex *int   `json:"column_index"`
	}
	if err := decode(raw, models.CmdMoveCol, &payload); err != nil {
		return err
	}
	columnID, err := requireID(payload.ColumnID, "column_id", models.CmdMoveCol)
	if err != nil {
		return err
	}
	if payload.ColumnIndex == nil {
		return models.NewInvalidContent(errors.New("column_index is required"), models.CmdMoveCol)
	}

	if _, err := h.store.MoveColumn(ctx, columnID, *payload.ColumnIndex); err != nil {
		return err
	}
	return h.publishColumns(ctx, sess)
}

func (h *BoardSessionHandler) deleteColumn(ctx context.Context, sess *session, raw []byte) error {
	if err := h.authorizer.CheckStaff(ctx, sess.board.BoardSlug, sess.user.UserSlug, models.CmdDeleteCol, false); err != nil {
		return err
	}

	var payload struct {
		ColumnID *int64 `json:"column_id"`
	}
	if err := decode(raw, models.CmdDeleteCol, &payload); err != nil {
		return err
	}
	columnID, err := requireID(payload.ColumnID, "column_id", models.CmdDeleteCol)
	if err != nil {
		return err
	}

	if err := h.store.DeleteColumn(ctx, columnID); err != nil {
		return err
	}
	// Deleting a column cascades its tasks away
	if err := h.publishColumns(ctx, sess); err != nil {
		return err
	}
	return h.publishTasks(ctx, sess)
}

func (h *BoardSessionHandler) updateMemberDisplayName(ctx context.Context, sess *session, raw []byte) error {
	var payload struct {
		DisplayName *string `json:"display_name"`
	}
	if err := decode(raw, models.CmdDisplayName, &payload); err != nil {
		return err
	}
	if payload.DisplayName == nil {
		return models.NewInvalidContent(errors.New("display_name is required"), models.CmdDisplayName)
	}
	displayName := strings.TrimSpace(*payload.DisplayName)
	if len(displayName) > maxFieldLength {
		return models.NewInvalidContent(
			fmt.Errorf("display_name cannot be longer than %d chars", maxFieldLength), models.CmdDisplayName)
	}

	if err := h.store.UpdateMemberDisplayName(ctx, sess.board.BoardSlug, sess.user.UserSlug, displayName); err != nil {
		return err
	}
	return h.publishMembers(ctx, sess, nil)
}

func (h *BoardSessionHandler) updateMemberRole(ctx context.Context, sess *session, raw []byte) error {
	if err := h.authorizer.CheckStaff(ctx, sess.board.BoardSlug, sess.user.UserSlug, models.CmdRole, true); err != nil {
		return err
	}

	var payload struct {
		UserSlug *string `json:"user_slug"`
		Role     *int    `json:"role"`
	}
	if err := decode(raw, models.CmdRole, &payload); err != nil {
		return err
	}
	if payload.Role == nil || (*payload.Role != models.RoleModerator && *payload.Role != models.RoleMember) {
		return models.NewInvalidContent(errors.New("role must be MODERATOR or MEMBER"), models.CmdRole)
	}
	targetSlug, err := requireSlug(payload.UserSlug, models.CmdRole)
	if err != nil {
		return err
	}
	if targetSlug == sess.user.UserSlug {
		return models.NewNotAllowedMessage(models.CmdRole, "Cannot update own role")
	}

	if err := h.store.UpdateMemberRole(ctx, sess.board.BoardSlug, targetSlug, *payload.Role); err != nil {
		return err
	}
	return h.publishMembers(ctx, sess, []string{targetSlug})
}

func (h *BoardSessionHandler) leaveBoard(ctx context.Context, sess *session) error {
	if err := h.authorizer.CheckNotAdmin(ctx, sess.board.BoardSlug, sess.user.UserSlug, models.CmdLeave); err != nil {
		return err
	}

	if err := h.store.RemoveMember(ctx, sess.board.BoardSlug, sess.user.UserSlug, models.CmdLeave); err != nil {
		return err
	}
	if err := h.store.LogActivity(ctx, sess.board.BoardSlug, nil, models.CmdLeave, sess.user.Name+" left the board"); err != nil {
		sess.logger.Error("Activity log failed", "error", err)
	}
	return h.publishMembers(ctx, sess, nil)
}

func (h *BoardSessionHandler) removeMember(ctx context.Context, sess *session, raw []byte) error {
	if err := h.authorizer.CheckStaff(ctx, sess.board.BoardSlug, sess.user.UserSlug, models.CmdRemove, true); err != nil {
		return err
	}

	var payload struct {
		UserSlug *string `json:"user_slug"`
	}
	if err := decode(raw, models.CmdRemove, &payload); err != nil {
		return err
	}
	targetSlug, err := requireSlug(payload.UserSlug, models.CmdRemove)
	if err != nil {
		return err
	}
	if targetSlug == sess.user.UserSlug {
		return models.NewNotAllowedMessage(models.CmdRemove, "Cannot remove admin")
	}

	target, err := h.store.GetUserBySlug(ctx, targetSlug)
	if err != nil {
		return models.NewUserFailed(err)
	}

	if err := h.store.RemoveMember(ctx, sess.board.BoardSlug, target.UserSlug, models.CmdRemove); err != nil {
		return err
	}
	if err := h.store.LogActivity(ctx, sess.board.BoardSlug, nil, models.CmdRemove, target.Name+" was removed from the board"); err != nil {
		sess.logger.Error("Activity log failed", "error", err)
	}
	return h.publishMembers(ctx, sess, nil)
}

func (h *BoardSessionHandler) deleteBoard(ctx context.Context, sess *session) error {
	if err := h.authorizer.CheckStaff(ctx, sess.board.BoardSlug, sess.user.UserSlug, models.CmdDeleteBoard, true); err != nil {
		return err
	}

	if err := h.store.DeleteBoard(ctx, sess.board.BoardSlug); err != nil {
		return err
	}
	return h.groupUpdate(ctx, sess, models.CodeBoardDeleted, "Project deleted")
}

func (h *BoardSessionHandler) inviteMember(ctx context.Context, sess *session, raw []byte) error {
	if err := h.authorizer.CheckStaff(ctx, sess.board.BoardSlug, sess.user.UserSlug, models.CmdInvite, false); err != nil {
		return err
	}
	if !sess.board.NewMembersAllowed {
		return models.NewNotAllowed(models.CmdInvite)
	}

	var payload struct {
		InviteEmail *string `json:"invite_email"`
	}
	if err := decode(raw, models.CmdInvite, &payload); err != nil {
		return err
	}
	if payload.InviteEmail == nil {
		return models.NewInvalidContent(errors.New("invite_email is required"), models.CmdInvite)
	}
	email := strings.ToLower(strings.TrimSpace(*payload.InviteEmail))
	if _, err := mail.ParseAddress(email); err != nil {
		return models.NewInvalidContent(errors.New("invite_email is not a valid address"), models.CmdInvite)
	}

	if err := h.checkMemberCanBeInvited(ctx, sess.board.BoardSlug, email); err != nil {
		return err
	}

	invitation, err := h.store.CreateInvitation(ctx, sess.board.BoardSlug, email)
	if err != nil {
		return models.NewInviteFailed(err)
	}

	link, err := h.inviteLink(ctx, invitation)
	if err != nil {
		h.store.DeleteInvitation(ctx, invitation.InvitationID)
		return models.NewInviteFailed(err)
	}

	if err := h.mailer.SendInvite(ctx, email, sess.board.BoardTitle, link); err != nil {
		h.store.DeleteInvitation(ctx, invitation.InvitationID)
		h.metrics.RecordInviteFailed()
		return models.NewInviteFailed(err)
	}
	h.metrics.RecordInviteSent()

	sess.conn.SafeSend(models.ServerMessage{
		Code:    models.CodeInviteSent,
		Message: "Invitation sent to " + email,
		User:    sess.user.UserSlug,
	})
	return nil
}

// checkMemberCanBeInvited enforces the invite preconditions: the cap on
// active plus invited members, no invite to an existing member, and no
// duplicate invite.
func (h *BoardSessionHandler) checkMemberCanBeInvited(ctx context.Context, boardSlug, email string) error {
	count, err := h.store.CountMembersAndInvites(ctx, boardSlug)
	if err != nil {
		return models.NewInviteFailed(err)
	}
	if count >= models.MaxBoardMembers {
		return models.NewInviteNotSent("This project may not exceed 25 active or invited members.")
	}

	isMember, err := h.store.HasMemberWithEmail(ctx, boardSlug, email)
	if err != nil {
		return models.NewInviteFailed(err)
	}
	if isMember {
		return models.NewInviteNotSent("User with this email is already a member of this project.")
	}

	invited, err := h.store.HasInviteForEmail(ctx, boardSlug, email)
	if err != nil {
		return models.NewInviteFailed(err)
	}
	if invited {
		return models.NewInviteNotSent("Invitation has already been sent to this email.")
	}
	return nil
}

// inviteLink mints a single-use token for the invitation and builds the
// join link mailed to the invitee.
func (h *BoardSessionHandler) inviteLink(ctx context.Context, invitation *models.Invitation) (string, error) {
	token, err := auth.GenerateInviteToken()
	if err != nil {
		return "", err
	}
	err = h.store.CreateInviteToken(ctx,
		invitation.InvitationID,
		auth.HashInviteToken(token),
		auth.InviteTokenKey(token),
		invitation.CreatedAt.Add(h.inviteExpiry),
	)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/invitation?board=%s&token=%s&email=%s",
		strings.TrimRight(h.domain, "/"),
		invitation.BoardSlug,
		url.QueryEscape(token),
		url.QueryEscape(invitation.Email),
	), nil
}

// requireSlug validates a required user slug field.
func requireSlug(value *string, command string) (string, error) {
	if value == nil || !models.SlugPattern.MatchString(*value) {
		return "", models.NewInvalidContent(errors.New("user_slug is invalid"), command)
	}
	return *value, nil
}

// groupUpdate broadcasts a coded payload to the whole board, stamped
// with the acting user.
func (h *BoardSessionHandler) groupUpdate(ctx context.Context, sess *session, code string, data interface{}) error {
	return h.publish(ctx, sess.board, models.ServerMessage{
		Code: code,
		Data: data,
		User: sess.user.UserSlug,
	})
}

func (h *BoardSessionHandler) publishTasks(ctx context.Context, sess *session) error {
	tasks, err := h.store.ListTasks(ctx, sess.board.BoardSlug)
	if err != nil {
		return err
	}
	return h.groupUpdate(ctx, sess, models.CodeTasksSaved, tasks)
}

func (h *BoardSessionHandler) publishColumns(ctx context.Context, sess *session) error {
	columns, err := h.store.ListColumns(ctx, sess.board.BoardSlug)
	if err != nil {
		return err
	}
	return h.groupUpdate(ctx, sess, models.CodeColumnsSaved, columns)
}

// publishMembers broadcasts the membership list; updatedSlugs, when
// present, tells clients which members changed.
func (h *BoardSessionHandler) publishMembers(ctx context.Context, sess *session, updatedSlugs []string) error {
	memberships, err := h.store.ListMemberships(ctx, sess.board.BoardSlug)
	if err != nil {
		return err
	}
	if updatedSlugs != nil {
		return h.groupUpdate(ctx, sess, models.CodeMembersSaved, map[string]interface{}{
			"updated_slugs": updatedSlugs,
			"members":       memberships,
		})
	}
	return h.groupUpdate(ctx, sess, models.CodeMembersSaved, memberships)
}

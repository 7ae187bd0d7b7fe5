package models

import "time"

// Board roles. Stored as small ints, ADMIN is unique per board.
const (
	RoleAdmin     = 1
	RoleModerator = 2
	RoleMember    = 3
)

// MaxBoardMembers caps active plus invited members per board.
const MaxBoardMembers = 25

// Board commands accepted over the board WebSocket.
const (
	CmdReadBoard   = "read_board"
	CmdTitle       = "update_board_title"
	CmdCreateMsg   = "create_msg"
	CmdCreateTask  = "create_task"
	CmdUpdateTask  = "update_task"
	CmdMoveTask    = "move_task"
	CmdDeleteTask  = "delete_task"
	CmdCreateCol   = "create_column"
	CmdUpdateCol   = "update_column"
	CmdMoveCol     = "move_column"
	CmdDeleteCol   = "delete_column"
	CmdDisplayName = "update_member_display_name"
	CmdRole        = "update_member_role"
	CmdJoin        = "join_board"
	CmdRemove      = "remove_member"
	CmdLeave       = "leave_board"
	CmdDeleteBoard = "delete_board"
	CmdInvite      = "invite_member"
	CmdNoCommand   = "no_command"
)

// Server->client codes for board updates.
const (
	CodeBoardLoaded  = "BOARD_LOADED"
	CodeBoardUpdated = "BOARD_UPDATED"
	CodeMsgCreated   = "MSG_CREATED"
	CodeTasksSaved   = "TASKS_SAVED"
	CodeColumnsSaved = "COLUMNS_SAVED"
	CodeMembersSaved = "MEMBERS_SAVED"
	CodeBoardDeleted = "BOARD_DELETED"
	CodeInviteSent   = "INVITE_SENT"
)

// Server->client error codes.
const (
	CodeError       = "error"
	CodeBoardFailed = "BOARD_FAILED"
	CodeJoinFailed  = "JOIN_FAILED"
	CodeUserFailed  = "USER_FAILED"
	CodeServerFail  = "SERVER_FAIL"
)

// Board is a kanban project identified by an opaque slug.
type Board struct {
	BoardSlug         string    `json:"board_slug"`
	BoardTitle        string    `json:"board_title"`
	MessagesAllowed   bool      `json:"messages_allowed"`
	NewMembersAllowed bool      `json:"new_members_allowed"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// GroupName returns the broadcast group name for the board.
func (b *Board) GroupName() string {
	return "board." + b.BoardSlug
}

// Column is an ordered lane within a board. ColumnIndex values are dense
// and zero-based within a board.
type Column struct {
	BoardSlug   string    `json:"board"`
	ColumnID    int64     `json:"column_id"`
	ColumnIndex int       `json:"column_index"`
	ColumnTitle string    `json:"column_title"`
	WIPLimitOn  bool      `json:"wip_limit_on"`
	WIPLimit    int       `json:"wip_limit"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Task is an ordered card within a column. TaskIndex values are dense and
// zero-based within a column.
type Task struct {
	BoardSlug  string    `json:"board"`
	ColumnID   int64     `json:"column"`
	TaskID     int64     `json:"task_id"`
	TaskIndex  int       `json:"task_index"`
	Text       string    `json:"text"`
	IsArchived bool      `json:"-"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BoardMembership associates a user with a board and a role.
type BoardMembership struct {
	BoardSlug   string    `json:"board"`
	User        User      `json:"user"`
	Role        int       `json:"role"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// BoardMessage is an immutable chat message on a board.
type BoardMessage struct {
	BoardSlug string    `json:"board"`
	MsgID     int64     `json:"msg_id"`
	Sender    User      `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Invitation is a pending (board, email) join record, unique per pair.
type Invitation struct {
	InvitationID int64     `json:"-"`
	BoardSlug    string    `json:"board"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}

// ActivityLog records a board-level event for the activity feed.
type ActivityLog struct {
	BoardSlug string    `json:"board"`
	TaskID    *int64    `json:"task"`
	Command   string    `json:"command"`
	Msg       string    `json:"msg"`
	CreatedAt time.Time `json:"created_at"`
}

// BoardSnapshot is the full serialized board state sent on join.
type BoardSnapshot struct {
	BoardSlug         string            `json:"board_slug"`
	BoardTitle        string            `json:"board_title"`
	MessagesAllowed   bool              `json:"messages_allowed"`
	NewMembersAllowed bool              `json:"new_members_allowed"`
	Columns           []Column          `json:"columns"`
	Tasks             []Task            `json:"tasks"`
	Memberships       []BoardMembership `json:"memberships"`
	Messages          []BoardMessage    `json:"messages"`
	ActivityLogs      []ActivityLog     `json:"activity_logs"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// BoardThumb is the compact board listing entry for the REST surface.
type BoardThumb struct {
	BoardSlug  string    `json:"board_slug"`
	BoardTitle string    `json:"board_title"`
	JoinedAt   time.Time `json:"created_at"`
}

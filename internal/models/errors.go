package models

import (
	"fmt"
	"time"
)

// ErrorKind classifies a ClientError for the command-loop boundary:
// expected kinds are reported to the client without server-side error
// logging, everything else is logged with full context.
type ErrorKind string

const (
	KindAdmission     ErrorKind = "admission"     // throttled
	KindValidation    ErrorKind = "validation"    // malformed or missing payload fields
	KindAuthorization ErrorKind = "authorization" // role or self-action rule violation
	KindConflict      ErrorKind = "conflict"      // not-found, unique-constraint violation
	KindInvariant     ErrorKind = "invariant"     // unexpected row counts, renumber failures
	KindConnect       ErrorKind = "connect"       // connection-establishment failure
)

// ClientError is the single error type surfaced to board clients. It
// carries a stable kind, the wire code, the offending command and a
// human-readable message. The wrapped cause never reaches the client.
type ClientError struct {
	Kind      ErrorKind
	Code      string
	Command   string
	Data      interface{}
	Detail    string
	Message   string
	User      string
	CreatedAt time.Time
	quiet     bool
	cause     error
}

func (e *ClientError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.cause
}

// Expected reports whether the condition is client-visible but not worth
// a server-side error log (throttled, duplicate name, invite not sent).
func (e *ClientError) Expected() bool {
	return e.quiet
}

// WSError renders the error as a unicast wire message.
func (e *ClientError) WSError() ServerMessage {
	return ServerMessage{
		Code: e.Code,
		Error: &ErrorBody{
			Command:   e.Command,
			Data:      e.Data,
			Detail:    e.Detail,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		},
		User: e.User,
	}
}

func newClientError(kind ErrorKind, code, command, message string, cause error) *ClientError {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &ClientError{
		Kind:      kind,
		Code:      code,
		Command:   command,
		Detail:    detail,
		Message:   message,
		CreatedAt: time.Now(),
		cause:     cause,
	}
}

// NewThrottled reports that a command was rate-limited.
func NewThrottled(command string) *ClientError {
	e := newClientError(KindAdmission, CodeError, command, "Too many requests", nil)
	e.quiet = true
	return e
}

// NewInvalidContent reports a malformed or missing payload field.
func NewInvalidContent(cause error, command string) *ClientError {
	return newClientError(KindValidation, CodeError, command, "Invalid content", cause)
}

// NewInvalidCommand reports an unrecognized command.
func NewInvalidCommand(command string) *ClientError {
	return newClientError(KindValidation, CodeError, command, "Invalid command", nil)
}

// NewMissingCommand reports an inbound message with no "command" field.
func NewMissingCommand() *ClientError {
	return newClientError(KindValidation, CodeError, CmdNoCommand, "Missing command", nil)
}

// NewNotAllowed reports a role or self-action rule violation.
func NewNotAllowed(command string) *ClientError {
	return newClientError(KindAuthorization, CodeError, command, "Action not allowed", nil)
}

// NewNotAllowedMessage is NewNotAllowed with a specific message.
func NewNotAllowedMessage(command, message string) *ClientError {
	return newClientError(KindAuthorization, CodeError, command, message, nil)
}

// NewOperationFailed wraps a storage failure under a generic message
// tagged with the originating command.
func NewOperationFailed(command, message string, cause error) *ClientError {
	return newClientError(KindConflict, CodeError, command, message, cause)
}

// NewInvariantViolation flags an unexpected affected-row count or a
// renumbering inconsistency. Always logged, never swallowed.
func NewInvariantViolation(command, message string, cause error) *ClientError {
	return newClientError(KindInvariant, CodeError, command, message, cause)
}

// NewDuplicateDisplayName reports a display-name uniqueness conflict.
func NewDuplicateDisplayName(cause error) *ClientError {
	e := newClientError(KindConflict, CodeError, CmdDisplayName, "This name is already in use", cause)
	e.quiet = true
	return e
}

// NewInviteFailed reports a failure while creating or sending an invite.
func NewInviteFailed(cause error) *ClientError {
	return newClientError(KindConflict, CodeError, CmdInvite, "Invitation failed", cause)
}

// NewInviteNotSent reports an invite precondition failure (board full,
// already a member, already invited).
func NewInviteNotSent(message string) *ClientError {
	e := newClientError(KindConflict, CodeError, CmdInvite, message, nil)
	e.quiet = true
	return e
}

// NewBoardFailed reports a board lookup or access failure during join.
func NewBoardFailed(cause error) *ClientError {
	return newClientError(KindConnect, CodeBoardFailed, "", "Failed to load board", cause)
}

// NewBoardAccessDenied reports a join attempt by a non-member.
func NewBoardAccessDenied() *ClientError {
	return newClientError(KindConnect, CodeBoardFailed, "", "Board access denied", nil)
}

// NewJoinFailed reports an invite-redemption failure during join.
func NewJoinFailed(cause error) *ClientError {
	return newClientError(KindConnect, CodeJoinFailed, "", "Error joining board", cause)
}

// NewUserFailed reports a user lookup failure.
func NewUserFailed(cause error) *ClientError {
	return newClientError(KindConnect, CodeUserFailed, "", "Failed to load user", cause)
}

// NewServerError wraps an unexpected error at the command-loop boundary.
func NewServerError(cause error) *ClientError {
	return newClientError(KindInvariant, CodeServerFail, "", "Error", cause)
}

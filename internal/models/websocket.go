package models

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// CommandEnvelope is the first-pass decode of an inbound board message.
// Command is a pointer so a missing "command" field can be told apart
// from an empty one.
type CommandEnvelope struct {
	Command *string `json:"command"`
}

// ServerMessage is any message sent to a board client: the snapshot on
// join, group updates after accepted mutations, and unicast errors.
type ServerMessage struct {
	Code    string      `json:"code"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	User    string      `json:"user,omitempty"`
}

// ErrorBody is the error payload inside a unicast error message.
type ErrorBody struct {
	Command   string      `json:"command,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}

// BoardConnection represents a single WebSocket connection joined to a
// board session.
type BoardConnection struct {
	ConnID    string
	BoardSlug string
	UserSlug  string
	ClientIP  string
	Conn      *websocket.Conn
	CreatedAt time.Time
	WriteChan chan ServerMessage
	Mutex     sync.Mutex
	closed    bool
}

// SafeSend sends a message to WriteChan safely, returning false if the
// connection has been closed.
func (bc *BoardConnection) SafeSend(msg ServerMessage) bool {
	bc.Mutex.Lock()
	if bc.closed {
		bc.Mutex.Unlock()
		return false
	}
	bc.Mutex.Unlock()

	// Use defer/recover to handle panic from send on closed channel
	defer func() {
		if r := recover(); r != nil {
			bc.Mutex.Lock()
			bc.closed = true
			bc.Mutex.Unlock()
		}
	}()

	bc.WriteChan <- msg
	return true
}

// MarkClosed marks the connection as closed.
func (bc *BoardConnection) MarkClosed() {
	bc.Mutex.Lock()
	bc.closed = true
	bc.Mutex.Unlock()
}

// IsClosed returns true if the connection has been marked as closed.
func (bc *BoardConnection) IsClosed() bool {
	bc.Mutex.Lock()
	defer bc.Mutex.Unlock()
	return bc.closed
}

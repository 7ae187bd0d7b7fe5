package services

import (
	"context"
	"testing"
	"time"

	"simplekanban/internal/models"
)

func newTestConn(id string) *models.BoardConnection {
	return &models.BoardConnection{
		ConnID:    id,
		BoardSlug: "board12345",
		UserSlug:  "user123456",
		CreatedAt: time.Now(),
		WriteChan: make(chan models.ServerMessage, 10),
	}
}

func TestGroupBroadcasterPublish(t *testing.T) {
	b := NewGroupBroadcaster()
	ctx := context.Background()

	first := newTestConn("conn-1")
	second := newTestConn("conn-2")
	outsider := newTestConn("conn-3")

	b.Join("board.aaa", first)
	b.Join("board.aaa", second)
	b.Join("board.bbb", outsider)

	if b.Count() != 3 {
		t.Fatalf("Count = %d, want 3", b.Count())
	}
	if b.GroupCount("board.aaa") != 2 {
		t.Fatalf("GroupCount = %d, want 2", b.GroupCount("board.aaa"))
	}

	msg := models.ServerMessage{Code: models.CodeTasksSaved}
	if err := b.Publish(ctx, "board.aaa", msg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for _, conn := range []*models.BoardConnection{first, second} {
		select {
		case got := <-conn.WriteChan:
			if got.Code != models.CodeTasksSaved {
				t.Fatalf("delivered code = %q", got.Code)
			}
		default:
			t.Fatalf("connection %s received nothing", conn.ConnID)
		}
	}

	select {
	case <-outsider.WriteChan:
		t.Fatal("outsider received a message for another group")
	default:
	}
}

func TestGroupBroadcasterLeaveClosesChannel(t *testing.T) {
	b := NewGroupBroadcaster()

	conn := newTestConn("conn-1")
	b.Join("board.aaa", conn)
	b.Leave("board.aaa", "conn-1")

	if !conn.IsClosed() {
		t.Fatal("connection not marked closed after Leave")
	}
	if _, open := <-conn.WriteChan; open {
		t.Fatal("WriteChan still open after Leave")
	}
	if b.Count() != 0 {
		t.Fatalf("Count = %d, want 0", b.Count())
	}

	// Leaving twice is harmless
	b.Leave("board.aaa", "conn-1")
	b.Leave("board.zzz", "conn-1")
}

func TestSafeSendAfterClose(t *testing.T) {
	b := NewGroupBroadcaster()

	conn := newTestConn("conn-1")
	b.Join("board.aaa", conn)
	b.Leave("board.aaa", "conn-1")

	if conn.SafeSend(models.ServerMessage{Code: models.CodeTasksSaved}) {
		t.Fatal("SafeSend reported delivery on a closed connection")
	}

	// Publishing to a group whose member closed must not panic
	if err := b.Publish(context.Background(), "board.aaa", models.ServerMessage{}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}

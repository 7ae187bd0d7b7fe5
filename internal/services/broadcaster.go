package services

import (
	"context"
	"log"
	"sync"

	"simplekanban/internal/models"
)

// Broadcaster fans board updates out to every connection joined to a
// board group. Implementations must be safe for concurrent use.
type Broadcaster interface {
	// Join registers a connection in the group.
	Join(group string, conn *models.BoardConnection)
	// Leave removes a connection from the group. The connection's
	// WriteChan is closed here, not by the caller.
	Leave(group, connID string)
	// Publish delivers msg to every connection in the group.
	Publish(ctx context.Context, group string, msg models.ServerMessage) error
	// Count returns the number of connections across all groups.
	Count() int
	// Close releases any external resources.
	Close() error
}

// GroupBroadcaster is the in-process Broadcaster. It delivers directly
// to local connections and is the right choice for a single server.
type GroupBroadcaster struct {
	groups map[string]map[string]*models.BoardConnection
	mutex  sync.RWMutex
}

// NewGroupBroadcaster creates an empty in-process broadcaster.
func NewGroupBroadcaster() *GroupBroadcaster {
	return &GroupBroadcaster{
		groups: make(map[string]map[string]*models.BoardConnection),
	}
}

// Join registers a connection in the group.
func (b *GroupBroadcaster) Join(group string, conn *models.BoardConnection) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	conns, ok := b.groups[group]
	if !ok {
		conns = make(map[string]*models.BoardConnection)
		b.groups[group] = conns
	}
	conns[conn.ConnID] = conn
	log.Printf("✅ Connection joined %s: %s (group size: %d)", group, conn.ConnID, len(conns))
}

// Leave removes a connection from the group and closes its WriteChan.
func (b *GroupBroadcaster) Leave(group, connID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	conns, ok := b.groups[group]
	if !ok {
		return
	}
	if conn, exists := conns[connID]; exists {
		conn.MarkClosed()
		close(conn.WriteChan)
		delete(conns, connID)
		log.Printf("❌ Connection left %s: %s (group size: %d)", group, connID, len(conns))
	}
	if len(conns) == 0 {
		delete(b.groups, group)
	}
}

// Publish delivers msg to every connection in the group.
func (b *GroupBroadcaster) Publish(ctx context.Context, group string, msg models.ServerMessage) error {
	b.mutex.RLock()
	conns := make([]*models.BoardConnection, 0, len(b.groups[group]))
	for _, conn := range b.groups[group] {
		conns = append(conns, conn)
	}
	b.mutex.RUnlock()

	for _, conn := range conns {
		conn.SafeSend(msg)
	}
	return nil
}

// Count returns the number of connections across all groups.
func (b *GroupBroadcaster) Count() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	total := 0
	for _, conns := range b.groups {
		total += len(conns)
	}
	return total
}

// GroupCount returns the number of connections in one group.
func (b *GroupBroadcaster) GroupCount(group string) int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.groups[group])
}

// Close is a no-op for the in-process broadcaster.
func (b *GroupBroadcaster) Close() error {
	return nil
}

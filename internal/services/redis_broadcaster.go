package services

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"simplekanban/internal/models"
)

const groupChannelPrefix = "board."

// RedisBroadcaster fans board updates out across server instances via
// Redis pub/sub. Local connections are tracked by an embedded
// GroupBroadcaster; Publish goes through Redis so every instance
// (including this one) delivers to its own connections.
type RedisBroadcaster struct {
	local  *GroupBroadcaster
	client *redis.Client
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

// NewRedisBroadcaster connects to Redis at redisURL and starts the
// relay subscription for all board groups.
func NewRedisBroadcaster(redisURL string) (*RedisBroadcaster, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisBroadcaster{
		local:  NewGroupBroadcaster(),
		client: client,
		pubsub: client.PSubscribe(ctx, groupChannelPrefix+"*"),
		cancel: cancel,
	}
	go b.relay(ctx)
	log.Printf("✅ Redis broadcaster connected")
	return b, nil
}

// relay delivers messages published on any board channel to the local
// connections joined to that group.
func (b *RedisBroadcaster) relay(ctx context.Context) {
	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			if !strings.HasPrefix(m.Channel, groupChannelPrefix) {
				continue
			}
			var msg models.ServerMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				slog.Error("Dropping malformed group message",
					"channel", m.Channel,
					"error", err)
				continue
			}
			b.local.Publish(ctx, m.Channel, msg)
		}
	}
}

// Join registers a connection in the group.
func (b *RedisBroadcaster) Join(group string, conn *models.BoardConnection) {
	b.local.Join(group, conn)
}

// Leave removes a connection from the group.
func (b *RedisBroadcaster) Leave(group, connID string) {
	b.local.Leave(group, connID)
}

// Publish sends msg through Redis; the relay on each instance delivers
// it to that instance's local connections.
func (b *RedisBroadcaster) Publish(ctx context.Context, group string, msg models.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, group, payload).Err()
}

// Count returns the number of local connections across all groups.
func (b *RedisBroadcaster) Count() int {
	return b.local.Count()
}

// Close stops the relay and closes the Redis client.
func (b *RedisBroadcaster) Close() error {
	b.cancel()
	b.pubsub.Close()
	return b.client.Close()
}

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event is the envelope written to sockets.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Publisher fans an event out to a user wherever they are connected.
type Publisher interface {
	Publish(ctx context.Context, userID string, ev Event) error
}

// LocalBroker delivers straight to the in-process hub.
type LocalBroker struct {
	hub *Hub
}

func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

func (b *LocalBroker) Publish(_ context.Context, userID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	b.hub.Deliver(userID, data)
	return nil
}

const channelPrefix = "jbc:user:"

func userChannel(userID string) string {
	return channelPrefix + userID
}

// RedisBroker publishes through Redis Pub/Sub so every API instance can
// deliver to the sockets it holds.
type RedisBroker struct {
	rdb    *goredis.Client
	hub    *Hub
	logger zerolog.Logger
}

func NewRedisBroker(rdb *goredis.Client, hub *Hub, logger zerolog.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, hub: hub, logger: logger.With().Str("component", "broker").Logger()}
}

func (b *RedisBroker) Publish(ctx context.Context, userID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.rdb.Publish(ctx, userChannel(userID), data).Err()
}

// Run relays every user channel to the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID := strings.TrimPrefix(msg.Channel, channelPrefix)
			b.hub.Deliver(userID, []byte(msg.Payload))
		}
	}
}

// NopPublisher drops events. Used by the worker, which holds no sockets and
// has no Redis configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/homeroom/core"
)

func newOrigin() string { return uuid.NewString() }

// RedisBridge relays bus messages over a Redis pub/sub channel.
type RedisBridge struct {
	rdb     *redis.Client
	channel string
	logger  core.Logger
}

var _ Bridge = (*RedisBridge)(nil)

func NewRedisBridge(rdb *redis.Client, channel string, logger core.Logger) *RedisBridge {
	return &RedisBridge{rdb: rdb, channel: channel, logger: logger}
}

func (br *RedisBridge) Forward(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshalling message")
	}
	return errors.Wrap(br.rdb.Publish(ctx, br.channel, b).Err(), "publishing to redis")
}

// Start subscribes to the channel and feeds incoming messages to bus until ctx is done.
func (br *RedisBridge) Start(ctx context.Context, bus *Bus) error {
	pubsub := br.rdb.Subscribe(ctx, br.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return errors.Wrap(err, "subscribing to redis channel")
	}
	ch := pubsub.Channel()

	go func() {
		defer func() { _ = pubsub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					br.logger.Warn(fmt.Sprintf("events: dropping malformed redis message: %v", err), err)
					continue
				}
				bus.Deliver(ctx, msg)
			}
		}
	}()
	return nil
}

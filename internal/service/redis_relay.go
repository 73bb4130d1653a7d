package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"dario/internal/logger"
	"dario/internal/model"

	"github.com/redis/go-redis/v9"
)

// ErrEmptyRedisAddress is returned when Redis is not configured
var ErrEmptyRedisAddress = errors.New("redis address is required")

const redisConnectTimeout = 5 * time.Second

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, ErrEmptyRedisAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// relayEnvelope is the message format on the Redis channel
type relayEnvelope struct {
	UserID string            `json:"user_id"`
	Event  model.SocketEvent `json:"event"`
}

// RedisRelay fans realtime events out to every instance through a Redis
// channel. Each instance delivers what it receives to its local hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   *Hub

	ready     chan struct{}
	readyOnce sync.Once
}

// NewRedisRelay creates a relay publishing on channel
func NewRedisRelay(client *redis.Client, channel string, local *Hub) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		local:   local,
		ready:   make(chan struct{}),
	}
}

// Publish implements Broadcaster
func (r *RedisRelay) Publish(ctx context.Context, userID string, event model.SocketEvent) error {
	payload, err := json.Marshal(relayEnvelope{UserID: userID, Event: event})
	if err != nil {
		return fmt.Errorf("failed to encode relay event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish relay event: %w", err)
	}
	return nil
}

// Ready is closed once the subscription is active
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run forwards channel messages to the local hub until ctx is done
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.readyOnce.Do(func() { close(r.ready) })
	logger.Info().Str("channel", r.channel).Msg("realtime relay subscribed")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Warn().Err(err).Msg("dropping malformed relay event")
				continue
			}
			_ = r.local.Publish(ctx, env.UserID, env.Event)
		}
	}
}

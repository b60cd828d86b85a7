package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quicktalk/internal/pkg/logx"
)

// DefaultChannel is the Redis channel route requests travel on.
const DefaultChannel = "quicktalk:route"

// RedisConfig is the connection setting shared by the Redis bus and the Redis window store.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisBus fans route requests out to every instance through Redis pub/sub.
type RedisBus struct {
	client  *redis.Client
	channel string
	handler Handler
	logger  zerolog.Logger
}

// NewRedisBus returns a bus publishing on channel and delivering to h. An empty channel
// means DefaultChannel.
func NewRedisBus(client *redis.Client, channel string, h Handler) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		handler: h,
		logger:  logx.Component("redis_bus"),
	}
}

func (b *RedisBus) Publish(ctx context.Context, req RouteRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal route request: %w", err)
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Run subscribes to the channel and delivers requests until ctx is done.
func (b *RedisBus) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	b.logger.Info().Str("channel", b.channel).Msg("Subscribed to route channel.")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var req RouteRequest
			if err := json.Unmarshal([]byte(msg.Payload), &req); err != nil {
				b.logger.Warn().Err(err).Msg("Dropping malformed route request.")
				continue
			}
			b.handler(req)
		}
	}
}

// Close is a no-op; the client is owned by whoever created it.
func (b *RedisBus) Close() error { return nil }

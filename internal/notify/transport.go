package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hardik-0129/backend/internal/logger"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// RedisTransport publishes on the wallet:<userId> pub/sub channel.
type RedisTransport struct {
	redis *redis.Client
}

func NewRedisTransport(rdb *redis.Client) *RedisTransport {
	return &RedisTransport{redis: rdb}
}

func RedisChannel(userID int64) string {
	return "wallet:" + strconv.FormatInt(userID, 10)
}

func (t *RedisTransport) Publish(ctx context.Context, userID int64, payload []byte) error {
	return t.redis.Publish(ctx, RedisChannel(userID), payload).Err()
}

// Close is a no-op; the client is shared with the queue.
func (t *RedisTransport) Close() error { return nil }

type natsPublisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSTransport publishes on wallet.updates.<userId>.
type NATSTransport struct {
	conn natsPublisher
}

func NewNATSTransport(url string) (*NATSTransport, error) {
	nc, err := nats.Connect(url,
		nats.Name("arena-wallet-notify"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSTransport{conn: nc}, nil
}

func NATSSubject(userID int64) string {
	return "wallet.updates." + strconv.FormatInt(userID, 10)
}

func (t *NATSTransport) Publish(_ context.Context, userID int64, payload []byte) error {
	return t.conn.Publish(NATSSubject(userID), payload)
}

func (t *NATSTransport) Close() error {
	return t.conn.Drain()
}

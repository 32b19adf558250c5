// Package notify pushes committed balance changes to connected clients. Events
// are queued in Redis and delivered by a background worker so that a slow or
// broken transport never holds up a ledger operation.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/logger"
	"github.com/hardik-0129/backend/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	queueKey  = "wallet:events"
	failedKey = queueKey + ":failed"
)

var ErrNotInitialized = errors.New("notifier is not initialized")

// Event is one balance update on its way to a client.
type Event struct {
	UserID       int64           `json:"user_id"`
	JoinBalance  decimal.Decimal `json:"join_balance"`
	WinBalance   decimal.Decimal `json:"win_balance"`
	TotalBalance decimal.Decimal `json:"total_balance"`
	Tries        int             `json:"tries"`
	Created      time.Time       `json:"created"`
}

// Transport delivers a serialized event to the user's realtime channel.
type Transport interface {
	Publish(ctx context.Context, userID int64, payload []byte) error
	Close() error
}

type Service struct {
	redis    *redis.Client
	maxTries int
	// retryDelay spaces redelivery attempts; pollBackoff pauses the worker
	// while the queue itself is unreachable.
	retryDelay     time.Duration
	pollBackoff    time.Duration
	enqueueTimeout time.Duration

	mu        sync.RWMutex
	transport Transport
}

func New(rdb *redis.Client, maxTries int) *Service {
	if maxTries <= 0 {
		maxTries = 3
	}
	return &Service{
		redis:          rdb,
		maxTries:       maxTries,
		retryDelay:     5 * time.Second,
		pollBackoff:    time.Second,
		enqueueTimeout: 500 * time.Millisecond,
	}
}

// Init attaches the transport. Events raised before Init are dropped.
func (s *Service) Init(t Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport = t
	logger.Info("notifier initialized")
}

// Shutdown detaches and closes the transport. Later events are dropped.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	t := s.transport
	s.transport = nil
	s.mu.Unlock()

	if t == nil {
		return nil
	}
	logger.Info("notifier shut down")
	return t.Close()
}

func (s *Service) current() Transport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transport
}

// BalanceChanged queues snap for delivery. It never fails the caller.
func (s *Service) BalanceChanged(ctx context.Context, snap ledger.BalanceSnapshot) {
	if s.current() == nil {
		metrics.RecordNotification("dropped")
		logger.Debug("balance event dropped: notifier not initialized", "user_id", snap.UserID)
		return
	}

	ev := Event{
		UserID:       snap.UserID,
		JoinBalance:  snap.JoinBalance,
		WinBalance:   snap.WinBalance,
		TotalBalance: snap.TotalBalance,
		Created:      time.Now(),
	}
	// the request context may already be cancelled once the handler returns
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.enqueueTimeout)
	defer cancel()
	if err := s.enqueue(qctx, ev); err != nil {
		metrics.RecordNotification("enqueue_failed")
		logger.WithError(err).Error("failed to queue balance event", "user_id", snap.UserID)
		return
	}
	metrics.RecordNotification("queued")
}

func (s *Service) enqueue(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.redis.LPush(ctx, queueKey, data).Err()
}

// Start runs the delivery worker until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("notify worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("notify worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return
	}
	if err != nil {
		if ctx.Err() == nil {
			logger.WithError(err).Warn("notify queue unavailable")
			s.pause(ctx, s.pollBackoff)
		}
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
		logger.Errorf("bad balance event: %v", err)
		return
	}

	ev.Tries++
	if err := s.deliver(ctx, ev); err != nil {
		logger.WithError(err).Warn("balance event delivery failed", "user_id", ev.UserID, "attempt", ev.Tries)

		if ev.Tries < s.maxTries && !errors.Is(err, ErrNotInitialized) {
			s.pause(ctx, s.retryDelay)
			if err := s.enqueue(context.WithoutCancel(ctx), ev); err != nil {
				logger.WithError(err).Error("failed to requeue balance event", "user_id", ev.UserID)
			}
			return
		}
		s.saveFailed(ctx, ev, err)
		return
	}

	metrics.RecordNotification("delivered")
}

func (s *Service) deliver(ctx context.Context, ev Event) error {
	t := s.current()
	if t == nil {
		return ErrNotInitialized
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return t.Publish(ctx, ev.UserID, data)
}

func (s *Service) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (s *Service) saveFailed(ctx context.Context, ev Event, err error) {
	failed := map[string]interface{}{
		"event": ev,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.WithoutCancel(ctx), failedKey, data)
	metrics.RecordNotification("failed")
	logger.Error("balance event moved to failed queue", "user_id", ev.UserID, "tries", ev.Tries)
}

// QueueLength reports the number of undelivered events and updates the gauge.
func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.NotifyQueueLength.Set(float64(length))
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

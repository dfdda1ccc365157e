package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key and channel helpers.
//
// All keys and channels are namespaced by instance name so multiple
// videoscout deployments can share a Redis server.
//
// Key pattern: scout:{instance}:session:{thread_id}
// Channel pattern: scout:{instance}:session_events

// SessionKey returns the Redis key holding a session's checkpoint record.
func SessionKey(instanceName, threadID string) string {
	return fmt.Sprintf("scout:%s:session:%s", instanceName, threadID)
}

// SessionEventsChannel returns the Pub/Sub channel carrying checkpoint
// events for an instance.
func SessionEventsChannel(instanceName string) string {
	return fmt.Sprintf("scout:%s:session_events", instanceName)
}

// RedisStore persists checkpoint records in Redis. Each save is a single SET
// of the JSON-encoded record, so a record is either fully persisted or not
// observed. After every successful save the record is also published on the
// instance's session events channel for external monitors.
type RedisStore struct {
	rdb          *redis.Client
	instanceName string
}

// NewRedisStore creates a Redis-backed checkpoint store for the given
// instance. Returns an error if instanceName is empty.
func NewRedisStore(redisOpts *redis.Options, instanceName string) (*RedisStore, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &RedisStore{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	if rec.ThreadID == "" {
		return fmt.Errorf("thread id cannot be empty")
	}
	stored := *rec
	stored.SavedAtMs = time.Now().UnixMilli()

	payload, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}

	key := SessionKey(s.instanceName, rec.ThreadID)
	if err := s.rdb.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write checkpoint to Redis: %w", err)
	}

	channel := SessionEventsChannel(s.instanceName)
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish checkpoint event: %w", err)
	}

	return nil
}

func (s *RedisStore) Load(ctx context.Context, threadID string) (*Record, error) {
	key := SessionKey(s.instanceName, threadID)

	payload, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint from Redis: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, threadID string) error {
	key := SessionKey(s.instanceName, threadID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Subscription is an active Pub/Sub subscription to checkpoint events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Record
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of checkpoint records. The channel is closed
// when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Record {
	return s.events
}

// Errors returns the channel of subscription errors. Errors are non-fatal;
// the offending message is skipped and the subscription continues.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeSessionEvents subscribes to checkpoint events for this instance.
// Events are delivered on a buffered channel; Redis Pub/Sub is at-most-once,
// so a slow subscriber may miss events.
func (s *RedisStore) SubscribeSessionEvents(ctx context.Context) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, SessionEventsChannel(s.instanceName))

	eventsChan := make(chan *Record, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var rec Record
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal checkpoint event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case eventsChan <- &rec:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

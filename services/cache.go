package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"inspection-tracking-api/config"
	"inspection-tracking-api/metrics"
	"inspection-tracking-api/models"

	"github.com/redis/go-redis/v9"
)

// ResponseKeyPrefix namespaces every cached API response so an import can
// flush them in one sweep.
const ResponseKeyPrefix = "inspections:resp:"

// CacheService is a read-through response cache and the import event bus. A
// CacheService without a client is valid: reads miss and writes are dropped.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(cfg config.RedisConfig) (*CacheService, error) {
	if !cfg.Enabled {
		return &CacheService{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	attempts := cfg.PingAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return &CacheService{client: client}, nil
		}
		log.Printf("Redis ping attempt %d/%d failed: %v", i+1, attempts, lastErr)
		if i+1 < attempts {
			time.Sleep(2 * time.Second)
		}
	}

	_ = client.Close()
	return &CacheService{}, fmt.Errorf("redis ping failed after %d attempts: %w", attempts, lastErr)
}

func (s *CacheService) Available() bool {
	return s != nil && s.client != nil
}

// ResponseKey builds a cache key under ResponseKeyPrefix.
func ResponseKey(parts ...string) string {
	key := ResponseKeyPrefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// Get decodes the cached value into dest. It returns redis.Nil on a miss.
func (s *CacheService) Get(ctx context.Context, key string, dest any) error {
	if !s.Available() {
		return redis.Nil
	}
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheMiss()
		}
		return err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return err
	}
	metrics.CacheHit()
	return nil
}

func (s *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !s.Available() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// InvalidatePrefix deletes every key starting with prefix and reports how
// many were removed.
func (s *CacheService) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	if !s.Available() {
		return 0, nil
	}
	removed := 0
	iter := s.client.Scan(ctx, 0, prefix+"*", 200).Iterator()
	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			n, err := s.client.Del(ctx, batch...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	if len(batch) > 0 {
		n, err := s.client.Del(ctx, batch...).Result()
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}
	return removed, nil
}

func (s *CacheService) Publish(ctx context.Context, channel string, message any) error {
	if !s.Available() {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, channel, data).Err()
}

// PublishImport announces a finished import on models.ImportEventsChannel.
func (s *CacheService) PublishImport(ctx context.Context, ev models.ImportEvent) error {
	return s.Publish(ctx, models.ImportEventsChannel, ev)
}

// Subscribe returns nil when Redis is not configured.
func (s *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if !s.Available() {
		return nil
	}
	return s.client.Subscribe(ctx, channel)
}

// WatchImports flushes cached responses whenever an import finishes, then
// calls onImport. It blocks until ctx is cancelled.
func (s *CacheService) WatchImports(ctx context.Context, onImport func(models.ImportEvent)) {
	pubsub := s.Subscribe(ctx, models.ImportEventsChannel)
	if pubsub == nil {
		return
	}
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev models.ImportEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("bad import event: %v", err)
				continue
			}
			n, err := s.InvalidatePrefix(ctx, ResponseKeyPrefix)
			if err != nil {
				log.Printf("cache flush after import %s failed: %v", ev.ImportID, err)
			} else {
				log.Printf("import %s finished, flushed %d cached responses", ev.ImportID, n)
			}
			if onImport != nil {
				onImport(ev)
			}
		}
	}
}

func (s *CacheService) Close() error {
	if !s.Available() {
		return nil
	}
	return s.client.Close()
}

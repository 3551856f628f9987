package remote

import (
	"context"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"
)

const (
	redisDocPrefix   = "chatsync:doc:"
	redisWatchPrefix = "chatsync:watch:"
)

// RedisStore keeps each tree in a string key and publishes every write in full.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Set(ctx context.Context, path string, value []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisDocPrefix+path, value, 0)
	pipe.Publish(ctx, redisWatchPrefix+path, value)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, path string) ([]byte, error) {
	val, err := s.client.Get(ctx, redisDocPrefix+path).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (s *RedisStore) Watch(ctx context.Context, path string, onValue func([]byte)) error {
	go s.watchLoop(ctx, path, onValue)
	return nil
}

// watchLoop subscribes before reading the current value so no write falls in between.
// On any error it resubscribes with a doubling backoff and re-reads the value.
func (s *RedisStore) watchLoop(ctx context.Context, path string, onValue func([]byte)) {
	backoff := minBackoff
	channel := redisWatchPrefix + path

	for ctx.Err() == nil {
		err := func() error {
			pubsub := s.client.Subscribe(ctx, channel)
			defer pubsub.Close()

			if _, err := pubsub.Receive(ctx); err != nil {
				return err
			}
			log.Printf("✅ Redis watch started (channel: %s)", channel)

			current, err := s.Get(ctx, path)
			if err != nil {
				return err
			}
			onValue(current)
			backoff = minBackoff

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					return err
				}
				onValue([]byte(msg.Payload))
			}
		}()
		if ctx.Err() != nil {
			return
		}
		log.Printf("Redis watch error on %s: %v", channel, err)
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// Close is a no-op; the client is owned by the database package.
func (s *RedisStore) Close() error {
	return nil
}

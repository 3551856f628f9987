package database

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

var RedisClient *redis.Client

// redisClientName tags agent connections in CLIENT LIST.
const redisClientName = "chatsync-agent"

// ConnectRedis connects to the Redis instance shared by every client profile.
// Each watched collection pins one pub/sub connection, so the pool is sized
// above that floor.
func ConnectRedis(redisURI string) error {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return err
	}

	opt.ClientName = redisClientName
	opt.PoolSize = len(models.AllCollections) + 4
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return err
	}

	RedisClient = client
	log.Printf("✅ Connected to Redis (pool %d)", opt.PoolSize)
	return nil
}

func DisconnectRedis() error {
	if RedisClient == nil {
		return nil
	}
	err := RedisClient.Close()
	RedisClient = nil
	return err
}

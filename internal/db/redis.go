package db

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis connects the package-level client. Redis is optional; with
// no address configured the client stays nil and callers skip caching.
func InitRedis(address, password string, database int) {
	if address == "" {
		log.Println("Redis not configured, question caching is disabled")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: could not connect to Redis: %s", err)
	} else {
		log.Println("Successfully connected to Redis")
	}

	RedisClient = client
}

func CloseRedis() {
	if RedisClient != nil {
		_ = RedisClient.Close()
	}
}

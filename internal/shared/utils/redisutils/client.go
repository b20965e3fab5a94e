package redisutils

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewClient builds the matchmaking redis client and verifies the
// connection before anyone publishes to it.
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr, //localhost:6379 for dev/test
		DB:       0,    // use default DB
		Password: password,
		Protocol: 2,
		PoolSize: 20,
	})

	_, err := rdb.Ping(ctx).Result()
	return rdb, err
}

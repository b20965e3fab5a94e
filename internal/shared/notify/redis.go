package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes match-found records onto a redis stream so
// out-of-process consumers (session layer, analytics) can react.
type RedisNotifier struct {
	rdb    *redis.Client
	stream string
}

func NewRedisNotifier(rdb *redis.Client, stream string) *RedisNotifier {
	return &RedisNotifier{
		rdb:    rdb,
		stream: stream,
	}
}

func (r *RedisNotifier) MatchFound(ctx context.Context, msg MatchFoundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	values := map[string]interface{}{
		"payload": data,
	}
	return r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		ID:     "*",
		Values: values,
	}).Err()
}

package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CommentDeduper guards against duplicate webhook deliveries. MarkSeen
// returns true the first time a comment id is observed within the TTL.
type CommentDeduper interface {
	MarkSeen(ctx context.Context, commentID string) (bool, error)
}

// RedisDeduper tracks seen comment ids in Redis. Meta redelivers webhook
// events on slow or failed acks; without this a redelivery would post the
// same reply twice.
type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) MarkSeen(ctx context.Context, commentID string) (bool, error) {
	// SET NX is atomic: exactly one delivery wins the key.
	return d.rdb.SetNX(ctx, "webhook:comment:"+commentID, 1, d.ttl).Result()
}

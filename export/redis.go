package export

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes snapshots on a Redis channel and, when a key is
// configured, mirrors them into a length-capped list so late consumers can
// catch up on recent snapshots.
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	sink := export.NewRedisSink(rdb, "probe:snapshots",
//	    export.WithRedisList("probe:snapshots:recent", 100))
type RedisSink struct {
	client  redis.UniversalClient
	channel string
	listKey string
	maxLen  int64
}

// RedisOption configures a RedisSink.
type RedisOption func(*RedisSink)

// WithRedisList mirrors snapshots into the list at key, trimmed to the most
// recent maxLen entries.
func WithRedisList(key string, maxLen int64) RedisOption {
	return func(s *RedisSink) {
		s.listKey = key
		if maxLen > 0 {
			s.maxLen = maxLen
		}
	}
}

// NewRedisSink creates a sink publishing to channel on client.
func NewRedisSink(client redis.UniversalClient, channel string, opts ...RedisOption) *RedisSink {
	s := &RedisSink{
		client:  client,
		channel: channel,
		maxLen:  100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write implements Sink.
func (s *RedisSink) Write(ctx context.Context, payload []byte) error {
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return err
	}
	if s.listKey == "" {
		return nil
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.listKey, payload)
	pipe.LTrim(ctx, s.listKey, 0, s.maxLen-1)
	_, err := pipe.Exec(ctx)
	return err
}

// Close implements Sink. The Redis client is caller-owned and left open.
func (s *RedisSink) Close() error { return nil }

var _ Sink = (*RedisSink)(nil)

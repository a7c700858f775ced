package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/worthlabs/worthhub/internal/domain"
)

const topicTTL = 5 * time.Minute

// TopicCache implements domain.TopicCache using Redis hashes with
// JSON-serialized topic data.
//
// Key schema:
//
//	topic:{id} - hash with field "data" containing JSON
type TopicCache struct {
	rdb *redis.Client
}

// NewTopicCache creates a TopicCache backed by the given Client.
func NewTopicCache(c *Client) *TopicCache {
	return &TopicCache{rdb: c.Underlying()}
}

func topicKey(id uint64) string {
	return "topic:" + strconv.FormatUint(id, 10)
}

// Set stores a topic in the cache with a 5-minute TTL.
func (tc *TopicCache) Set(ctx context.Context, topic domain.Topic) error {
	data, err := json.Marshal(topic)
	if err != nil {
		return fmt.Errorf("redis: marshal topic %d: %w", topic.TopicID, err)
	}

	key := topicKey(topic.TopicID)

	pipe := tc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, topicTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set topic %d: %w", topic.TopicID, err)
	}
	return nil
}

// Get retrieves a topic by its ID from the cache.
// It returns domain.ErrNotFound when the key does not exist.
func (tc *TopicCache) Get(ctx context.Context, topicID uint64) (domain.Topic, error) {
	data, err := tc.rdb.HGet(ctx, topicKey(topicID), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Topic{}, domain.ErrNotFound
		}
		return domain.Topic{}, fmt.Errorf("redis: get topic %d: %w", topicID, err)
	}

	var topic domain.Topic
	if err := json.Unmarshal(data, &topic); err != nil {
		return domain.Topic{}, fmt.Errorf("redis: unmarshal topic %d: %w", topicID, err)
	}
	return topic, nil
}

// Invalidate removes a topic from the cache. Every state-changing
// instruction invalidates the touched topic so readers never see a stale
// status for longer than one round-trip.
func (tc *TopicCache) Invalidate(ctx context.Context, topicID uint64) error {
	if err := tc.rdb.Del(ctx, topicKey(topicID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate topic %d: %w", topicID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.TopicCache = (*TopicCache)(nil)

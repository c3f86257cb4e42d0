package embedding

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const redisKeyPrefix = "omoide:embedding:"

// RedisCache is a Redis-backed implementation of Cache via rueidis.
// Embeddings are stored as little-endian float32 blobs with no TTL. Any Redis
// failure is reported as a miss so callers recompute instead of failing.
type RedisCache struct {
	client rueidis.Client
	logger *zap.Logger
}

// NewRedisCache connects to Redis at the given addresses.
func NewRedisCache(addrs []string, password string, logger *zap.Logger) (*RedisCache, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  addrs,
		Password:     password,
		DisableCache: true,
	})
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: client, logger: logger}, nil
}

// Get returns the cached embedding for key, or a miss on any error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	cmd := c.client.B().Get().Key(redisKeyPrefix + key).Build()
	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.Warn("embedding cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : (i+1)*4]))
	}
	return vec, true
}

// Set stores the embedding for key. Write failures are logged and dropped.
func (c *RedisCache) Set(ctx context.Context, key string, value []float32) {
	data := make([]byte, len(value)*4)
	for i, v := range value {
		binary.LittleEndian.PutUint32(data[i*4:(i+1)*4], math.Float32bits(v))
	}
	cmd := c.client.B().Set().Key(redisKeyPrefix + key).Value(rueidis.BinaryString(data)).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Close shuts down the Redis client.
func (c *RedisCache) Close() {
	c.client.Close()
}

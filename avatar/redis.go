package avatar

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// SharedTier is a second cache tier shared between several processes. It is
// consulted on a miss of the in-process Cache before the Fetcher is called.
// Implementations must treat errors as a miss. Load also returns the
// remaining lifetime of the entry, zero if it is unknown.
type SharedTier interface {
	Load(ctx context.Context, key string) (Avatar, time.Duration, bool)
	Store(ctx context.Context, key string, value Avatar, ttl time.Duration)
}

// DefaultRedisPrefix is prepended to all keys written by RedisTier
const DefaultRedisPrefix = "roster:avatar:"

// RedisConfig configures a RedisTier
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// RedisTier is a SharedTier backed by redis. Entries are msgpack encoded and
// expire through redis' native key TTL.
type RedisTier struct {
	client redis.UniversalClient
	prefix string
}

type redisRecord struct {
	URL    string    `msgpack:"u"`
	Stored time.Time `msgpack:"t"`
}

// NewRedisTier connects to redis and returns a RedisTier
func NewRedisTier(ctx context.Context, conf RedisConfig) (*RedisTier, error) {
	client := redis.NewClient(
		&redis.Options{
			Addr:     conf.Addr,
			Username: conf.Username,
			Password: conf.Password,
			DB:       conf.DB,
		},
	)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "could not connect to redis")
	}
	return NewRedisTierFromClient(client, conf.Prefix), nil
}

// NewRedisTierFromClient wraps an existing redis client
func NewRedisTierFromClient(client redis.UniversalClient, prefix string) *RedisTier {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisTier{
		client: client,
		prefix: prefix,
	}
}

// Load implements the SharedTier interface
func (r *RedisTier) Load(ctx context.Context, key string) (Avatar, time.Duration, bool) {
	var get *redis.StringCmd
	var pttl *redis.DurationCmd
	_, err := r.client.Pipelined(
		ctx, func(pipe redis.Pipeliner) error {
			get = pipe.Get(ctx, r.prefix+key)
			pttl = pipe.PTTL(ctx, r.prefix+key)
			return nil
		},
	)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).WithField("key", key).Warn("could not read avatar from redis")
		}
		return Absent, 0, false
	}
	data, err := get.Bytes()
	if err != nil {
		return Absent, 0, false
	}
	var rec redisRecord
	if err = msgpack.Unmarshal(data, &rec); err != nil {
		log.WithError(err).WithField("key", key).Warn("could not decode avatar from redis")
		return Absent, 0, false
	}
	// negative values mean no expiry or a key that vanished in between
	remaining := max(pttl.Val(), 0)
	return Avatar{URL: rec.URL}, remaining, true
}

// Store implements the SharedTier interface
func (r *RedisTier) Store(ctx context.Context, key string, value Avatar, ttl time.Duration) {
	data, err := msgpack.Marshal(
		redisRecord{
			URL:    value.URL,
			Stored: time.Now(),
		},
	)
	if err != nil {
		log.WithError(err).Warn("could not encode avatar for redis")
		return
	}
	if err = r.client.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("could not write avatar to redis")
	}
}

// Close closes the redis connection
func (r *RedisTier) Close() error {
	return r.client.Close()
}

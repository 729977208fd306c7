package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskdeck/domain"
)

type backend interface {
	FetchLabels(ctx context.Context) ([]domain.Label, error)
	FetchUsers(ctx context.Context) ([]domain.User, error)
}

// Cache wraps the catalog endpoints with Redis-backed caching. A nil client or
// zero TTL turns it into a pass-through.
type Cache struct {
	base      backend
	redis     *redis.Client
	ttl       time.Duration
	namespace string
	logger    *log.Logger
}

// NewCache creates a caching wrapper. namespace separates entries of
// different service instances sharing one Redis.
func NewCache(base backend, client *redis.Client, ttl time.Duration, namespace string) *Cache {
	if base == nil {
		panic("storage.NewCache: base backend is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:      base,
		redis:     client,
		ttl:       ttl,
		namespace: namespace,
		logger:    log.StandardLogger(),
	}
}

// WithLogger sets the logger used for cache misses caused by errors.
func (c *Cache) WithLogger(logger *log.Logger) *Cache {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// FetchLabels returns the label catalog.
func (c *Cache) FetchLabels(ctx context.Context) ([]domain.Label, error) {
	key := c.labelsKey()
	var labels []domain.Label
	if c.load(ctx, key, &labels) {
		return labels, nil
	}
	labels, err := c.base.FetchLabels(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, labels)
	return labels, nil
}

// FetchUsers returns the user directory.
func (c *Cache) FetchUsers(ctx context.Context) ([]domain.User, error) {
	key := c.usersKey()
	var users []domain.User
	if c.load(ctx, key, &users) {
		return users, nil
	}
	users, err := c.base.FetchUsers(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, users)
	return users, nil
}

// Evict drops every cached entry.
func (c *Cache) Evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, c.labelsKey(), c.usersKey()).Err(); err != nil {
		c.logger.WithError(err).Debug("storage.cache.evict")
	}
}

func (c *Cache) load(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the service without failing.
			c.logger.WithError(err).WithField("key", key).Debug("storage.cache.miss")
		}
		return false
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("storage.cache.corrupt")
		if err := c.redis.Del(ctx, key).Err(); err != nil {
			c.logger.WithError(err).WithField("key", key).Debug("storage.cache.evict")
		}
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("storage.cache.encode")
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("storage.cache.store")
	}
}

func (c *Cache) labelsKey() string {
	return c.namespace + "labels:catalog"
}

func (c *Cache) usersKey() string {
	return c.namespace + "users:directory"
}

// Open parses a redis URL, or a host:port with optional ",password=..."
// suffix, and returns a client. An empty value yields nil.
func Open(raw string) (*redis.Client, error) {
	if raw == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		opts, err = parseConnString(raw)
		if err != nil {
			return nil, err
		}
	}
	return redis.NewClient(opts), nil
}

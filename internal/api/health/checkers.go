package health

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Pinger is implemented by the storage layer.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker checks relational store connectivity.
type DatabaseChecker struct {
	name   string
	pinger Pinger
}

// NewDatabaseChecker creates a database checker reported under name.
func NewDatabaseChecker(name string, p Pinger) *DatabaseChecker {
	if name == "" {
		name = "database"
	}
	return &DatabaseChecker{name: name, pinger: p}
}

func (c *DatabaseChecker) Name() string {
	return c.name
}

func (c *DatabaseChecker) Check(ctx context.Context) error {
	if c.pinger == nil {
		return errors.New("database not initialized")
	}
	return c.pinger.Ping(ctx)
}

// RedisChecker checks the retry lock backend.
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

func (c *RedisChecker) Check(ctx context.Context) error {
	if c.client == nil {
		return errors.New("redis not configured")
	}
	return c.client.Ping(ctx).Err()
}

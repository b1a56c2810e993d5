// Package redisconn wraps github.com/go-redis/redis/v8, grounded in
// spencerandtheteagues-apex-build-platform's internal/db/redis.go. The job
// store (C4) and message bus (C5) both take a *Client as an explicit
// constructor dependency rather than reaching for a package-global
// singleton, per spec section 9's "Global singletons" design note.
package redisconn

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Client wraps a redis.UniversalClient with a health-check loop, mirroring
// the donor's RedisClient shape but trimmed to standard (non-Sentinel,
// non-Cluster) connections since this system has a single Redis URL in its
// configuration contract (spec section 6).
type Client struct {
	rdb    redis.UniversalClient
	logger *logrus.Entry
	cancel context.CancelFunc
}

// NewClient parses redisURL and opens a connection, verifying it with a
// Ping before returning.
func NewClient(redisURL string, logger *logrus.Entry) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 20
	opts.MinIdleConns = 5

	rdb := redis.NewClient(opts)

	ctx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	hcCtx, cancel := context.WithCancel(context.Background())
	c := &Client{rdb: rdb, logger: logger, cancel: cancel}
	go c.runHealthCheck(hcCtx)
	return c, nil
}

func (c *Client) runHealthCheck(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			if err := c.rdb.Ping(pingCtx).Err(); err != nil {
				c.logger.WithError(err).Warn("redis health check failed")
			}
			cancel()
		}
	}
}

// Raw returns the underlying redis.UniversalClient for components that
// need direct access (pub/sub, pipelines).
func (c *Client) Raw() redis.UniversalClient {
	return c.rdb
}

// Healthy reports whether the connection currently responds to Ping.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.rdb.Ping(ctx).Err() == nil
}

// Close stops the health-check loop and closes the connection.
func (c *Client) Close() error {
	c.cancel()
	return c.rdb.Close()
}

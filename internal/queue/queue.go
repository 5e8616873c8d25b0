package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Pop when the queue holds no items.
var ErrEmpty = errors.New("queue is empty")

// Names holds the configured queue name for each pipeline stage. The
// retrying stage is folded into processing but keeps its own name so
// deployments stay wire-compatible.
type Names struct {
	Awaiting   string
	Processing string
	Retrying   string
	Success    string
	Failure    string
}

// Client is a thin wrapper around a redis list per queue: LPUSH to enqueue,
// RPOP to dequeue, which gives FIFO order of arrival. There is no
// acknowledgement or visibility timeout; a popped item belongs to exactly
// one worker and is lost if that worker dies before finishing.
type Client struct {
	rdb *redis.Client
}

func NewClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Push serializes v to JSON and left-pushes it onto the named queue.
// Returns the queue length after the push.
func (c *Client) Push(ctx context.Context, queue string, v any) (int64, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("marshal queue item: %w", err)
	}
	n, err := c.rdb.LPush(ctx, queue, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("lpush %s: %w", queue, err)
	}
	return n, nil
}

// Pop right-pops one item off the named queue without blocking.
func (c *Client) Pop(ctx context.Context, queue string) (string, error) {
	item, err := c.rdb.RPop(ctx, queue).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmpty
	}
	if err != nil {
		return "", err
	}
	return item, nil
}

// Len reports the current length of the named queue.
func (c *Client) Len(ctx context.Context, queue string) (int64, error) {
	return c.rdb.LLen(ctx, queue).Result()
}

// IsIOError reports whether a queue-backend failure is I/O-class
// (connection refused, reset, timeout). Only these are worth logging per
// occurrence; other error kinds are silently retried on the next tick.
func IsIOError(err error) bool {
	if err == nil || errors.Is(err, ErrEmpty) || errors.Is(err, redis.Nil) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}

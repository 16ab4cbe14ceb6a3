package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Operation is one completed tool invocation.
type Operation struct {
	Tool          string        `json:"tool"`
	CorrelationID string        `json:"correlation_id"`
	UserID        string        `json:"user_id"`
	Status        string        `json:"status"`
	Duration      time.Duration `json:"duration_ns"`
	At            time.Time     `json:"at"`
}

// Recorder keeps the last N operations in memory and optionally
// mirrors them to a Redis list so they survive restarts.
type Recorder struct {
	mu   sync.Mutex
	buf  []Operation
	size int

	rdb *redis.Client
	key string
}

// NewRecorder creates a recorder holding up to size operations.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = 100
	}
	return &Recorder{size: size, key: "memgate:recent_ops"}
}

// WithRedisMirror attaches a Redis mirror. The URL uses the standard
// redis:// form. The connection is verified before the mirror is
// accepted.
func (r *Recorder) WithRedisMirror(ctx context.Context, url string) error {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	r.mu.Lock()
	r.rdb = client
	r.mu.Unlock()
	return nil
}

// Record appends one operation. Mirror failures are swallowed; the
// in-memory buffer is the source of truth.
func (r *Recorder) Record(ctx context.Context, op Operation) {
	r.mu.Lock()
	r.buf = append(r.buf, op)
	if len(r.buf) > r.size {
		r.buf = r.buf[len(r.buf)-r.size:]
	}
	rdb := r.rdb
	r.mu.Unlock()

	if rdb != nil {
		if data, err := json.Marshal(op); err == nil {
			pipe := rdb.Pipeline()
			pipe.LPush(ctx, r.key, data)
			pipe.LTrim(ctx, r.key, 0, int64(r.size)-1)
			pipe.Exec(ctx)
		}
	}
}

// Recent returns the recorded operations, newest first.
func (r *Recorder) Recent() []Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Operation, 0, len(r.buf))
	for i := len(r.buf) - 1; i >= 0; i-- {
		out = append(out, r.buf[i])
	}
	return out
}

// PingMirror reports mirror health; nil when no mirror is attached.
func (r *Recorder) PingMirror(ctx context.Context) error {
	r.mu.Lock()
	rdb := r.rdb
	r.mu.Unlock()
	if rdb == nil {
		return nil
	}
	return rdb.Ping(ctx).Err()
}

// Close releases the mirror connection if any.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rdb != nil {
		err := r.rdb.Close()
		r.rdb = nil
		return err
	}
	return nil
}

// Package sink publishes decoded lines to a Redis stream so other tools can
// consume the firmware log without parsing the binary format.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atikulmunna/fwloom/internal/fwlogs"
	"github.com/atikulmunna/fwloom/internal/model"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "fwloom:lines"

// streamAdder is the subset of redis.Cmdable the sink needs.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisSink appends every line it receives to a Redis stream with XADD.
type RedisSink struct {
	client  streamAdder
	stream  string
	maxLen  int64
	failed  atomic.Int64
	written atomic.Int64
	warn    *rate.Limiter
	logger  *zap.Logger
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisSink creates a sink writing to stream. maxLen > 0 caps the
// stream approximately (MAXLEN ~).
func NewRedisSink(client streamAdder, stream string, maxLen int64, logger *zap.Logger) *RedisSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisSink{
		client: client,
		stream: stream,
		maxLen: maxLen,
		warn:   rate.NewLimiter(rate.Every(5*time.Second), 1),
		logger: logger,
	}
}

// Written returns the number of lines appended.
func (s *RedisSink) Written() int64 { return s.written.Load() }

// Failed returns the number of lines that could not be appended.
func (s *RedisSink) Failed() int64 { return s.failed.Load() }

// Start consumes lines until ctx is cancelled or lines is closed.
// Write failures are counted and logged, never fatal.
func (s *RedisSink) Start(ctx context.Context, lines <-chan model.LogLine) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := s.Write(ctx, line); err != nil {
				s.failed.Add(1)
				if s.warn.Allow() {
					s.logger.Warn("redis sink write failed",
						zap.String("stream", s.stream), zap.Int64("failed", s.failed.Load()), zap.Error(err))
				}
			}
		}
	}
}

// Write appends one line to the stream.
func (s *RedisSink) Write(ctx context.Context, line model.LogLine) error {
	args, err := s.xaddArgs(line)
	if err != nil {
		return err
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to redis stream: %w", err)
	}
	s.written.Add(1)
	return nil
}

func (s *RedisSink) xaddArgs(line model.LogLine) (*redis.XAddArgs, error) {
	payload, err := json.Marshal(line)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal log line: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"payload":  payload,
			"severity": fwlogs.LevelName(line.Severity),
			"source":   line.Source,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return args, nil
}

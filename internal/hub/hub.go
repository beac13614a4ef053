package hub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atikulmunna/fwloom/internal/fwlogs"
	"github.com/atikulmunna/fwloom/internal/model"
)

const subscriberBuffer = 1024

// session is the timestamp state of one dump file.
type session struct {
	id string
	ts fwlogs.TimestampExtender
}

// Hub receives raw record chunks, decodes them, and broadcasts LogLine
// values to all subscribers. Each source keeps its own timestamp session,
// owned by the Start goroutine.
type Hub struct {
	parser      *fwlogs.Parser
	input       <-chan model.RawChunk
	sessions    map[string]*session
	mu          sync.RWMutex
	subscribers []chan model.LogLine
	dropped     atomic.Int64
	decoded     atomic.Int64
	warn        *rate.Limiter
	logger      *zap.Logger
}

// New creates a Hub that reads from input and decodes with p.
func New(input <-chan model.RawChunk, p *fwlogs.Parser, logger *zap.Logger) *Hub {
	return &Hub{
		parser:   p,
		input:    input,
		sessions: make(map[string]*session),
		warn:     rate.NewLimiter(rate.Limit(1), 5),
		logger:   logger,
	}
}

// Subscribe returns a buffered channel that will receive decoded lines.
// Multiple consumers can subscribe; each gets a copy of every line.
func (h *Hub) Subscribe() <-chan model.LogLine {
	ch := make(chan model.LogLine, subscriberBuffer)
	h.mu.Lock()
	h.subscribers = append(h.subscribers, ch)
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (h *Hub) Unsubscribe(sub <-chan model.LogLine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, ch := range h.subscribers {
		if ch == sub {
			close(ch)
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			return
		}
	}
}

// Dropped returns the total number of lines dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Decoded returns the total number of records decoded.
func (h *Hub) Decoded() int64 {
	return h.decoded.Load()
}

// Start begins reading from the input channel, decoding, and broadcasting.
// Blocks until the context is cancelled or the input channel is closed.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-h.input:
			if !ok {
				return
			}
			for _, line := range h.decode(chunk) {
				h.broadcast(line)
			}
		}
	}
}

// decode parses chunk against its source's session, starting a fresh
// session when the chunk begins a new dump.
func (h *Hub) decode(chunk model.RawChunk) []model.LogLine {
	s, ok := h.sessions[chunk.Source]
	if !ok || chunk.Reset {
		s = &session{id: uuid.NewString()}
		h.sessions[chunk.Source] = s
		h.logger.Debug("new timestamp session",
			zap.String("source", chunk.Source), zap.String("session", s.id))
	}

	lines := h.parser.Parse(chunk.Data, &s.ts)
	for i := range lines {
		lines[i].Source = chunk.Source
		lines[i].Session = s.id
		if lines[i].Unrecognized && h.warn.Allow() {
			h.logger.Warn("unrecognized event id",
				zap.Uint16("event_id", lines[i].EventID), zap.String("source", chunk.Source))
		}
	}
	h.decoded.Add(int64(len(lines)))
	return lines
}

// broadcast sends a line to all subscribers.
// If a subscriber's channel is full, the line is dropped for that subscriber.
func (h *Hub) broadcast(line model.LogLine) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- line:
		default:
			n := h.dropped.Add(1)
			if h.warn.Allow() {
				h.logger.Warn("dropped line for slow consumer", zap.Int64("total_dropped", n))
			}
		}
	}
}

// closeAll closes all subscriber channels.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}

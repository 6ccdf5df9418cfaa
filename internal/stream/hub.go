package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/roberasa/legalario-transactional-api/internal/metrics"
)

// Config controls subscriber buffering for the Hub.
//   - BufferSize: per-subscriber channel capacity (default 64).
//   - Logger: optional structured logger used for warnings.
type Config struct {
	BufferSize int
	Logger     *zap.Logger
}

const (
	defaultBufferSize = 64
	dropLogInterval   = 5 * time.Second
)

// Hub tracks connected subscribers and broadcasts events to them. Each
// subscriber owns a buffered channel; Broadcast never blocks, and a slow or
// dead subscriber never delays delivery to the rest. Events reach each
// subscriber in broadcast order.
type Hub struct {
	cfg         Config
	logger      *zap.Logger
	dropLimiter rateLimiter
	dropped     atomic.Int64

	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	closed bool
}

// Subscriber is one connected real-time client. Events arrive on C until
// Unsubscribe closes it.
type Subscriber struct {
	ch chan Event
}

// C returns the subscriber's delivery channel.
func (s *Subscriber) C() <-chan Event {
	return s.ch
}

// NewHub initializes a Hub ready to accept subscribers.
func NewHub(cfg Config) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		cfg:         cfg,
		logger:      logger,
		dropLimiter: rateLimiter{interval: dropLogInterval},
		subs:        make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its handle. A nil return
// means the hub has shut down.
func (h *Hub) Subscribe() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	sub := &Subscriber{ch: make(chan Event, h.cfg.BufferSize)}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call for
// an already removed subscriber.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers evt to every registered subscriber. Delivery is
// per-subscriber independent: a full buffer drops the event for that
// subscriber only, with a rate-limited warning.
func (h *Hub) Broadcast(evt Event) {
	if h == nil {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid stream event", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- evt:
		default:
			h.dropped.Add(1)
			metrics.ObserveStreamEventDropped()
			if h.dropLimiter.Allow(time.Now()) {
				count := h.dropped.Swap(0)
				h.logger.Warn("stream events dropped for slow subscribers",
					zap.Int64("dropped", count))
			}
		}
	}
}

// Close disconnects every subscriber and rejects future subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

type rateLimiter struct {
	interval time.Duration
	last     atomic.Int64
}

func (r *rateLimiter) Allow(now time.Time) bool {
	if r == nil || r.interval <= 0 {
		return true
	}
	nano := now.UnixNano()
	last := r.last.Load()
	if nano-last < r.interval.Nanoseconds() {
		return false
	}
	return r.last.CompareAndSwap(last, nano)
}

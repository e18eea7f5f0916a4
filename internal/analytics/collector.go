// Package analytics ships query events to Kafka without blocking the query
// path. Events are buffered and dropped when the buffer is full.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/resilience"
)

// unkeyedEvent partitions events that carry no term.
const unkeyedEvent = "query"

type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Collector struct {
	publisher Publisher
	retry     resilience.RetryPolicy
	eventCh   chan QueryEvent
	logger    *slog.Logger

	// mu guards closed and started. Track holds the read lock across its send
	// so Close never races an in-flight enqueue.
	mu      sync.RWMutex
	closed  bool
	started bool
	quit    chan struct{}
	done    chan struct{}
}

type CollectorOption func(*Collector)

// WithRetry sets how often a failed publish is retried before the event is
// dropped.
func WithRetry(policy resilience.RetryPolicy) CollectorOption {
	return func(c *Collector) { c.retry = policy }
}

func NewCollector(publisher Publisher, bufferSize int, opts ...CollectorOption) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	c := &Collector{
		publisher: publisher,
		retry:     resilience.RetryPolicy{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second},
		eventCh:   make(chan QueryEvent, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start publishes buffered events until ctx is cancelled or Close is called.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		for {
			select {
			case event := <-c.eventCh:
				c.publish(ctx, event)
			case <-c.quit:
				c.drainRemaining()
				return
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues event, filling in ID and Timestamp when unset. Events
// tracked after Close are dropped.
func (c *Collector) Track(event QueryEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event dropped (collector closed)", "query", event.Query)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "query", event.Query)
	}
}

// Close stops accepting events, publishes what is still buffered and waits
// for the publisher goroutine. It is safe to call more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.quit)
	}
	started := c.started
	c.mu.Unlock()

	if started {
		<-c.done
	}
}

func (c *Collector) publish(ctx context.Context, event QueryEvent) {
	err := resilience.Retry(ctx, "publish query event", c.retry, func(ctx context.Context) error {
		return c.publisher.Publish(ctx, kafka.Event{Key: partitionKey(event), Value: event})
	})
	if err != nil {
		c.logger.Error("failed to publish analytics event", "event_id", event.ID, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-c.eventCh:
			c.publish(ctx, event)
		default:
			return
		}
	}
}

func partitionKey(event QueryEvent) string {
	if event.Term == "" {
		return unkeyedEvent
	}
	return event.Term
}

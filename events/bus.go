package events

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/internal/consts"
)

// Handler processes one delivered domain event. Handlers run on the bus
// dispatch goroutine; slow handlers delay later events on every channel.
type Handler func(ctx context.Context, ev Event)

// Bus is the publish/subscribe port domain services and consumers use.
// Publish is fire-and-forget with at-most-once semantics: it fails loudly
// when the transport is unreachable and never retries on the caller's
// behalf.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(category string, h Handler)
	Ping(ctx context.Context) bool
}

const (
	reconnectInitial = 500 * time.Millisecond
	reconnectMax     = 30 * time.Second
)

// RedisBus routes domain events over Redis pub/sub. Every event is published
// to the channel "event:<name>"; a single pattern subscription on "event:*"
// feeds all registered handlers, keyed by the event category.
type RedisBus struct {
	client *redis.Client
	logger *log.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewRedisBus creates a bus on top of an established Redis client. The
// client is shared between publishes and the subscriber loop and is safe for
// concurrent use.
func NewRedisBus(client *redis.Client, logger *log.Logger) *RedisBus {
	return &RedisBus{
		client:   client,
		logger:   logger,
		handlers: make(map[string][]Handler),
	}
}

// Publish enriches and serializes the event, then writes it to the event's
// channel. It returns once the transport accepts the write; no subscriber
// has necessarily processed the event at that point. The caller's event is
// not mutated.
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	if ev.Name == "" {
		return errors.New("event name is required")
	}
	meta := Meta{}
	if ev.Meta != nil {
		meta = *ev.Meta
	}
	if meta.OccurredAt.IsZero() {
		meta.OccurredAt = time.Now().UTC()
	}
	ev.Meta = &meta

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, consts.EventChannelPrefix+ev.Name, data).Err()
}

// Subscribe registers a handler for one event category. Multiple handlers
// per category fan out: each delivered event invokes all of them. Must be
// called with distinct concerns rather than re-registering the same handler.
func (b *RedisBus) Subscribe(category string, h Handler) {
	b.mu.Lock()
	b.handlers[category] = append(b.handlers[category], h)
	b.mu.Unlock()
}

// Ping reports transport liveness. It never returns an error: any failure
// mode reads as false.
func (b *RedisBus) Ping(ctx context.Context) bool {
	return b.client.Ping(ctx).Err() == nil
}

// Run drives the subscriber loop until ctx is cancelled. On transport loss
// it reconnects indefinitely with capped jittered exponential backoff; the
// process stays alive through outages, though publishes during an outage
// fail at the call site.
func (b *RedisBus) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		if attempt > 0 {
			delay := exponentialBackoff(attempt, reconnectInitial, reconnectMax)
			b.logger.Warnf("event bus disconnected, reconnecting in %v (attempt %d)", delay, attempt)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		attempt++

		sub := b.client.PSubscribe(ctx, consts.EventChannelPattern)
		ch := sub.Channel()
	receive:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break receive
				}
				attempt = 0
				b.dispatch(ctx, msg.Channel, []byte(msg.Payload))
			}
		}
		sub.Close()
	}
}

// dispatch decodes one message and invokes every handler registered for its
// category, in registration order. A failing handler is logged and skipped;
// it never prevents the remaining handlers or later events from running.
func (b *RedisBus) dispatch(ctx context.Context, channel string, payload []byte) {
	name := strings.TrimPrefix(channel, consts.EventChannelPrefix)
	category := name
	if i := strings.Index(name, ":"); i >= 0 {
		category = name[:i]
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[category]))
	copy(handlers, b.handlers[category])
	b.mu.RUnlock()
	if len(handlers) == 0 {
		return
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		b.logger.Errorf("event bus: drop malformed event on %s: %v", channel, err)
		return
	}

	for _, h := range handlers {
		b.invoke(ctx, h, ev)
	}
}

func (b *RedisBus) invoke(ctx context.Context, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("event bus: handler panic on %s: %v", ev.Name, r)
		}
	}()
	h(ctx, ev)
}

func exponentialBackoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt <= 0 {
		return initial
	}
	backoff := float64(initial) * math.Pow(2, float64(attempt-1))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	jitter := 0.2 * backoff
	return time.Duration(backoff + (rand.Float64()-0.5)*2*jitter)
}

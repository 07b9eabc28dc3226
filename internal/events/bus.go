// Package events publishes aggregation and tip notifications so interested
// consumers (the websocket stream, external subscribers) can react without
// polling the store.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campus-pulse/load-engine/internal/models"
)

// Channel is the Redis pub/sub channel all engine events go through
const Channel = "load.events"

// Event types
const (
	TypeSnapshot   = "load.snapshot"
	TypeTipCreated = "tip.created"
)

// Event is a notification about something the engine computed or persisted
type Event struct {
	Type      string             `json:"type"`
	StudentID string             `json:"student_id,omitempty"`
	Date      time.Time          `json:"date,omitempty"`
	LoadScore int                `json:"load_score,omitempty"`
	RiskLevel models.RiskLevel   `json:"risk_level,omitempty"`
	TipID     string             `json:"tip_id,omitempty"`
	Priority  models.TipPriority `json:"priority,omitempty"`
	At        time.Time          `json:"at"`
}

// Publisher emits events; implementations must be safe for concurrent use
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// RedisBus publishes events over Redis pub/sub
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus creates a bus over an existing Redis client
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

// Publish marshals the event and pushes it onto the channel
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Source hands out live event subscriptions
type Source interface {
	Subscribe(ctx context.Context) (<-chan Event, func())
}

// Subscribe opens a subscription on the event channel and decodes its
// messages. The returned channel closes when the subscription ends; the stop
// function releases the subscription and must be called.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Event, func()) {
	pubsub := b.client.Subscribe(ctx, Channel)
	out := make(chan Event)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.Debug("invalid event payload", "error", err)
				continue
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() {
		if err := pubsub.Close(); err != nil {
			slog.Debug("failed to close subscription", "error", err)
		}
	}
}

// Nop is a Publisher that discards everything; used in tests and when the
// bus is disabled
type Nop struct{}

// Publish discards the event
func (Nop) Publish(context.Context, Event) error { return nil }

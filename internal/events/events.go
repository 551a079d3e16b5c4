// Package events publishes stock movements for audit and notification consumers.
// Delivery is best effort: every event is published after its transaction
// commits, and the committed rows remain the record of truth.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fekuna/omnipos-stock-service/pkg/broker"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Type string

const (
	TypeTransferRecorded   Type = "stock.transfer_recorded"
	TypeAdjustmentRecorded Type = "stock.adjustment_recorded"
	TypeConsumeFailed      Type = "stock.consume_failed"
	TypeSoftDeleted        Type = "catalog.soft_deleted"
)

type Event struct {
	EventID   string      `json:"event_id"`
	EventType Type        `json:"event_type"`
	Key       string      `json:"-"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// New builds an event partitioned by key, usually the product id.
func New(t Type, key string, payload interface{}) Event {
	return Event{
		EventID:   uuid.New().String(),
		EventType: t,
		Key:       key,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

type KafkaPublisher struct {
	producer *broker.KafkaProducer
	logger   logger.ZapLogger
}

func NewKafkaPublisher(producer *broker.KafkaProducer, log logger.ZapLogger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := p.producer.Publish(ctx, e.Key, value); err != nil {
			return err
		}
		p.logger.Debug("event published", zap.String("event_type", string(e.EventType)), zap.String("key", e.Key))
	}
	return nil
}

type nopPublisher struct{}

func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, ...Event) error {
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, events ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t in publish order.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

// PublishAfterCommit publishes events and logs, rather than returns, a failure.
func PublishAfterCommit(ctx context.Context, pub Publisher, log logger.ZapLogger, events ...Event) {
	if len(events) == 0 {
		return
	}
	if err := pub.Publish(ctx, events...); err != nil {
		log.Warn("failed to publish stock events",
			zap.String("event_type", string(events[0].EventType)),
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/deduction"
	"github.com/fekuna/omnipos-stock-service/internal/deduction/dto"
	"github.com/fekuna/omnipos-stock-service/internal/events"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventOrderStatusChanged = "OrderStatusChanged"

// Order statuses in which the ordered items are physically handed out.
const (
	StatusPreparing = "preparing"
	StatusDelivered = "delivered"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type OrderListener struct {
	consumer  MessageReader
	uc        deduction.UseCase
	publisher events.Publisher
	logger    logger.ZapLogger
}

func NewOrderListener(consumer MessageReader, uc deduction.UseCase, publisher events.Publisher, logger logger.ZapLogger) *OrderListener {
	return &OrderListener{
		consumer:  consumer,
		uc:        uc,
		publisher: publisher,
		logger:    logger,
	}
}

func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("Starting order status Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping order status Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderStatusChangedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID             string             `json:"id"`
	BarID          string             `json:"bar_id"`
	Status         string             `json:"status"`
	PreviousStatus string             `json:"previous_status"`
	Items          []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ConsumeFailed is published for every order line the engine refused.
type ConsumeFailed struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	BarID     string `json:"bar_id,omitempty"`
	Quantity  int    `json:"quantity"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

func consuming(status string) bool {
	return status == StatusPreparing || status == StatusDelivered
}

func (l *OrderListener) processMessage(ctx context.Context, value []byte) {
	var event OrderStatusChangedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != EventOrderStatusChanged {
		return
	}
	// Stock leaves once, on the first transition into a consuming status.
	if !consuming(event.Payload.Status) || consuming(event.Payload.PreviousStatus) {
		return
	}

	l.logger.Info("Processing OrderStatusChanged event",
		zap.String("order_id", event.Payload.ID),
		zap.String("status", event.Payload.Status),
	)

	var failures []events.Event
	for _, item := range event.Payload.Items {
		input := &dto.ConsumeInput{
			ProductID: item.ProductID,
			BarID:     event.Payload.BarID,
			Quantity:  item.Quantity,
			OrderID:   event.Payload.ID,
		}

		// Shortfalls need an operator; they are reported, not retried.
		if _, err := l.uc.Consume(ctx, input); err != nil {
			l.logger.Error("Failed to consume stock for order item",
				zap.String("order_id", event.Payload.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			failures = append(failures, events.New(events.TypeConsumeFailed, item.ProductID, ConsumeFailed{
				OrderID:   event.Payload.ID,
				ProductID: item.ProductID,
				BarID:     event.Payload.BarID,
				Quantity:  item.Quantity,
				Kind:      apperror.KindOf(err).String(),
				Message:   err.Error(),
			}))
		}
	}

	events.PublishAfterCommit(ctx, l.publisher, l.logger, failures...)
}

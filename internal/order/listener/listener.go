package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/omnistore/ledger-service/internal/order"
	"github.com/omnistore/ledger-service/internal/order/dto"
	"github.com/omnistore/ledger-service/pkg/broker"
	"github.com/omnistore/ledger-service/pkg/logger"
	"go.uber.org/zap"
)

// ShipmentListener consumes shipment events from the shipping collaborator and
// drives physical fulfillment: a created shipment decrements stock and moves
// the order to SHIPPED.
type ShipmentListener struct {
	consumer *broker.KafkaConsumer
	uc       order.UseCase
	logger   logger.ZapLogger
}

func NewShipmentListener(consumer *broker.KafkaConsumer, uc order.UseCase, logger logger.ZapLogger) *ShipmentListener {
	return &ShipmentListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *ShipmentListener) Start(ctx context.Context) {
	l.logger.Info("Starting Shipment Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Shipment Kafka Listener")
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

type ShipmentCreatedEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   ShipmentPayload `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type ShipmentPayload struct {
	ShipmentID string `json:"shipment_id"`
	OrderID    string `json:"order_id"`
	Carrier    string `json:"carrier"`
	Tracking   string `json:"tracking_number"`
}

func (l *ShipmentListener) processMessage(ctx context.Context, value []byte) {
	var event ShipmentCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != "ShipmentCreated" {
		return
	}

	l.logger.Info("Processing ShipmentCreated event",
		zap.String("order_id", event.Payload.OrderID),
		zap.String("shipment_id", event.Payload.ShipmentID),
	)

	comment := "shipment " + event.Payload.ShipmentID + " created"
	if event.Payload.Tracking != "" {
		comment += " (tracking " + event.Payload.Tracking + ")"
	}

	_, err := l.uc.MarkShipped(ctx, &dto.MarkShippedInput{
		OrderID: event.Payload.OrderID,
		Comment: comment,
	})
	if err != nil {
		l.logger.Error("Failed to mark order shipped",
			zap.String("order_id", event.Payload.OrderID),
			zap.String("shipment_id", event.Payload.ShipmentID),
			zap.Error(err),
		)
	}
}

package consumer

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	kafka "github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/metrics"
)

// processMessage dispatches on the envelope kind. A malformed message is
// logged and dropped; it would fail the same way on every redelivery.
func (c *Consumer) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	env, err := kafka.DecodeEnvelope(message.Value)
	if err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.processMessage: offset %d: %v", message.Offset, err)
		return nil
	}

	metrics.MessagesConsumed.WithLabelValues(string(env.Kind)).Inc()

	switch env.Kind {
	case kafka.KindBookingRequest:
		return c.handleBookingRequest(ctx, env.Payload)
	case kafka.KindWaitlistAllocationTrigger:
		return c.handleWaitlistTrigger(ctx, env.Payload)
	default:
		c.l.Warnf(ctx, "delivery.kafka.consumer.handlers.processMessage: unknown kind %q", env.Kind)
		return nil
	}
}

func (c *Consumer) handleBookingRequest(ctx context.Context, payload json.RawMessage) error {
	var req kafka.BookingRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.handleBookingRequest: %v", err)
		return nil
	}

	if err := c.rsvSvc.ProcessBookingRequest(ctx, req); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.handleBookingRequest: %v", err)
		return err
	}

	return nil
}

func (c *Consumer) handleWaitlistTrigger(ctx context.Context, payload json.RawMessage) error {
	var trg kafka.WaitlistAllocationTrigger
	if err := json.Unmarshal(payload, &trg); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.handleWaitlistTrigger: %v", err)
		return nil
	}

	if err := c.rsvSvc.ProcessWaitlistTrigger(ctx, trg); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.handleWaitlistTrigger: %v", err)
		return err
	}

	return nil
}

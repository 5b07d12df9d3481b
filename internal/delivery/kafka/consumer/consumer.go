package consumer

import (
	"context"
	"sync"

	"github.com/IBM/sarama"

	kafka "github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/service"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

// Consumer drives the reservation worker off the booking-requests topic.
// One partition per event id means messages for an event are handled
// strictly in order; MarkMessage only runs after the service settles the
// message, so an unhandled crash replays it.
type Consumer struct {
	consGr sarama.ConsumerGroup
	rsvSvc service.ReservationService
	l      logger.Logger
	wg     sync.WaitGroup
}

func NewConsumer(
	consGr sarama.ConsumerGroup,
	rsvSvc service.ReservationService,
	l logger.Logger,
) *Consumer {
	return &Consumer{
		consGr: consGr,
		rsvSvc: rsvSvc,
		l:      l,
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	topics := []string{kafka.TopicBookingRequests}
	c.wg.Go(func() {
		for {
			if err := c.consGr.Consume(ctx, topics, c); err != nil {
				c.l.Errorf(ctx, "delivery.kafka.consumer.consumer.Start: %v", err)
			}

			if ctx.Err() != nil {
				c.l.Infof(ctx, "delivery.kafka.consumer.consumer.Start: %v", ctx.Err())
				return
			}
		}
	})

	// Handle errors
	c.wg.Go(func() {
		for err := range c.consGr.Errors() {
			c.l.Errorf(ctx, "delivery.kafka.consumer.consumer.Start: %v", err)
		}
	})

	c.l.Infof(ctx, "Consumer is consuming topics: %v", topics)
	return nil
}

func (c *Consumer) Close() error {
	if err := c.consGr.Close(); err != nil {
		return err
	}

	c.wg.Wait()
	return nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	c.l.Debug(context.Background(), "Consumer group session started")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	c.l.Debug(context.Background(), "Consumer group session ended")
	return nil
}

func (c *Consumer) ConsumeClaim(ss sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			if err := c.processMessage(ss.Context(), message); err != nil {
				// Failing the session leaves the offset unmarked, so the
				// queue redelivers the message instead of losing it behind
				// a later commit.
				c.l.Errorf(ss.Context(), "delivery.kafka.consumer.consumer.ConsumeClaim: topic %s offset %d: %v",
					message.Topic, message.Offset, err)
				return err
			}

			ss.MarkMessage(message, "")

		case <-ss.Context().Done():
			return nil
		}
	}
}

package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	kafka "github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

type Producer interface {
	PublishBookingRequest(ctx context.Context, req kafka.BookingRequest) error
	PublishWaitlistTrigger(ctx context.Context, trg kafka.WaitlistAllocationTrigger) error
	PublishNotification(ctx context.Context, event kafka.NotificationEvent) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
	}
}

func (p *implProducer) PublishBookingRequest(ctx context.Context, req kafka.BookingRequest) error {
	val, err := kafka.NewEnvelope(kafka.KindBookingRequest, req)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.PublishBookingRequest: %v", err)
		return err
	}

	return p.send(kafka.TopicBookingRequests, eventKey(req.EventID), val)
}

func (p *implProducer) PublishWaitlistTrigger(ctx context.Context, trg kafka.WaitlistAllocationTrigger) error {
	val, err := kafka.NewEnvelope(kafka.KindWaitlistAllocationTrigger, trg)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.PublishWaitlistTrigger: %v", err)
		return err
	}

	return p.send(kafka.TopicBookingRequests, eventKey(trg.EventID), val)
}

func (p *implProducer) PublishNotification(ctx context.Context, event kafka.NotificationEvent) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.PublishNotification: %v", err)
		return err
	}

	return p.send(kafka.TopicNotifyUser, eventKey(event.Payload.EventID), val)
}

func (p *implProducer) send(topic, key string, val []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key), // Partition by event id for per-event ordering
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(time.Now().Format(time.RFC3339)),
			},
		},
	}

	_, _, err := p.prod.SendMessage(msg)
	return err
}

func (p *implProducer) Close() error {
	return p.prod.Close()
}

func eventKey(eventID int64) string {
	return strconv.FormatInt(eventID, 10)
}

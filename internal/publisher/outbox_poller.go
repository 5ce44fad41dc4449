package publisher

import (
	"context"
	"log"
	"time"

	"github.com/joshua0006/testraveremedy/internal/checkout"
	"github.com/segmentio/kafka-go"
)

const defaultBatchSize = 100

// messageWriter is the slice of kafka.Writer the poller needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller drains unprocessed checkout events into Kafka. Because the
// event row is inserted in the same transaction that finalizes the checkout,
// draining the table is the only delivery path needed.
type OutboxPoller struct {
	eventTick time.Duration
	repo      checkout.RepoInterface
	writer    messageWriter
}

func NewOutboxPoller(repo checkout.RepoInterface, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "checkout-events",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{eventTick: time.Second, repo: repo, writer: w}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, defaultBatchSize)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			log.Printf("failed to publish event id = %v: %v", event.ID, err)
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			log.Printf("failed to mark event as processed id = %v: %v", event.ID, err)
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *checkout.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // checkout id keeps per-order ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

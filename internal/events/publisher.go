package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/sequence"
)

// OrderPublisher announces committed orders.
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, meta EventMeta, payload OrderPlacedPayload) error
}

type channel interface {
	exchangeDeclarer
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch                 channel
	seqRepo            sequence.Repository
	producerIdentifier string
	now                func() time.Time
}

type PublisherOptions struct {
	Producer string
}

func NewPublisher(conn *amqp.Connection, seqRepo sequence.Repository, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return newPublisher(ch, seqRepo, opts)
}

func newPublisher(ch channel, seqRepo sequence.Repository, opts PublisherOptions) (*Publisher, error) {
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	producer := opts.Producer
	if producer == "" {
		producer = serviceName
	}

	return &Publisher{
		ch:                 ch,
		seqRepo:            seqRepo,
		producerIdentifier: producer,
		now:                func() time.Time { return time.Now().UTC() },
	}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, meta EventMeta, payload OrderPlacedPayload) error {
	if meta.PartitionKey == "" {
		meta.PartitionKey = PartitionKeyForUser(payload.UserID)
	}

	seq, err := p.seqRepo.NextSequence(ctx, meta.PartitionKey)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newOrderPlacedEvent(meta, seq, p.producerIdentifier, payload, p.now())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced envelope: %w", err)
	}

	return p.publish(ctx, OrderPlacedRoutingKey, env.EventEnvelope, body)
}

// publish sends an encoded envelope. The envelope identity is mirrored into
// the AMQP properties so consumers can dedupe without decoding the body.
func (p *Publisher) publish(ctx context.Context, routingKey string, env EventEnvelope, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(pubCtx, EventsExchange, routingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.EventID,
		CorrelationId: env.CorrelationID,
		Type:          env.EventName,
		AppId:         env.Producer,
		Timestamp:     env.OccurredAt,
		Headers:       amqp.Table{"partitionKey": env.PartitionKey, "sequence": env.Sequence},
		Body:          body,
	})
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(context.Context, EventMeta, OrderPlacedPayload) error {
	return nil
}

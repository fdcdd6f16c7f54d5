package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/order"
)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	publishFn func() error
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishFn != nil {
		if err := f.publishFn(); err != nil {
			return err
		}
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

type fakeSequence struct {
	next int64
	keys []string
	err  error
}

func (f *fakeSequence) NextSequence(_ context.Context, partitionKey string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	f.keys = append(f.keys, partitionKey)
	return f.next, nil
}

func sampleOrder() *order.Order {
	return &order.Order{
		ID:              100,
		UserID:          7,
		CreatedAt:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		TotalAmount:     decimal.RequireFromString("25.00"),
		Status:          order.StatusConfirmed,
		ShippingAddress: "1 Main St",
		Items: []order.Item{
			{ID: 1, KitID: 3, Quantity: 2, Price: decimal.RequireFromString("12.50")},
		},
	}
}

func TestPublishOrderPlaced(t *testing.T) {
	ch := &fakeChannel{}
	seq := &fakeSequence{}
	pub, err := newPublisher(ch, seq, PublisherOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"ecommerce.events:topic"}, ch.declared)

	payload := NewOrderPlacedPayload(sampleOrder(), SourcePayment, "cs_test_1", []int64{2})
	err = pub.PublishOrderPlaced(context.Background(), EventMeta{CorrelationID: "corr-1", CausationID: "cs_test_1"}, payload)
	require.NoError(t, err)

	require.Equal(t, []string{"ecommerce.events/order.placed.v1"}, ch.keys)
	require.Equal(t, []string{"user-7"}, seq.keys)

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "corr-1", msg.CorrelationId)
	assert.Equal(t, EventTypeOrderPlaced, msg.Type)
	assert.Equal(t, "user-7", msg.Headers["partitionKey"])

	var ev OrderPlacedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &ev))
	require.NoError(t, ev.Validate(EventTypeOrderPlaced, 1))
	assert.Equal(t, "educomm-service-go", ev.Producer)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, int64(1), ev.Sequence)
	assert.Equal(t, orderPlacedSchema, ev.Schema)
	assert.Equal(t, ev.EventID, msg.MessageId)
	assert.Equal(t, int64(100), ev.Payload.OrderID)
	assert.Equal(t, "Confirmed", ev.Payload.Status)
	assert.Equal(t, []int64{2}, ev.Payload.EnrolledCourseIDs)
	assert.True(t, ev.Payload.TotalAmount.Equal(decimal.RequireFromString("25")))
}

func TestPublishOrderPlaced_Errors(t *testing.T) {
	payload := NewOrderPlacedPayload(sampleOrder(), SourceCheckout, "", nil)

	t.Run("sequence failure", func(t *testing.T) {
		ch := &fakeChannel{}
		pub, err := newPublisher(ch, &fakeSequence{err: errors.New("db down")}, PublisherOptions{Producer: "x"})
		require.NoError(t, err)

		err = pub.PublishOrderPlaced(context.Background(), EventMeta{}, payload)
		require.ErrorContains(t, err, "reserve sequence")
		require.Empty(t, ch.published)
	})

	t.Run("broker failure", func(t *testing.T) {
		ch := &fakeChannel{publishFn: func() error { return amqp.ErrClosed }}
		pub, err := newPublisher(ch, &fakeSequence{}, PublisherOptions{})
		require.NoError(t, err)

		err = pub.PublishOrderPlaced(context.Background(), EventMeta{}, payload)
		require.ErrorIs(t, err, amqp.ErrClosed)
	})
}

func TestNewOrderPlacedPayload(t *testing.T) {
	p := NewOrderPlacedPayload(sampleOrder(), SourceCheckout, "", nil)
	require.NotNil(t, p.EnrolledCourseIDs)
	require.Len(t, p.Items, 1)
	require.Equal(t, int64(3), p.Items[0].KitID)
	require.Equal(t, SourceCheckout, p.Source)
	require.Empty(t, p.PaymentSessionID)
}

func TestEnvelopeValidate(t *testing.T) {
	ev := newOrderPlacedEvent(EventMeta{PartitionKey: "user-1"}, 1, "p", OrderPlacedPayload{}, time.Now())
	require.NoError(t, ev.Validate(EventTypeOrderPlaced, 1))
	require.Error(t, ev.Validate("Other", 1))
	require.Error(t, ev.Validate(EventTypeOrderPlaced, 2))

	ev.PartitionKey = ""
	require.Error(t, ev.Validate(EventTypeOrderPlaced, 1))
}

func TestNoopPublisher(t *testing.T) {
	var p OrderPublisher = NoopPublisher{}
	require.NoError(t, p.PublishOrderPlaced(context.Background(), EventMeta{}, OrderPlacedPayload{}))
}

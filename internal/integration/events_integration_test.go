package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/testutil"
)

func TestCommittedOrderIsPublished(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed integration test in short mode")
	}
	conn := testutil.StartRabbitMQ(t)

	pool := testutil.StartPostgres(t)
	pub, err := events.NewPublisher(conn, sequence.NewPostgresRepository(pool), events.PublisherOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	ch, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, events.OrderPlacedRoutingKey, events.EventsExchange, false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	a := newAppWithPool(t, pool, pub)
	user := a.seed.User("events@example.com")
	course := a.seed.Course("Chemistry")
	kit := a.seed.Kit("Lab set", "30.00", 4, courseRef(course))
	a.addToCart(t, user, kit, 2)

	o, err := a.svc.Checkout(context.Background(), user, "3 Flask Ln")
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		var ev events.OrderPlacedEvent
		require.NoError(t, json.Unmarshal(d.Body, &ev))
		assert.Equal(t, events.EventTypeOrderPlaced, ev.EventName)
		assert.Equal(t, int64(1), ev.Sequence)
		assert.Equal(t, events.PartitionKeyForUser(user), ev.PartitionKey)
		assert.Equal(t, o.ID, ev.Payload.OrderID)
		assert.Equal(t, events.SourceCheckout, ev.Payload.Source)
		assert.Equal(t, []int64{course}, ev.Payload.EnrolledCourseIDs)
		require.Len(t, ev.Payload.Items, 1)
		assert.Equal(t, 2, ev.Payload.Items[0].Quantity)
	case <-time.After(10 * time.Second):
		t.Fatal("no order.placed event received")
	}
}

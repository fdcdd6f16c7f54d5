package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/order"
)

const (
	EventTypeOrderPlaced = "OrderPlaced"
	orderPlacedSchema    = "educomm.order.placed.v1"
)

// Where an order came from.
const (
	SourceCheckout = "checkout"
	SourcePayment  = "payment"
)

type OrderPlacedItem struct {
	KitID    int64           `json:"kitId"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type OrderPlacedPayload struct {
	OrderID           int64             `json:"orderId"`
	UserID            int64             `json:"userId"`
	Status            string            `json:"status"`
	Source            string            `json:"source"`
	PaymentSessionID  string            `json:"paymentSessionId,omitempty"`
	TotalAmount       decimal.Decimal   `json:"totalAmount"`
	ShippingAddress   string            `json:"shippingAddress"`
	Items             []OrderPlacedItem `json:"items"`
	EnrolledCourseIDs []int64           `json:"enrolledCourseIds"`
	Timestamp         time.Time         `json:"timestamp"`
}

type OrderPlacedEvent struct {
	EventEnvelope
	Payload OrderPlacedPayload `json:"payload"`
}

// NewOrderPlacedPayload snapshots a committed order.
func NewOrderPlacedPayload(o *order.Order, source, paymentSessionID string, enrolled []int64) OrderPlacedPayload {
	p := OrderPlacedPayload{
		OrderID:           o.ID,
		UserID:            o.UserID,
		Status:            string(o.Status),
		Source:            source,
		PaymentSessionID:  paymentSessionID,
		TotalAmount:       o.TotalAmount,
		ShippingAddress:   o.ShippingAddress,
		Items:             make([]OrderPlacedItem, 0, len(o.Items)),
		EnrolledCourseIDs: enrolled,
		Timestamp:         o.CreatedAt,
	}
	if p.EnrolledCourseIDs == nil {
		p.EnrolledCourseIDs = []int64{}
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, OrderPlacedItem{KitID: it.KitID, Quantity: it.Quantity, Price: it.Price})
	}
	return p
}

// PartitionKeyForUser keeps all events of one user in order.
func PartitionKeyForUser(userID int64) string {
	return "user-" + strconv.FormatInt(userID, 10)
}

func newOrderPlacedEvent(meta EventMeta, seq int64, producer string, payload OrderPlacedPayload, occurredAt time.Time) OrderPlacedEvent {
	return OrderPlacedEvent{
		EventEnvelope: EventEnvelope{
			EventName:     EventTypeOrderPlaced,
			EventVersion:  1,
			EventID:       uuid.NewString(),
			CorrelationID: meta.CorrelationID,
			CausationID:   meta.CausationID,
			Producer:      producer,
			PartitionKey:  meta.PartitionKey,
			Sequence:      seq,
			OccurredAt:    occurredAt,
			Schema:        orderPlacedSchema,
		},
		Payload: payload,
	}
}

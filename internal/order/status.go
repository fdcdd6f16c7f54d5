package order

type Status string

const (
	// StatusPending is a direct checkout that has not been paid yet.
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	// Set by fulfilment outside this service.
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

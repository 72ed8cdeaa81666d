package enums

// EventType labels the domain events written to the outbox.
type EventType string

const (
	EventOrderCreated       EventType = "order_created"
	EventOrderPaid          EventType = "order_paid"
	EventOrderCancelled     EventType = "order_cancelled"
	EventOrderStatusChanged EventType = "order_status_changed"
)

// AggregateType identifies the aggregate an outbox event belongs to.
type AggregateType string

const (
	AggregateOrder AggregateType = "order"
)

package order

import (
	"context"
	"time"
)

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Status Status
	Limit  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts a new order. A second order with the same idempotency
	// key fails with ErrDuplicateIdempotencyKey.
	Create(ctx context.Context, o *Order) error
	// Get returns ErrNotFound when no order has the id.
	Get(ctx context.Context, id string) (*Order, error)
	// Save replaces the stored order iff its version is still expectedVersion,
	// failing with ErrVersionConflict otherwise.
	Save(ctx context.Context, o *Order, expectedVersion int64) error
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
}

// EventType names an order event. Values double as routing keys.
type EventType string

const (
	EventPlaced         EventType = "order.placed"
	EventStatusChanged  EventType = "order.status_changed"
	EventDesignReviewed EventType = "order.design_reviewed"
	EventItemRemoved    EventType = "order.item_removed"
)

// Event is emitted after an order mutation is committed.
type Event struct {
	Type       EventType    `json:"type"`
	OrderID    string       `json:"order_id"`
	Status     Status       `json:"status"`
	Version    int64        `json:"version"`
	ActorID    string       `json:"actor_id,omitempty"`
	DesignID   string       `json:"design_id,omitempty"`
	Review     ReviewStatus `json:"review,omitempty"`
	ItemID     string       `json:"item_id,omitempty"`
	Total      int64        `json:"total"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// ShippingPolicy prices shipping from the order subtotal.
type ShippingPolicy struct {
	Flat int64
	// FreeOver waives shipping for subtotals at or above it. Zero disables.
	FreeOver int64
}

// Cost returns the shipping charge for subtotal.
func (p ShippingPolicy) Cost(subtotal int64) int64 {
	if p.FreeOver > 0 && subtotal >= p.FreeOver {
		return 0
	}
	return p.Flat
}

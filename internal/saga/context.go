package saga

import "sync"

// OrderItem is one line item of the order being carried through the
// saga (spec.md §3 "OrderContext").
type OrderItem struct {
	SKU      string  `json:"sku"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// InventoryReservation is one line of a (possibly partial) inventory
// reservation, as returned by the inventory participant (spec.md
// §4.3's response merger "inventory_reservations (list)" and the
// tie-break policy requiring a partial reservation's list survive
// into the compensation payload).
type InventoryReservation struct {
	SKU      string `json:"product_id"`
	Quantity int    `json:"quantity"`
}

// OrderContext is the saga's shared context, carried from step to
// step and handed to every compensation call (spec.md §3, §9 design
// note: "use a typed struct instead of an open map[string]interface{}
// for the shared context; it documents exactly what every step can
// read and write").
//
// Per-step original request/response payloads are no longer kept
// here: the engine keeps them keyed by step index (avoiding the
// per-participant key collision a single participant handling two
// steps would cause) and hands them straight to that step's own
// Undo. Besides the order's own input fields, OrderContext carries
// only the six identifiers spec.md §4.3's scenarios name as the saga's
// externally-visible state: order_id,
// the inventory reservation list, payment_id, shipping_id, the
// shipping tracking number, and notification_id.
type OrderContext struct {
	SagaID               string
	OrderID              string
	CustomerID           string
	Items                []OrderItem
	TotalAmount          float64
	PaymentMethod        string
	ShippingAddress      string
	ShippingMethod       string
	NotificationChannels []string

	InventoryReservations  []InventoryReservation
	PaymentID              string
	ShippingID             string
	ShippingTrackingNumber string
	NotificationID         string
}

// NewOrderContext seeds a context for sagaID. OrderID is deliberately
// left empty: spec.md §4.3's order-create step is the one that
// assigns it, merging it into the context from the participant's
// response rather than accepting it as caller input.
func NewOrderContext(sagaID string) OrderContext {
	return OrderContext{SagaID: sagaID}
}

// Context is a small generic, mutex-guarded wrapper around a value of
// type T. The saga engine runs a single saga's steps sequentially, so
// the lock is mostly insurance — but the HTTP API's statistics/detail
// endpoints (spec.md §6) read a running saga's context from another
// goroutine, so MergeFrom/Get must be safe to call concurrently with
// Execute.
type Context[T any] struct {
	mu   sync.Mutex
	data T
}

// NewContext wraps an initial value.
func NewContext[T any](data T) *Context[T] {
	return &Context[T]{data: data}
}

// Get returns a copy of the wrapped value.
func (c *Context[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// MergeFrom applies fn to the wrapped value under lock, letting a step
// merge a participant's response into the shared context without the
// caller needing to hold the lock itself.
func (c *Context[T]) MergeFrom(fn func(*T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.data)
}

// SagaContext is the concrete context type every order saga step
// operates on.
type SagaContext = Context[OrderContext]

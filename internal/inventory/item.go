package inventory

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrItemNotFound      = errors.New("inventory item not found")
	ErrDuplicateSKU      = errors.New("sku already exists for tenant")
	ErrInsufficientStock = errors.New("insufficient available stock")
	ErrReservationState  = errors.New("reservation cannot be released")
)

// Item represents a stocked inventory item. Available quantity is on-hand
// minus reserved.
type Item struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenant_id"`
	SKU              string     `json:"sku"`
	Name             string     `json:"name"`
	Category         string     `json:"category,omitempty"`
	QuantityOnHand   int        `json:"quantity_on_hand"`
	QuantityReserved int        `json:"quantity_reserved"`
	UnitCostCents    int64      `json:"unit_cost_cents"`
	ReorderLevel     int        `json:"reorder_level"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"-"`
}

// Available returns the quantity free to reserve
func (i *Item) Available() int {
	return i.QuantityOnHand - i.QuantityReserved
}

// NeedsReorder reports whether available stock fell to the reorder level
func (i *Item) NeedsReorder() bool {
	return i.Available() <= i.ReorderLevel
}

// Reservation holds stock for an event
type Reservation struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	EventID   string    `json:"event_id"`
	Quantity  int       `json:"quantity"`
	Released  bool      `json:"released"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the interface for inventory persistence
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	GetBySKU(ctx context.Context, sku string) (*Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, category string, limit, offset int) ([]*Item, error)

	// AdjustReserved atomically moves delta units into (positive) or out
	// of (negative) the reserved count. A positive delta is refused with
	// ErrInsufficientStock when it exceeds the available quantity; a
	// negative delta never takes the reserved count below zero.
	AdjustReserved(ctx context.Context, itemID string, delta int) error

	CreateReservation(ctx context.Context, r *Reservation) error
	GetReservation(ctx context.Context, id string) (*Reservation, error)
	ReleaseReservation(ctx context.Context, id string) error
	ListReservationsByEvent(ctx context.Context, eventID string) ([]*Reservation, error)
}

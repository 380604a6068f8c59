// Copyright 2026 The VenueCore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/venuecore/venuecore/internal/audit"
	"github.com/venuecore/venuecore/internal/tenant"
)

// Service provides inventory business logic
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new inventory service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{repo: repo, auditLogger: auditLogger}
}

// CreateItem creates a new inventory item. SKU must be unique per tenant.
func (s *Service) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	if item.SKU == "" || item.Name == "" {
		return nil, fmt.Errorf("sku and name are required")
	}
	if item.QuantityOnHand < 0 {
		return nil, fmt.Errorf("quantity on hand cannot be negative")
	}

	item.ID = uuid.Must(uuid.NewV7()).String()
	item.QuantityReserved = 0
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	s.audit(ctx, audit.TypeRecordCreated, "inventory_item", item.ID)
	return item, nil
}

// GetItem retrieves an item by ID
func (s *Service) GetItem(ctx context.Context, id string) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

// ListItems lists items, optionally filtered by category
func (s *Service) ListItems(ctx context.Context, category string, limit, offset int) ([]*Item, error) {
	return s.repo.List(ctx, category, limit, offset)
}

// UpdateItem updates item fields. Reserved quantity is managed only
// through reservations.
func (s *Service) UpdateItem(ctx context.Context, item *Item) (*Item, error) {
	existing, err := s.repo.GetByID(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if item.QuantityOnHand < existing.QuantityReserved {
		return nil, fmt.Errorf("quantity on hand cannot drop below reserved quantity")
	}

	item.QuantityReserved = existing.QuantityReserved
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}

	s.audit(ctx, audit.TypeRecordUpdated, "inventory_item", item.ID)
	return item, nil
}

// Reserve holds quantity of an item for an event
func (s *Service) Reserve(ctx context.Context, itemID, eventID string, quantity int) (*Reservation, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("reservation quantity must be positive")
	}

	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Available() < quantity {
		return nil, ErrInsufficientStock
	}

	// The availability check above used a snapshot; the repository
	// re-checks it inside the update so two concurrent reservations
	// cannot both claim the last units.
	if err := s.repo.AdjustReserved(ctx, itemID, quantity); err != nil {
		return nil, err
	}

	r := &Reservation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ItemID:    itemID,
		EventID:   eventID,
		Quantity:  quantity,
		CreatedAt: time.Now(),
	}

	if err := s.repo.CreateReservation(ctx, r); err != nil {
		if adjErr := s.repo.AdjustReserved(ctx, itemID, -quantity); adjErr != nil {
			return nil, fmt.Errorf("failed to create reservation: %w (release failed: %v)", err, adjErr)
		}
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	if tc, err := tenant.FromContext(ctx); err == nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeStockReserved,
			TenantID: tc.Tenant.ID,
			ActorID:  tc.UserID,
			Resource: "inventory_item",
			Metadata: map[string]any{"item_id": itemID, "event_id": eventID, "quantity": quantity},
		})
	}

	return r, nil
}

// Release frees a reservation's quantity back to available stock
func (s *Service) Release(ctx context.Context, reservationID string) error {
	r, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if r.Released {
		return ErrReservationState
	}

	if err := s.repo.ReleaseReservation(ctx, reservationID); err != nil {
		return err
	}

	return s.repo.AdjustReserved(ctx, r.ItemID, -r.Quantity)
}

// ListReservations lists reservations for an event
func (s *Service) ListReservations(ctx context.Context, eventID string) ([]*Reservation, error) {
	return s.repo.ListReservationsByEvent(ctx, eventID)
}

// DeleteItem soft-deletes an item with no outstanding reservations
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.QuantityReserved > 0 {
		return fmt.Errorf("cannot delete item with outstanding reservations")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, audit.TypeRecordDeleted, "inventory_item", id)
	return nil
}

func (s *Service) audit(ctx context.Context, eventType, resource, id string) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: tc.Tenant.ID,
		ActorID:  tc.UserID,
		Resource: resource,
		Metadata: map[string]any{"id": id},
	})
}

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
	"testing"

	"github.com/venuecore/venuecore/internal/audit"
)

type memInventoryRepo struct {
	items        map[string]*Item
	reservations map[string]*Reservation
}

func newMemInventoryRepo() *memInventoryRepo {
	return &memInventoryRepo{
		items:        make(map[string]*Item),
		reservations: make(map[string]*Reservation),
	}
}

func (m *memInventoryRepo) Create(_ context.Context, i *Item) error {
	for _, existing := range m.items {
		if existing.SKU == i.SKU {
			return ErrDuplicateSKU
		}
	}
	m.items[i.ID] = i
	return nil
}

func (m *memInventoryRepo) GetByID(_ context.Context, id string) (*Item, error) {
	i, ok := m.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return i, nil
}

func (m *memInventoryRepo) GetBySKU(_ context.Context, sku string) (*Item, error) {
	for _, i := range m.items {
		if i.SKU == sku {
			return i, nil
		}
	}
	return nil, ErrItemNotFound
}

func (m *memInventoryRepo) Update(_ context.Context, i *Item) error {
	if _, ok := m.items[i.ID]; !ok {
		return ErrItemNotFound
	}
	m.items[i.ID] = i
	return nil
}

func (m *memInventoryRepo) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *memInventoryRepo) List(_ context.Context, category string, limit, offset int) ([]*Item, error) {
	var out []*Item
	for _, i := range m.items {
		if category == "" || i.Category == category {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *memInventoryRepo) AdjustReserved(_ context.Context, itemID string, delta int) error {
	i, ok := m.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	if delta > 0 && i.QuantityOnHand-i.QuantityReserved < delta {
		return ErrInsufficientStock
	}
	i.QuantityReserved += delta
	if i.QuantityReserved < 0 {
		i.QuantityReserved = 0
	}
	return nil
}

func (m *memInventoryRepo) CreateReservation(_ context.Context, r *Reservation) error {
	m.reservations[r.ID] = r
	return nil
}

func (m *memInventoryRepo) GetReservation(_ context.Context, id string) (*Reservation, error) {
	r, ok := m.reservations[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return r, nil
}

func (m *memInventoryRepo) ReleaseReservation(_ context.Context, id string) error {
	r, ok := m.reservations[id]
	if !ok || r.Released {
		return ErrReservationState
	}
	r.Released = true
	return nil
}

func (m *memInventoryRepo) ListReservationsByEvent(_ context.Context, eventID string) ([]*Reservation, error) {
	var out []*Reservation
	for _, r := range m.reservations {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newInventoryService() *Service {
	return NewService(newMemInventoryRepo(), audit.NewSlogLogger())
}

func TestInventory_Reserve(t *testing.T) {
	s := newInventoryService()
	ctx := context.Background()

	item, err := s.CreateItem(ctx, &Item{SKU: "CHAIR-01", Name: "Folding Chair", QuantityOnHand: 100})
	if err != nil {
		t.Fatalf("failed to create item: %v", err)
	}

	r, err := s.Reserve(ctx, item.ID, "event-1", 60)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if r.Quantity != 60 {
		t.Errorf("want 60 reserved, got %d", r.Quantity)
	}

	got, _ := s.GetItem(ctx, item.ID)
	if got.Available() != 40 {
		t.Errorf("want 40 available, got %d", got.Available())
	}

	// Only 40 remain; 50 must be rejected.
	if _, err := s.Reserve(ctx, item.ID, "event-2", 50); err != ErrInsufficientStock {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}

	if _, err := s.Reserve(ctx, item.ID, "event-2", 0); err == nil {
		t.Error("zero quantity should be rejected")
	}
}

func TestInventory_Release(t *testing.T) {
	s := newInventoryService()
	ctx := context.Background()

	item, _ := s.CreateItem(ctx, &Item{SKU: "TBL-08", Name: "Round Table", QuantityOnHand: 10})
	r, _ := s.Reserve(ctx, item.ID, "event-1", 10)

	if _, err := s.Reserve(ctx, item.ID, "event-2", 1); err != ErrInsufficientStock {
		t.Fatalf("stock should be exhausted, got %v", err)
	}

	if err := s.Release(ctx, r.ID); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	got, _ := s.GetItem(ctx, item.ID)
	if got.Available() != 10 {
		t.Errorf("released stock should be available again, got %d", got.Available())
	}

	// Double release is a state error.
	if err := s.Release(ctx, r.ID); err != ErrReservationState {
		t.Errorf("expected ErrReservationState, got %v", err)
	}
}

// staleReadInventoryRepo serves item reads from a snapshot taken earlier,
// the way a request sees the item before a concurrent reservation lands.
// Adjustments go against the live store.
type staleReadInventoryRepo struct {
	*memInventoryRepo
	stale map[string]Item
}

func (m *staleReadInventoryRepo) snapshot() {
	m.stale = make(map[string]Item)
	for id, i := range m.items {
		m.stale[id] = *i
	}
}

func (m *staleReadInventoryRepo) GetByID(ctx context.Context, id string) (*Item, error) {
	if i, ok := m.stale[id]; ok {
		copied := i
		return &copied, nil
	}
	return m.memInventoryRepo.GetByID(ctx, id)
}

func TestInventory_Reserve_ConcurrentReserveCannotOversell(t *testing.T) {
	repo := &staleReadInventoryRepo{memInventoryRepo: newMemInventoryRepo()}
	s := NewService(repo, audit.NewSlogLogger())
	ctx := context.Background()

	item, err := s.CreateItem(ctx, &Item{SKU: "SPK-12", Name: "PA Speaker", QuantityOnHand: 10})
	if err != nil {
		t.Fatalf("failed to create item: %v", err)
	}

	// Both requests read the item with all 10 units free.
	repo.snapshot()

	if _, err := s.Reserve(ctx, item.ID, "event-1", 8); err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}

	// The second request's availability check passed against its stale
	// read, but the repository refuses the adjustment once the reserved
	// count would exceed the stock on hand.
	if _, err := s.Reserve(ctx, item.ID, "event-2", 8); err != ErrInsufficientStock {
		t.Fatalf("expected ErrInsufficientStock for the losing reservation, got %v", err)
	}

	stored := repo.items[item.ID]
	if stored.QuantityReserved != 8 {
		t.Errorf("losing reservation must not hold stock, got %d reserved", stored.QuantityReserved)
	}
	if len(repo.reservations) != 1 {
		t.Errorf("losing reservation must not be recorded, got %d reservations", len(repo.reservations))
	}
}

func TestInventory_UpdateItem_ProtectsReservedStock(t *testing.T) {
	s := newInventoryService()
	ctx := context.Background()

	item, _ := s.CreateItem(ctx, &Item{SKU: "LIN-02", Name: "Linens", QuantityOnHand: 50})
	s.Reserve(ctx, item.ID, "event-1", 30)

	// On-hand cannot drop below what is already promised.
	update := &Item{ID: item.ID, SKU: "LIN-02", Name: "Linens", QuantityOnHand: 20}
	if _, err := s.UpdateItem(ctx, update); err == nil {
		t.Error("on-hand below reserved should be rejected")
	}

	// Reserved quantity cannot be edited directly.
	update = &Item{ID: item.ID, SKU: "LIN-02", Name: "Linens", QuantityOnHand: 50, QuantityReserved: 0}
	updated, err := s.UpdateItem(ctx, update)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.QuantityReserved != 30 {
		t.Errorf("reserved quantity must be preserved, got %d", updated.QuantityReserved)
	}
}

func TestInventory_DeleteItem_RefusesHeldStock(t *testing.T) {
	s := newInventoryService()
	ctx := context.Background()

	item, _ := s.CreateItem(ctx, &Item{SKU: "AV-01", Name: "PA System", QuantityOnHand: 2})
	r, _ := s.Reserve(ctx, item.ID, "event-1", 1)

	if err := s.DeleteItem(ctx, item.ID); err == nil {
		t.Error("item with held reservations should not delete")
	}

	s.Release(ctx, r.ID)
	if err := s.DeleteItem(ctx, item.ID); err != nil {
		t.Errorf("delete after release should succeed, got %v", err)
	}
}

func TestInventory_CreateItem_DuplicateSKU(t *testing.T) {
	s := newInventoryService()
	ctx := context.Background()

	if _, err := s.CreateItem(ctx, &Item{SKU: "DUP-1", Name: "First"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := s.CreateItem(ctx, &Item{SKU: "DUP-1", Name: "Second"}); err != ErrDuplicateSKU {
		t.Errorf("expected ErrDuplicateSKU, got %v", err)
	}
}

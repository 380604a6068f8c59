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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/venuecore/venuecore/internal/inventory"
)

// InventoryRepository implements inventory.Repository
type InventoryRepository struct{}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{}
}

// Create creates an inventory item
func (r *InventoryRepository) Create(ctx context.Context, item *inventory.Item) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = pool.Exec(ctx, `
		INSERT INTO inventory_items (
			id, tenant_id, sku, name, category, quantity_on_hand, quantity_reserved,
			unit_cost_cents, reorder_level, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, item.ID, tenantID, item.SKU, item.Name, item.Category, item.QuantityOnHand,
		item.QuantityReserved, item.UnitCostCents, item.ReorderLevel, now, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return inventory.ErrDuplicateSKU
		}
		return fmt.Errorf("failed to insert inventory item: %w", err)
	}

	item.TenantID = tenantID
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

const itemColumns = `id, tenant_id, sku, name, category, quantity_on_hand, quantity_reserved,
	unit_cost_cents, reorder_level, created_at, updated_at, deleted_at`

// GetByID retrieves an item by ID
func (r *InventoryRepository) GetByID(ctx context.Context, id string) (*inventory.Item, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id)
	return scanItem(row)
}

// GetBySKU retrieves an item by SKU
func (r *InventoryRepository) GetBySKU(ctx context.Context, sku string) (*inventory.Item, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE tenant_id = $1 AND sku = $2 AND deleted_at IS NULL
	`, tenantID, sku)
	return scanItem(row)
}

// Update updates item fields and quantities
func (r *InventoryRepository) Update(ctx context.Context, item *inventory.Item) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE inventory_items SET
			sku = $3,
			name = $4,
			category = $5,
			quantity_on_hand = $6,
			quantity_reserved = $7,
			unit_cost_cents = $8,
			reorder_level = $9,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, item.ID, item.SKU, item.Name, item.Category, item.QuantityOnHand,
		item.QuantityReserved, item.UnitCostCents, item.ReorderLevel)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return inventory.ErrDuplicateSKU
		}
		return fmt.Errorf("failed to update inventory item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return inventory.ErrItemNotFound
	}
	return nil
}

// Delete soft-deletes an item
func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE inventory_items SET deleted_at = $3
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return inventory.ErrItemNotFound
	}
	return nil
}

// AdjustReserved moves delta units into or out of the reserved count with
// the availability check inside the UPDATE itself, so two concurrent
// reservations cannot both claim the last units.
func (r *InventoryRepository) AdjustReserved(ctx context.Context, itemID string, delta int) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE inventory_items SET
			quantity_reserved = GREATEST(quantity_reserved + $3, 0),
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
			AND ($3 <= 0 OR quantity_on_hand - quantity_reserved >= $3)
	`, tenantID, itemID, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust reserved quantity: %w", err)
	}
	if result.RowsAffected() == 0 {
		if delta > 0 {
			if _, getErr := r.GetByID(ctx, itemID); getErr != nil {
				return getErr
			}
			return inventory.ErrInsufficientStock
		}
		return inventory.ErrItemNotFound
	}
	return nil
}

// List lists items, optionally filtered by category
func (r *InventoryRepository) List(ctx context.Context, category string, limit, offset int) ([]*inventory.Item, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE tenant_id = $1 AND deleted_at IS NULL
			AND ($2 = '' OR category = $2)
		ORDER BY sku
		LIMIT $3 OFFSET $4
	`, tenantID, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	defer rows.Close()

	var items []*inventory.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateReservation records a stock reservation
func (r *InventoryRepository) CreateReservation(ctx context.Context, res *inventory.Reservation) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO inventory_reservations (id, tenant_id, item_id, event_id, quantity, released, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, res.ID, tenantID, res.ItemID, res.EventID, res.Quantity, res.Released, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

// GetReservation retrieves a reservation
func (r *InventoryRepository) GetReservation(ctx context.Context, id string) (*inventory.Reservation, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	var res inventory.Reservation
	err = pool.QueryRow(ctx, `
		SELECT id, item_id, event_id, quantity, released, created_at
		FROM inventory_reservations
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(&res.ID, &res.ItemID, &res.EventID, &res.Quantity, &res.Released, &res.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, inventory.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &res, nil
}

// ReleaseReservation marks a reservation released
func (r *InventoryRepository) ReleaseReservation(ctx context.Context, id string) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE inventory_reservations SET released = TRUE
		WHERE tenant_id = $1 AND id = $2 AND released = FALSE
	`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to release reservation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return inventory.ErrReservationState
	}
	return nil
}

// ListReservationsByEvent lists reservations for an event
func (r *InventoryRepository) ListReservationsByEvent(ctx context.Context, eventID string) ([]*inventory.Reservation, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT id, item_id, event_id, quantity, released, created_at
		FROM inventory_reservations
		WHERE tenant_id = $1 AND event_id = $2
		ORDER BY created_at
	`, tenantID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*inventory.Reservation
	for rows.Next() {
		var res inventory.Reservation
		if err := rows.Scan(&res.ID, &res.ItemID, &res.EventID, &res.Quantity, &res.Released, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, &res)
	}
	return reservations, rows.Err()
}

func scanItem(row pgx.Row) (*inventory.Item, error) {
	var item inventory.Item
	var deletedAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.TenantID, &item.SKU, &item.Name, &item.Category,
		&item.QuantityOnHand, &item.QuantityReserved, &item.UnitCostCents,
		&item.ReorderLevel, &item.CreatedAt, &item.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, inventory.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to scan inventory item: %w", err)
	}

	if deletedAt.Valid {
		item.DeletedAt = &deletedAt.Time
	}
	return &item, nil
}

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
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/venuecore/venuecore/internal/crm"
)

// OpportunityRepository implements crm.OpportunityRepository
type OpportunityRepository struct{}

// NewOpportunityRepository creates a new opportunity repository
func NewOpportunityRepository() *OpportunityRepository {
	return &OpportunityRepository{}
}

// Create creates a new opportunity
func (r *OpportunityRepository) Create(ctx context.Context, o *crm.Opportunity) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = pool.Exec(ctx, `
		INSERT INTO opportunities (
			id, tenant_id, account_id, name, stage, amount_cents, probability,
			close_date, owner_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::uuid, $10, $11)
	`, o.ID, tenantID, o.AccountID, o.Name, o.Stage, o.AmountCents, o.Probability,
		o.CloseDate, o.OwnerID, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert opportunity: %w", err)
	}

	o.TenantID = tenantID
	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

const opportunityColumns = `id, tenant_id, account_id, name, stage, amount_cents, probability,
	close_date, COALESCE(owner_id::text, ''), created_at, updated_at, deleted_at`

// GetByID retrieves an opportunity with its line items
func (r *OpportunityRepository) GetByID(ctx context.Context, id string) (*crm.Opportunity, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+opportunityColumns+`
		FROM opportunities
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id)
	o, err := scanOpportunity(row)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT id, opportunity_id, description, quantity, unit_price_cents
		FROM opportunity_lines
		WHERE opportunity_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunity lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li crm.LineItem
		if err := rows.Scan(&li.ID, &li.OpportunityID, &li.Description, &li.Quantity, &li.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan opportunity line: %w", err)
		}
		o.LineItems = append(o.LineItems, &li)
	}
	return o, rows.Err()
}

// Update updates opportunity fields
func (r *OpportunityRepository) Update(ctx context.Context, o *crm.Opportunity) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE opportunities SET
			name = $3,
			stage = $4,
			amount_cents = $5,
			probability = $6,
			close_date = $7,
			owner_id = NULLIF($8, '')::uuid,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, o.ID, o.Name, o.Stage, o.AmountCents, o.Probability, o.CloseDate, o.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update opportunity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return crm.ErrOpportunityNotFound
	}
	return nil
}

// Delete soft-deletes an opportunity
func (r *OpportunityRepository) Delete(ctx context.Context, id string) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE opportunities SET deleted_at = $3
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete opportunity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return crm.ErrOpportunityNotFound
	}
	return nil
}

// List lists opportunities, optionally filtered by account and stage
func (r *OpportunityRepository) List(ctx context.Context, accountID, stage string, limit, offset int) ([]*crm.Opportunity, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT `+opportunityColumns+`
		FROM opportunities
		WHERE tenant_id = $1 AND deleted_at IS NULL
			AND ($2 = '' OR account_id = $2::uuid)
			AND ($3 = '' OR stage = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, tenantID, accountID, stage, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []*crm.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

// ReplaceLineItems swaps an opportunity's line items in one transaction
func (r *OpportunityRepository) ReplaceLineItems(ctx context.Context, oppID string, items []*crm.LineItem) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the parent row so concurrent replacements serialize.
	var exists string
	err = tx.QueryRow(ctx, `
		SELECT id FROM opportunities
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
		FOR UPDATE
	`, tenantID, oppID).Scan(&exists)
	if err != nil {
		if err == pgx.ErrNoRows {
			return crm.ErrOpportunityNotFound
		}
		return fmt.Errorf("failed to lock opportunity: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM opportunity_lines WHERE opportunity_id = $1`, oppID); err != nil {
		return fmt.Errorf("failed to clear opportunity lines: %w", err)
	}

	for _, li := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO opportunity_lines (id, opportunity_id, description, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5)
		`, li.ID, oppID, li.Description, li.Quantity, li.UnitPriceCents); err != nil {
			return fmt.Errorf("failed to insert opportunity line: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func scanOpportunity(row pgx.Row) (*crm.Opportunity, error) {
	var o crm.Opportunity
	var closeDate, deletedAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.TenantID, &o.AccountID, &o.Name, &o.Stage, &o.AmountCents, &o.Probability,
		&closeDate, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, crm.ErrOpportunityNotFound
		}
		return nil, fmt.Errorf("failed to scan opportunity: %w", err)
	}

	if closeDate.Valid {
		o.CloseDate = &closeDate.Time
	}
	if deletedAt.Valid {
		o.DeletedAt = &deletedAt.Time
	}
	return &o, nil
}

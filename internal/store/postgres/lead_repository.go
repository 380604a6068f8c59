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

// LeadRepository implements crm.LeadRepository
type LeadRepository struct{}

// NewLeadRepository creates a new lead repository
func NewLeadRepository() *LeadRepository {
	return &LeadRepository{}
}

// Create creates a new lead
func (r *LeadRepository) Create(ctx context.Context, l *crm.Lead) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = pool.Exec(ctx, `
		INSERT INTO leads (
			id, tenant_id, name, email, phone, company, source, status,
			owner_id, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::uuid, $10, $11, $12)
	`, l.ID, tenantID, l.Name, l.Email, l.Phone, l.Company, l.Source, l.Status,
		l.OwnerID, l.Notes, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	l.TenantID = tenantID
	l.CreatedAt = now
	l.UpdatedAt = now
	return nil
}

const leadColumns = `id, tenant_id, name, email, phone, company, source, status,
	COALESCE(owner_id::text, ''), notes, converted_at,
	COALESCE(account_id::text, ''), COALESCE(contact_id::text, ''),
	created_at, updated_at, deleted_at`

// GetByID retrieves a lead by ID
func (r *LeadRepository) GetByID(ctx context.Context, id string) (*crm.Lead, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id)
	return scanLead(row)
}

// Update updates lead fields, including conversion state
func (r *LeadRepository) Update(ctx context.Context, l *crm.Lead) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE leads SET
			name = $3,
			email = $4,
			phone = $5,
			company = $6,
			source = $7,
			status = $8,
			owner_id = NULLIF($9, '')::uuid,
			notes = $10,
			converted_at = $11,
			account_id = NULLIF($12, '')::uuid,
			contact_id = NULLIF($13, '')::uuid,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, l.ID, l.Name, l.Email, l.Phone, l.Company, l.Source, l.Status,
		l.OwnerID, l.Notes, l.ConvertedAt, l.AccountID, l.ContactID)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		return crm.ErrLeadNotFound
	}
	return nil
}

// Delete soft-deletes a lead
func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE leads SET deleted_at = $3
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		return crm.ErrLeadNotFound
	}
	return nil
}

// List lists leads, optionally filtered by status
func (r *LeadRepository) List(ctx context.Context, status string, limit, offset int) ([]*crm.Lead, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1 AND deleted_at IS NULL
			AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, tenantID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []*crm.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func scanLead(row pgx.Row) (*crm.Lead, error) {
	var l crm.Lead
	var convertedAt, deletedAt sql.NullTime

	err := row.Scan(
		&l.ID, &l.TenantID, &l.Name, &l.Email, &l.Phone, &l.Company, &l.Source, &l.Status,
		&l.OwnerID, &l.Notes, &convertedAt, &l.AccountID, &l.ContactID,
		&l.CreatedAt, &l.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, crm.ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}

	if convertedAt.Valid {
		l.ConvertedAt = &convertedAt.Time
	}
	if deletedAt.Valid {
		l.DeletedAt = &deletedAt.Time
	}
	return &l, nil
}

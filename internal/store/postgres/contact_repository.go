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

// ContactRepository implements crm.ContactRepository
type ContactRepository struct{}

// NewContactRepository creates a new contact repository
func NewContactRepository() *ContactRepository {
	return &ContactRepository{}
}

// Create creates a new contact
func (r *ContactRepository) Create(ctx context.Context, c *crm.Contact) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = pool.Exec(ctx, `
		INSERT INTO contacts (
			id, tenant_id, account_id, first_name, last_name, email, phone, title,
			is_primary, created_at, updated_at
		) VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, $10, $11)
	`, c.ID, tenantID, c.AccountID, c.FirstName, c.LastName, c.Email, c.Phone, c.Title,
		c.Primary, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}

	c.TenantID = tenantID
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

const contactColumns = `id, tenant_id, COALESCE(account_id::text, ''), first_name, last_name,
	email, phone, title, is_primary, created_at, updated_at, deleted_at`

// GetByID retrieves a contact by ID
func (r *ContactRepository) GetByID(ctx context.Context, id string) (*crm.Contact, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id)
	return scanContact(row)
}

// Update updates contact fields
func (r *ContactRepository) Update(ctx context.Context, c *crm.Contact) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE contacts SET
			account_id = NULLIF($3, '')::uuid,
			first_name = $4,
			last_name = $5,
			email = $6,
			phone = $7,
			title = $8,
			is_primary = $9,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, c.ID, c.AccountID, c.FirstName, c.LastName, c.Email, c.Phone, c.Title, c.Primary)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	if result.RowsAffected() == 0 {
		return crm.ErrContactNotFound
	}
	return nil
}

// Delete soft-deletes a contact
func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE contacts SET deleted_at = $3
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if result.RowsAffected() == 0 {
		return crm.ErrContactNotFound
	}
	return nil
}

// List lists contacts, optionally filtered by account
func (r *ContactRepository) List(ctx context.Context, accountID string, limit, offset int) ([]*crm.Contact, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE tenant_id = $1 AND deleted_at IS NULL
			AND ($2 = '' OR account_id = $2::uuid)
		ORDER BY last_name, first_name
		LIMIT $3 OFFSET $4
	`, tenantID, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*crm.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func scanContact(row pgx.Row) (*crm.Contact, error) {
	var c crm.Contact
	var deletedAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.TenantID, &c.AccountID, &c.FirstName, &c.LastName,
		&c.Email, &c.Phone, &c.Title, &c.Primary, &c.CreatedAt, &c.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, crm.ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to scan contact: %w", err)
	}

	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Time
	}
	return &c, nil
}

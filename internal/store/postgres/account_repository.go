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

// AccountRepository implements crm.AccountRepository. The pool and the
// physical tenant id come from the resolved tenant context in ctx.
type AccountRepository struct{}

// NewAccountRepository creates a new account repository
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{}
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, a *crm.Account) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = pool.Exec(ctx, `
		INSERT INTO accounts (
			id, tenant_id, name, account_type, industry, website, phone,
			billing_street, billing_city, billing_state, billing_postal, billing_country,
			owner_id, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, '')::uuid, $14, $15, $16)
	`, a.ID, tenantID, a.Name, a.Type, a.Industry, a.Website, a.Phone,
		a.BillingStreet, a.BillingCity, a.BillingState, a.BillingPostal, a.BillingCountry,
		a.OwnerID, a.Notes, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	a.TenantID = tenantID
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

const accountColumns = `id, tenant_id, name, account_type, industry, website, phone,
	billing_street, billing_city, billing_state, billing_postal, billing_country,
	COALESCE(owner_id::text, ''), notes, created_at, updated_at, deleted_at`

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*crm.Account, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id)
	return scanAccount(row)
}

// Update updates account fields
func (r *AccountRepository) Update(ctx context.Context, a *crm.Account) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE accounts SET
			name = $3,
			account_type = $4,
			industry = $5,
			website = $6,
			phone = $7,
			billing_street = $8,
			billing_city = $9,
			billing_state = $10,
			billing_postal = $11,
			billing_country = $12,
			owner_id = NULLIF($13, '')::uuid,
			notes = $14,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, a.ID, a.Name, a.Type, a.Industry, a.Website, a.Phone,
		a.BillingStreet, a.BillingCity, a.BillingState, a.BillingPostal, a.BillingCountry,
		a.OwnerID, a.Notes)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return crm.ErrAccountNotFound
	}
	return nil
}

// Delete soft-deletes an account
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE accounts SET deleted_at = $3
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return crm.ErrAccountNotFound
	}
	return nil
}

// List lists accounts, optionally filtered by a name search
func (r *AccountRepository) List(ctx context.Context, search string, limit, offset int) ([]*crm.Account, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE tenant_id = $1 AND deleted_at IS NULL
			AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY name
		LIMIT $3 OFFSET $4
	`, tenantID, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*crm.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*crm.Account, error) {
	var a crm.Account
	var deletedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.TenantID, &a.Name, &a.Type, &a.Industry, &a.Website, &a.Phone,
		&a.BillingStreet, &a.BillingCity, &a.BillingState, &a.BillingPostal, &a.BillingCountry,
		&a.OwnerID, &a.Notes, &a.CreatedAt, &a.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, crm.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	if deletedAt.Valid {
		a.DeletedAt = &deletedAt.Time
	}
	return &a, nil
}

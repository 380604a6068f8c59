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
	"github.com/venuecore/venuecore/internal/billing"
)

// ContractRepository implements billing.ContractRepository
type ContractRepository struct{}

// NewContractRepository creates a new contract repository
func NewContractRepository() *ContractRepository {
	return &ContractRepository{}
}

// Create creates a contract
func (r *ContractRepository) Create(ctx context.Context, c *billing.Contract) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = pool.Exec(ctx, `
		INSERT INTO contracts (
			id, tenant_id, account_id, event_id, title, body, status,
			sent_at, signed_at, signer_name, created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10, $11, $12)
	`, c.ID, tenantID, c.AccountID, c.EventID, c.Title, c.Body, c.Status,
		c.SentAt, c.SignedAt, c.SignerName, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert contract: %w", err)
	}

	c.TenantID = tenantID
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

const contractColumns = `id, tenant_id, account_id, COALESCE(event_id::text, ''), title, body,
	status, sent_at, signed_at, signer_name, created_at, updated_at`

// GetByID retrieves a contract
func (r *ContractRepository) GetByID(ctx context.Context, id string) (*billing.Contract, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanContract(row)
}

// Update updates contract state
func (r *ContractRepository) Update(ctx context.Context, c *billing.Contract) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE contracts SET
			title = $3,
			body = $4,
			status = $5,
			sent_at = $6,
			signed_at = $7,
			signer_name = $8,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, c.ID, c.Title, c.Body, c.Status, c.SentAt, c.SignedAt, c.SignerName)
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	if result.RowsAffected() == 0 {
		return billing.ErrContractNotFound
	}
	return nil
}

// List lists contracts, optionally filtered by account and status
func (r *ContractRepository) List(ctx context.Context, accountID, status string, limit, offset int) ([]*billing.Contract, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE tenant_id = $1
			AND ($2 = '' OR account_id = $2::uuid)
			AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, tenantID, accountID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*billing.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func scanContract(row pgx.Row) (*billing.Contract, error) {
	var c billing.Contract
	var sentAt, signedAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.TenantID, &c.AccountID, &c.EventID, &c.Title, &c.Body,
		&c.Status, &sentAt, &signedAt, &c.SignerName, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to scan contract: %w", err)
	}

	if sentAt.Valid {
		c.SentAt = &sentAt.Time
	}
	if signedAt.Valid {
		c.SignedAt = &signedAt.Time
	}
	return &c, nil
}

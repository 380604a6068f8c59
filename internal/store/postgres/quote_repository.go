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

// QuoteRepository implements billing.QuoteRepository
type QuoteRepository struct{}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository() *QuoteRepository {
	return &QuoteRepository{}
}

// Create creates a quote with its lines
func (r *QuoteRepository) Create(ctx context.Context, q *billing.Quote) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	_, err = tx.Exec(ctx, `
		INSERT INTO quotes (
			id, tenant_id, account_id, event_id, status,
			subtotal_cents, tax_rate_basis, tax_cents, total_cents, expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10, $11, $12)
	`, q.ID, tenantID, q.AccountID, q.EventID, q.Status,
		q.SubtotalCents, q.TaxRateBasis, q.TaxCents, q.TotalCents, q.ExpiresAt, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}

	for _, l := range q.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO quote_lines (id, quote_id, description, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5)
		`, l.ID, q.ID, l.Description, l.Quantity, l.UnitPriceCents); err != nil {
			return fmt.Errorf("failed to insert quote line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	q.TenantID = tenantID
	q.CreatedAt = now
	q.UpdatedAt = now
	return nil
}

const quoteColumns = `id, tenant_id, account_id, COALESCE(event_id::text, ''), status,
	subtotal_cents, tax_rate_basis, tax_cents, total_cents, expires_at, created_at, updated_at`

// GetByID retrieves a quote with its lines
func (r *QuoteRepository) GetByID(ctx context.Context, id string) (*billing.Quote, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	q, err := scanQuote(row)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT id, quote_id, description, quantity, unit_price_cents
		FROM quote_lines
		WHERE quote_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list quote lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l billing.QuoteLine
		if err := rows.Scan(&l.ID, &l.QuoteID, &l.Description, &l.Quantity, &l.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan quote line: %w", err)
		}
		q.Lines = append(q.Lines, &l)
	}
	return q, rows.Err()
}

// Update updates quote state and totals
func (r *QuoteRepository) Update(ctx context.Context, q *billing.Quote) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE quotes SET
			status = $3,
			subtotal_cents = $4,
			tax_rate_basis = $5,
			tax_cents = $6,
			total_cents = $7,
			expires_at = $8,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, q.ID, q.Status, q.SubtotalCents, q.TaxRateBasis, q.TaxCents, q.TotalCents, q.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update quote: %w", err)
	}
	if result.RowsAffected() == 0 {
		return billing.ErrQuoteNotFound
	}
	return nil
}

// List lists quotes, optionally filtered by account and status
func (r *QuoteRepository) List(ctx context.Context, accountID, status string, limit, offset int) ([]*billing.Quote, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes
		WHERE tenant_id = $1
			AND ($2 = '' OR account_id = $2::uuid)
			AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, tenantID, accountID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	var quotes []*billing.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func scanQuote(row pgx.Row) (*billing.Quote, error) {
	var q billing.Quote
	var expiresAt sql.NullTime

	err := row.Scan(
		&q.ID, &q.TenantID, &q.AccountID, &q.EventID, &q.Status,
		&q.SubtotalCents, &q.TaxRateBasis, &q.TaxCents, &q.TotalCents,
		&expiresAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to scan quote: %w", err)
	}

	if expiresAt.Valid {
		q.ExpiresAt = &expiresAt.Time
	}
	return &q, nil
}

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
	"github.com/venuecore/venuecore/internal/apitoken"
)

// APITokenRepository implements apitoken.Repository
type APITokenRepository struct {
	db *DB
}

// NewAPITokenRepository creates a new api token repository
func NewAPITokenRepository(db *DB) *APITokenRepository {
	return &APITokenRepository{db: db}
}

// Create stores the directory record for an issued token
func (r *APITokenRepository) Create(ctx context.Context, t *apitoken.Token) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO api_tokens (id, tenant_id, name, expires_at, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid)
	`, t.ID, t.TenantID, t.Name, t.ExpiresAt, t.CreatedAt, t.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to insert api token: %w", err)
	}
	return nil
}

// GetByID retrieves a token record by ID
func (r *APITokenRepository) GetByID(ctx context.Context, id string) (*apitoken.Token, error) {
	var t apitoken.Token
	var revokedAt sql.NullTime
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, expires_at, created_at, COALESCE(created_by::text, ''), revoked_at
		FROM api_tokens
		WHERE id = $1
	`, id).Scan(&t.ID, &t.TenantID, &t.Name, &t.ExpiresAt, &t.CreatedAt, &t.CreatedBy, &revokedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apitoken.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get api token: %w", err)
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return &t, nil
}

// ListByTenant lists a tenant's token records
func (r *APITokenRepository) ListByTenant(ctx context.Context, tenantID string) ([]*apitoken.Token, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, name, expires_at, created_at, COALESCE(created_by::text, ''), revoked_at
		FROM api_tokens
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*apitoken.Token
	for rows.Next() {
		var t apitoken.Token
		var revokedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.ExpiresAt, &t.CreatedAt, &t.CreatedBy, &revokedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api token: %w", err)
		}
		if revokedAt.Valid {
			t.RevokedAt = &revokedAt.Time
		}
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

// Revoke marks a token as revoked
func (r *APITokenRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE api_tokens SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to revoke api token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apitoken.ErrTokenNotFound
	}
	return nil
}

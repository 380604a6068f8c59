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
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/venuecore/venuecore/internal/comms"
)

// CommunicationRepository implements comms.Repository
type CommunicationRepository struct{}

// NewCommunicationRepository creates a new communication repository
func NewCommunicationRepository() *CommunicationRepository {
	return &CommunicationRepository{}
}

// Create records a communication
func (r *CommunicationRepository) Create(ctx context.Context, c *comms.Communication) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO communications (
			id, tenant_id, contact_id, account_id, user_id, channel, direction,
			subject, body, status, provider_id, error, occurred_at, created_at
		) VALUES ($1, $2, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, c.ID, tenantID, c.ContactID, c.AccountID, c.UserID, c.Channel, c.Direction,
		c.Subject, c.Body, c.Status, c.ProviderID, c.Error, c.OccurredAt, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert communication: %w", err)
	}
	return nil
}

const communicationColumns = `id, COALESCE(contact_id::text, ''), COALESCE(account_id::text, ''), COALESCE(user_id::text, ''),
	channel, direction, subject, body, status, provider_id, error, occurred_at, created_at`

// GetByID retrieves a communication record
func (r *CommunicationRepository) GetByID(ctx context.Context, id string) (*comms.Communication, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+communicationColumns+`
		FROM communications
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanCommunication(row)
}

// ListByContact lists a contact's communications, newest first
func (r *CommunicationRepository) ListByContact(ctx context.Context, contactID string, limit, offset int) ([]*comms.Communication, error) {
	return r.list(ctx, `contact_id = $2::uuid`, contactID, limit, offset)
}

// ListByAccount lists an account's communications, newest first
func (r *CommunicationRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*comms.Communication, error) {
	return r.list(ctx, `account_id = $2::uuid`, accountID, limit, offset)
}

func (r *CommunicationRepository) list(ctx context.Context, where, arg string, limit, offset int) ([]*comms.Communication, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT `+communicationColumns+`
		FROM communications
		WHERE tenant_id = $1 AND `+where+`
		ORDER BY occurred_at DESC
		LIMIT $3 OFFSET $4
	`, tenantID, arg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list communications: %w", err)
	}
	defer rows.Close()

	var list []*comms.Communication
	for rows.Next() {
		c, err := scanCommunication(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// DeleteOlderThan deletes communications created before the cutoff and
// returns the count.
func (r *CommunicationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return 0, err
	}

	result, err := pool.Exec(ctx, `
		DELETE FROM communications
		WHERE tenant_id = $1 AND created_at < $2
	`, tenantID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge communications: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanCommunication(row pgx.Row) (*comms.Communication, error) {
	var c comms.Communication
	err := row.Scan(
		&c.ID, &c.ContactID, &c.AccountID, &c.UserID,
		&c.Channel, &c.Direction, &c.Subject, &c.Body, &c.Status,
		&c.ProviderID, &c.Error, &c.OccurredAt, &c.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, comms.ErrCommunicationNotFound
		}
		return nil, fmt.Errorf("failed to scan communication: %w", err)
	}
	return &c, nil
}

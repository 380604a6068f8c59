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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/venuecore/venuecore/internal/tenant"
)

// TenantRepository implements tenant.Repository against the directory
// database.
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create creates a new tenant
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tenants (id, name, slug, status, plan, data_source_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.Name, t.Slug, t.Status, t.Plan, t.DataSourceID, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert tenant: %w", err)
	}

	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetBySlug retrieves a tenant by slug
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return r.get(ctx, `WHERE slug = $1`, slug)
}

func (r *TenantRepository) get(ctx context.Context, where string, arg any) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, slug, status, plan, data_source_id, created_at, updated_at
		FROM tenants `+where, arg).Scan(
		&t.ID, &t.Name, &t.Slug, &t.Status, &t.Plan, &t.DataSourceID,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

// Update updates tenant fields
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenants SET
			name = $2,
			status = $3,
			plan = $4,
			data_source_id = $5,
			updated_at = NOW()
		WHERE id = $1
	`, t.ID, t.Name, t.Status, t.Plan, t.DataSourceID)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// List lists tenants ordered by creation time
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, slug, status, plan, data_source_id, created_at, updated_at
		FROM tenants
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Slug, &t.Status, &t.Plan, &t.DataSourceID,
			&t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

// DataSourceRepository implements tenant.DataSourceRepository
type DataSourceRepository struct {
	db *DB
}

// NewDataSourceRepository creates a new data source repository
func NewDataSourceRepository(db *DB) *DataSourceRepository {
	return &DataSourceRepository{db: db}
}

// Create creates a new data source
func (r *DataSourceRepository) Create(ctx context.Context, ds *tenant.DataSource) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO data_sources (
			id, name, host, port, db_user, db_password, db_name, ssl_mode,
			tenant_id_override, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, ds.ID, ds.Name, ds.Host, ds.Port, ds.User, ds.Password, ds.Database,
		ds.SSLMode, ds.TenantIDOverride, ds.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert data source: %w", err)
	}

	ds.CreatedAt = now
	ds.UpdatedAt = now
	return nil
}

// GetByID retrieves a data source by ID
func (r *DataSourceRepository) GetByID(ctx context.Context, id string) (*tenant.DataSource, error) {
	var ds tenant.DataSource
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, host, port, db_user, db_password, db_name, ssl_mode,
			tenant_id_override, status, created_at, updated_at
		FROM data_sources
		WHERE id = $1
	`, id).Scan(
		&ds.ID, &ds.Name, &ds.Host, &ds.Port, &ds.User, &ds.Password, &ds.Database,
		&ds.SSLMode, &ds.TenantIDOverride, &ds.Status, &ds.CreatedAt, &ds.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, tenant.ErrDataSourceNotFound
		}
		return nil, fmt.Errorf("failed to get data source: %w", err)
	}
	return &ds, nil
}

// List lists all data sources
func (r *DataSourceRepository) List(ctx context.Context) ([]*tenant.DataSource, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, host, port, db_user, db_password, db_name, ssl_mode,
			tenant_id_override, status, created_at, updated_at
		FROM data_sources
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	defer rows.Close()

	var sources []*tenant.DataSource
	for rows.Next() {
		var ds tenant.DataSource
		if err := rows.Scan(
			&ds.ID, &ds.Name, &ds.Host, &ds.Port, &ds.User, &ds.Password, &ds.Database,
			&ds.SSLMode, &ds.TenantIDOverride, &ds.Status, &ds.CreatedAt, &ds.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		sources = append(sources, &ds)
	}
	return sources, rows.Err()
}

// MembershipRepository implements tenant.MembershipRepository
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Grant grants a role to a user in a tenant
func (r *MembershipRepository) Grant(ctx context.Context, m *tenant.Membership) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO memberships (id, tenant_id, user_id, role, granted_at, granted_by)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid)
	`, m.ID, m.TenantID, m.UserID, m.Role, m.GrantedAt, m.GrantedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return tenant.ErrMembershipExists
		}
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	return nil
}

// Revoke removes a role from a user in a tenant
func (r *MembershipRepository) Revoke(ctx context.Context, tenantID, userID, role string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM memberships
		WHERE tenant_id = $1 AND user_id = $2 AND role = $3
	`, tenantID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrMembershipNotFound
	}
	return nil
}

// GetUserRoles returns a user's memberships in a tenant
func (r *MembershipRepository) GetUserRoles(ctx context.Context, tenantID, userID string) ([]*tenant.Membership, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, user_id, role, granted_at, COALESCE(granted_by::text, '')
		FROM memberships
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY granted_at
	`, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	defer rows.Close()
	return scanMemberships(rows)
}

// ListMembers returns all memberships in a tenant
func (r *MembershipRepository) ListMembers(ctx context.Context, tenantID string) ([]*tenant.Membership, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, user_id, role, granted_at, COALESCE(granted_by::text, '')
		FROM memberships
		WHERE tenant_id = $1
		ORDER BY granted_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()
	return scanMemberships(rows)
}

func scanMemberships(rows pgx.Rows) ([]*tenant.Membership, error) {
	var memberships []*tenant.Membership
	for rows.Next() {
		var m tenant.Membership
		if err := rows.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.GrantedAt, &m.GrantedBy); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, &m)
	}
	return memberships, rows.Err()
}

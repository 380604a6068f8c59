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
	"github.com/venuecore/venuecore/internal/events"
)

// EventRepository implements events.Repository
type EventRepository struct{}

// NewEventRepository creates a new event repository
func NewEventRepository() *EventRepository {
	return &EventRepository{}
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, e *events.Event) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = pool.Exec(ctx, `
		INSERT INTO events (
			id, tenant_id, account_id, contact_id, name, status, venue,
			guest_count, notes, created_at, updated_at
		) VALUES ($1, $2, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, tenantID, e.AccountID, e.ContactID, e.Name, e.Status, e.Venue,
		e.GuestCount, e.Notes, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	e.TenantID = tenantID
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

const eventColumns = `id, tenant_id, COALESCE(account_id::text, ''), COALESCE(contact_id::text, ''),
	name, status, venue, guest_count, notes, created_at, updated_at, deleted_at`

// GetByID retrieves an event with its dates
func (r *EventRepository) GetByID(ctx context.Context, id string) (*events.Event, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id)
	e, err := scanEvent(row)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT id, event_id, event_date, starts_at, ends_at, location
		FROM event_dates
		WHERE event_id = $1
		ORDER BY starts_at
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list event dates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d events.EventDate
		if err := rows.Scan(&d.ID, &d.EventID, &d.Date, &d.StartsAt, &d.EndsAt, &d.Location); err != nil {
			return nil, fmt.Errorf("failed to scan event date: %w", err)
		}
		e.Dates = append(e.Dates, &d)
	}
	return e, rows.Err()
}

// Update updates event fields
func (r *EventRepository) Update(ctx context.Context, e *events.Event) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE events SET
			account_id = NULLIF($3, '')::uuid,
			contact_id = NULLIF($4, '')::uuid,
			name = $5,
			status = $6,
			venue = $7,
			guest_count = $8,
			notes = $9,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, e.ID, e.AccountID, e.ContactID, e.Name, e.Status, e.Venue, e.GuestCount, e.Notes)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return events.ErrEventNotFound
	}
	return nil
}

// Delete soft-deletes an event
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE events SET deleted_at = $3
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return events.ErrEventNotFound
	}
	return nil
}

// List lists events, optionally filtered by status and account
func (r *EventRepository) List(ctx context.Context, status, accountID string, limit, offset int) ([]*events.Event, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE tenant_id = $1 AND deleted_at IS NULL
			AND ($2 = '' OR status = $2)
			AND ($3 = '' OR account_id = $3::uuid)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, tenantID, status, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var list []*events.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// AddDate adds a date to an event
func (r *EventRepository) AddDate(ctx context.Context, d *events.EventDate) error {
	pool, _, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO event_dates (id, event_id, event_date, starts_at, ends_at, location)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, d.EventID, d.Date, d.StartsAt, d.EndsAt, d.Location)
	if err != nil {
		return fmt.Errorf("failed to insert event date: %w", err)
	}
	return nil
}

// GetDate retrieves an event date. The join keeps the lookup inside the
// tenant's rows.
func (r *EventRepository) GetDate(ctx context.Context, dateID string) (*events.EventDate, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	var d events.EventDate
	err = pool.QueryRow(ctx, `
		SELECT d.id, d.event_id, d.event_date, d.starts_at, d.ends_at, d.location
		FROM event_dates d
		JOIN events e ON e.id = d.event_id
		WHERE e.tenant_id = $1 AND d.id = $2 AND e.deleted_at IS NULL
	`, tenantID, dateID).Scan(&d.ID, &d.EventID, &d.Date, &d.StartsAt, &d.EndsAt, &d.Location)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, events.ErrEventDateNotFound
		}
		return nil, fmt.Errorf("failed to get event date: %w", err)
	}
	return &d, nil
}

// RemoveDate removes an event date and its assignments
func (r *EventRepository) RemoveDate(ctx context.Context, dateID string) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		DELETE FROM event_dates d
		USING events e
		WHERE e.id = d.event_id AND e.tenant_id = $1 AND d.id = $2
	`, tenantID, dateID)
	if err != nil {
		return fmt.Errorf("failed to delete event date: %w", err)
	}
	if result.RowsAffected() == 0 {
		return events.ErrEventDateNotFound
	}
	return nil
}

// CreateAssignment assigns a user to an event date
func (r *EventRepository) CreateAssignment(ctx context.Context, a *events.StaffAssignment) error {
	pool, _, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = pool.Exec(ctx, `
		INSERT INTO staff_assignments (id, event_date_id, user_id, role, status, rate_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.EventDateID, a.UserID, a.Role, a.Status, a.RateCents, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert staff assignment: %w", err)
	}

	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetAssignment retrieves a staff assignment
func (r *EventRepository) GetAssignment(ctx context.Context, id string) (*events.StaffAssignment, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	var a events.StaffAssignment
	err = pool.QueryRow(ctx, `
		SELECT a.id, a.event_date_id, a.user_id, a.role, a.status, a.rate_cents, a.created_at, a.updated_at
		FROM staff_assignments a
		JOIN event_dates d ON d.id = a.event_date_id
		JOIN events e ON e.id = d.event_id
		WHERE e.tenant_id = $1 AND a.id = $2
	`, tenantID, id).Scan(&a.ID, &a.EventDateID, &a.UserID, &a.Role, &a.Status, &a.RateCents, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, events.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get staff assignment: %w", err)
	}
	return &a, nil
}

// UpdateAssignment updates an assignment's role, status or rate
func (r *EventRepository) UpdateAssignment(ctx context.Context, a *events.StaffAssignment) error {
	pool, _, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE staff_assignments SET role = $2, status = $3, rate_cents = $4, updated_at = NOW()
		WHERE id = $1
	`, a.ID, a.Role, a.Status, a.RateCents)
	if err != nil {
		return fmt.Errorf("failed to update staff assignment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return events.ErrAssignmentNotFound
	}
	return nil
}

// DeleteAssignment removes a staff assignment
func (r *EventRepository) DeleteAssignment(ctx context.Context, id string) error {
	pool, _, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `DELETE FROM staff_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete staff assignment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return events.ErrAssignmentNotFound
	}
	return nil
}

// ListAssignmentsForDate lists assignments for an event date
func (r *EventRepository) ListAssignmentsForDate(ctx context.Context, dateID string) ([]*events.StaffAssignment, error) {
	pool, _, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT id, event_date_id, user_id, role, status, rate_cents, created_at, updated_at
		FROM staff_assignments
		WHERE event_date_id = $1
		ORDER BY created_at
	`, dateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*events.StaffAssignment
	for rows.Next() {
		var a events.StaffAssignment
		if err := rows.Scan(&a.ID, &a.EventDateID, &a.UserID, &a.Role, &a.Status, &a.RateCents, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staff assignment: %w", err)
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

// ListUserAssignments returns event dates a user is assigned to within a
// window, excluding declined assignments and cancelled events.
func (r *EventRepository) ListUserAssignments(ctx context.Context, userID string, from, to time.Time) ([]*events.EventDate, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT d.id, d.event_id, d.event_date, d.starts_at, d.ends_at, d.location
		FROM staff_assignments a
		JOIN event_dates d ON d.id = a.event_date_id
		JOIN events e ON e.id = d.event_id
		WHERE e.tenant_id = $1
			AND a.user_id = $2
			AND a.status <> $3
			AND e.status <> $4
			AND e.deleted_at IS NULL
			AND d.starts_at < $6
			AND d.ends_at > $5
		ORDER BY d.starts_at
	`, tenantID, userID, events.AssignmentDeclined, events.StatusCancelled, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list user assignments: %w", err)
	}
	defer rows.Close()

	var dates []*events.EventDate
	for rows.Next() {
		var d events.EventDate
		if err := rows.Scan(&d.ID, &d.EventID, &d.Date, &d.StartsAt, &d.EndsAt, &d.Location); err != nil {
			return nil, fmt.Errorf("failed to scan event date: %w", err)
		}
		dates = append(dates, &d)
	}
	return dates, rows.Err()
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var e events.Event
	var deletedAt sql.NullTime

	err := row.Scan(
		&e.ID, &e.TenantID, &e.AccountID, &e.ContactID,
		&e.Name, &e.Status, &e.Venue, &e.GuestCount, &e.Notes,
		&e.CreatedAt, &e.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, events.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	if deletedAt.Valid {
		e.DeletedAt = &deletedAt.Time
	}
	return &e, nil
}

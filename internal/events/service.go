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

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/venuecore/venuecore/internal/audit"
	"github.com/venuecore/venuecore/internal/tenant"
)

// Service provides event-operations business logic
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new events service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{repo: repo, auditLogger: auditLogger}
}

// CreateEvent creates a new draft event
func (s *Service) CreateEvent(ctx context.Context, event *Event) (*Event, error) {
	if event.Name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if event.GuestCount < 0 {
		return nil, fmt.Errorf("guest count cannot be negative")
	}

	event.ID = uuid.Must(uuid.NewV7()).String()
	event.Status = StatusDraft
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	for _, d := range event.Dates {
		if err := validateDate(d); err != nil {
			return nil, err
		}
		d.ID = uuid.Must(uuid.NewV7()).String()
		d.EventID = event.ID
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.audit(ctx, audit.TypeRecordCreated, "event", event.ID)
	return event, nil
}

// GetEvent retrieves an event with its dates
func (s *Service) GetEvent(ctx context.Context, id string) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

// ListEvents lists events filtered by status and/or account
func (s *Service) ListEvents(ctx context.Context, status, accountID string, limit, offset int) ([]*Event, error) {
	return s.repo.List(ctx, status, accountID, limit, offset)
}

// UpdateEvent updates mutable event fields
func (s *Service) UpdateEvent(ctx context.Context, event *Event) (*Event, error) {
	existing, err := s.repo.GetByID(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if existing.IsClosed() {
		return nil, ErrEventClosed
	}

	event.Status = existing.Status
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}

	s.audit(ctx, audit.TypeRecordUpdated, "event", event.ID)
	return event, nil
}

// TransitionEvent moves an event between statuses. draft→confirmed,
// confirmed→completed, and draft/confirmed→cancelled are the legal moves.
func (s *Service) TransitionEvent(ctx context.Context, id, status string) (*Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.IsClosed() {
		return nil, ErrEventClosed
	}

	legal := false
	switch status {
	case StatusConfirmed:
		legal = event.Status == StatusDraft
	case StatusCompleted:
		legal = event.Status == StatusConfirmed
	case StatusCancelled:
		legal = true
	}
	if !legal {
		return nil, fmt.Errorf("cannot transition event from %s to %s", event.Status, status)
	}

	event.Status = status
	event.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}

	s.audit(ctx, audit.TypeRecordUpdated, "event", id)
	return event, nil
}

// AddEventDate adds a scheduled date to an event
func (s *Service) AddEventDate(ctx context.Context, eventID string, date *EventDate) (*EventDate, error) {
	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.IsClosed() {
		return nil, ErrEventClosed
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}

	date.ID = uuid.Must(uuid.NewV7()).String()
	date.EventID = eventID

	if err := s.repo.AddDate(ctx, date); err != nil {
		return nil, fmt.Errorf("failed to add event date: %w", err)
	}
	return date, nil
}

// RemoveEventDate removes a scheduled date and its staff assignments
func (s *Service) RemoveEventDate(ctx context.Context, dateID string) error {
	return s.repo.RemoveDate(ctx, dateID)
}

// AssignStaff assigns a user to work an event date, rejecting assignments
// that overlap any of the user's other active bookings.
func (s *Service) AssignStaff(ctx context.Context, dateID, userID, role string, rateCents int64) (*StaffAssignment, error) {
	date, err := s.repo.GetDate(ctx, dateID)
	if err != nil {
		return nil, err
	}

	booked, err := s.repo.ListUserAssignments(ctx, userID, date.StartsAt.Add(-24*time.Hour), date.EndsAt.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to check staff availability: %w", err)
	}
	for _, other := range booked {
		if other.ID != dateID && date.Overlaps(other) {
			return nil, ErrStaffDoubleBooked
		}
	}

	now := time.Now()
	a := &StaffAssignment{
		ID:          uuid.Must(uuid.NewV7()).String(),
		EventDateID: dateID,
		UserID:      userID,
		Role:        role,
		Status:      AssignmentAssigned,
		RateCents:   rateCents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to assign staff: %w", err)
	}

	if tc, err := tenant.FromContext(ctx); err == nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeStaffAssigned,
			TenantID: tc.Tenant.ID,
			ActorID:  tc.UserID,
			Resource: "staff_assignment",
			Metadata: map[string]any{"event_date_id": dateID, "user_id": userID, "role": role},
		})
	}

	return a, nil
}

// RespondToAssignment records a staff member's confirm/decline response
func (s *Service) RespondToAssignment(ctx context.Context, assignmentID, userID string, accept bool) (*StaffAssignment, error) {
	a, err := s.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrAssignmentNotFound
	}

	if accept {
		a.Status = AssignmentConfirmed
	} else {
		a.Status = AssignmentDeclined
	}
	a.UpdatedAt = time.Now()

	if err := s.repo.UpdateAssignment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListStaff lists staff assignments for an event date
func (s *Service) ListStaff(ctx context.Context, dateID string) ([]*StaffAssignment, error) {
	return s.repo.ListAssignmentsForDate(ctx, dateID)
}

// RemoveStaff removes a staff assignment
func (s *Service) RemoveStaff(ctx context.Context, assignmentID string) error {
	return s.repo.DeleteAssignment(ctx, assignmentID)
}

// DeleteEvent soft-deletes an event
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, audit.TypeRecordDeleted, "event", id)
	return nil
}

func (s *Service) audit(ctx context.Context, eventType, resource, id string) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: tc.Tenant.ID,
		ActorID:  tc.UserID,
		Resource: resource,
		Metadata: map[string]any{"id": id},
	})
}

func validateDate(d *EventDate) error {
	if d.StartsAt.IsZero() || d.EndsAt.IsZero() {
		return fmt.Errorf("event date start and end are required")
	}
	if !d.StartsAt.Before(d.EndsAt) {
		return fmt.Errorf("event date must end after it starts")
	}
	return nil
}

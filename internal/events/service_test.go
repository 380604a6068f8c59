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
	"testing"
	"time"

	"github.com/venuecore/venuecore/internal/audit"
)

// memEventRepo is an in-memory Repository mirroring the store's
// double-booking query: a user's active assignments joined to their
// event dates, excluding declined assignments and cancelled events.
type memEventRepo struct {
	events      map[string]*Event
	dates       map[string]*EventDate
	assignments map[string]*StaffAssignment
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{
		events:      make(map[string]*Event),
		dates:       make(map[string]*EventDate),
		assignments: make(map[string]*StaffAssignment),
	}
}

func (m *memEventRepo) Create(_ context.Context, e *Event) error {
	m.events[e.ID] = e
	for _, d := range e.Dates {
		m.dates[d.ID] = d
	}
	return nil
}

func (m *memEventRepo) GetByID(_ context.Context, id string) (*Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return e, nil
}

func (m *memEventRepo) Update(_ context.Context, e *Event) error {
	if _, ok := m.events[e.ID]; !ok {
		return ErrEventNotFound
	}
	m.events[e.ID] = e
	return nil
}

func (m *memEventRepo) Delete(_ context.Context, id string) error {
	delete(m.events, id)
	return nil
}

func (m *memEventRepo) List(_ context.Context, status, accountID string, limit, offset int) ([]*Event, error) {
	var out []*Event
	for _, e := range m.events {
		if (status == "" || e.Status == status) && (accountID == "" || e.AccountID == accountID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEventRepo) AddDate(_ context.Context, d *EventDate) error {
	m.dates[d.ID] = d
	if e, ok := m.events[d.EventID]; ok {
		e.Dates = append(e.Dates, d)
	}
	return nil
}

func (m *memEventRepo) GetDate(_ context.Context, dateID string) (*EventDate, error) {
	d, ok := m.dates[dateID]
	if !ok {
		return nil, ErrEventDateNotFound
	}
	return d, nil
}

func (m *memEventRepo) RemoveDate(_ context.Context, dateID string) error {
	if _, ok := m.dates[dateID]; !ok {
		return ErrEventDateNotFound
	}
	delete(m.dates, dateID)
	for id, a := range m.assignments {
		if a.EventDateID == dateID {
			delete(m.assignments, id)
		}
	}
	return nil
}

func (m *memEventRepo) CreateAssignment(_ context.Context, a *StaffAssignment) error {
	m.assignments[a.ID] = a
	return nil
}

func (m *memEventRepo) GetAssignment(_ context.Context, id string) (*StaffAssignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return a, nil
}

func (m *memEventRepo) UpdateAssignment(_ context.Context, a *StaffAssignment) error {
	m.assignments[a.ID] = a
	return nil
}

func (m *memEventRepo) DeleteAssignment(_ context.Context, id string) error {
	if _, ok := m.assignments[id]; !ok {
		return ErrAssignmentNotFound
	}
	delete(m.assignments, id)
	return nil
}

func (m *memEventRepo) ListAssignmentsForDate(_ context.Context, dateID string) ([]*StaffAssignment, error) {
	var out []*StaffAssignment
	for _, a := range m.assignments {
		if a.EventDateID == dateID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memEventRepo) ListUserAssignments(_ context.Context, userID string, from, to time.Time) ([]*EventDate, error) {
	var out []*EventDate
	for _, a := range m.assignments {
		if a.UserID != userID || a.Status == AssignmentDeclined {
			continue
		}
		d, ok := m.dates[a.EventDateID]
		if !ok {
			continue
		}
		if e, ok := m.events[d.EventID]; ok && e.Status == StatusCancelled {
			continue
		}
		if d.StartsAt.Before(to) && from.Before(d.EndsAt) {
			out = append(out, d)
		}
	}
	return out, nil
}

func newEventService() (*Service, *memEventRepo) {
	repo := newMemEventRepo()
	return NewService(repo, audit.NewSlogLogger()), repo
}

func eventWithDate(t *testing.T, s *Service, name string, start, end time.Time) (*Event, *EventDate) {
	t.Helper()
	event, err := s.CreateEvent(context.Background(), &Event{
		Name:  name,
		Dates: []*EventDate{{Date: start, StartsAt: start, EndsAt: end}},
	})
	if err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	return event, event.Dates[0]
}

func TestEvents_TransitionRules(t *testing.T) {
	s, _ := newEventService()
	ctx := context.Background()

	event, err := s.CreateEvent(ctx, &Event{Name: "Launch Party"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if event.Status != StatusDraft {
		t.Fatalf("new event should be draft, got %s", event.Status)
	}

	// draft → completed is not legal.
	if _, err := s.TransitionEvent(ctx, event.ID, StatusCompleted); err == nil {
		t.Error("draft should not complete directly")
	}

	if _, err := s.TransitionEvent(ctx, event.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	event, err = s.TransitionEvent(ctx, event.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	// Terminal statuses reject further moves.
	if _, err := s.TransitionEvent(ctx, event.ID, StatusConfirmed); err != ErrEventClosed {
		t.Errorf("expected ErrEventClosed, got %v", err)
	}
}

func TestEvents_CancelFromAnyOpenStatus(t *testing.T) {
	s, _ := newEventService()
	ctx := context.Background()

	event, _ := s.CreateEvent(ctx, &Event{Name: "Rainout"})
	if _, err := s.TransitionEvent(ctx, event.ID, StatusCancelled); err != nil {
		t.Errorf("draft should cancel, got %v", err)
	}
}

func TestEvents_AssignStaff_DoubleBooking(t *testing.T) {
	s, _ := newEventService()
	ctx := context.Background()

	day := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
	_, galaDate := eventWithDate(t, s, "Gala", day.Add(18*time.Hour), day.Add(23*time.Hour))
	_, overlapDate := eventWithDate(t, s, "Reception", day.Add(20*time.Hour), day.Add(22*time.Hour))
	_, clearDate := eventWithDate(t, s, "Brunch", day.Add(10*time.Hour), day.Add(13*time.Hour))

	if _, err := s.AssignStaff(ctx, galaDate.ID, "user-1", "bartender", 2500); err != nil {
		t.Fatalf("first assignment failed: %v", err)
	}

	// Overlapping booking for the same user is rejected.
	if _, err := s.AssignStaff(ctx, overlapDate.ID, "user-1", "server", 2000); err != ErrStaffDoubleBooked {
		t.Errorf("expected ErrStaffDoubleBooked, got %v", err)
	}

	// A different user can take the overlapping slot.
	if _, err := s.AssignStaff(ctx, overlapDate.ID, "user-2", "server", 2000); err != nil {
		t.Errorf("other user should book freely, got %v", err)
	}

	// Non-overlapping slot is fine for the same user.
	if _, err := s.AssignStaff(ctx, clearDate.ID, "user-1", "bartender", 2500); err != nil {
		t.Errorf("non-overlapping booking should succeed, got %v", err)
	}
}

func TestEvents_AssignStaff_DeclinedBookingFreesSlot(t *testing.T) {
	s, _ := newEventService()
	ctx := context.Background()

	day := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
	_, galaDate := eventWithDate(t, s, "Gala", day.Add(18*time.Hour), day.Add(23*time.Hour))
	_, otherDate := eventWithDate(t, s, "Reception", day.Add(19*time.Hour), day.Add(21*time.Hour))

	a, err := s.AssignStaff(ctx, galaDate.ID, "user-1", "bartender", 2500)
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}

	// Only the assigned user may respond.
	if _, err := s.RespondToAssignment(ctx, a.ID, "someone-else", false); err != ErrAssignmentNotFound {
		t.Errorf("expected ErrAssignmentNotFound for wrong user, got %v", err)
	}

	declined, err := s.RespondToAssignment(ctx, a.ID, "user-1", false)
	if err != nil {
		t.Fatalf("decline failed: %v", err)
	}
	if declined.Status != AssignmentDeclined {
		t.Errorf("want declined, got %s", declined.Status)
	}

	// Declined assignments no longer block the calendar.
	if _, err := s.AssignStaff(ctx, otherDate.ID, "user-1", "server", 2000); err != nil {
		t.Errorf("declined slot should be free, got %v", err)
	}
}

func TestEvents_AddEventDate_Validation(t *testing.T) {
	s, _ := newEventService()
	ctx := context.Background()

	event, _ := s.CreateEvent(ctx, &Event{Name: "Workshop"})

	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	if _, err := s.AddEventDate(ctx, event.ID, &EventDate{StartsAt: start, EndsAt: start.Add(-time.Hour)}); err == nil {
		t.Error("date ending before it starts should be rejected")
	}

	if _, err := s.AddEventDate(ctx, event.ID, &EventDate{Date: start, StartsAt: start, EndsAt: start.Add(8 * time.Hour)}); err != nil {
		t.Errorf("valid date should be added, got %v", err)
	}

	// Closed events refuse new dates.
	s.TransitionEvent(ctx, event.ID, StatusCancelled)
	if _, err := s.AddEventDate(ctx, event.ID, &EventDate{Date: start, StartsAt: start, EndsAt: start.Add(time.Hour)}); err != ErrEventClosed {
		t.Errorf("expected ErrEventClosed, got %v", err)
	}
}

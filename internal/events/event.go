package events

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventDateNotFound  = errors.New("event date not found")
	ErrAssignmentNotFound = errors.New("staff assignment not found")
	ErrEventClosed        = errors.New("event is completed or cancelled")
	ErrStaffDoubleBooked  = errors.New("staff member is already booked for an overlapping date")
)

// Event statuses. completed and cancelled are terminal.
const (
	StatusDraft     = "draft"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Event represents a booked or prospective event for a tenant
type Event struct {
	ID         string       `json:"id"`
	TenantID   string       `json:"tenant_id"`
	AccountID  string       `json:"account_id,omitempty"`
	ContactID  string       `json:"contact_id,omitempty"`
	Name       string       `json:"name"`
	Status     string       `json:"status"`
	Venue      string       `json:"venue,omitempty"`
	GuestCount int          `json:"guest_count"`
	Notes      string       `json:"notes,omitempty"`
	Dates      []*EventDate `json:"dates,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	DeletedAt  *time.Time   `json:"-"`
}

// IsClosed reports whether the event is in a terminal status
func (e *Event) IsClosed() bool {
	return e.Status == StatusCompleted || e.Status == StatusCancelled
}

// EventDate is a single scheduled date within an event
type EventDate struct {
	ID       string    `json:"id"`
	EventID  string    `json:"event_id"`
	Date     time.Time `json:"date"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Location string    `json:"location,omitempty"`
}

// Overlaps reports whether two event dates overlap in time
func (d *EventDate) Overlaps(other *EventDate) bool {
	return d.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(d.EndsAt)
}

// Staff assignment statuses
const (
	AssignmentAssigned  = "assigned"
	AssignmentConfirmed = "confirmed"
	AssignmentDeclined  = "declined"
)

// StaffAssignment assigns a user to work an event date
type StaffAssignment struct {
	ID          string    `json:"id"`
	EventDateID string    `json:"event_date_id"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	RateCents   int64     `json:"rate_cents"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Repository defines the interface for event persistence
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, status, accountID string, limit, offset int) ([]*Event, error)

	AddDate(ctx context.Context, date *EventDate) error
	GetDate(ctx context.Context, dateID string) (*EventDate, error)
	RemoveDate(ctx context.Context, dateID string) error

	CreateAssignment(ctx context.Context, a *StaffAssignment) error
	GetAssignment(ctx context.Context, id string) (*StaffAssignment, error)
	UpdateAssignment(ctx context.Context, a *StaffAssignment) error
	DeleteAssignment(ctx context.Context, id string) error
	ListAssignmentsForDate(ctx context.Context, dateID string) ([]*StaffAssignment, error)
	// ListUserAssignments returns a user's active assignments joined with
	// their event dates, for conflict detection.
	ListUserAssignments(ctx context.Context, userID string, from, to time.Time) ([]*EventDate, error)
}

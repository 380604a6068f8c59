package crm

import (
	"context"
	"time"
)

// Lead statuses
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusConverted = "converted"
	LeadStatusLost      = "lost"
)

// Lead represents an unqualified inquiry. Converting a lead creates an
// account and a contact, and optionally an opportunity.
type Lead struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Company     string     `json:"company,omitempty"`
	Source      string     `json:"source,omitempty"`
	Status      string     `json:"status"`
	OwnerID     string     `json:"owner_id,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
	AccountID   string     `json:"account_id,omitempty"`
	ContactID   string     `json:"contact_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"`
}

// LeadRepository defines the interface for lead persistence
type LeadRepository interface {
	Create(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id string) (*Lead, error)
	Update(ctx context.Context, lead *Lead) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, status string, limit, offset int) ([]*Lead, error)
}

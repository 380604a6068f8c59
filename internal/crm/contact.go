package crm

import (
	"context"
	"time"
)

// Contact represents a person, optionally attached to an account
type Contact struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	AccountID string     `json:"account_id,omitempty"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Title     string     `json:"title,omitempty"`
	Primary   bool       `json:"primary"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// ContactRepository defines the interface for contact persistence
type ContactRepository interface {
	Create(ctx context.Context, contact *Contact) error
	GetByID(ctx context.Context, id string) (*Contact, error)
	Update(ctx context.Context, contact *Contact) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, accountID string, limit, offset int) ([]*Contact, error)
}

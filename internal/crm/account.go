package crm

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrContactNotFound     = errors.New("contact not found")
	ErrLeadNotFound        = errors.New("lead not found")
	ErrLeadConverted       = errors.New("lead already converted")
	ErrOpportunityNotFound = errors.New("opportunity not found")
	ErrStageTransition     = errors.New("invalid stage transition")
)

// Account types
const (
	AccountTypeProspect = "prospect"
	AccountTypeCustomer = "customer"
	AccountTypeVendor   = "vendor"
	AccountTypePartner  = "partner"
)

// Account represents a business an organization works with
type Account struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	Industry       string     `json:"industry,omitempty"`
	Website        string     `json:"website,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	BillingStreet  string     `json:"billing_street,omitempty"`
	BillingCity    string     `json:"billing_city,omitempty"`
	BillingState   string     `json:"billing_state,omitempty"`
	BillingPostal  string     `json:"billing_postal,omitempty"`
	BillingCountry string     `json:"billing_country,omitempty"`
	OwnerID        string     `json:"owner_id,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"-"`
}

// AccountRepository defines the interface for account persistence. The
// tenant scope comes from the resolved tenant context carried in ctx.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, search string, limit, offset int) ([]*Account, error)
}

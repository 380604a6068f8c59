package tenant

import (
	"time"
)

// Tenant represents a customer organization. All business data is
// partitioned by tenant.
type Tenant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Status       string    `json:"status"`
	Plan         string    `json:"plan"`
	DataSourceID string    `json:"data_source_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Status constants
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusArchived  = "archived"
)

// Plan constants
const (
	PlanStarter  = "starter"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// DataSource describes a physical database a tenant's data lives in.
// TenantIDOverride supports tenants whose rows are stored under a different
// identifier in a shared or migrated-from database.
type DataSource struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Host             string    `json:"host"`
	Port             string    `json:"port"`
	User             string    `json:"user"`
	Password         string    `json:"-"`
	Database         string    `json:"database"`
	SSLMode          string    `json:"ssl_mode"`
	TenantIDOverride string    `json:"tenant_id_override,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Membership represents a user's role in a tenant
type Membership struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	GrantedAt time.Time `json:"granted_at"`
	GrantedBy string    `json:"granted_by"`
}

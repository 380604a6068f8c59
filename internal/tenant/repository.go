package tenant

import (
	"context"
	"errors"
)

var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantSuspended    = errors.New("tenant is suspended")
	ErrDataSourceNotFound = errors.New("data source not found")
	ErrMembershipExists   = errors.New("membership already exists")
	ErrMembershipNotFound = errors.New("membership not found")
)

// Repository defines the interface for tenant storage
type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
}

// DataSourceRepository defines the interface for data source storage
type DataSourceRepository interface {
	Create(ctx context.Context, ds *DataSource) error
	GetByID(ctx context.Context, id string) (*DataSource, error)
	List(ctx context.Context) ([]*DataSource, error)
}

// MembershipRepository defines the interface for tenant membership storage
type MembershipRepository interface {
	Grant(ctx context.Context, m *Membership) error
	Revoke(ctx context.Context, tenantID, userID, role string) error
	GetUserRoles(ctx context.Context, tenantID, userID string) ([]*Membership, error)
	ListMembers(ctx context.Context, tenantID string) ([]*Membership, error)
}

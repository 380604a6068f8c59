package apitoken

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrTokenNotFound = errors.New("api token not found")
	ErrTokenRevoked  = errors.New("api token revoked")
	ErrTokenInvalid  = errors.New("api token invalid")
)

// Token is the directory record for an issued API token. The signed JWT is
// returned once at issue time; only its id and expiry are stored, so a
// token can be revoked without storing the secret.
type Token struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Name      string     `json:"name"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	CreatedBy string     `json:"created_by"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Repository defines the interface for api token persistence
type Repository interface {
	Create(ctx context.Context, token *Token) error
	GetByID(ctx context.Context, id string) (*Token, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Token, error)
	Revoke(ctx context.Context, id string, at time.Time) error
}

package billing

import (
	"context"
	"time"
)

// Contract statuses
const (
	ContractDraft     = "draft"
	ContractSent      = "sent"
	ContractSigned    = "signed"
	ContractCancelled = "cancelled"
)

// Contract represents an agreement with an account
type Contract struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	AccountID  string     `json:"account_id"`
	EventID    string     `json:"event_id,omitempty"`
	Title      string     `json:"title"`
	Body       string     `json:"body,omitempty"`
	Status     string     `json:"status"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	SignedAt   *time.Time `json:"signed_at,omitempty"`
	SignerName string     `json:"signer_name,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ContractRepository defines the interface for contract persistence
type ContractRepository interface {
	Create(ctx context.Context, contract *Contract) error
	GetByID(ctx context.Context, id string) (*Contract, error)
	Update(ctx context.Context, contract *Contract) error
	List(ctx context.Context, accountID, status string, limit, offset int) ([]*Contract, error)
}

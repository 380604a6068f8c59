package crm

import (
	"context"
	"time"
)

// Opportunity stages. closed_won and closed_lost are terminal.
const (
	StageProspecting = "prospecting"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageClosedWon   = "closed_won"
	StageClosedLost  = "closed_lost"
)

// Opportunity represents a potential deal with an account. AmountCents is
// recomputed from line items whenever any exist.
type Opportunity struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"tenant_id"`
	AccountID   string      `json:"account_id"`
	Name        string      `json:"name"`
	Stage       string      `json:"stage"`
	AmountCents int64       `json:"amount_cents"`
	Probability int         `json:"probability"`
	CloseDate   *time.Time  `json:"close_date,omitempty"`
	OwnerID     string      `json:"owner_id,omitempty"`
	LineItems   []*LineItem `json:"line_items,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	DeletedAt   *time.Time  `json:"-"`
}

// LineItem is a priced line on an opportunity
type LineItem struct {
	ID             string `json:"id"`
	OpportunityID  string `json:"opportunity_id"`
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Total returns the line's extended amount in cents
func (li *LineItem) Total() int64 {
	return int64(li.Quantity) * li.UnitPriceCents
}

// IsClosed reports whether the opportunity is in a terminal stage
func (o *Opportunity) IsClosed() bool {
	return o.Stage == StageClosedWon || o.Stage == StageClosedLost
}

// ValidStage reports whether stage is a known opportunity stage
func ValidStage(stage string) bool {
	switch stage {
	case StageProspecting, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost:
		return true
	}
	return false
}

// OpportunityRepository defines the interface for opportunity persistence
type OpportunityRepository interface {
	Create(ctx context.Context, opp *Opportunity) error
	GetByID(ctx context.Context, id string) (*Opportunity, error)
	Update(ctx context.Context, opp *Opportunity) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, accountID, stage string, limit, offset int) ([]*Opportunity, error)
	ReplaceLineItems(ctx context.Context, oppID string, items []*LineItem) error
}

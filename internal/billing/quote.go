package billing

import (
	"context"
	"time"
)

// Quote statuses
const (
	QuoteDraft    = "draft"
	QuoteSent     = "sent"
	QuoteAccepted = "accepted"
	QuoteDeclined = "declined"
	QuoteExpired  = "expired"
)

// Quote represents a priced proposal that can be converted to an invoice
type Quote struct {
	ID            string       `json:"id"`
	TenantID      string       `json:"tenant_id"`
	AccountID     string       `json:"account_id"`
	EventID       string       `json:"event_id,omitempty"`
	Status        string       `json:"status"`
	Lines         []*QuoteLine `json:"lines,omitempty"`
	SubtotalCents int64        `json:"subtotal_cents"`
	TaxRateBasis  int          `json:"tax_rate_basis"`
	TaxCents      int64        `json:"tax_cents"`
	TotalCents    int64        `json:"total_cents"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// QuoteLine is a priced line on a quote
type QuoteLine struct {
	ID             string `json:"id"`
	QuoteID        string `json:"quote_id"`
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Recalculate recomputes subtotal, tax and total from the lines
func (q *Quote) Recalculate() {
	var subtotal int64
	for _, l := range q.Lines {
		subtotal += int64(l.Quantity) * l.UnitPriceCents
	}
	q.SubtotalCents = subtotal
	q.TaxCents = subtotal * int64(q.TaxRateBasis) / 10000
	q.TotalCents = q.SubtotalCents + q.TaxCents
}

// IsExpired reports whether the quote has passed its expiry
func (q *Quote) IsExpired() bool {
	return q.ExpiresAt != nil && time.Now().After(*q.ExpiresAt)
}

// QuoteRepository defines the interface for quote persistence
type QuoteRepository interface {
	Create(ctx context.Context, quote *Quote) error
	GetByID(ctx context.Context, id string) (*Quote, error)
	Update(ctx context.Context, quote *Quote) error
	List(ctx context.Context, accountID, status string, limit, offset int) ([]*Quote, error)
}

package billing

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrQuoteNotFound    = errors.New("quote not found")
	ErrContractNotFound = errors.New("contract not found")
	ErrInvoiceState     = errors.New("operation not allowed in current invoice state")
	ErrQuoteState       = errors.New("operation not allowed in current quote state")
	ErrContractState    = errors.New("operation not allowed in current contract state")
	ErrOverpayment      = errors.New("payment exceeds invoice balance")
)

// Invoice statuses
const (
	InvoiceDraft         = "draft"
	InvoiceIssued        = "issued"
	InvoicePartiallyPaid = "partially_paid"
	InvoicePaid          = "paid"
	InvoiceVoid          = "void"
)

// Invoice represents a bill to an account, optionally tied to an event.
// Number is assigned at issue time, sequential per tenant.
type Invoice struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"tenant_id"`
	AccountID       string         `json:"account_id"`
	EventID         string         `json:"event_id,omitempty"`
	Number          string         `json:"number,omitempty"`
	Status          string         `json:"status"`
	IssueDate       *time.Time     `json:"issue_date,omitempty"`
	DueDate         *time.Time     `json:"due_date,omitempty"`
	Lines           []*InvoiceLine `json:"lines,omitempty"`
	SubtotalCents   int64          `json:"subtotal_cents"`
	TaxRateBasis    int            `json:"tax_rate_basis"` // basis points, 825 = 8.25%
	TaxCents        int64          `json:"tax_cents"`
	TotalCents      int64          `json:"total_cents"`
	AmountPaidCents int64          `json:"amount_paid_cents"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// InvoiceLine is a priced line on an invoice
type InvoiceLine struct {
	ID             string `json:"id"`
	InvoiceID      string `json:"invoice_id"`
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// BalanceCents returns the outstanding balance
func (i *Invoice) BalanceCents() int64 {
	return i.TotalCents - i.AmountPaidCents
}

// Recalculate recomputes subtotal, tax and total from the lines
func (i *Invoice) Recalculate() {
	var subtotal int64
	for _, l := range i.Lines {
		subtotal += int64(l.Quantity) * l.UnitPriceCents
	}
	i.SubtotalCents = subtotal
	i.TaxCents = subtotal * int64(i.TaxRateBasis) / 10000
	i.TotalCents = i.SubtotalCents + i.TaxCents
}

// Payment methods
const (
	MethodCard  = "card"
	MethodACH   = "ach"
	MethodCheck = "check"
	MethodCash  = "cash"
)

// Payment represents money received against an invoice
type Payment struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	InvoiceID       string    `json:"invoice_id"`
	AmountCents     int64     `json:"amount_cents"`
	Method          string    `json:"method"`
	GatewayChargeID string    `json:"gateway_charge_id,omitempty"`
	ReceivedAt      time.Time `json:"received_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error
	GetByID(ctx context.Context, id string) (*Invoice, error)
	Update(ctx context.Context, invoice *Invoice) error
	List(ctx context.Context, accountID, status string, limit, offset int) ([]*Invoice, error)
	// ApplyPayment atomically adds amountCents to the invoice's paid
	// amount and rolls the status forward, refusing the update when the
	// invoice is not open for payment or the addition would exceed the
	// total. It returns the invoice as updated.
	ApplyPayment(ctx context.Context, id string, amountCents int64) (*Invoice, error)
	// NextNumber atomically increments and returns the tenant's invoice
	// counter.
	NextNumber(ctx context.Context) (int64, error)
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Payment, error)
	GetByGatewayChargeID(ctx context.Context, chargeID string) (*Payment, error)
}

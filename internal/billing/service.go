// Copyright 2026 The VenueCore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/venuecore/venuecore/internal/audit"
	"github.com/venuecore/venuecore/internal/tenant"
)

// Service provides invoicing, payments, quotes and contracts
type Service struct {
	invoices    InvoiceRepository
	payments    PaymentRepository
	quotes      QuoteRepository
	contracts   ContractRepository
	gateway     Gateway
	auditLogger audit.Logger
}

// NewService creates a new billing service. gateway may be nil when card
// capture is not configured; card payments then record without capture.
func NewService(
	invoices InvoiceRepository,
	payments PaymentRepository,
	quotes QuoteRepository,
	contracts ContractRepository,
	gateway Gateway,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		invoices:    invoices,
		payments:    payments,
		quotes:      quotes,
		contracts:   contracts,
		gateway:     gateway,
		auditLogger: auditLogger,
	}
}

// --- Invoices ---

// CreateInvoice creates a draft invoice with server-computed totals
func (s *Service) CreateInvoice(ctx context.Context, invoice *Invoice) (*Invoice, error) {
	if invoice.AccountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if len(invoice.Lines) == 0 {
		return nil, fmt.Errorf("invoice requires at least one line")
	}
	for _, l := range invoice.Lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("line quantity must be positive")
		}
		l.ID = uuid.Must(uuid.NewV7()).String()
	}

	invoice.ID = uuid.Must(uuid.NewV7()).String()
	invoice.Status = InvoiceDraft
	invoice.Recalculate()
	now := time.Now()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	for _, l := range invoice.Lines {
		l.InvoiceID = invoice.ID
	}

	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.audit(ctx, audit.TypeRecordCreated, "invoice", invoice.ID, nil)
	return invoice, nil
}

// GetInvoice retrieves an invoice with lines
func (s *Service) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

// ListInvoices lists invoices filtered by account and/or status
func (s *Service) ListInvoices(ctx context.Context, accountID, status string, limit, offset int) ([]*Invoice, error) {
	return s.invoices.List(ctx, accountID, status, limit, offset)
}

// IssueInvoice assigns the next per-tenant invoice number and marks the
// invoice issued
func (s *Service) IssueInvoice(ctx context.Context, id string, dueDate *time.Time) (*Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != InvoiceDraft {
		return nil, ErrInvoiceState
	}

	seq, err := s.invoices.NextNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	now := time.Now()
	invoice.Number = fmt.Sprintf("INV-%06d", seq)
	invoice.Status = InvoiceIssued
	invoice.IssueDate = &now
	invoice.DueDate = dueDate
	invoice.UpdatedAt = now

	if err := s.invoices.Update(ctx, invoice); err != nil {
		return nil, err
	}

	s.audit(ctx, audit.TypeInvoiceIssued, "invoice", id, map[string]any{"number": invoice.Number})
	return invoice, nil
}

// VoidInvoice voids an invoice that has no payments against it
func (s *Service) VoidInvoice(ctx context.Context, id string) (*Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == InvoicePaid || invoice.Status == InvoiceVoid {
		return nil, ErrInvoiceState
	}
	if invoice.AmountPaidCents > 0 {
		return nil, ErrInvoiceState
	}

	invoice.Status = InvoiceVoid
	invoice.UpdatedAt = time.Now()
	if err := s.invoices.Update(ctx, invoice); err != nil {
		return nil, err
	}

	s.audit(ctx, audit.TypeInvoiceVoided, "invoice", id, nil)
	return invoice, nil
}

// --- Payments ---

// RecordPayment records money received against an issued invoice and rolls
// the invoice status forward. Card payments are captured through the
// gateway first when a source token is supplied.
func (s *Service) RecordPayment(ctx context.Context, invoiceID string, amountCents int64, method, cardSource string) (*Payment, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	switch method {
	case MethodCard, MethodACH, MethodCheck, MethodCash:
	default:
		return nil, fmt.Errorf("invalid payment method: %s", method)
	}

	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != InvoiceIssued && invoice.Status != InvoicePartiallyPaid {
		return nil, ErrInvoiceState
	}
	if amountCents > invoice.BalanceCents() {
		return nil, ErrOverpayment
	}

	var chargeID string
	if method == MethodCard && cardSource != "" && s.gateway != nil {
		chargeID, err = s.gateway.Charge(ctx, amountCents, "usd", cardSource, "invoice "+invoice.Number)
		if err != nil {
			return nil, fmt.Errorf("card capture failed: %w", err)
		}
	}

	// The balance check above used a snapshot; the repository re-checks
	// it inside the update so a concurrent payment cannot slip past.
	if _, err := s.invoices.ApplyPayment(ctx, invoiceID, amountCents); err != nil {
		return nil, err
	}

	now := time.Now()
	payment := &Payment{
		ID:              uuid.Must(uuid.NewV7()).String(),
		InvoiceID:       invoiceID,
		AmountCents:     amountCents,
		Method:          method,
		GatewayChargeID: chargeID,
		ReceivedAt:      now,
		CreatedAt:       now,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.audit(ctx, audit.TypePaymentRecorded, "payment", payment.ID, map[string]any{
		"invoice_id":   invoiceID,
		"amount_cents": amountCents,
		"method":       method,
	})

	return payment, nil
}

// ListPayments lists payments for an invoice
func (s *Service) ListPayments(ctx context.Context, invoiceID string) ([]*Payment, error) {
	return s.payments.ListByInvoice(ctx, invoiceID)
}

// ApplyGatewayEvent applies an inbound gateway webhook event. Succeeded
// charges not yet recorded are recorded as card payments; the event is
// ignored if the charge is already known (webhook redelivery).
func (s *Service) ApplyGatewayEvent(ctx context.Context, chargeID, invoiceID string, amountCents int64) error {
	if existing, err := s.payments.GetByGatewayChargeID(ctx, chargeID); err == nil && existing != nil {
		return nil
	}

	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.Status != InvoiceIssued && invoice.Status != InvoicePartiallyPaid {
		return ErrInvoiceState
	}
	if amountCents > invoice.BalanceCents() {
		return ErrOverpayment
	}

	if _, err := s.invoices.ApplyPayment(ctx, invoiceID, amountCents); err != nil {
		return err
	}

	now := time.Now()
	payment := &Payment{
		ID:              uuid.Must(uuid.NewV7()).String(),
		InvoiceID:       invoiceID,
		AmountCents:     amountCents,
		Method:          MethodCard,
		GatewayChargeID: chargeID,
		ReceivedAt:      now,
		CreatedAt:       now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return fmt.Errorf("failed to record gateway payment: %w", err)
	}
	return nil
}

// --- Quotes ---

// CreateQuote creates a draft quote with server-computed totals
func (s *Service) CreateQuote(ctx context.Context, quote *Quote) (*Quote, error) {
	if quote.AccountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	for _, l := range quote.Lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("line quantity must be positive")
		}
		l.ID = uuid.Must(uuid.NewV7()).String()
	}

	quote.ID = uuid.Must(uuid.NewV7()).String()
	quote.Status = QuoteDraft
	quote.Recalculate()
	now := time.Now()
	quote.CreatedAt = now
	quote.UpdatedAt = now
	for _, l := range quote.Lines {
		l.QuoteID = quote.ID
	}

	if err := s.quotes.Create(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	s.audit(ctx, audit.TypeRecordCreated, "quote", quote.ID, nil)
	return quote, nil
}

// GetQuote retrieves a quote with lines
func (s *Service) GetQuote(ctx context.Context, id string) (*Quote, error) {
	return s.quotes.GetByID(ctx, id)
}

// ListQuotes lists quotes filtered by account and/or status
func (s *Service) ListQuotes(ctx context.Context, accountID, status string, limit, offset int) ([]*Quote, error) {
	return s.quotes.List(ctx, accountID, status, limit, offset)
}

// SendQuote marks a draft quote as sent
func (s *Service) SendQuote(ctx context.Context, id string) (*Quote, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != QuoteDraft {
		return nil, ErrQuoteState
	}

	quote.Status = QuoteSent
	quote.UpdatedAt = time.Now()
	if err := s.quotes.Update(ctx, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

// AcceptQuote marks a sent quote accepted and converts it to a draft
// invoice carrying the quote's lines
func (s *Service) AcceptQuote(ctx context.Context, id string) (*Quote, *Invoice, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if quote.Status != QuoteSent {
		return nil, nil, ErrQuoteState
	}
	if quote.IsExpired() {
		quote.Status = QuoteExpired
		quote.UpdatedAt = time.Now()
		_ = s.quotes.Update(ctx, quote)
		return nil, nil, ErrQuoteState
	}

	// Create the invoice before flipping the quote. If the quote update
	// fails afterwards, a stray draft invoice is harmless; the reverse
	// order would strand an accepted quote with no invoice and no retry.
	lines := make([]*InvoiceLine, 0, len(quote.Lines))
	for _, l := range quote.Lines {
		lines = append(lines, &InvoiceLine{
			Description:    l.Description,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
		})
	}

	invoice, err := s.CreateInvoice(ctx, &Invoice{
		AccountID:    quote.AccountID,
		EventID:      quote.EventID,
		Lines:        lines,
		TaxRateBasis: quote.TaxRateBasis,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert quote to invoice: %w", err)
	}

	quote.Status = QuoteAccepted
	quote.UpdatedAt = time.Now()
	if err := s.quotes.Update(ctx, quote); err != nil {
		return nil, nil, err
	}

	s.audit(ctx, audit.TypeQuoteAccepted, "quote", id, map[string]any{"invoice_id": invoice.ID})
	return quote, invoice, nil
}

// DeclineQuote marks a sent quote declined
func (s *Service) DeclineQuote(ctx context.Context, id string) (*Quote, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != QuoteSent {
		return nil, ErrQuoteState
	}

	quote.Status = QuoteDeclined
	quote.UpdatedAt = time.Now()
	if err := s.quotes.Update(ctx, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

// --- Contracts ---

// CreateContract creates a draft contract
func (s *Service) CreateContract(ctx context.Context, contract *Contract) (*Contract, error) {
	if contract.AccountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if contract.Title == "" {
		return nil, fmt.Errorf("contract title is required")
	}

	contract.ID = uuid.Must(uuid.NewV7()).String()
	contract.Status = ContractDraft
	now := time.Now()
	contract.CreatedAt = now
	contract.UpdatedAt = now

	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}

	s.audit(ctx, audit.TypeRecordCreated, "contract", contract.ID, nil)
	return contract, nil
}

// GetContract retrieves a contract
func (s *Service) GetContract(ctx context.Context, id string) (*Contract, error) {
	return s.contracts.GetByID(ctx, id)
}

// ListContracts lists contracts filtered by account and/or status
func (s *Service) ListContracts(ctx context.Context, accountID, status string, limit, offset int) ([]*Contract, error) {
	return s.contracts.List(ctx, accountID, status, limit, offset)
}

// SendContract marks a draft contract as sent
func (s *Service) SendContract(ctx context.Context, id string) (*Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.Status != ContractDraft {
		return nil, ErrContractState
	}

	now := time.Now()
	contract.Status = ContractSent
	contract.SentAt = &now
	contract.UpdatedAt = now
	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

// SignContract records a signature on a sent contract
func (s *Service) SignContract(ctx context.Context, id, signerName string) (*Contract, error) {
	if signerName == "" {
		return nil, fmt.Errorf("signer name is required")
	}

	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.Status != ContractSent {
		return nil, ErrContractState
	}

	now := time.Now()
	contract.Status = ContractSigned
	contract.SignedAt = &now
	contract.SignerName = signerName
	contract.UpdatedAt = now
	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}

	s.audit(ctx, audit.TypeContractSigned, "contract", id, map[string]any{"signer": signerName})
	return contract, nil
}

// CancelContract cancels an unsigned contract
func (s *Service) CancelContract(ctx context.Context, id string) (*Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.Status == ContractSigned || contract.Status == ContractCancelled {
		return nil, ErrContractState
	}

	contract.Status = ContractCancelled
	contract.UpdatedAt = time.Now()
	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *Service) audit(ctx context.Context, eventType, resource, id string, extra map[string]any) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return
	}
	metadata := map[string]any{"id": id}
	for k, v := range extra {
		metadata[k] = v
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: tc.Tenant.ID,
		ActorID:  tc.UserID,
		Resource: resource,
		Metadata: metadata,
	})
}

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
	"errors"
	"testing"

	"github.com/venuecore/venuecore/internal/audit"
)

type memInvoiceRepo struct {
	invoices map[string]*Invoice
	counter  int64
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[string]*Invoice)}
}

func (m *memInvoiceRepo) Create(_ context.Context, i *Invoice) error {
	m.invoices[i.ID] = i
	return nil
}

func (m *memInvoiceRepo) GetByID(_ context.Context, id string) (*Invoice, error) {
	i, ok := m.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return i, nil
}

func (m *memInvoiceRepo) Update(_ context.Context, i *Invoice) error {
	m.invoices[i.ID] = i
	return nil
}

func (m *memInvoiceRepo) List(_ context.Context, accountID, status string, limit, offset int) ([]*Invoice, error) {
	var out []*Invoice
	for _, i := range m.invoices {
		if (accountID == "" || i.AccountID == accountID) && (status == "" || i.Status == status) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *memInvoiceRepo) ApplyPayment(_ context.Context, id string, amountCents int64) (*Invoice, error) {
	i, ok := m.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	if i.Status != InvoiceIssued && i.Status != InvoicePartiallyPaid {
		return nil, ErrInvoiceState
	}
	if i.AmountPaidCents+amountCents > i.TotalCents {
		return nil, ErrOverpayment
	}
	i.AmountPaidCents += amountCents
	if i.AmountPaidCents >= i.TotalCents {
		i.Status = InvoicePaid
	} else {
		i.Status = InvoicePartiallyPaid
	}
	return i, nil
}

func (m *memInvoiceRepo) NextNumber(_ context.Context) (int64, error) {
	m.counter++
	return m.counter, nil
}

type memPaymentRepo struct {
	payments map[string]*Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[string]*Payment)}
}

func (m *memPaymentRepo) Create(_ context.Context, p *Payment) error {
	m.payments[p.ID] = p
	return nil
}

func (m *memPaymentRepo) GetByID(_ context.Context, id string) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

func (m *memPaymentRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*Payment, error) {
	var out []*Payment
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) GetByGatewayChargeID(_ context.Context, chargeID string) (*Payment, error) {
	for _, p := range m.payments {
		if p.GatewayChargeID == chargeID {
			return p, nil
		}
	}
	return nil, ErrPaymentNotFound
}

type memQuoteRepo struct {
	quotes map[string]*Quote
}

func newMemQuoteRepo() *memQuoteRepo {
	return &memQuoteRepo{quotes: make(map[string]*Quote)}
}

func (m *memQuoteRepo) Create(_ context.Context, q *Quote) error {
	m.quotes[q.ID] = q
	return nil
}

func (m *memQuoteRepo) GetByID(_ context.Context, id string) (*Quote, error) {
	q, ok := m.quotes[id]
	if !ok {
		return nil, ErrQuoteNotFound
	}
	return q, nil
}

func (m *memQuoteRepo) Update(_ context.Context, q *Quote) error {
	m.quotes[q.ID] = q
	return nil
}

func (m *memQuoteRepo) List(_ context.Context, accountID, status string, limit, offset int) ([]*Quote, error) {
	var out []*Quote
	for _, q := range m.quotes {
		if (accountID == "" || q.AccountID == accountID) && (status == "" || q.Status == status) {
			out = append(out, q)
		}
	}
	return out, nil
}

type memContractRepo struct {
	contracts map[string]*Contract
}

func newMemContractRepo() *memContractRepo {
	return &memContractRepo{contracts: make(map[string]*Contract)}
}

func (m *memContractRepo) Create(_ context.Context, c *Contract) error {
	m.contracts[c.ID] = c
	return nil
}

func (m *memContractRepo) GetByID(_ context.Context, id string) (*Contract, error) {
	c, ok := m.contracts[id]
	if !ok {
		return nil, ErrContractNotFound
	}
	return c, nil
}

func (m *memContractRepo) Update(_ context.Context, c *Contract) error {
	m.contracts[c.ID] = c
	return nil
}

func (m *memContractRepo) List(_ context.Context, accountID, status string, limit, offset int) ([]*Contract, error) {
	var out []*Contract
	for _, c := range m.contracts {
		if (accountID == "" || c.AccountID == accountID) && (status == "" || c.Status == status) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeGateway struct {
	chargeID string
	err      error
	calls    int
}

func (g *fakeGateway) Charge(_ context.Context, amountCents int64, currency, source, description string) (string, error) {
	g.calls++
	return g.chargeID, g.err
}

func newBillingService(gateway Gateway) *Service {
	return NewService(
		newMemInvoiceRepo(),
		newMemPaymentRepo(),
		newMemQuoteRepo(),
		newMemContractRepo(),
		gateway,
		audit.NewSlogLogger(),
	)
}

func draftInvoice(t *testing.T, s *Service) *Invoice {
	t.Helper()
	invoice, err := s.CreateInvoice(context.Background(), &Invoice{
		AccountID:    "acct-1",
		TaxRateBasis: 825,
		Lines: []*InvoiceLine{
			{Description: "Venue rental", Quantity: 1, UnitPriceCents: 100000},
		},
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}
	return invoice
}

func TestBilling_CreateInvoice_ComputesTotals(t *testing.T) {
	s := newBillingService(nil)
	invoice := draftInvoice(t, s)

	if invoice.SubtotalCents != 100000 {
		t.Errorf("subtotal: want 100000, got %d", invoice.SubtotalCents)
	}
	if invoice.TaxCents != 8250 {
		t.Errorf("tax at 8.25%%: want 8250, got %d", invoice.TaxCents)
	}
	if invoice.TotalCents != 108250 {
		t.Errorf("total: want 108250, got %d", invoice.TotalCents)
	}
	if invoice.Status != InvoiceDraft {
		t.Errorf("new invoice should be draft, got %s", invoice.Status)
	}
}

func TestBilling_IssueInvoice_AssignsSequentialNumbers(t *testing.T) {
	s := newBillingService(nil)
	ctx := context.Background()

	first := draftInvoice(t, s)
	second := draftInvoice(t, s)

	issued, err := s.IssueInvoice(ctx, first.ID, nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if issued.Number != "INV-000001" {
		t.Errorf("want INV-000001, got %s", issued.Number)
	}

	issued, err = s.IssueInvoice(ctx, second.ID, nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if issued.Number != "INV-000002" {
		t.Errorf("want INV-000002, got %s", issued.Number)
	}

	// Issuing twice is a state error.
	if _, err := s.IssueInvoice(ctx, first.ID, nil); err != ErrInvoiceState {
		t.Errorf("expected ErrInvoiceState, got %v", err)
	}
}

func TestBilling_RecordPayment_RollsStatusForward(t *testing.T) {
	s := newBillingService(nil)
	ctx := context.Background()

	invoice := draftInvoice(t, s)

	// Draft invoices cannot take payments.
	if _, err := s.RecordPayment(ctx, invoice.ID, 1000, MethodCheck, ""); err != ErrInvoiceState {
		t.Errorf("expected ErrInvoiceState for draft, got %v", err)
	}

	if _, err := s.IssueInvoice(ctx, invoice.ID, nil); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := s.RecordPayment(ctx, invoice.ID, 50000, MethodCheck, ""); err != nil {
		t.Fatalf("partial payment failed: %v", err)
	}
	got, _ := s.GetInvoice(ctx, invoice.ID)
	if got.Status != InvoicePartiallyPaid {
		t.Errorf("want partially_paid, got %s", got.Status)
	}

	// Paying more than the balance is rejected.
	if _, err := s.RecordPayment(ctx, invoice.ID, got.BalanceCents()+1, MethodCash, ""); err != ErrOverpayment {
		t.Errorf("expected ErrOverpayment, got %v", err)
	}

	if _, err := s.RecordPayment(ctx, invoice.ID, got.BalanceCents(), MethodCash, ""); err != nil {
		t.Fatalf("final payment failed: %v", err)
	}
	got, _ = s.GetInvoice(ctx, invoice.ID)
	if got.Status != InvoicePaid {
		t.Errorf("want paid, got %s", got.Status)
	}
	if got.BalanceCents() != 0 {
		t.Errorf("balance should be zero, got %d", got.BalanceCents())
	}
}

func TestBilling_RecordPayment_CardCapture(t *testing.T) {
	gw := &fakeGateway{chargeID: "ch_123"}
	s := newBillingService(gw)
	ctx := context.Background()

	invoice := draftInvoice(t, s)
	s.IssueInvoice(ctx, invoice.ID, nil)

	payment, err := s.RecordPayment(ctx, invoice.ID, 108250, MethodCard, "tok_visa")
	if err != nil {
		t.Fatalf("card payment failed: %v", err)
	}
	if payment.GatewayChargeID != "ch_123" {
		t.Errorf("payment should carry the gateway charge id, got %q", payment.GatewayChargeID)
	}
	if gw.calls != 1 {
		t.Errorf("gateway should be charged exactly once, got %d", gw.calls)
	}
}

func TestBilling_RecordPayment_DeclinedChargeRecordsNothing(t *testing.T) {
	gw := &fakeGateway{err: ErrGatewayDeclined}
	s := newBillingService(gw)
	ctx := context.Background()

	invoice := draftInvoice(t, s)
	s.IssueInvoice(ctx, invoice.ID, nil)

	_, err := s.RecordPayment(ctx, invoice.ID, 108250, MethodCard, "tok_declined")
	if err == nil {
		t.Fatal("expected decline error")
	}

	got, _ := s.GetInvoice(ctx, invoice.ID)
	if got.AmountPaidCents != 0 {
		t.Errorf("declined charge must not move the balance, got %d paid", got.AmountPaidCents)
	}
	payments, _ := s.ListPayments(ctx, invoice.ID)
	if len(payments) != 0 {
		t.Errorf("declined charge must not be recorded, got %d payments", len(payments))
	}
}

func TestBilling_VoidInvoice_RefusesPaidInvoices(t *testing.T) {
	s := newBillingService(nil)
	ctx := context.Background()

	invoice := draftInvoice(t, s)
	s.IssueInvoice(ctx, invoice.ID, nil)
	s.RecordPayment(ctx, invoice.ID, 1000, MethodCash, "")

	if _, err := s.VoidInvoice(ctx, invoice.ID); err != ErrInvoiceState {
		t.Errorf("invoice with payments must not void, got %v", err)
	}
}

func TestBilling_ApplyGatewayEvent_IsIdempotent(t *testing.T) {
	s := newBillingService(nil)
	ctx := context.Background()

	invoice := draftInvoice(t, s)
	s.IssueInvoice(ctx, invoice.ID, nil)

	if err := s.ApplyGatewayEvent(ctx, "ch_evt_1", invoice.ID, 50000); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	// Redelivery of the same charge is a no-op.
	if err := s.ApplyGatewayEvent(ctx, "ch_evt_1", invoice.ID, 50000); err != nil {
		t.Fatalf("redelivery should be acknowledged, got %v", err)
	}

	got, _ := s.GetInvoice(ctx, invoice.ID)
	if got.AmountPaidCents != 50000 {
		t.Errorf("redelivered event must not double-pay: got %d", got.AmountPaidCents)
	}
	payments, _ := s.ListPayments(ctx, invoice.ID)
	if len(payments) != 1 {
		t.Errorf("want exactly one payment, got %d", len(payments))
	}
}

func TestBilling_AcceptQuote_OpensDraftInvoice(t *testing.T) {
	s := newBillingService(nil)
	ctx := context.Background()

	quote, err := s.CreateQuote(ctx, &Quote{
		AccountID:    "acct-1",
		TaxRateBasis: 500,
		Lines: []*QuoteLine{
			{Description: "Stage lighting", Quantity: 2, UnitPriceCents: 40000},
		},
	})
	if err != nil {
		t.Fatalf("failed to create quote: %v", err)
	}

	// Draft quotes cannot be accepted.
	if _, _, err := s.AcceptQuote(ctx, quote.ID); err != ErrQuoteState {
		t.Errorf("expected ErrQuoteState for draft, got %v", err)
	}

	if _, err := s.SendQuote(ctx, quote.ID); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	accepted, invoice, err := s.AcceptQuote(ctx, quote.ID)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.Status != QuoteAccepted {
		t.Errorf("want accepted, got %s", accepted.Status)
	}
	if invoice.Status != InvoiceDraft {
		t.Errorf("converted invoice should be draft, got %s", invoice.Status)
	}
	if invoice.TotalCents != accepted.TotalCents {
		t.Errorf("invoice total %d should match quote total %d", invoice.TotalCents, accepted.TotalCents)
	}
	if len(invoice.Lines) != 1 || invoice.Lines[0].Description != "Stage lighting" {
		t.Errorf("invoice should carry the quote's lines, got %+v", invoice.Lines)
	}
}

type flakyInvoiceRepo struct {
	*memInvoiceRepo
	failCreates int
}

func (f *flakyInvoiceRepo) Create(ctx context.Context, i *Invoice) error {
	if f.failCreates > 0 {
		f.failCreates--
		return errors.New("connection reset by peer")
	}
	return f.memInvoiceRepo.Create(ctx, i)
}

func TestBilling_AcceptQuote_InvoiceFailureLeavesQuoteRetriable(t *testing.T) {
	invoices := &flakyInvoiceRepo{memInvoiceRepo: newMemInvoiceRepo(), failCreates: 1}
	s := NewService(invoices, newMemPaymentRepo(), newMemQuoteRepo(), newMemContractRepo(), nil, audit.NewSlogLogger())
	ctx := context.Background()

	quote, err := s.CreateQuote(ctx, &Quote{
		AccountID: "acct-1",
		Lines:     []*QuoteLine{{Description: "Catering", Quantity: 1, UnitPriceCents: 250000}},
	})
	if err != nil {
		t.Fatalf("failed to create quote: %v", err)
	}
	if _, err := s.SendQuote(ctx, quote.ID); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if _, _, err := s.AcceptQuote(ctx, quote.ID); err == nil {
		t.Fatal("expected accept to fail while invoice creation is down")
	}

	// The quote must not be stranded in accepted; the caller can retry.
	stored, err := s.GetQuote(ctx, quote.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != QuoteSent {
		t.Errorf("quote should remain sent after a failed conversion, got %s", stored.Status)
	}

	accepted, invoice, err := s.AcceptQuote(ctx, quote.ID)
	if err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
	if accepted.Status != QuoteAccepted || invoice == nil {
		t.Errorf("retry should accept the quote and open an invoice")
	}
}

// staleReadInvoiceRepo serves reads from a snapshot taken earlier, the
// way a request sees the invoice before a concurrent payment lands.
// Writes and ApplyPayment go against the live store.
type staleReadInvoiceRepo struct {
	*memInvoiceRepo
	stale map[string]Invoice
}

func (m *staleReadInvoiceRepo) snapshot() {
	m.stale = make(map[string]Invoice)
	for id, i := range m.invoices {
		m.stale[id] = *i
	}
}

func (m *staleReadInvoiceRepo) GetByID(ctx context.Context, id string) (*Invoice, error) {
	if i, ok := m.stale[id]; ok {
		copied := i
		return &copied, nil
	}
	return m.memInvoiceRepo.GetByID(ctx, id)
}

func TestBilling_RecordPayment_ConcurrentPaymentCannotOverpay(t *testing.T) {
	invoices := &staleReadInvoiceRepo{memInvoiceRepo: newMemInvoiceRepo()}
	payments := newMemPaymentRepo()
	s := NewService(invoices, payments, newMemQuoteRepo(), newMemContractRepo(), nil, audit.NewSlogLogger())
	ctx := context.Background()

	invoice := draftInvoice(t, s) // total 108250
	if _, err := s.IssueInvoice(ctx, invoice.ID, nil); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// Both requests read the invoice with the full balance outstanding.
	invoices.snapshot()

	if _, err := s.RecordPayment(ctx, invoice.ID, 60000, MethodCheck, ""); err != nil {
		t.Fatalf("first payment failed: %v", err)
	}

	// The second request's balance check passed against its stale read,
	// but the repository refuses the update once the sum would exceed
	// the total.
	if _, err := s.RecordPayment(ctx, invoice.ID, 60000, MethodCash, ""); err != ErrOverpayment {
		t.Fatalf("expected ErrOverpayment for the losing payment, got %v", err)
	}

	stored := invoices.invoices[invoice.ID]
	if stored.AmountPaidCents != 60000 {
		t.Errorf("losing payment must not move the balance, got %d paid", stored.AmountPaidCents)
	}
	if stored.Status != InvoicePartiallyPaid {
		t.Errorf("want partially_paid, got %s", stored.Status)
	}
	if len(payments.payments) != 1 {
		t.Errorf("losing payment must not be recorded, got %d payments", len(payments.payments))
	}
}

func TestBilling_ContractLifecycle(t *testing.T) {
	s := newBillingService(nil)
	ctx := context.Background()

	contract, err := s.CreateContract(ctx, &Contract{AccountID: "acct-1", Title: "Event Services Agreement"})
	if err != nil {
		t.Fatalf("failed to create contract: %v", err)
	}

	// Signing before sending is a state error.
	if _, err := s.SignContract(ctx, contract.ID, "Dana Reyes"); err != ErrContractState {
		t.Errorf("expected ErrContractState, got %v", err)
	}

	if _, err := s.SendContract(ctx, contract.ID); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	signed, err := s.SignContract(ctx, contract.ID, "Dana Reyes")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if signed.SignerName != "Dana Reyes" || signed.SignedAt == nil {
		t.Errorf("signature not recorded: %+v", signed)
	}

	// Signed contracts cannot be cancelled.
	if _, err := s.CancelContract(ctx, contract.ID); err != ErrContractState {
		t.Errorf("expected ErrContractState, got %v", err)
	}
}

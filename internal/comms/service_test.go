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

package comms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/venuecore/venuecore/internal/audit"
	"github.com/venuecore/venuecore/internal/crm"
)

type memCommsRepo struct {
	records map[string]*Communication
}

func newMemCommsRepo() *memCommsRepo {
	return &memCommsRepo{records: make(map[string]*Communication)}
}

func (m *memCommsRepo) Create(_ context.Context, c *Communication) error {
	m.records[c.ID] = c
	return nil
}

func (m *memCommsRepo) GetByID(_ context.Context, id string) (*Communication, error) {
	c, ok := m.records[id]
	if !ok {
		return nil, ErrCommunicationNotFound
	}
	return c, nil
}

func (m *memCommsRepo) ListByContact(_ context.Context, contactID string, limit, offset int) ([]*Communication, error) {
	var out []*Communication
	for _, c := range m.records {
		if c.ContactID == contactID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCommsRepo) ListByAccount(_ context.Context, accountID string, limit, offset int) ([]*Communication, error) {
	var out []*Communication
	for _, c := range m.records {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCommsRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, c := range m.records {
		if c.CreatedAt.Before(cutoff) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

type stubContactRepo struct {
	contacts map[string]*crm.Contact
}

func (s *stubContactRepo) Create(_ context.Context, c *crm.Contact) error { return nil }
func (s *stubContactRepo) Update(_ context.Context, c *crm.Contact) error { return nil }
func (s *stubContactRepo) Delete(_ context.Context, id string) error      { return nil }
func (s *stubContactRepo) List(_ context.Context, accountID string, limit, offset int) ([]*crm.Contact, error) {
	return nil, nil
}

func (s *stubContactRepo) GetByID(_ context.Context, id string) (*crm.Contact, error) {
	c, ok := s.contacts[id]
	if !ok {
		return nil, crm.ErrContactNotFound
	}
	return c, nil
}

type fakeEmailProvider struct {
	err   error
	calls int
}

func (f *fakeEmailProvider) SendEmail(_ context.Context, to, subject, body string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

type fakeSMSProvider struct {
	err error
}

func (f *fakeSMSProvider) SendSMS(_ context.Context, to, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "sms-1", nil
}

func testContacts() *stubContactRepo {
	return &stubContactRepo{contacts: map[string]*crm.Contact{
		"contact-1": {ID: "contact-1", AccountID: "acct-1", FirstName: "Dana", Email: "dana@example.com", Phone: "+15550100"},
		"contact-2": {ID: "contact-2", AccountID: "acct-1", FirstName: "NoReach"},
	}}
}

func TestComms_SendEmail_RecordsSuccess(t *testing.T) {
	repo := newMemCommsRepo()
	email := &fakeEmailProvider{}
	s := NewService(repo, testContacts(), email, nil, audit.NewSlogLogger())

	c, err := s.SendEmail(context.Background(), "contact-1", "Hello", "Body text")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if c.Status != StatusSent {
		t.Errorf("want sent, got %s", c.Status)
	}
	if c.ProviderID != "msg-1" {
		t.Errorf("provider id not recorded, got %q", c.ProviderID)
	}
	if c.AccountID != "acct-1" {
		t.Errorf("account should be taken from the contact, got %q", c.AccountID)
	}
	if email.calls != 1 {
		t.Errorf("provider should be called once, got %d", email.calls)
	}
}

func TestComms_SendEmail_FailureStillRecorded(t *testing.T) {
	repo := newMemCommsRepo()
	email := &fakeEmailProvider{err: errors.New("smtp relay down")}
	s := NewService(repo, testContacts(), email, nil, audit.NewSlogLogger())

	c, err := s.SendEmail(context.Background(), "contact-1", "Hello", "Body text")
	if err == nil {
		t.Fatal("expected delivery error")
	}
	if c == nil {
		t.Fatal("failed send must still return the record")
	}
	if c.Status != StatusFailed {
		t.Errorf("want failed, got %s", c.Status)
	}
	if c.Error == "" {
		t.Error("provider error should be recorded on the communication")
	}

	// The failure is persisted, not just returned.
	stored, err := s.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("failed send was not persisted: %v", err)
	}
	if stored.Status != StatusFailed {
		t.Errorf("persisted status: want failed, got %s", stored.Status)
	}
}

func TestComms_SendSMS_RequiresPhone(t *testing.T) {
	s := NewService(newMemCommsRepo(), testContacts(), nil, &fakeSMSProvider{}, audit.NewSlogLogger())

	if _, err := s.SendSMS(context.Background(), "contact-2", "ping"); err == nil {
		t.Error("contact without a phone number should not receive SMS")
	}
	if _, err := s.SendSMS(context.Background(), "contact-1", ""); err != ErrEmptyMessage {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestComms_Send_WithoutProvider(t *testing.T) {
	s := NewService(newMemCommsRepo(), testContacts(), nil, nil, audit.NewSlogLogger())

	if _, err := s.SendEmail(context.Background(), "contact-1", "x", "y"); err != ErrProviderNotConfigured {
		t.Errorf("expected ErrProviderNotConfigured, got %v", err)
	}
	if _, err := s.SendSMS(context.Background(), "contact-1", "y"); err != ErrProviderNotConfigured {
		t.Errorf("expected ErrProviderNotConfigured, got %v", err)
	}
}

func TestComms_Log(t *testing.T) {
	s := NewService(newMemCommsRepo(), testContacts(), nil, nil, audit.NewSlogLogger())
	ctx := context.Background()

	c, err := s.Log(ctx, &Communication{ContactID: "contact-1", Channel: ChannelCall, Body: "Discussed layout"})
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if c.Status != StatusLogged {
		t.Errorf("want logged, got %s", c.Status)
	}
	if c.Direction != DirectionOutbound {
		t.Errorf("direction should default to outbound, got %s", c.Direction)
	}
	if c.AccountID != "acct-1" {
		t.Errorf("account should come from the contact, got %q", c.AccountID)
	}

	// A note can be anchored to an account alone, with no contact.
	accountOnly, err := s.Log(ctx, &Communication{AccountID: "acct-1", Channel: ChannelCall, Body: "Venue walkthrough"})
	if err != nil {
		t.Fatalf("account-only log failed: %v", err)
	}
	if accountOnly.ContactID != "" {
		t.Errorf("account-only log should have no contact, got %q", accountOnly.ContactID)
	}

	// But it needs some anchor.
	if _, err := s.Log(ctx, &Communication{Channel: ChannelCall, Body: "orphan"}); err == nil {
		t.Error("log without contact or account should be rejected")
	}

	if _, err := s.Log(ctx, &Communication{ContactID: "contact-1", Channel: "carrier-pigeon", Body: "x"}); err != ErrUnknownChannel {
		t.Errorf("expected ErrUnknownChannel, got %v", err)
	}
	if _, err := s.Log(ctx, &Communication{ContactID: "contact-1", Channel: ChannelNote}); err != ErrEmptyMessage {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestComms_PurgeOlderThan(t *testing.T) {
	repo := newMemCommsRepo()
	s := NewService(repo, testContacts(), nil, nil, audit.NewSlogLogger())
	ctx := context.Background()

	old, _ := s.Log(ctx, &Communication{ContactID: "contact-1", Channel: ChannelNote, Body: "old"})
	old.CreatedAt = time.Now().Add(-100 * 24 * time.Hour)
	s.Log(ctx, &Communication{ContactID: "contact-1", Channel: ChannelNote, Body: "fresh"})

	removed, err := s.PurgeOlderThan(ctx, time.Now().Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("want 1 purged, got %d", removed)
	}
}

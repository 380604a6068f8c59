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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrProviderRejected is returned when the provider refuses a message
	// for a non-transient reason (bad address, unsubscribed recipient).
	ErrProviderRejected = errors.New("provider rejected the message")

	// ErrProviderNotConfigured is returned when no provider is wired for
	// the requested channel.
	ErrProviderNotConfigured = errors.New("no provider configured for channel")
)

// EmailProvider delivers email through an external service
type EmailProvider interface {
	SendEmail(ctx context.Context, to, subject, body string) (providerID string, err error)
}

// SMSProvider delivers SMS through an external service
type SMSProvider interface {
	SendSMS(ctx context.Context, to, body string) (providerID string, err error)
}

// HTTPEmailProvider is a JSON-over-HTTP email client with retry
type HTTPEmailProvider struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	maxRetryTime time.Duration
}

// NewHTTPEmailProvider creates an email provider client
func NewHTTPEmailProvider(baseURL, apiKey string, timeout, maxRetryTime time.Duration) *HTTPEmailProvider {
	return &HTTPEmailProvider{
		baseURL:      baseURL,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: timeout},
		maxRetryTime: maxRetryTime,
	}
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendEmail posts a message to the email provider. Transient failures
// are retried with exponential backoff; rejections fail immediately.
func (p *HTTPEmailProvider) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	payload, err := json.Marshal(emailRequest{To: to, Subject: subject, Body: body})
	if err != nil {
		return "", err
	}
	return dispatch(ctx, p.client, p.baseURL+"/v1/messages", p.apiKey, payload, p.maxRetryTime)
}

// HTTPSMSProvider is a JSON-over-HTTP SMS client with retry
type HTTPSMSProvider struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	maxRetryTime time.Duration
}

// NewHTTPSMSProvider creates an SMS provider client
func NewHTTPSMSProvider(baseURL, apiKey string, timeout, maxRetryTime time.Duration) *HTTPSMSProvider {
	return &HTTPSMSProvider{
		baseURL:      baseURL,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: timeout},
		maxRetryTime: maxRetryTime,
	}
}

type smsRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// SendSMS posts a message to the SMS provider
func (p *HTTPSMSProvider) SendSMS(ctx context.Context, to, body string) (string, error) {
	payload, err := json.Marshal(smsRequest{To: to, Body: body})
	if err != nil {
		return "", err
	}
	return dispatch(ctx, p.client, p.baseURL+"/v1/messages", p.apiKey, payload, p.maxRetryTime)
}

type providerResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

func dispatch(ctx context.Context, client *http.Client, url, apiKey string, payload []byte, maxRetryTime time.Duration) (string, error) {
	var messageID string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnprocessableEntity:
			return backoff.Permanent(ErrProviderRejected)
		case resp.StatusCode >= 500:
			return fmt.Errorf("provider returned %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("provider returned %d", resp.StatusCode))
		}

		var pr providerResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode provider response: %w", err))
		}
		messageID = pr.MessageID
		return nil
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(maxRetryTime)), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return "", err
	}
	return messageID, nil
}

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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrGatewayDeclined is returned when the gateway refuses a charge.
// Declines are not retried.
var ErrGatewayDeclined = errors.New("payment gateway declined the charge")

// Gateway captures card charges through the configured payment provider.
// The provider itself is an external collaborator; this is transport glue.
type Gateway interface {
	Charge(ctx context.Context, amountCents int64, currency, source, description string) (chargeID string, err error)
}

// HTTPGateway is a thin JSON-over-HTTP gateway client with retry
type HTTPGateway struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	maxRetryTime time.Duration
}

// NewHTTPGateway creates a gateway client
func NewHTTPGateway(baseURL, apiKey string, timeout, maxRetryTime time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL:      baseURL,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: timeout},
		maxRetryTime: maxRetryTime,
	}
}

type chargeRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
}

type chargeResponse struct {
	ChargeID string `json:"charge_id"`
	Status   string `json:"status"`
}

// Charge posts a charge to the gateway. Transient failures (5xx, network)
// are retried with exponential backoff; declines fail immediately.
func (g *HTTPGateway) Charge(ctx context.Context, amountCents int64, currency, source, description string) (string, error) {
	body, err := json.Marshal(chargeRequest{
		AmountCents: amountCents,
		Currency:    currency,
		Source:      source,
		Description: description,
	})
	if err != nil {
		return "", err
	}

	var chargeID string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/charges", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+g.apiKey)

		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
			return backoff.Permanent(ErrGatewayDeclined)
		case resp.StatusCode >= 500:
			return fmt.Errorf("gateway returned %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("gateway returned %d", resp.StatusCode))
		}

		var cr chargeResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode gateway response: %w", err))
		}
		chargeID = cr.ChargeID
		return nil
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(g.maxRetryTime)), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return "", err
	}
	return chargeID, nil
}

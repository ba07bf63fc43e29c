package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/adaptivestartup/webhooks-platform/src/signature"
	"github.com/adaptivestartup/webhooks-platform/src/vault"
	"github.com/rs/zerolog/log"
)

const (
	// SignatureHeader carries "t=<ts>,v1=<hex>" on outbound deliveries
	SignatureHeader = "X-Adaptive-Signature"
	// EventTypeHeader carries the event type so receivers can route before parsing
	EventTypeHeader = "X-Adaptive-Event"
	// DeliveryIDHeader lets receivers deduplicate retried deliveries
	DeliveryIDHeader = "X-Adaptive-Delivery"
)

// Dispatcher performs a single signed delivery attempt. Retry policy lives in
// the worker, not here: one call, one HTTP request.
type Dispatcher struct {
	vault  vault.Vault
	client *http.Client

	// now is swapped in tests to pin the signed timestamp
	now func() time.Time
}

// NewDispatcher creates a dispatcher with the given per-attempt timeout
func NewDispatcher(v vault.Vault, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		vault: v,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// A redirect would re-send the signed body to an unverified
				// location; treat it as a delivery failure instead.
				return http.ErrUseLastResponse
			},
		},
		now: time.Now,
	}
}

// Dispatch signs the delivery payload with the subscription's vault secret and
// POSTs it once. Returns nil on 2xx, ErrSecretUnavailable if the secret cannot
// be fetched (no network call is made), a *DeliveryError on a non-2xx
// response, or a transport error.
func (d *Dispatcher) Dispatch(ctx context.Context, sub *models.WebhookSubscription, delivery *models.Delivery) error {
	secret, err := d.vault.Retrieve(ctx, sub.SecretRef)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSecretUnavailable, err)
	}

	ts := d.now().Unix()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return fmt.Errorf("failed to build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature.BuildHeader(secret, ts, delivery.Payload))
	req.Header.Set(EventTypeHeader, delivery.EventType)
	req.Header.Set(DeliveryIDHeader, delivery.ID.String())

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivery request failed: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused; the response body is not inspected
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().
			Str("delivery_id", delivery.ID.String()).
			Str("url", sub.URL).
			Int("status", resp.StatusCode).
			Msg("Delivery attempt rejected by receiver")
		return &DeliveryError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
	}

	return nil
}

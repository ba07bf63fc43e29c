package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for explicit error handling with errors.Is()

var (
	// ErrSubscriptionNotFound indicates the webhook subscription does not exist
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrSecretUnavailable indicates the signing secret could not be retrieved
	// at dispatch time; dispatch aborts before any network call
	ErrSecretUnavailable = errors.New("signing secret unavailable")

	// ErrVaultDeletionFailed indicates the vault secret could not be deleted;
	// the subscription record is left intact for operator remediation
	ErrVaultDeletionFailed = errors.New("vault secret deletion failed")

	// ErrWebhookProcessingFailed indicates a domain handler failed after the
	// inbound signature verified; the original error is logged server-side
	ErrWebhookProcessingFailed = errors.New("webhook processing failed")

	// ErrInvalidCredentials indicates authentication failed
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DeliveryError indicates the receiver answered with a non-2xx status.
// The status is kept so the retry policy can distinguish retriable failures.
type DeliveryError struct {
	Status     int
	StatusText string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed: %d %s", e.Status, e.StatusText)
}

// Retriable reports whether the failure is worth another attempt:
// 5xx and 429 are retriable, other 4xx are not.
func (e *DeliveryError) Retriable() bool {
	if e.Status == 429 {
		return true
	}
	return e.Status >= 500
}

// Package vault provides opaque store/retrieve/delete of webhook signing
// secrets. Callers hold only the reference returned at store time; secrets are
// immutable after creation (rotation is delete+recreate).
package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSecretNotFound indicates the reference is invalid or the secret was deleted
var ErrSecretNotFound = errors.New("secret not found")

// Vault is the capability interface over a secret store
type Vault interface {
	// Store persists a secret under name and returns its reference.
	Store(ctx context.Context, name, secretValue, ownerTag string) (string, error)
	// Retrieve returns the plaintext secret, or ErrSecretNotFound.
	Retrieve(ctx context.Context, ref string) (string, error)
	// Delete removes the secret. Deleting a non-existent reference is not an error.
	Delete(ctx context.Context, ref string) error
}

// EntryName builds a vault entry name for a tenant. Entry names are
// semi-public metadata, so the owner id is truncated rather than embedded in
// full, and a random UUID guarantees uniqueness.
func EntryName(ownerID string) string {
	prefix := ownerID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("whsub-%s-%s", prefix, uuid.New().String())
}

package vault

import (
	"context"
	"sync"
)

// MemoryVault is an in-memory Vault for tests and local development.
type MemoryVault struct {
	mu      sync.RWMutex
	secrets map[string]string

	// StoreErr / RetrieveErr / DeleteErr, when set, force the corresponding
	// operation to fail. Used by tests to exercise failure paths.
	StoreErr    error
	RetrieveErr error
	DeleteErr   error
}

// NewMemoryVault creates an empty in-memory vault
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{secrets: make(map[string]string)}
}

func (v *MemoryVault) Store(ctx context.Context, name, secretValue, ownerTag string) (string, error) {
	if v.StoreErr != nil {
		return "", v.StoreErr
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.secrets[name] = secretValue
	return name, nil
}

func (v *MemoryVault) Retrieve(ctx context.Context, ref string) (string, error) {
	if v.RetrieveErr != nil {
		return "", v.RetrieveErr
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	secret, ok := v.secrets[ref]
	if !ok {
		return "", ErrSecretNotFound
	}
	return secret, nil
}

func (v *MemoryVault) Delete(ctx context.Context, ref string) error {
	if v.DeleteErr != nil {
		return v.DeleteErr
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.secrets, ref)
	return nil
}

// Len returns the number of stored secrets
func (v *MemoryVault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.secrets)
}

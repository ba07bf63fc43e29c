package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresVault stores secrets in the vault_secrets table, encrypted at rest
// when an Encryptor is configured.
type PostgresVault struct {
	pool *pgxpool.Pool
	enc  *Encryptor
}

// NewPostgresVault creates a Postgres-backed vault. enc may be nil (plaintext storage).
func NewPostgresVault(pool *pgxpool.Pool, enc *Encryptor) *PostgresVault {
	return &PostgresVault{pool: pool, enc: enc}
}

// Store persists a secret under name and returns name as the reference.
func (v *PostgresVault) Store(ctx context.Context, name, secretValue, ownerTag string) (string, error) {
	ciphertext, err := v.enc.Encrypt([]byte(secretValue))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt secret: %w", err)
	}

	_, err = v.pool.Exec(ctx,
		"INSERT INTO vault_secrets (ref, owner_tag, ciphertext) VALUES ($1, $2, $3)",
		name, ownerTag, ciphertext,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store secret: %w", err)
	}

	return name, nil
}

// Retrieve returns the plaintext secret for ref.
func (v *PostgresVault) Retrieve(ctx context.Context, ref string) (string, error) {
	var ciphertext []byte
	err := v.pool.QueryRow(ctx,
		"SELECT ciphertext FROM vault_secrets WHERE ref = $1", ref,
	).Scan(&ciphertext)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("failed to retrieve secret: %w", err)
	}

	plaintext, err := v.enc.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// Delete removes the secret. Idempotent: deleting a missing ref is a no-op.
func (v *PostgresVault) Delete(ctx context.Context, ref string) error {
	_, err := v.pool.Exec(ctx, "DELETE FROM vault_secrets WHERE ref = $1", ref)
	if err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}

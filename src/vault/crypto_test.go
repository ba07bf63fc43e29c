package vault

import (
	"bytes"
	"testing"
)

func validHexKey() string {
	// 32 bytes = 64 hex chars
	return "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
}

func TestNewEncryptor_EmptyKey(t *testing.T) {
	enc, err := NewEncryptor("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc != nil {
		t.Fatal("expected nil encryptor for empty key")
	}
}

func TestNewEncryptor_InvalidHex(t *testing.T) {
	_, err := NewEncryptor("not-hex")
	if err == nil {
		t.Fatal("expected error for invalid hex")
	}
}

func TestNewEncryptor_WrongLength(t *testing.T) {
	// 16 bytes = 32 hex chars (AES-128, not AES-256)
	_, err := NewEncryptor("0123456789abcdef0123456789abcdef")
	if err == nil {
		t.Fatal("expected error for wrong key length")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor(validHexKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plaintext := []byte("whsec_4f2d8a91c7b3e6054d1f8e2a9b6c3d7e4f2d8a91c7b3e6054d1f8e2a9b6c3d7e")

	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt error: %v", err)
	}

	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt error: %v", err)
	}

	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("decrypted != plaintext: got %q, want %q", decrypted, plaintext)
	}
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	enc, err := NewEncryptor(validHexKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ciphertext, err := enc.Encrypt([]byte("whsec_secret"))
	if err != nil {
		t.Fatalf("encrypt error: %v", err)
	}

	ciphertext[len(ciphertext)-1] ^= 0x01

	if _, err := enc.Decrypt(ciphertext); err == nil {
		t.Fatal("expected error for tampered ciphertext")
	}
}

func TestDecrypt_TooShort(t *testing.T) {
	enc, err := NewEncryptor(validHexKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A secret store must reject malformed ciphertext instead of passing it through
	if _, err := enc.Decrypt([]byte("hi")); err == nil {
		t.Fatal("expected error for too-short ciphertext")
	}
}

func TestNilEncryptor_Passthrough(t *testing.T) {
	var enc *Encryptor

	plaintext := []byte("whsec_plain")

	encrypted, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt error: %v", err)
	}
	if !bytes.Equal(encrypted, plaintext) {
		t.Fatal("nil encryptor should pass through on encrypt")
	}

	decrypted, err := enc.Decrypt(plaintext)
	if err != nil {
		t.Fatalf("decrypt error: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatal("nil encryptor should pass through on decrypt")
	}
}

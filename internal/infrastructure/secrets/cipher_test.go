package secrets

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestSecretBoxRoundTrip(t *testing.T) {
	sb, err := NewSecretBox(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, plaintext := range []string{"", "access-sandbox-123", strings.Repeat("x", 4096)} {
		ciphertext, err := sb.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		if bytes.Contains(ciphertext, []byte("access-sandbox")) {
			t.Fatal("plaintext visible in ciphertext")
		}
		got, err := sb.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if got != plaintext {
			t.Fatalf("round trip mismatch: %q", got)
		}
	}
}

func TestSecretBoxNoncesDiffer(t *testing.T) {
	sb, err := NewSecretBox(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, _ := sb.Encrypt("same plaintext")
	b, _ := sb.Encrypt("same plaintext")
	if bytes.Equal(a, b) {
		t.Fatal("two encryptions produced identical ciphertexts")
	}
}

func TestNewSecretBoxRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "deadbeef", "zz" + testKey[2:], testKey + "00"} {
		if _, err := NewSecretBox(key); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %q: err = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestSecretBoxDecryptFailures(t *testing.T) {
	sb, err := NewSecretBox(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := sb.Decrypt([]byte("short")); !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("err = %v, want ErrCiphertextTooShort", err)
	}

	ciphertext, err := sb.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xff
	if _, err := sb.Decrypt(ciphertext); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("tampered: err = %v, want ErrDecryptFailed", err)
	}

	other, err := NewSecretBox(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	good, _ := sb.Encrypt("secret")
	if _, err := other.Decrypt(good); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("wrong key: err = %v, want ErrDecryptFailed", err)
	}
}

package crypto

import (
	"bytes"
	"testing"

	"github.com/Euclidae/khrowno-sub000/internal/errors"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x07}, SaltSize)
	k1, err := DeriveKey([]byte("hunter2"), salt)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	k2, err := DeriveKey([]byte("hunter2"), salt)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("same password and salt must derive the same key")
	}
	if len(k1) != KDFKeySize {
		t.Errorf("key length = %d, want %d", len(k1), KDFKeySize)
	}
}

func TestDeriveKeyRejectsBadSalt(t *testing.T) {
	_, err := DeriveKey([]byte("pw"), []byte("tooshort"))
	if err == nil {
		t.Fatal("expected error for undersized salt")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	password := []byte("correct horse battery staple")

	env, err := Encrypt(plaintext, password)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	out, err := Decrypt(env, password)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(out, plaintext) {
		t.Error("round trip did not preserve plaintext")
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	env, err := Encrypt([]byte("secret payload"), []byte("right-password"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	_, err = Decrypt(env, []byte("wrong-password"))
	if !errors.Is(err, errors.ErrAuthenticationFailed) {
		t.Errorf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	env, err := Encrypt([]byte("secret payload"), []byte("pw"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	env.Ciphertext[0] ^= 0xFF
	_, err = Decrypt(env, []byte("pw"))
	if !errors.Is(err, errors.ErrAuthenticationFailed) {
		t.Errorf("expected ErrAuthenticationFailed for tampered ciphertext, got %v", err)
	}
}

func TestDecryptTamperedSalt(t *testing.T) {
	env, err := Encrypt([]byte("secret payload"), []byte("pw"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	env.Salt[0] ^= 0xFF
	_, err = Decrypt(env, []byte("pw"))
	if !errors.Is(err, errors.ErrAuthenticationFailed) {
		t.Errorf("expected ErrAuthenticationFailed for tampered salt, got %v", err)
	}
}

func TestEnvelopeSerialiseRoundTrip(t *testing.T) {
	env, err := Encrypt([]byte("payload"), []byte("pw"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	blob := env.Serialise()

	got, err := Deserialise(blob)
	if err != nil {
		t.Fatalf("Deserialise: %v", err)
	}
	if got.Salt != env.Salt || got.Nonce != env.Nonce {
		t.Error("deserialised salt/nonce do not match original")
	}
	if !bytes.Equal(got.Ciphertext, env.Ciphertext) {
		t.Error("deserialised ciphertext does not match original")
	}

	out, err := Decrypt(got, []byte("pw"))
	if err != nil {
		t.Fatalf("Decrypt after deserialise: %v", err)
	}
	if string(out) != "payload" {
		t.Errorf("got %q, want %q", out, "payload")
	}
}

func TestDeserialiseRejectsTruncated(t *testing.T) {
	_, err := Deserialise([]byte("short"))
	if err == nil {
		t.Fatal("expected error for truncated blob")
	}
}

func TestSecureZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	SecureZero(b)
	for _, v := range b {
		if v != 0 {
			t.Error("SecureZero left non-zero bytes")
		}
	}
}

func TestKeyMaterialClose(t *testing.T) {
	km := NewKeyMaterial([]byte{9, 9, 9})
	if km.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", km.Len())
	}
	km.Close()
	if !km.IsClosed() {
		t.Error("expected IsClosed after Close")
	}
	if km.Bytes() != nil {
		t.Error("expected nil Bytes after Close")
	}
	km.Close() // idempotent
}

func TestCryptoContextClose(t *testing.T) {
	cc := &CryptoContext{Key: []byte{1, 2, 3}}
	cc.Close()
	if cc.Key != nil {
		t.Error("expected Key to be nil after Close")
	}
	cc.Close() // idempotent
}

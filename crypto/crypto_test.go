package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestRoundTrip(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor: %v", err)
	}
	for _, s := range []string{"oauth:abcdef123456", "x", strings.Repeat("long token ", 100)} {
		ct, err := EncryptString(enc, s)
		if err != nil {
			t.Fatalf("EncryptString(%q): %v", s, err)
		}
		if ct == s {
			t.Errorf("ciphertext equals plaintext for %q", s)
		}
		pt, err := DecryptString(enc, ct)
		if err != nil {
			t.Fatalf("DecryptString: %v", err)
		}
		if pt != s {
			t.Errorf("round trip = %q, want %q", pt, s)
		}
	}
}

func TestEmptyStringPassesThrough(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor: %v", err)
	}
	ct, err := EncryptString(enc, "")
	if err != nil || ct != "" {
		t.Errorf("EncryptString(\"\") = (%q, %v), want empty", ct, err)
	}
	pt, err := DecryptString(enc, "")
	if err != nil || pt != "" {
		t.Errorf("DecryptString(\"\") = (%q, %v), want empty", pt, err)
	}
}

func TestTamperDetected(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor: %v", err)
	}
	ct, err := enc.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct[len(ct)-1] ^= 0xff
	if _, err := enc.Decrypt(ct); err == nil {
		t.Fatal("expected decryption failure on tampered ciphertext")
	}
}

func TestBadKeys(t *testing.T) {
	if _, err := NewAESEncryptor(""); err == nil {
		t.Error("empty key accepted")
	}
	if _, err := NewAESEncryptor("not base64!!"); err == nil {
		t.Error("non-base64 key accepted")
	}
	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	if _, err := NewAESEncryptor(short); err == nil {
		t.Error("short key accepted")
	}
}

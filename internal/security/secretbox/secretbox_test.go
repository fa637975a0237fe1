package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testKey() []byte {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	return raw
}

func TestSealOpen_RoundTrip(t *testing.T) {
	b, err := New(testKey())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	msg := "client-secret-S1"
	ct, err := b.Seal(msg)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if strings.Contains(ct, msg) {
		t.Fatal("ciphertext leaks plaintext")
	}
	pt, err := b.Open(ct)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if pt != msg {
		t.Fatalf("got %q want %q", pt, msg)
	}
}

func TestOpen_DetectsTamper(t *testing.T) {
	b, _ := New(testKey())
	ct, _ := b.Seal("secreto")
	parts := strings.Split(ct, "|")
	raw, _ := base64.StdEncoding.DecodeString(parts[1])
	raw[0] ^= 0xFF
	tampered := parts[0] + "|" + base64.StdEncoding.EncodeToString(raw)
	if _, err := b.Open(tampered); err == nil {
		t.Fatal("expected tamper detection")
	}
	if _, err := b.Open("sin-separador"); err != ErrInvalidFormat {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestParseKeyFormats(t *testing.T) {
	k := testKey()
	for _, s := range []string{
		base64.StdEncoding.EncodeToString(k),
		base64.RawStdEncoding.EncodeToString(k),
		"0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20",
	} {
		if _, err := Parse(s); err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
	}
	if _, err := Parse("short"); err != ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestEmptyPassthrough(t *testing.T) {
	b, _ := New(testKey())
	if s, err := b.Seal(""); err != nil || s != "" {
		t.Fatalf("seal empty: %q %v", s, err)
	}
	if s, err := b.Open(""); err != nil || s != "" {
		t.Fatalf("open empty: %q %v", s, err)
	}
}

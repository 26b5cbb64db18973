package signature

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"regexp"
	"testing"
	"time"
)

func TestSignHMAC_Deterministic(t *testing.T) {
	t.Parallel()

	payload := `{"merchantId":"M123","amount":{"value":"150000.00","currency":"IDR"}}`
	secret := "shh"

	first := SignHMAC(payload, secret)
	for i := 0; i < 5; i++ {
		if got := SignHMAC(payload, secret); got != first {
			t.Fatalf("digest changed between calls: %q vs %q", got, first)
		}
	}
}

func TestSignHMAC_KnownVector(t *testing.T) {
	t.Parallel()

	// RFC 4231 test case 2.
	got := SignHMAC("what do ya want for nothing?", "Jefe")
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Fatalf("SignHMAC = %q, want %q", got, want)
	}
}

func TestSignHMAC_LowercaseHex(t *testing.T) {
	t.Parallel()

	sig := SignHMAC("payload", "secret")
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(sig) {
		t.Fatalf("digest is not 64 chars of lowercase hex: %q", sig)
	}
}

func TestVerifyHMAC(t *testing.T) {
	t.Parallel()

	payload := "the exact wire bytes"
	sig := SignHMAC(payload, "secret")

	if !VerifyHMAC(payload, "secret", sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifyHMAC(payload, "secret", sig+"00") {
		t.Fatal("tampered signature accepted")
	}
	if VerifyHMAC(payload+" ", "secret", sig) {
		t.Fatal("signature accepted for different payload")
	}
}

func TestSignRSA_RoundTrip(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	sig, err := SignRSA("client-key|2025-01-02T10:04:05+07:00", string(pemBytes))
	if err != nil {
		t.Fatalf("SignRSA error: %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(sig); err != nil {
		t.Fatalf("signature is not valid base64: %v", err)
	}

	again, err := SignRSA("client-key|2025-01-02T10:04:05+07:00", string(pemBytes))
	if err != nil {
		t.Fatalf("SignRSA error: %v", err)
	}
	if sig != again {
		t.Fatal("RSA signature not deterministic for identical input")
	}
}

func TestSignRSA_InvalidPEM(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "not pem at all", "-----BEGIN GARBAGE-----\nZm9v\n-----END GARBAGE-----"} {
		if _, err := SignRSA("payload", bad); err == nil {
			t.Fatalf("expected error for key %q, got nil", bad)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	utc := time.Date(2025, 3, 1, 17, 30, 9, 0, time.UTC)
	got := FormatTimestamp(utc)
	if got != "2025-03-02T00:30:09+07:00" {
		t.Fatalf("FormatTimestamp = %q", got)
	}
}

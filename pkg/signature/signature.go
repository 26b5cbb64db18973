// Package signature produces the authentication signatures the Dana gateway
// requires: HMAC-SHA256 over request payloads and RSA-SHA256 for B2B access
// token acquisition. Callers must sign the exact byte string that goes on the
// wire; re-serializing a payload before signing breaks verification.
package signature

import (
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPrivateKey = errors.New("signature: invalid RSA private key PEM")

// gatewayLocation is the fixed merchant timezone (UTC+7). The gateway rejects
// timestamps in any other offset.
var gatewayLocation = time.FixedZone("GMT+7", 7*60*60)

// SignHMAC computes the lowercase hex HMAC-SHA256 digest of payload.
func SignHMAC(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks sig against the expected digest in constant time.
func VerifyHMAC(payload, secret, sig string) bool {
	expected := SignHMAC(payload, secret)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// SignRSA computes a base64 RSA-SHA256 signature of payload with the given
// PEM-encoded private key. PKCS#1 and PKCS#8 keys are accepted.
func SignRSA(payload, privateKeyPEM string) (string, error) {
	key, err := parseRSAPrivateKey(privateKeyPEM)
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256([]byte(payload))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("signature: rsa sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func parseRSAPrivateKey(privateKeyPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, ErrInvalidPrivateKey
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrInvalidPrivateKey
	}
	return key, nil
}

// FormatTimestamp renders t as YYYY-MM-DDTHH:mm:ss+07:00.
func FormatTimestamp(t time.Time) string {
	return t.In(gatewayLocation).Format("2006-01-02T15:04:05-07:00")
}

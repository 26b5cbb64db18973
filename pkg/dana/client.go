// Package dana talks to the Dana QRIS gateway: B2B access token acquisition
// with a process-local cache, and signed QR payment creation.
package dana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adgenix/adgenix-backend/internal/config"
	"github.com/adgenix/adgenix-backend/pkg/signature"
)

const (
	accessTokenPath = "/v1.0/access-token/b2b.htm"
	qrGeneratePath  = "/v1.0/qr/qr-mpm-generate.htm"

	// tokens are refreshed a minute before the gateway-reported expiry
	tokenSafetyMargin = 60 * time.Second
	defaultTokenTTL   = 900 * time.Second
)

// ErrNotConfigured means required gateway credentials are absent. Handlers
// surface it as "payment system not configured" instead of crashing.
var ErrNotConfigured = errors.New("dana: gateway credentials not configured")

// GatewayError is a non-success answer from the gateway. Retryable errors
// (5xx, 429) should be surfaced to the client as retryable with a backoff
// hint; everything else is terminal for this attempt.
type GatewayError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("dana: gateway error status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	cfg        config.DanaConfig
	httpClient *http.Client
	log        *zap.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time

	now func() time.Time
}

func NewClient(cfg config.DanaConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
		now: time.Now,
	}
}

func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// AccessToken returns the cached B2B bearer token, acquiring a fresh one when
// the cache is empty or past its safety margin. Two near-simultaneous callers
// may both acquire; both tokens are valid and the cache keeps the last write.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if !c.cfg.Configured() {
		return "", ErrNotConfigured
	}

	c.mu.Lock()
	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		tok := c.accessToken
		c.mu.Unlock()
		return tok, nil
	}
	c.mu.Unlock()

	tok, ttl, err := c.acquireAccessToken(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.accessToken = tok
	c.expiresAt = c.now().Add(ttl - tokenSafetyMargin)
	c.mu.Unlock()

	return tok, nil
}

func (c *Client) acquireAccessToken(ctx context.Context) (string, time.Duration, error) {
	ts := signature.FormatTimestamp(c.now())
	sig, err := signature.SignRSA(c.cfg.ClientKey+"|"+ts, c.cfg.PrivateKeyPEM)
	if err != nil {
		return "", 0, fmt.Errorf("dana: sign token request: %w", err)
	}

	body := []byte(`{"grantType":"client_credentials"}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+accessTokenPath, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("dana: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-TIMESTAMP", ts)
	req.Header.Set("X-CLIENT-KEY", c.cfg.ClientKey)
	req.Header.Set("X-SIGNATURE", sig)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("dana: token request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("dana: read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, classify(resp.StatusCode, raw)
	}

	var parsed accessTokenResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", 0, fmt.Errorf("dana: decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", 0, fmt.Errorf("dana: token response missing accessToken")
	}

	ttl := time.Duration(parsed.ExpiresIn) * time.Second
	if ttl <= tokenSafetyMargin {
		ttl = defaultTokenTTL
	}
	return parsed.AccessToken, ttl, nil
}

// QRPaymentRequest is the merchant side of a QR generation call.
type QRPaymentRequest struct {
	PartnerReferenceNo string
	AmountIDR          int64
}

// QRPaymentResponse carries the payload the client renders for the payer.
type QRPaymentResponse struct {
	Success     bool   `json:"success"`
	QRCode      string `json:"qrCode"`
	ExpireTime  string `json:"expireTime"`
	ReferenceID string `json:"referenceId"`
	OrderID     string `json:"orderId"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

type qrPaymentBody struct {
	MerchantID         string     `json:"merchantId"`
	StoreID            string     `json:"storeId"`
	PartnerReferenceNo string     `json:"partnerReferenceNo"`
	Amount             amountBody `json:"amount"`
}

type amountBody struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// CreateQRPayment submits a signed QR generation request. The HMAC signature
// covers the exact JSON bytes sent on the wire.
func (c *Client) CreateQRPayment(ctx context.Context, req QRPaymentRequest) (*QRPaymentResponse, error) {
	if !c.cfg.Configured() {
		return nil, ErrNotConfigured
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(qrPaymentBody{
		MerchantID:         c.cfg.MerchantID,
		StoreID:            c.cfg.StoreID,
		PartnerReferenceNo: req.PartnerReferenceNo,
		Amount: amountBody{
			Value:    FormatAmount(req.AmountIDR),
			Currency: "IDR",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dana: marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+qrGeneratePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("dana: build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-TIMESTAMP", signature.FormatTimestamp(c.now()))
	httpReq.Header.Set("X-SIGNATURE", signature.SignHMAC(string(payload), c.cfg.ClientSecret))
	httpReq.Header.Set("ORIGIN", c.cfg.Origin)
	httpReq.Header.Set("X-PARTNER-ID", c.cfg.PartnerID)
	httpReq.Header.Set("X-EXTERNAL-ID", uuid.NewString())
	httpReq.Header.Set("CHANNEL-ID", c.cfg.ChannelID)
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dana: payment request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dana: read payment response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classify(resp.StatusCode, raw)
	}

	var parsed QRPaymentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("dana: decode payment response: %w", err)
	}
	if !parsed.Success || parsed.QRCode == "" {
		c.log.Warn("dana payment rejected by gateway",
			zap.String("partner_reference_no", req.PartnerReferenceNo),
			zap.String("code", parsed.Code),
			zap.String("message", parsed.Message),
		)
		return nil, &GatewayError{
			Status:    resp.StatusCode,
			Code:      parsed.Code,
			Message:   parsed.Message,
			Retryable: false,
		}
	}

	return &parsed, nil
}

// FormatAmount renders minor-unit rupiah as the 2-decimal string the gateway
// expects, e.g. 150000 -> "150000.00".
func FormatAmount(amountIDR int64) string {
	return fmt.Sprintf("%d.00", amountIDR)
}

func classify(status int, raw []byte) error {
	var parsed struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &parsed)

	return &GatewayError{
		Status:    status,
		Code:      parsed.Code,
		Message:   parsed.Message,
		Retryable: status >= 500 || status == http.StatusTooManyRequests,
	}
}

package config

import (
	"os"
	"time"
)

type DanaConfig struct {
	BaseURL       string
	MerchantID    string
	StoreID       string
	PartnerID     string
	ChannelID     string
	ClientKey     string
	ClientSecret  string // HMAC key for request signing and webhook verification
	PrivateKeyPEM string // RSA key for B2B access token acquisition
	Origin        string
	Timeout       time.Duration
}

// Configured reports whether every credential the gateway needs is present.
// Missing credentials make the payment endpoints fail closed with 503.
func (c DanaConfig) Configured() bool {
	return c.BaseURL != "" &&
		c.MerchantID != "" &&
		c.PartnerID != "" &&
		c.ChannelID != "" &&
		c.ClientKey != "" &&
		c.ClientSecret != "" &&
		c.PrivateKeyPEM != ""
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

func (c StripeConfig) Configured() bool {
	return c.SecretKey != "" && c.WebhookSecret != ""
}

type Config struct {
	Dana   DanaConfig
	Stripe StripeConfig
}

func LoadConfig() *Config {
	cfg := &Config{}

	cfg.Dana.BaseURL = os.Getenv("DANA_BASE_URL")
	cfg.Dana.MerchantID = os.Getenv("DANA_MERCHANT_ID")
	cfg.Dana.StoreID = os.Getenv("DANA_STORE_ID")
	cfg.Dana.PartnerID = os.Getenv("DANA_PARTNER_ID")
	cfg.Dana.ChannelID = os.Getenv("DANA_CHANNEL_ID")
	cfg.Dana.ClientKey = os.Getenv("DANA_CLIENT_KEY")
	cfg.Dana.ClientSecret = os.Getenv("DANA_CLIENT_SECRET")
	cfg.Dana.PrivateKeyPEM = os.Getenv("DANA_PRIVATE_KEY")
	cfg.Dana.Origin = os.Getenv("DANA_ORIGIN")
	cfg.Dana.Timeout = 15 * time.Second

	cfg.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.Stripe.WebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	cfg.Stripe.SuccessURL = os.Getenv("STRIPE_SUCCESS_URL")
	cfg.Stripe.CancelURL = os.Getenv("STRIPE_CANCEL_URL")

	return cfg
}

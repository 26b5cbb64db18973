package payment

import (
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"

	"github.com/adgenix/adgenix-backend/internal/config"
)

type StripeService struct {
	cfg config.StripeConfig
}

func NewStripeService(cfg config.StripeConfig) *StripeService {
	stripe.Key = cfg.SecretKey
	return &StripeService{
		cfg: cfg,
	}
}

func (s *StripeService) Configured() bool {
	return s.cfg.Configured()
}

// CreateCheckoutSession builds a hosted checkout for a token package. The
// webhook reads ClientReferenceID back as the user id and metadata.packageId
// as the package, so both must be set here.
func (s *StripeService) CreateCheckoutSession(userEmail string, userID uint, packageID uint, packageName string, priceIDR int64) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		CustomerEmail:     &userEmail,
		ClientReferenceID: stripe.String(fmt.Sprintf("%d", userID)),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyIDR)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(packageName),
					},
					// Stripe treats IDR as a zero-decimal-like currency
					// charged in whole rupiah times 100
					UnitAmount: stripe.Int64(priceIDR * 100),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
	}

	params.AddMetadata("packageId", fmt.Sprintf("%d", packageID))

	return session.New(params)
}

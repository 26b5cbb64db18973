package email

import (
	"fmt"
	"os"

	"github.com/resendlabs/resend-go"
	"go.uber.org/zap"
)

type EmailService struct {
	client   *resend.Client
	from     string
	fromName string
	log      *zap.Logger
}

func NewEmailService(log *zap.Logger) *EmailService {
	return &EmailService{
		client:   resend.NewClient(os.Getenv("RESEND_API_KEY")),
		from:     os.Getenv("EMAIL_FROM_ADDRESS"),
		fromName: os.Getenv("EMAIL_FROM_NAME"),
		log:      log,
	}
}

// SendPurchaseReceipt mails a receipt after a completed purchase. Best-effort:
// callers log failures and move on, a receipt must never block reconciliation.
func (s *EmailService) SendPurchaseReceipt(email, packageName string, tokens int, orderID string) error {
	if os.Getenv("RESEND_API_KEY") == "" {
		s.log.Debug("resend not configured, skipping receipt", zap.String("order_id", orderID))
		return nil
	}

	html := fmt.Sprintf(
		"<p>Thanks for your purchase!</p><p><b>%s</b>: %d tokens have been added to your account.</p><p>Order reference: %s</p>",
		packageName, tokens, orderID,
	)

	params := &resend.SendEmailRequest{
		From:    s.fromName + " <" + s.from + ">",
		To:      []string{email},
		Subject: "Your token purchase - Adgenix",
		Html:    html,
	}

	resp, err := s.client.Emails.Send(params)
	if err != nil {
		return err
	}

	s.log.Info("purchase receipt sent",
		zap.String("email", email),
		zap.String("order_id", orderID),
		zap.String("resend_id", resp.Id),
	)
	return nil
}

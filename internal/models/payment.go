package models

// CreatePaymentRequest is the body of POST /api/payments/create.
type CreatePaymentRequest struct {
	Email     string `json:"email" validate:"required,email"`
	UserID    uint   `json:"userId" validate:"required"`
	PackageID uint   `json:"packageId" validate:"required"`
}

// PaymentResult is what the client needs to render a QRIS payment.
type PaymentResult struct {
	OrderID     string `json:"orderId"`
	QRCode      string `json:"qrCode"`
	ExpireTime  string `json:"expireTime,omitempty"`
	ReferenceID string `json:"referenceId,omitempty"`
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// DanaNotification is the asynchronous payment-status callback body.
// latestTransactionStatus "00" means the payment succeeded.
type DanaNotification struct {
	OriginalPartnerReferenceNo string            `json:"originalPartnerReferenceNo"`
	OriginalReferenceNo        string            `json:"originalReferenceNo"`
	MerchantID                 string            `json:"merchantId"`
	Amount                     DanaAmount        `json:"amount"`
	LatestTransactionStatus    string            `json:"latestTransactionStatus"`
	TransactionStatusDesc      string            `json:"transactionStatusDesc"`
	FinishedTime               string            `json:"finishedTime"`
	AdditionalInfo             map[string]string `json:"additionalInfo"`
}

type DanaAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// DanaAck is the only body the gateway accepts as "delivered". Anything else
// is treated as a failure and retried indefinitely.
type DanaAck struct {
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
}

func NewDanaAck() DanaAck {
	return DanaAck{ResponseCode: "2005600", ResponseMessage: "Successful"}
}

// RefundNotification is the refund callback body.
type RefundNotification struct {
	RefundID      string         `json:"refund_id"`
	TransactionID string         `json:"transaction_id"`
	Status        string         `json:"status"`
	Amount        string         `json:"amount"`
	Metadata      RefundMetadata `json:"metadata"`
}

type RefundMetadata struct {
	UserID    uint `json:"userId,string"`
	PackageID uint `json:"packageId,string"`
}

type RefundAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TokenBalance is returned by GET /api/tokens/balance.
type TokenBalance struct {
	Tokens           int     `json:"tokens"`
	SpendableTokens  int     `json:"spendable_tokens"`
	Tier             Tier    `json:"tier"`
	TokensExpiryDate *string `json:"tokens_expiry_date"`
}

// SpendTokensRequest is the body of POST /api/tokens/spend, issued by the
// generation pipeline per AI call.
type SpendTokensRequest struct {
	Amount int    `json:"amount" validate:"required,gt=0"`
	Reason string `json:"reason"`
}

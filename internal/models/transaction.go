package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

type PaymentProvider string

const (
	ProviderStripe PaymentProvider = "STRIPE"
	ProviderDana   PaymentProvider = "DANA"
)

// Metadata holds gateway correlation fields (reference ids, raw QR payload,
// payment method, finish time). Stored as a JSON column.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}
	if len(b) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(b, m)
}

// Transaction is one payment attempt. Rows are created when a gateway accepts
// a payment request, mutated only by webhook reconciliation, and never deleted.
type Transaction struct {
	ID                 uint              `json:"id" gorm:"primaryKey"`
	UserID             uint              `json:"user_id" gorm:"not null;index"`
	PackageID          uint              `json:"package_id" gorm:"not null"`
	AmountIDR          int64             `json:"amount_idr" gorm:"not null"`
	Status             TransactionStatus `json:"status" gorm:"not null;default:'pending'"`
	Provider           PaymentProvider   `json:"provider" gorm:"not null"`
	PartnerReferenceNo string            `json:"partner_reference_no" gorm:"unique;not null"`
	Metadata           Metadata          `json:"metadata" gorm:"type:jsonb"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

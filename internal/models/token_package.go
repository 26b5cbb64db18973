package models

import "time"

// Tier is the package bracket mirrored onto the user account after purchase.
type Tier string

const (
	TierPioneer   Tier = "pioneer"
	TierVoyager   Tier = "voyager"
	TierDominator Tier = "dominator"
	TierOverlord  Tier = "overlord"
)

type TokenPackage struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"not null"`
	Description     string    `json:"description"`
	Tokens          int       `json:"tokens" gorm:"not null"`
	PriceIDR        int64     `json:"price_idr" gorm:"not null"` // whole rupiah
	Tier            Tier      `json:"tier" gorm:"not null"`
	DiscountPercent int       `json:"discount_percent" gorm:"default:0"`
	IsActive        bool      `json:"is_active" gorm:"default:true"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FinalPriceIDR applies the package discount to the list price.
func (p *TokenPackage) FinalPriceIDR() int64 {
	if p.DiscountPercent <= 0 {
		return p.PriceIDR
	}
	return p.PriceIDR - p.PriceIDR*int64(p.DiscountPercent)/100
}

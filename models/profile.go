package models

import (
	"time"
)

const (
	WalletTypeSmartWallet = "coinbase_smart_wallet"
	WalletTypeExternal    = "external"
	WalletTypeConnected   = "connected"
)

// Profile is a platform user. The id comes from the auth provider.
type Profile struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	FullName       string    `gorm:"size:120" json:"full_name"`
	AvatarURL      string    `gorm:"size:255" json:"avatar_url,omitempty"`
	Bio            string    `gorm:"size:500" json:"bio,omitempty"`
	WalletAddress  *string   `gorm:"size:42;index" json:"wallet_address,omitempty"`
	WalletType     *string   `gorm:"size:40" json:"wallet_type,omitempty"`
	WalletVerified bool      `gorm:"default:false" json:"wallet_verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

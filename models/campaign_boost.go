package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BoostVisibility = "visibility"
	BoostFeatured   = "featured"
	BoostPremium    = "premium"
)

// CampaignBoost is a paid visibility boost
type CampaignBoost struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	CampaignID    string    `gorm:"size:36;index;not null" json:"campaign_id"`
	BoostType     string    `gorm:"size:20" json:"boost_type"`
	DurationHours int       `json:"duration_hours"`
	Status        string    `gorm:"size:20" json:"status"`
	PaymentProof  string    `gorm:"type:text" json:"payment_proof"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `gorm:"index" json:"expires_at"`
}

func (b *CampaignBoost) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

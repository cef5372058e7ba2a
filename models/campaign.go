package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CampaignStatusActive    = "active"
	CampaignStatusCompleted = "completed"
	CampaignStatusCancelled = "cancelled"

	PaymentMethodX402USDC = "x402_usdc"
)

// Campaign is a fundraising campaign
type Campaign struct {
	ID             string           `gorm:"primaryKey;size:36" json:"id"`
	Title          string           `gorm:"size:200;not null" json:"title"`
	Description    string           `gorm:"type:text" json:"description"`
	GoalAmount     decimal.Decimal  `gorm:"type:decimal(20,6);not null" json:"goal_amount"`
	CurrentAmount  decimal.Decimal  `gorm:"type:decimal(20,6);not null;default:0" json:"current_amount"`
	ImageURL       string           `gorm:"size:255" json:"image_url,omitempty"`
	Category       string           `gorm:"size:50;index" json:"category"`
	WalletAddress  string           `gorm:"size:42" json:"wallet_address,omitempty"`
	PaymentMethod  string           `gorm:"size:20" json:"payment_method"`
	Status         string           `gorm:"size:20;index" json:"status"` // active, completed, cancelled
	CreatorID      string           `gorm:"size:64;index" json:"creator_id"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	IsBoosted      bool             `gorm:"default:false" json:"is_boosted"`
	BoostType      string           `gorm:"size:20" json:"boost_type,omitempty"`
	BoostExpiresAt *time.Time       `json:"boost_expires_at,omitempty"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Creator        *Profile         `gorm:"foreignKey:CreatorID" json:"profiles,omitempty"`
	Contributions  []Contribution   `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE" json:"contributions,omitempty"`
	Updates        []CampaignUpdate `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE" json:"campaign_updates,omitempty"`
}

func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CompletionRate is current/goal as a percentage
func (c *Campaign) CompletionRate() float64 {
	if !c.GoalAmount.IsPositive() {
		return 0
	}
	return c.CurrentAmount.Div(c.GoalAmount).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// CampaignUpdate is a progress post by the campaign creator
type CampaignUpdate struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	CampaignID string    `gorm:"size:36;index;not null" json:"campaign_id"`
	Title      string    `gorm:"size:200" json:"title"`
	Content    string    `gorm:"type:text" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *CampaignUpdate) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

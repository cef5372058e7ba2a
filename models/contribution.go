package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Contribution is one accepted payment towards a campaign. At most one per transaction hash.
type Contribution struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	CampaignID      string          `gorm:"size:36;index;not null" json:"campaign_id"`
	ContributorID   string          `gorm:"size:64;index" json:"contributor_id,omitempty"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"amount"`
	Message         *string         `gorm:"size:500" json:"message,omitempty"`
	Anonymous       bool            `gorm:"default:false" json:"anonymous"`
	TransactionHash *string         `gorm:"size:66;uniqueIndex" json:"transaction_hash,omitempty"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	Contributor     *Profile        `gorm:"foreignKey:ContributorID" json:"profiles,omitempty"`
	Campaign        *Campaign       `gorm:"foreignKey:CampaignID" json:"campaigns,omitempty"`
}

func (c *Contribution) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

package repository

import (
	"context"
	"time"

	"github.com/thulafunds/crowdfund/models"
	"gorm.io/gorm"
)

// CreateBoost stores the boost and flags the campaign as boosted until expiresAt
func (r *Repository) CreateBoost(ctx context.Context, boost *models.CampaignBoost, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(boost).Error; err != nil {
			return wrap("create boost", err)
		}
		res := tx.Model(&models.Campaign{}).
			Where("id = ?", boost.CampaignID).
			Updates(map[string]interface{}{
				"is_boosted":       true,
				"boost_type":       boost.BoostType,
				"boost_expires_at": expiresAt,
			})
		if res.Error != nil {
			return wrap("mark campaign boosted", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListBoosts returns a campaign's boosts, newest first
func (r *Repository) ListBoosts(ctx context.Context, campaignID string) ([]models.CampaignBoost, error) {
	var boosts []models.CampaignBoost
	err := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID).Order("created_at DESC").Find(&boosts).Error
	if err != nil {
		return nil, wrap("list boosts", err)
	}
	return boosts, nil
}

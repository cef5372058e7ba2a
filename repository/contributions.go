package repository

import (
	"context"

	"github.com/thulafunds/crowdfund/models"
	"gorm.io/gorm"
)

// CreateContribution inserts the contribution and bumps the campaign total in one transaction
func (r *Repository) CreateContribution(ctx context.Context, contribution *models.Contribution) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(contribution).Error; err != nil {
			return wrap("create contribution", err)
		}
		res := tx.Model(&models.Campaign{}).
			Where("id = ?", contribution.CampaignID).
			Update("current_amount", gorm.Expr("current_amount + ?", contribution.Amount))
		if res.Error != nil {
			return wrap("increment campaign amount", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// FindContributionByTxHash returns the contribution paid with txHash
func (r *Repository) FindContributionByTxHash(ctx context.Context, txHash string) (*models.Contribution, error) {
	var contribution models.Contribution
	if err := r.db.WithContext(ctx).Where("transaction_hash = ?", txHash).First(&contribution).Error; err != nil {
		return nil, wrap("find contribution", err)
	}
	return &contribution, nil
}

// ListContributionsByContributor returns a user's history, newest first
func (r *Repository) ListContributionsByContributor(ctx context.Context, contributorID string, limit int) ([]models.Contribution, error) {
	query := r.db.WithContext(ctx).
		Preload("Campaign").
		Where("contributor_id = ?", contributorID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var contributions []models.Contribution
	if err := query.Find(&contributions).Error; err != nil {
		return nil, wrap("list contributions", err)
	}
	return contributions, nil
}

// ListContributionsReceived returns contributions made to campaigns created by creatorID
func (r *Repository) ListContributionsReceived(ctx context.Context, creatorID string, limit int) ([]models.Contribution, error) {
	query := r.db.WithContext(ctx).
		Preload("Campaign").
		Preload("Contributor").
		Where("campaign_id IN (?)", r.db.Model(&models.Campaign{}).Select("id").Where("creator_id = ?", creatorID)).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var contributions []models.Contribution
	if err := query.Find(&contributions).Error; err != nil {
		return nil, wrap("list received contributions", err)
	}
	return contributions, nil
}

// ListRecentContributions feeds the live feed's initial snapshot
func (r *Repository) ListRecentContributions(ctx context.Context, limit int) ([]models.Contribution, error) {
	var contributions []models.Contribution
	err := r.db.WithContext(ctx).
		Preload("Campaign").
		Preload("Contributor").
		Order("created_at DESC").
		Limit(limit).
		Find(&contributions).Error
	if err != nil {
		return nil, wrap("list recent contributions", err)
	}
	return contributions, nil
}

// ListContributionsByCampaign returns every contribution to a campaign, oldest first
func (r *Repository) ListContributionsByCampaign(ctx context.Context, campaignID string) ([]models.Contribution, error) {
	var contributions []models.Contribution
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&contributions).Error
	if err != nil {
		return nil, wrap("list campaign contributions", err)
	}
	return contributions, nil
}

package repository

import (
	"context"
	"strings"
	"time"

	"github.com/thulafunds/crowdfund/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SortRecent         = "recent"
	SortFunded         = "funded"
	SortNearlyComplete = "nearly_complete"
	SortTrending       = "trending"
)

// CampaignFilter narrows ListCampaigns. Zero values mean "no filter".
type CampaignFilter struct {
	Category string
	Search   string
	Sort     string
	Limit    int
	Offset   int
	Now      time.Time
}

// CreateCampaign inserts a campaign
func (r *Repository) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	return wrap("create campaign", r.db.WithContext(ctx).Create(campaign).Error)
}

// GetCampaign loads a campaign in any status without associations
func (r *Repository) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&campaign).Error; err != nil {
		return nil, wrap("get campaign", err)
	}
	return &campaign, nil
}

// GetCampaignDetail loads an active campaign with creator, contributions and updates
func (r *Repository) GetCampaignDetail(ctx context.Context, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Contributions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Contributions.Contributor").
		Preload("Updates", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ? AND status = ?", id, models.CampaignStatusActive).
		First(&campaign).Error
	if err != nil {
		return nil, wrap("get campaign detail", err)
	}
	return &campaign, nil
}

// ListCampaigns returns active campaigns matching filter
func (r *Repository) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]models.Campaign, error) {
	query := r.db.WithContext(ctx).
		Preload("Creator").
		Where("status = ?", models.CampaignStatusActive)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	switch filter.Sort {
	case SortFunded:
		query = query.Order("current_amount DESC")
	case SortNearlyComplete:
		query = query.Order("current_amount * 1.0 / goal_amount DESC")
	case SortTrending:
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		query = query.Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL:                "CASE WHEN is_boosted = ? AND boost_expires_at > ? THEN 0 ELSE 1 END, created_at DESC",
				Vars:               []interface{}{true, now},
				WithoutParentheses: true,
			},
		})
	default:
		query = query.Order("created_at DESC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var campaigns []models.Campaign
	if err := query.Find(&campaigns).Error; err != nil {
		return nil, wrap("list campaigns", err)
	}
	return campaigns, nil
}

// ListActiveCampaignsWithContributions feeds the premium insights
func (r *Repository) ListActiveCampaignsWithContributions(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Contributions").
		Where("status = ?", models.CampaignStatusActive).
		Order("created_at DESC").
		Find(&campaigns).Error
	if err != nil {
		return nil, wrap("list active campaigns", err)
	}
	return campaigns, nil
}

// ListCampaignsCreatedSince returns campaigns of every status created at or after since
func (r *Repository) ListCampaignsCreatedSince(ctx context.Context, since time.Time) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	if err := r.db.WithContext(ctx).Where("created_at >= ?", since).Find(&campaigns).Error; err != nil {
		return nil, wrap("list campaigns since", err)
	}
	return campaigns, nil
}

// ListAllCampaigns is used by the wallet audit and success factors
func (r *Repository) ListAllCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&campaigns).Error; err != nil {
		return nil, wrap("list all campaigns", err)
	}
	return campaigns, nil
}

// ListCampaignsByCreator returns a creator's campaigns, newest first
func (r *Repository) ListCampaignsByCreator(ctx context.Context, creatorID string, limit int) ([]models.Campaign, error) {
	query := r.db.WithContext(ctx).Where("creator_id = ?", creatorID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var campaigns []models.Campaign
	if err := query.Find(&campaigns).Error; err != nil {
		return nil, wrap("list campaigns by creator", err)
	}
	return campaigns, nil
}

// UpdateCampaignByOwner applies updates only when ownerID created the campaign
func (r *Repository) UpdateCampaignByOwner(ctx context.Context, id, ownerID string, updates map[string]interface{}) (*models.Campaign, error) {
	res := r.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ? AND creator_id = ?", id, ownerID).
		Updates(updates)
	if res.Error != nil {
		return nil, wrap("update campaign", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetCampaign(ctx, id)
}

// DeleteCampaignByOwner removes the campaign and its dependent rows
func (r *Repository) DeleteCampaignByOwner(ctx context.Context, id, ownerID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var campaign models.Campaign
		if err := tx.Where("id = ? AND creator_id = ?", id, ownerID).First(&campaign).Error; err != nil {
			return wrap("delete campaign", err)
		}
		for _, child := range []interface{}{&models.Contribution{}, &models.CampaignUpdate{}, &models.CampaignBoost{}} {
			if err := tx.Where("campaign_id = ?", id).Delete(child).Error; err != nil {
				return wrap("delete campaign children", err)
			}
		}
		return wrap("delete campaign", tx.Delete(&campaign).Error)
	})
}

// AddCampaignUpdate inserts a creator post
func (r *Repository) AddCampaignUpdate(ctx context.Context, update *models.CampaignUpdate) error {
	return wrap("add campaign update", r.db.WithContext(ctx).Create(update).Error)
}

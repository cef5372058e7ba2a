package repository

import (
	"context"
	"errors"

	"github.com/thulafunds/crowdfund/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetProfile loads a profile by user id
func (r *Repository) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, wrap("get profile", err)
	}
	return &profile, nil
}

// EnsureProfile creates an empty profile for id when none exists
func (r *Repository) EnsureProfile(ctx context.Context, id, fullName string) (*models.Profile, error) {
	profile := models.Profile{ID: id, FullName: fullName}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&profile).Error
	if err != nil {
		return nil, wrap("ensure profile", err)
	}
	return r.GetProfile(ctx, id)
}

// UpsertWallet sets the wallet columns, creating the profile if needed
func (r *Repository) UpsertWallet(ctx context.Context, id, address, walletType string, verified bool) (*models.Profile, error) {
	profile := models.Profile{
		ID:             id,
		WalletAddress:  &address,
		WalletType:     &walletType,
		WalletVerified: verified,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"wallet_address", "wallet_type", "wallet_verified", "updated_at"}),
		}).
		Create(&profile).Error
	if err != nil {
		return nil, wrap("upsert wallet", err)
	}
	return r.GetProfile(ctx, id)
}

// MarkWalletVerified flags the stored wallet as verified when it matches address
func (r *Repository) MarkWalletVerified(ctx context.Context, id, address, walletType string) (*models.Profile, error) {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND wallet_address = ?", id, address).
		Updates(map[string]interface{}{"wallet_verified": true, "wallet_type": walletType})
	if res.Error != nil {
		return nil, wrap("verify wallet", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetProfile(ctx, id)
}

// ClearWallet unlinks the profile wallet
func (r *Repository) ClearWallet(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"wallet_address": nil, "wallet_type": nil, "wallet_verified": false})
	if res.Error != nil {
		return wrap("clear wallet", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsNotFound is a convenience for callers outside the package
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/repository"
	"github.com/thulafunds/crowdfund/utils"
)

const (
	creatorWallet = "0x1234567890abcdef1234567890abcdef12345678"
	otherWallet   = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
)

func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	db, err := utils.OpenMemoryDatabase(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.New(db)
}

func mustCampaign(t *testing.T, repo *repository.Repository, creatorID, title, category, goal string) *models.Campaign {
	t.Helper()
	ctx := context.Background()
	_, err := repo.EnsureProfile(ctx, creatorID, "Creator "+creatorID)
	require.NoError(t, err)
	c := &models.Campaign{
		Title:         title,
		Description:   title + " description",
		GoalAmount:    decimal.RequireFromString(goal),
		CurrentAmount: decimal.Zero,
		Category:      category,
		WalletAddress: creatorWallet,
		PaymentMethod: models.PaymentMethodX402USDC,
		Status:        models.CampaignStatusActive,
		CreatorID:     creatorID,
	}
	require.NoError(t, repo.CreateCampaign(ctx, c))
	return c
}

func mustSession(t *testing.T, repo *repository.Repository, hash, amount, endpoint string) {
	t.Helper()
	require.NoError(t, repo.CreateSession(context.Background(), &models.PaymentSession{
		TxHash:      hash,
		Amount:      decimal.RequireFromString(amount),
		FromAddress: otherWallet,
		Endpoint:    endpoint,
		Status:      models.PaymentStatusCompleted,
		CreatedAt:   time.Now().Add(-time.Minute),
	}))
}

func requireServiceError(t *testing.T, err error, status int, message string) {
	t.Helper()
	se, ok := AsServiceError(err)
	require.True(t, ok, "expected ServiceError, got %v", err)
	require.Equal(t, status, se.Status)
	require.Equal(t, message, se.Message)
}

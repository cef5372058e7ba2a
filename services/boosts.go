package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/repository"
)

const (
	DefaultBoostHours = 24
	// MaxBoostHours caps a single boost at 30 days
	MaxBoostHours = 720
)

// BoostRequest is the body of POST /api/campaigns/boost
type BoostRequest struct {
	CampaignID string `json:"campaignId"`
	BoostType  string `json:"boostType"`
	Duration   int    `json:"duration"`
}

// BoostEffects describes what a boost tier buys
type BoostEffects struct {
	VisibilityIncrease   int  `json:"visibility_increase"`
	FeaturedPlacement    bool `json:"featured_placement"`
	SocialMediaPromotion bool `json:"social_media_promotion"`
	EmailNewsletter      bool `json:"email_newsletter"`
	LivePaymentVerified  bool `json:"live_payment_verified"`
}

// EffectsFor returns the effects of boostType, false when the type is unknown
func EffectsFor(boostType string) (BoostEffects, bool) {
	effects := BoostEffects{LivePaymentVerified: true}
	switch boostType {
	case models.BoostVisibility:
		effects.VisibilityIncrease = 200
	case models.BoostFeatured:
		effects.VisibilityIncrease = 500
		effects.FeaturedPlacement = true
	case models.BoostPremium:
		effects.VisibilityIncrease = 1000
		effects.FeaturedPlacement = true
		effects.SocialMediaPromotion = true
		effects.EmailNewsletter = true
	default:
		return effects, false
	}
	return effects, true
}

// BoostResult is returned after a successful boost
type BoostResult struct {
	Boost   *models.CampaignBoost `json:"boost"`
	Effects BoostEffects          `json:"effects"`
	Message string                `json:"message"`
}

// BoostService applies paid visibility boosts
type BoostService struct {
	repo *repository.Repository
	now  func() time.Time
}

// NewBoostService creates a BoostService
func NewBoostService(repo *repository.Repository) *BoostService {
	return &BoostService{repo: repo, now: time.Now}
}

// BoostCampaign applies a paid boost. proof must come from a successful session verification.
func (bs *BoostService) BoostCampaign(ctx context.Context, req BoostRequest, proof *PaymentProof) (*BoostResult, error) {
	req.CampaignID = strings.TrimSpace(req.CampaignID)
	req.BoostType = strings.TrimSpace(req.BoostType)
	if req.CampaignID == "" || req.BoostType == "" {
		return nil, newError(http.StatusBadRequest, "Campaign ID and boost type are required")
	}
	if proof == nil || !proof.Verified {
		return nil, newError(http.StatusPaymentRequired, "Payment verification required")
	}
	effects, ok := EffectsFor(req.BoostType)
	if !ok {
		return nil, newError(http.StatusBadRequest, "Invalid boost type")
	}
	if req.Duration < 0 {
		return nil, newError(http.StatusBadRequest, "Duration must be positive")
	}
	if req.Duration > MaxBoostHours {
		return nil, newError(http.StatusBadRequest, "Invalid duration")
	}
	if req.Duration == 0 {
		req.Duration = DefaultBoostHours
	}

	if _, err := bs.repo.GetCampaign(ctx, req.CampaignID); err != nil {
		return nil, notFoundOr(err, "Campaign not found", "Failed to boost campaign")
	}

	proofJSON, err := json.Marshal(proof)
	if err != nil {
		return nil, internalError("Failed to boost campaign", err)
	}

	now := bs.now()
	expiresAt := now.Add(time.Duration(req.Duration) * time.Hour)
	boost := &models.CampaignBoost{
		CampaignID:    req.CampaignID,
		BoostType:     req.BoostType,
		DurationHours: req.Duration,
		Status:        "active",
		PaymentProof:  string(proofJSON),
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}
	if err := bs.repo.CreateBoost(ctx, boost, expiresAt); err != nil {
		return nil, notFoundOr(err, "Campaign not found", "Failed to boost campaign")
	}

	log.Info().
		Str("campaign_id", req.CampaignID).
		Str("boost_type", req.BoostType).
		Int("hours", req.Duration).
		Str("tx_hash", proof.TxHash).
		Msg("campaign boosted")

	return &BoostResult{
		Boost:   boost,
		Effects: effects,
		Message: fmt.Sprintf("Campaign boosted successfully with %s for %d hours", req.BoostType, req.Duration),
	}, nil
}

package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/repository"
)

// FeedItem is a contribution as shown on the live feed
type FeedItem struct {
	ID              string          `json:"id"`
	CampaignID      string          `json:"campaign_id"`
	CampaignTitle   string          `json:"campaign_title"`
	ContributorName string          `json:"contributor_name"`
	Amount          decimal.Decimal `json:"amount"`
	Message         *string         `json:"message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// FeedPublisher receives every accepted contribution
type FeedPublisher interface {
	PublishContribution(item FeedItem)
}

// NewFeedItem masks anonymous contributors
func NewFeedItem(c models.Contribution) FeedItem {
	item := FeedItem{
		ID:              c.ID,
		CampaignID:      c.CampaignID,
		ContributorName: "Anonymous",
		Amount:          c.Amount,
		Message:         c.Message,
		CreatedAt:       c.CreatedAt,
	}
	if c.Campaign != nil {
		item.CampaignTitle = c.Campaign.Title
	}
	if !c.Anonymous && c.Contributor != nil && c.Contributor.FullName != "" {
		item.ContributorName = c.Contributor.FullName
	}
	return item
}

// ContributionInput is the body of POST /api/campaigns/:id/contribute
type ContributionInput struct {
	Message   *string `json:"message"`
	Anonymous bool    `json:"anonymous"`
}

// CampaignSummary is the short campaign shape returned by the contribute endpoints
type CampaignSummary struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	GoalAmount    decimal.Decimal `json:"goal_amount"`
}

// PaymentEcho is the payment summary returned with a contribution
type PaymentEcho struct {
	Amount    decimal.Decimal `json:"amount"`
	TxHash    string          `json:"txHash"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// ContributionVerification is the result of a verify-only contribution check
type ContributionVerification struct {
	Campaign CampaignSummary `json:"campaign"`
	Payment  PaymentEcho     `json:"payment"`
}

// ContributionService records contributions and feeds the live stream
type ContributionService struct {
	repo *repository.Repository
	feed FeedPublisher
}

// NewContributionService creates a ContributionService
func NewContributionService(repo *repository.Repository) *ContributionService {
	return &ContributionService{repo: repo}
}

// SetFeed attaches the live feed. Nil disables publishing.
func (s *ContributionService) SetFeed(feed FeedPublisher) {
	s.feed = feed
}

// matchSession checks the header claim against a stored session with the same hash, amount and endpoint
func (s *ContributionService) matchSession(ctx context.Context, header string) (*PaymentClaim, *models.PaymentSession, error) {
	if strings.TrimSpace(header) == "" {
		return nil, nil, newError(http.StatusUnauthorized, "No payment session provided")
	}
	claim, err := ParseClaim(header)
	if err != nil {
		return nil, nil, newError(http.StatusBadRequest, "Invalid payment session format")
	}
	if claim.TxHash == "" || claim.Endpoint == "" || !claim.Amount.IsPositive() {
		return nil, nil, newError(http.StatusBadRequest, "Missing payment session data")
	}

	session, err := s.repo.FindSessionByTxHash(ctx, claim.TxHash)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, newError(http.StatusUnauthorized, "Payment session not verified")
		}
		return nil, nil, internalError("Failed to verify contribution", err)
	}
	if session.Endpoint != claim.Endpoint || !session.Amount.Equal(claim.Amount) {
		return nil, nil, newError(http.StatusUnauthorized, "Payment session not verified")
	}
	return claim, session, nil
}

// VerifyContribution confirms a session pays the campaign without recording anything
func (s *ContributionService) VerifyContribution(ctx context.Context, campaignID, header string) (*ContributionVerification, error) {
	claim, _, err := s.matchSession(ctx, header)
	if err != nil {
		return nil, err
	}

	campaign, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, notFoundOr(err, "Campaign not found", "Failed to verify contribution")
	}
	if campaign.WalletAddress != "" && !strings.EqualFold(strings.TrimSpace(claim.Recipient), campaign.WalletAddress) {
		return nil, newError(http.StatusBadRequest, "Payment recipient mismatch")
	}

	return &ContributionVerification{
		Campaign: summarize(campaign),
		Payment: PaymentEcho{
			Amount:    claim.Amount,
			TxHash:    claim.TxHash,
			Timestamp: claim.Timestamp,
		},
	}, nil
}

// Contribute records the contribution paid by the session. A hash already
// recorded returns the existing contribution with existing=true.
func (s *ContributionService) Contribute(ctx context.Context, userID, campaignID, header string, input ContributionInput) (contribution *models.Contribution, existing bool, err error) {
	claim, session, err := s.matchSession(ctx, header)
	if err != nil {
		return nil, false, err
	}
	if userID == "" {
		return nil, false, ErrUnauthenticated
	}

	campaign, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, false, notFoundOr(err, "Campaign not found", "Failed to create contribution")
	}

	if prior, err := s.findExisting(ctx, claim.TxHash, campaignID); prior != nil || err != nil {
		return prior, prior != nil, err
	}

	if _, err := s.repo.EnsureProfile(ctx, userID, "User"); err != nil {
		return nil, false, internalError("Failed to create contribution", err)
	}

	txHash := claim.TxHash
	var message *string
	if input.Message != nil {
		if m := strings.TrimSpace(*input.Message); m != "" {
			message = &m
		}
	}
	contribution = &models.Contribution{
		CampaignID:      campaignID,
		ContributorID:   userID,
		Amount:          session.Amount,
		Message:         message,
		Anonymous:       input.Anonymous,
		TransactionHash: &txHash,
	}
	if err := s.repo.CreateContribution(ctx, contribution); err != nil {
		if repository.IsUniqueViolation(err) {
			prior, findErr := s.findExisting(ctx, txHash, campaignID)
			if prior != nil || findErr != nil {
				return prior, prior != nil, findErr
			}
		}
		return nil, false, notFoundOr(err, "Campaign not found", "Failed to create contribution")
	}

	log.Info().
		Str("contribution_id", contribution.ID).
		Str("campaign_id", campaignID).
		Str("amount", contribution.Amount.String()).
		Str("tx_hash", txHash).
		Msg("contribution recorded")

	if s.feed != nil {
		contribution.Campaign = campaign
		if profile, err := s.repo.GetProfile(ctx, userID); err == nil {
			contribution.Contributor = profile
		}
		s.feed.PublishContribution(NewFeedItem(*contribution))
		contribution.Campaign = nil
		contribution.Contributor = nil
	}
	return contribution, false, nil
}

// findExisting returns the contribution already recorded for txHash, if any
func (s *ContributionService) findExisting(ctx context.Context, txHash, campaignID string) (*models.Contribution, error) {
	prior, err := s.repo.FindContributionByTxHash(ctx, txHash)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, internalError("Failed to create contribution", err)
	}
	if prior.CampaignID != campaignID {
		return nil, newError(http.StatusConflict, "Payment session already used for another campaign")
	}
	return prior, nil
}

// History lists the user's contributions, newest first
func (s *ContributionService) History(ctx context.Context, userID string) ([]models.Contribution, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	contributions, err := s.repo.ListContributionsByContributor(ctx, userID, 0)
	if err != nil {
		return nil, internalError("Failed to fetch contribution history", err)
	}
	return contributions, nil
}

// RecentFeed returns the latest contributions for a new feed subscriber
func (s *ContributionService) RecentFeed(ctx context.Context, limit int) ([]FeedItem, error) {
	contributions, err := s.repo.ListRecentContributions(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := make([]FeedItem, 0, len(contributions))
	for _, c := range contributions {
		items = append(items, NewFeedItem(c))
	}
	return items, nil
}

func summarize(c *models.Campaign) CampaignSummary {
	return CampaignSummary{
		ID:            c.ID,
		Title:         c.Title,
		CurrentAmount: c.CurrentAmount,
		GoalAmount:    c.GoalAmount,
	}
}

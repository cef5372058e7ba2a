package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/repository"
	"github.com/thulafunds/crowdfund/utils"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 10000
)

var (
	minGoal = decimal.NewFromInt(100)
	maxGoal = decimal.NewFromInt(1000000)
)

// CampaignInput is the create/update payload
type CampaignInput struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	GoalAmount    decimal.Decimal `json:"goalAmount"`
	Category      string          `json:"category"`
	ImageURL      string          `json:"imageUrl"`
	WalletAddress string          `json:"walletAddress"`
	EndDate       *time.Time      `json:"endDate,omitempty"`
}

// CampaignQuery is the list filter as received from the client
type CampaignQuery struct {
	Category string
	Search   string
	Sort     string
	Limit    int
	Page     int
}

// WalletAuditEntry is one line of the check-campaigns report
type WalletAuditEntry struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	WalletAddress string `json:"wallet_address"`
	Status        string `json:"status"`
	Valid         bool   `json:"valid"`
}

// WalletAudit is the check-campaigns report
type WalletAudit struct {
	Total   int                `json:"total"`
	Valid   int                `json:"valid"`
	Invalid int                `json:"invalid"`
	Entries []WalletAuditEntry `json:"entries"`
}

// CampaignService manages campaigns and their updates
type CampaignService struct {
	repo *repository.Repository
	now  func() time.Time
}

func NewCampaignService(repo *repository.Repository) *CampaignService {
	return &CampaignService{repo: repo, now: time.Now}
}

func validateCampaign(input *CampaignInput) *ServiceError {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	input.WalletAddress = strings.TrimSpace(input.WalletAddress)

	switch {
	case input.Title == "":
		return newError(http.StatusBadRequest, "Campaign title is required")
	case input.Description == "":
		return newError(http.StatusBadRequest, "Campaign description is required")
	case input.GoalAmount.IsZero():
		return newError(http.StatusBadRequest, "Goal amount is required")
	case input.Category == "":
		return newError(http.StatusBadRequest, "Category is required")
	case input.WalletAddress == "":
		return newError(http.StatusBadRequest, "Wallet address is required")
	case !utils.IsValidWalletAddress(input.WalletAddress):
		return newError(http.StatusBadRequest, "Invalid wallet address format")
	case input.GoalAmount.LessThan(minGoal) || input.GoalAmount.GreaterThan(maxGoal):
		return newError(http.StatusBadRequest, "Goal amount must be between $100 and $1,000,000")
	}
	return nil
}

// CreateCampaign validates the input and stores an active campaign owned by userID
func (cs *CampaignService) CreateCampaign(ctx context.Context, userID, fullName string, input CampaignInput) (*models.Campaign, error) {
	if userID == "" {
		return nil, newError(http.StatusUnauthorized, "You must be logged in to create a campaign")
	}
	if fullName == "" {
		fullName = "User"
	}
	if _, err := cs.repo.EnsureProfile(ctx, userID, fullName); err != nil {
		return nil, internalError("Failed to create user profile", err)
	}

	if verr := validateCampaign(&input); verr != nil {
		return nil, verr
	}

	wallet := utils.NormalizeWalletAddress(input.WalletAddress)
	campaign := &models.Campaign{
		Title:         input.Title,
		Description:   input.Description,
		GoalAmount:    input.GoalAmount,
		CurrentAmount: decimal.Zero,
		ImageURL:      strings.TrimSpace(input.ImageURL),
		Category:      input.Category,
		WalletAddress: wallet,
		PaymentMethod: models.PaymentMethodX402USDC,
		Status:        models.CampaignStatusActive,
		CreatorID:     userID,
		EndDate:       input.EndDate,
	}
	if err := cs.repo.CreateCampaign(ctx, campaign); err != nil {
		return nil, internalError("Failed to create campaign", err)
	}

	if _, err := cs.repo.UpsertWallet(ctx, userID, wallet, models.WalletTypeSmartWallet, true); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to update profile wallet")
	}

	log.Info().Str("campaign_id", campaign.ID).Str("creator_id", userID).Msg("campaign created")
	return campaign, nil
}

// UpdateCampaign changes the editable fields of a campaign owned by userID
func (cs *CampaignService) UpdateCampaign(ctx context.Context, userID, campaignID string, input CampaignInput) (*models.Campaign, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	updates := map[string]interface{}{}
	if title := strings.TrimSpace(input.Title); title != "" {
		updates["title"] = title
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		updates["description"] = desc
	}
	if !input.GoalAmount.IsZero() {
		if input.GoalAmount.LessThan(minGoal) || input.GoalAmount.GreaterThan(maxGoal) {
			return nil, newError(http.StatusBadRequest, "Goal amount must be between $100 and $1,000,000")
		}
		updates["goal_amount"] = input.GoalAmount
	}
	if category := strings.TrimSpace(input.Category); category != "" {
		updates["category"] = category
	}
	if input.ImageURL != "" {
		updates["image_url"] = strings.TrimSpace(input.ImageURL)
	}
	if input.EndDate != nil {
		updates["end_date"] = *input.EndDate
	}
	if len(updates) == 0 {
		return nil, newError(http.StatusBadRequest, "No fields to update")
	}
	updates["updated_at"] = cs.now()

	campaign, err := cs.repo.UpdateCampaignByOwner(ctx, campaignID, userID, updates)
	if err != nil {
		return nil, notFoundOr(err, "Campaign not found", "Failed to update campaign")
	}
	return campaign, nil
}

// DeleteCampaign removes an owned campaign with its children
func (cs *CampaignService) DeleteCampaign(ctx context.Context, userID, campaignID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if err := cs.repo.DeleteCampaignByOwner(ctx, campaignID, userID); err != nil {
		return notFoundOr(err, "Campaign not found", "Failed to delete campaign")
	}
	log.Info().Str("campaign_id", campaignID).Str("creator_id", userID).Msg("campaign deleted")
	return nil
}

// GetCampaign returns an active campaign with its creator, contributions and updates.
// Anonymous contributors are stripped before the campaign leaves the service.
func (cs *CampaignService) GetCampaign(ctx context.Context, campaignID string) (*models.Campaign, error) {
	campaign, err := cs.repo.GetCampaignDetail(ctx, campaignID)
	if err != nil {
		return nil, notFoundOr(err, "Campaign not found", "Failed to fetch campaign")
	}
	for i := range campaign.Contributions {
		if campaign.Contributions[i].Anonymous {
			campaign.Contributions[i].Contributor = nil
			campaign.Contributions[i].ContributorID = ""
		}
	}
	return campaign, nil
}

// ListCampaigns applies paging defaults and validates the sort
func (cs *CampaignService) ListCampaigns(ctx context.Context, q CampaignQuery) ([]models.Campaign, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		return nil, newError(http.StatusBadRequest, "Invalid page")
	}

	switch q.Sort {
	case "", repository.SortRecent, repository.SortFunded, repository.SortNearlyComplete, repository.SortTrending:
	default:
		return nil, newError(http.StatusBadRequest, "Invalid sort option")
	}

	campaigns, err := cs.repo.ListCampaigns(ctx, repository.CampaignFilter{
		Category: strings.TrimSpace(q.Category),
		Search:   q.Search,
		Sort:     q.Sort,
		Limit:    limit,
		Offset:   (page - 1) * limit,
		Now:      cs.now(),
	})
	if err != nil {
		return nil, internalError("Failed to fetch campaigns", err)
	}
	return campaigns, nil
}

// AddCampaignUpdate posts a progress update; only the creator may do so
func (cs *CampaignService) AddCampaignUpdate(ctx context.Context, userID, campaignID, title, content string) (*models.CampaignUpdate, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, newError(http.StatusBadRequest, "Title and content are required")
	}

	campaign, err := cs.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, notFoundOr(err, "Campaign not found", "Failed to fetch campaign")
	}
	if campaign.CreatorID != userID {
		return nil, newError(http.StatusNotFound, "Campaign not found")
	}

	update := &models.CampaignUpdate{CampaignID: campaignID, Title: title, Content: content}
	if err := cs.repo.AddCampaignUpdate(ctx, update); err != nil {
		return nil, internalError("Failed to add campaign update", err)
	}
	return update, nil
}

// WalletQRCode renders a PNG payment QR for the campaign's receiving wallet
func (cs *CampaignService) WalletQRCode(ctx context.Context, campaignID string, size int) ([]byte, error) {
	campaign, err := cs.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, notFoundOr(err, "Campaign not found", "Failed to fetch campaign")
	}
	if campaign.WalletAddress == "" {
		return nil, newError(http.StatusBadRequest, "Campaign has no wallet address")
	}
	png, err := utils.GenerateQRCode(utils.WalletPaymentURI(campaign.WalletAddress, utils.BaseChainID), size)
	if err != nil {
		return nil, internalError("Failed to generate QR code", err)
	}
	return png, nil
}

// CheckCampaigns audits the receiving wallet of every campaign
func (cs *CampaignService) CheckCampaigns(ctx context.Context) (*WalletAudit, error) {
	campaigns, err := cs.repo.ListAllCampaigns(ctx)
	if err != nil {
		return nil, internalError("Failed to fetch campaigns", err)
	}

	audit := &WalletAudit{Total: len(campaigns), Entries: make([]WalletAuditEntry, 0, len(campaigns))}
	for _, c := range campaigns {
		valid := utils.IsValidWalletAddress(c.WalletAddress)
		if valid {
			audit.Valid++
		} else {
			audit.Invalid++
		}
		audit.Entries = append(audit.Entries, WalletAuditEntry{
			ID:            c.ID,
			Title:         c.Title,
			WalletAddress: c.WalletAddress,
			Status:        c.Status,
			Valid:         valid,
		})
	}
	return audit, nil
}

package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/repository"
)

const dashboardRecentLimit = 5

// DashboardStats are a user's totals
type DashboardStats struct {
	ActiveCampaigns   int             `json:"active_campaigns"`
	TotalCampaigns    int             `json:"total_campaigns"`
	TotalRaised       decimal.Decimal `json:"total_raised"`
	TotalGoal         decimal.Decimal `json:"total_goal"`
	TotalContributed  decimal.Decimal `json:"total_contributed"`
	ContributionsMade int             `json:"contributions_made"`
}

// Dashboard is the body of GET /api/dashboard
type Dashboard struct {
	Stats                 DashboardStats        `json:"stats"`
	RecentCampaigns       []models.Campaign     `json:"recent_campaigns"`
	RecentContributions   []models.Contribution `json:"recent_contributions"`
	ReceivedContributions []FeedItem            `json:"received_contributions"`
}

// DashboardService assembles per-user dashboards
type DashboardService struct {
	repo *repository.Repository
}

func NewDashboardService(repo *repository.Repository) *DashboardService {
	return &DashboardService{repo: repo}
}

// Dashboard aggregates the user's campaigns and contributions
func (ds *DashboardService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	campaigns, err := ds.repo.ListCampaignsByCreator(ctx, userID, 0)
	if err != nil {
		return nil, internalError("Failed to load dashboard", err)
	}
	given, err := ds.repo.ListContributionsByContributor(ctx, userID, 0)
	if err != nil {
		return nil, internalError("Failed to load dashboard", err)
	}
	received, err := ds.repo.ListContributionsReceived(ctx, userID, dashboardRecentLimit)
	if err != nil {
		return nil, internalError("Failed to load dashboard", err)
	}

	stats := DashboardStats{
		TotalCampaigns:    len(campaigns),
		TotalRaised:       decimal.Zero,
		TotalGoal:         decimal.Zero,
		TotalContributed:  decimal.Zero,
		ContributionsMade: len(given),
	}
	for _, c := range campaigns {
		if c.Status == models.CampaignStatusActive {
			stats.ActiveCampaigns++
		}
		stats.TotalRaised = stats.TotalRaised.Add(c.CurrentAmount)
		stats.TotalGoal = stats.TotalGoal.Add(c.GoalAmount)
	}
	for _, c := range given {
		stats.TotalContributed = stats.TotalContributed.Add(c.Amount)
	}

	dash := &Dashboard{
		Stats:                 stats,
		RecentCampaigns:       campaigns,
		RecentContributions:   given,
		ReceivedContributions: make([]FeedItem, 0, len(received)),
	}
	if len(dash.RecentCampaigns) > dashboardRecentLimit {
		dash.RecentCampaigns = dash.RecentCampaigns[:dashboardRecentLimit]
	}
	if len(dash.RecentContributions) > dashboardRecentLimit {
		dash.RecentContributions = dash.RecentContributions[:dashboardRecentLimit]
	}
	for _, c := range received {
		dash.ReceivedContributions = append(dash.ReceivedContributions, NewFeedItem(c))
	}
	return dash, nil
}

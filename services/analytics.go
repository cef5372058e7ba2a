package services

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/repository"
)

const (
	networkDisplayName = "Base Mainnet"
	facilitatorURL     = "https://facilitator.x402.org"
	marketTrendWindow  = 30 * 24 * time.Hour
	momentumWindow     = 7 * 24 * time.Hour
	premiumCacheTTL    = 30 * time.Second
	premiumCacheKey    = "premium"

	// projections further out than ten years are dropped
	maxProjectionDays = 3650
)

var defaultCommonCategories = []string{"Technology", "Creative", "Community"}

type contributionPoint struct {
	amount        float64
	createdAt     time.Time
	contributorID string
}

func toPoints(contributions []models.Contribution) []contributionPoint {
	points := make([]contributionPoint, 0, len(contributions))
	for _, c := range contributions {
		points = append(points, contributionPoint{
			amount:        c.Amount.InexactFloat64(),
			createdAt:     c.CreatedAt,
			contributorID: c.ContributorID,
		})
	}
	return points
}

func sumAmounts(points []contributionPoint) float64 {
	var total float64
	for _, p := range points {
		total += p.amount
	}
	return total
}

func completionRate(current, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return current / goal * 100
}

func uniqueContributors(points []contributionPoint) int {
	seen := make(map[string]struct{}, len(points))
	for _, p := range points {
		seen[p.contributorID] = struct{}{}
	}
	return len(seen)
}

// momentumScore compares the last 7 days against everything older
func momentumScore(points []contributionPoint, now time.Time) float64 {
	cutoff := now.Add(-momentumWindow)
	var recent, older float64
	for _, p := range points {
		if p.createdAt.After(cutoff) {
			recent += p.amount
		} else {
			older += p.amount
		}
	}
	switch {
	case older > 0:
		return recent / older * 100
	case recent > 0:
		return 100
	default:
		return 0
	}
}

func trendingScore(createdAt time.Time, current, goal float64, count int, now time.Time) float64 {
	ageDays := math.Max(now.Sub(createdAt).Hours()/24, 1)
	velocity := float64(count) / ageDays
	return math.Min(100, velocity*30+completionRate(current, goal)*0.5+100/ageDays)
}

func successProbability(current, goal float64, points []contributionPoint) float64 {
	count := len(points)
	var avg float64
	if count > 0 {
		avg = sumAmounts(points) / float64(count)
	}
	p := completionRate(current, goal) * 0.6
	p += math.Min(float64(count)*2, 30)
	p += math.Min(avg/10, 10)
	return math.Min(100, math.Max(0, p))
}

// optimalContributionTime is the busiest UTC hour window
func optimalContributionTime(points []contributionPoint) string {
	var hours [24]int
	for _, p := range points {
		hours[p.createdAt.UTC().Hour()]++
	}
	best := 0
	for h := 1; h < 24; h++ {
		if hours[h] > hours[best] {
			best = h
		}
	}
	return fmt.Sprintf("%d:00 - %d:00", best, best+1)
}

func socialProofScore(points []contributionPoint) float64 {
	total := len(points)
	if total == 0 {
		return 0
	}
	unique := uniqueContributors(points)
	repeatRate := float64(total-unique) / float64(total)
	return math.Min(100, float64(unique)*2+repeatRate*50)
}

// growthRate compares the later half of contributions with the earlier half
func growthRate(points []contributionPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	sorted := make([]contributionPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].createdAt.Before(sorted[j].createdAt) })

	mid := len(sorted) / 2
	first := sumAmounts(sorted[:mid])
	second := sumAmounts(sorted[mid:])
	if first <= 0 {
		return 0
	}
	return (second - first) / first * 100
}

// Projection estimates when a campaign reaches its goal
type Projection struct {
	DaysRemaining int       `json:"days_remaining"`
	ProjectedDate time.Time `json:"projected_date"`
}

// projectedCompletion assumes the total so far was raised over 30 days
func projectedCompletion(current, goal float64, points []contributionPoint, now time.Time) *Projection {
	if len(points) == 0 {
		return nil
	}
	daily := sumAmounts(points) / 30
	if daily <= 0 {
		return nil
	}
	remaining := math.Ceil((goal - current) / daily)
	if remaining > maxProjectionDays {
		return nil
	}
	days := int(remaining)
	if days < 0 {
		days = 0
	}
	return &Projection{
		DaysRemaining: days,
		ProjectedDate: now.Add(time.Duration(days) * 24 * time.Hour).UTC(),
	}
}

func dailyTotals(points []contributionPoint) map[string]float64 {
	daily := make(map[string]float64)
	for _, p := range points {
		daily[p.createdAt.UTC().Format("2006-01-02")] += p.amount
	}
	return daily
}

// PremiumInsights holds the insights attached to one campaign
type PremiumInsights struct {
	MomentumScore           float64 `json:"momentum_score"`
	TrendingScore           float64 `json:"trending_score"`
	SuccessProbability      float64 `json:"success_probability"`
	OptimalContributionTime string  `json:"optimal_contribution_time"`
	SocialProofScore        float64 `json:"social_proof_score"`
	X402PaymentEnabled      bool    `json:"x402_payment_enabled"`
	Network                 string  `json:"network"`
}

// PremiumCampaign is a campaign with its premium insights
type PremiumCampaign struct {
	models.Campaign
	PremiumInsights PremiumInsights `json:"premium_insights"`
}

// MarketTrend aggregates recent campaigns of one category
type MarketTrend struct {
	Count       int     `json:"count"`
	TotalRaised float64 `json:"totalRaised"`
	AvgSuccess  float64 `json:"avgSuccess"`
}

// SuccessFactors summarises what funded campaigns share
type SuccessFactors struct {
	AvgGoalAmount    float64  `json:"avg_goal_amount"`
	CommonCategories []string `json:"common_categories"`
	OptimalDuration  string   `json:"optimal_duration"`
	KeyFactors       []string `json:"key_factors"`
}

// PaymentInfo describes the x402 payment that unlocked a report
type PaymentInfo struct {
	Network     string        `json:"network"`
	Currency    string        `json:"currency"`
	Facilitator string        `json:"facilitator,omitempty"`
	Verified    bool          `json:"verified,omitempty"`
	Session     *PaymentProof `json:"session,omitempty"`
}

// GlobalInsights are market-wide figures
type GlobalInsights struct {
	MarketTrends   map[string]MarketTrend `json:"market_trends"`
	SuccessFactors SuccessFactors         `json:"success_factors"`
	PaymentInfo    PaymentInfo            `json:"payment_info"`
}

// PremiumReport is the body of GET /api/campaigns/premium
type PremiumReport struct {
	Campaigns []PremiumCampaign `json:"campaigns"`
	Insights  GlobalInsights    `json:"insights"`
}

// DetailedMetrics are headline numbers for one campaign
type DetailedMetrics struct {
	TotalContributions  int     `json:"total_contributions"`
	UniqueContributors  int     `json:"unique_contributors"`
	AverageContribution float64 `json:"average_contribution"`
	CompletionRate      float64 `json:"completion_rate"`
}

// DetailedAnalytics is the body of GET /api/analytics/detailed
type DetailedAnalytics struct {
	Campaign            CampaignSummary        `json:"campaign"`
	Metrics             DetailedMetrics        `json:"metrics"`
	DailyContributions  map[string]float64     `json:"daily_contributions"`
	GrowthRate          float64                `json:"growth_rate"`
	ProjectedCompletion *Projection            `json:"projected_completion"`
	Boosts              []models.CampaignBoost `json:"boosts"`
	PaymentInfo         PaymentInfo            `json:"payment_info"`
}

// AnalyticsService computes premium insights and per-campaign analytics
type AnalyticsService struct {
	repo     *repository.Repository
	currency string
	now      func() time.Time
	cache    *expirable.LRU[string, *PremiumReport]
}

// NewAnalyticsService creates an AnalyticsService reporting amounts in currency
func NewAnalyticsService(repo *repository.Repository, currency string) *AnalyticsService {
	if currency == "" {
		currency = "USDC"
	}
	return &AnalyticsService{
		repo:     repo,
		currency: currency,
		now:      time.Now,
		cache:    expirable.NewLRU[string, *PremiumReport](1, nil, premiumCacheTTL),
	}
}

// Premium builds insights for every active campaign plus market-wide trends.
// Reports are reused for premiumCacheTTL.
func (as *AnalyticsService) Premium(ctx context.Context) (*PremiumReport, error) {
	if report, ok := as.cache.Get(premiumCacheKey); ok {
		return report, nil
	}
	now := as.now()
	campaigns, err := as.repo.ListActiveCampaignsWithContributions(ctx)
	if err != nil {
		return nil, internalError("Failed to fetch premium campaign data", err)
	}

	report := &PremiumReport{Campaigns: make([]PremiumCampaign, 0, len(campaigns))}
	for _, c := range campaigns {
		points := toPoints(c.Contributions)
		current, goal := c.CurrentAmount.InexactFloat64(), c.GoalAmount.InexactFloat64()
		report.Campaigns = append(report.Campaigns, PremiumCampaign{
			Campaign: c,
			PremiumInsights: PremiumInsights{
				MomentumScore:           momentumScore(points, now),
				TrendingScore:           trendingScore(c.CreatedAt, current, goal, len(points), now),
				SuccessProbability:      successProbability(current, goal, points),
				OptimalContributionTime: optimalContributionTime(points),
				SocialProofScore:        socialProofScore(points),
				X402PaymentEnabled:      true,
				Network:                 networkDisplayName,
			},
		})
	}

	recent, err := as.repo.ListCampaignsCreatedSince(ctx, now.Add(-marketTrendWindow))
	if err != nil {
		return nil, internalError("Failed to fetch premium campaign data", err)
	}
	all, err := as.repo.ListAllCampaigns(ctx)
	if err != nil {
		return nil, internalError("Failed to fetch premium campaign data", err)
	}

	report.Insights = GlobalInsights{
		MarketTrends:   marketTrends(recent),
		SuccessFactors: successFactors(all),
		PaymentInfo: PaymentInfo{
			Network:     networkDisplayName,
			Currency:    as.currency,
			Facilitator: facilitatorURL,
		},
	}
	as.cache.Add(premiumCacheKey, report)
	return report, nil
}

func marketTrends(campaigns []models.Campaign) map[string]MarketTrend {
	trends := make(map[string]MarketTrend)
	for _, c := range campaigns {
		category := strings.TrimSpace(c.Category)
		if category == "" {
			category = "Other"
		}
		t := trends[category]
		t.Count++
		t.TotalRaised += c.CurrentAmount.InexactFloat64()
		t.AvgSuccess += c.CompletionRate()
		trends[category] = t
	}
	for category, t := range trends {
		t.AvgSuccess /= float64(t.Count)
		trends[category] = t
	}
	return trends
}

// successFactors looks at campaigns that reached 80% of their goal
func successFactors(campaigns []models.Campaign) SuccessFactors {
	var goalSum float64
	var successful int
	categoryCounts := make(map[string]int)
	for _, c := range campaigns {
		current, goal := c.CurrentAmount.InexactFloat64(), c.GoalAmount.InexactFloat64()
		if goal <= 0 || current < goal*0.8 {
			continue
		}
		successful++
		goalSum += goal
		if c.Category != "" {
			categoryCounts[c.Category]++
		}
	}

	factors := SuccessFactors{
		CommonCategories: topCategories(categoryCounts, 3),
		OptimalDuration:  "30-45 days",
		KeyFactors: []string{
			"Clear, compelling story",
			"Regular updates",
			"Strong social media presence",
			"Early momentum in first week",
		},
	}
	if successful > 0 {
		factors.AvgGoalAmount = goalSum / float64(successful)
	}
	if len(factors.CommonCategories) == 0 {
		factors.CommonCategories = defaultCommonCategories
	}
	return factors
}

func topCategories(counts map[string]int, n int) []string {
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if counts[categories[i]] != counts[categories[j]] {
			return counts[categories[i]] > counts[categories[j]]
		}
		return categories[i] < categories[j]
	})
	if len(categories) > n {
		categories = categories[:n]
	}
	return categories
}

// Detailed computes per-campaign analytics. The campaign may be in any status.
func (as *AnalyticsService) Detailed(ctx context.Context, campaignID string, proof *PaymentProof) (*DetailedAnalytics, error) {
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, newError(http.StatusBadRequest, "Campaign ID is required")
	}
	campaign, err := as.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, notFoundOr(err, "Campaign not found", "Failed to fetch analytics")
	}
	contributions, err := as.repo.ListContributionsByCampaign(ctx, campaignID)
	if err != nil {
		return nil, internalError("Failed to fetch analytics", err)
	}
	boosts, err := as.repo.ListBoosts(ctx, campaignID)
	if err != nil {
		return nil, internalError("Failed to fetch analytics", err)
	}

	points := toPoints(contributions)
	current, goal := campaign.CurrentAmount.InexactFloat64(), campaign.GoalAmount.InexactFloat64()
	metrics := DetailedMetrics{
		TotalContributions: len(points),
		UniqueContributors: uniqueContributors(points),
		CompletionRate:     completionRate(current, goal),
	}
	if len(points) > 0 {
		metrics.AverageContribution = sumAmounts(points) / float64(len(points))
	}

	return &DetailedAnalytics{
		Campaign:            summarize(campaign),
		Metrics:             metrics,
		DailyContributions:  dailyTotals(points),
		GrowthRate:          growthRate(points),
		ProjectedCompletion: projectedCompletion(current, goal, points, as.now()),
		Boosts:              boosts,
		PaymentInfo: PaymentInfo{
			Network:  networkDisplayName,
			Currency: as.currency,
			Verified: true,
			Session:  proof,
		},
	}, nil
}

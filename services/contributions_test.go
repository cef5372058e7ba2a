package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thulafunds/crowdfund/models"
)

type recordingFeed struct {
	items []FeedItem
}

func (f *recordingFeed) PublishContribution(item FeedItem) {
	f.items = append(f.items, item)
}

func contributeHeader(hash, amount, endpoint, recipient string) string {
	return fmt.Sprintf(`{"txHash":%q,"amount":%q,"endpoint":%q,"timestamp":"2025-03-10T12:00:00Z","recipient":%q}`,
		hash, amount, endpoint, recipient)
}

func contributeEndpoint(id string) string {
	return "/api/campaigns/" + id + "/contribute"
}

func TestVerifyContribution(t *testing.T) {
	repo := newTestRepo(t)
	s := NewContributionService(repo)
	ctx := context.Background()
	c := mustCampaign(t, repo, "owner", "Books", "Education", "1000")
	endpoint := contributeEndpoint(c.ID)
	mustSession(t, repo, "0xc1", "25", endpoint)

	tests := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"missing", "", http.StatusUnauthorized, "No payment session provided"},
		{"malformed", "{", http.StatusBadRequest, "Invalid payment session format"},
		{"incomplete", `{"txHash":"0xc1"}`, http.StatusBadRequest, "Missing payment session data"},
		{"unknown", contributeHeader("0xzz", "25", endpoint, creatorWallet), http.StatusUnauthorized, "Payment session not verified"},
		{"amount differs", contributeHeader("0xc1", "30", endpoint, creatorWallet), http.StatusUnauthorized, "Payment session not verified"},
		{"endpoint differs", contributeHeader("0xc1", "25", "/elsewhere", creatorWallet), http.StatusUnauthorized, "Payment session not verified"},
		{"recipient differs", contributeHeader("0xc1", "25", endpoint, otherWallet), http.StatusBadRequest, "Payment recipient mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.VerifyContribution(ctx, c.ID, tt.header)
			requireServiceError(t, err, tt.status, tt.msg)
		})
	}

	_, err := s.VerifyContribution(ctx, "missing", contributeHeader("0xc1", "25", endpoint, creatorWallet))
	requireServiceError(t, err, http.StatusNotFound, "Campaign not found")

	// recipient comparison ignores case
	res, err := s.VerifyContribution(ctx, c.ID, contributeHeader("0xc1", "25", endpoint, "0x1234567890ABCDEF1234567890ABCDEF12345678"))
	require.NoError(t, err)
	assert.Equal(t, c.ID, res.Campaign.ID)
	assert.Equal(t, "0xc1", res.Payment.TxHash)
	assert.True(t, res.Payment.Amount.Equal(decimal.NewFromInt(25)))

	// verification records nothing
	got, err := repo.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentAmount.IsZero())
}

func TestContribute(t *testing.T) {
	repo := newTestRepo(t)
	s := NewContributionService(repo)
	feed := &recordingFeed{}
	s.SetFeed(feed)
	ctx := context.Background()

	c := mustCampaign(t, repo, "owner", "Clinic", "Health", "1000")
	endpoint := contributeEndpoint(c.ID)
	mustSession(t, repo, "0xpay", "25", endpoint)
	header := contributeHeader("0xpay", "25", endpoint, creatorWallet)

	_, _, err := s.Contribute(ctx, "", c.ID, header, ContributionInput{})
	requireServiceError(t, err, http.StatusUnauthorized, "User not authenticated")

	msg := "  Get well soon  "
	contribution, existing, err := s.Contribute(ctx, "backer", c.ID, header, ContributionInput{Message: &msg})
	require.NoError(t, err)
	assert.False(t, existing)
	assert.True(t, contribution.Amount.Equal(decimal.NewFromInt(25)))
	require.NotNil(t, contribution.Message)
	assert.Equal(t, "Get well soon", *contribution.Message)
	require.NotNil(t, contribution.TransactionHash)
	assert.Equal(t, "0xpay", *contribution.TransactionHash)

	got, err := repo.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentAmount.Equal(decimal.NewFromInt(25)))

	// replaying the same session is idempotent
	again, existing, err := s.Contribute(ctx, "backer", c.ID, header, ContributionInput{})
	require.NoError(t, err)
	assert.True(t, existing)
	assert.Equal(t, contribution.ID, again.ID)

	got, err = repo.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentAmount.Equal(decimal.NewFromInt(25)))

	require.Len(t, feed.items, 1)
	assert.Equal(t, "Clinic", feed.items[0].CampaignTitle)
	assert.Equal(t, "User", feed.items[0].ContributorName)
	assert.Equal(t, c.ID, feed.items[0].CampaignID)
}

func TestContribute_SessionUsedElsewhere(t *testing.T) {
	repo := newTestRepo(t)
	s := NewContributionService(repo)
	ctx := context.Background()

	first := mustCampaign(t, repo, "owner", "First", "Art", "1000")
	second := mustCampaign(t, repo, "owner", "Second", "Art", "1000")
	mustSession(t, repo, "0xonce", "10", "/shared")
	header := contributeHeader("0xonce", "10", "/shared", creatorWallet)

	_, _, err := s.Contribute(ctx, "backer", first.ID, header, ContributionInput{})
	require.NoError(t, err)

	_, _, err = s.Contribute(ctx, "backer", second.ID, header, ContributionInput{})
	requireServiceError(t, err, http.StatusConflict, "Payment session already used for another campaign")

	got, err := repo.GetCampaign(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentAmount.IsZero())
}

func TestContribute_AnonymousFeed(t *testing.T) {
	repo := newTestRepo(t)
	s := NewContributionService(repo)
	feed := &recordingFeed{}
	s.SetFeed(feed)
	ctx := context.Background()

	c := mustCampaign(t, repo, "owner", "Shelter", "Community", "1000")
	_, err := repo.EnsureProfile(ctx, "thandi", "Thandi")
	require.NoError(t, err)
	mustSession(t, repo, "0xanon", "5", "/c")

	_, _, err = s.Contribute(ctx, "thandi", c.ID, contributeHeader("0xanon", "5", "/c", ""), ContributionInput{Anonymous: true})
	require.NoError(t, err)
	require.Len(t, feed.items, 1)
	assert.Equal(t, "Anonymous", feed.items[0].ContributorName)

	items, err := s.RecentFeed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Anonymous", items[0].ContributorName)
	assert.Equal(t, "Shelter", items[0].CampaignTitle)
}

func TestContribute_UnknownCampaign(t *testing.T) {
	repo := newTestRepo(t)
	s := NewContributionService(repo)
	mustSession(t, repo, "0xlost", "5", "/c")

	_, _, err := s.Contribute(context.Background(), "backer", "missing", contributeHeader("0xlost", "5", "/c", ""), ContributionInput{})
	requireServiceError(t, err, http.StatusNotFound, "Campaign not found")
}

func TestHistory(t *testing.T) {
	repo := newTestRepo(t)
	s := NewContributionService(repo)
	ctx := context.Background()

	_, err := s.History(ctx, "")
	requireServiceError(t, err, http.StatusUnauthorized, "User not authenticated")

	c := mustCampaign(t, repo, "owner", "Bikes", "Community", "1000")
	for _, hash := range []string{"0xh1", "0xh2"} {
		mustSession(t, repo, hash, "3", "/c")
		_, _, err := s.Contribute(ctx, "backer", c.ID, contributeHeader(hash, "3", "/c", ""), ContributionInput{})
		require.NoError(t, err)
	}

	history, err := s.History(ctx, "backer")
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, h := range history {
		require.NotNil(t, h.Campaign)
		assert.Equal(t, "Bikes", h.Campaign.Title)
	}

	none, err := s.History(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewFeedItem(t *testing.T) {
	named := NewFeedItem(models.Contribution{
		ID:          "1",
		Contributor: &models.Profile{FullName: "Lindiwe"},
		Campaign:    &models.Campaign{Title: "Choir"},
	})
	assert.Equal(t, "Lindiwe", named.ContributorName)
	assert.Equal(t, "Choir", named.CampaignTitle)

	hidden := NewFeedItem(models.Contribution{Anonymous: true, Contributor: &models.Profile{FullName: "Lindiwe"}})
	assert.Equal(t, "Anonymous", hidden.ContributorName)

	blank := NewFeedItem(models.Contribution{})
	assert.Equal(t, "Anonymous", blank.ContributorName)
}

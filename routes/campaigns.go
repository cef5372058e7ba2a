package routes

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/services"
)

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return n, true
}

// ListCampaigns GET /api/campaigns?category=&search=&sort=&limit=&page=
func (ar *APIRoutes) ListCampaigns(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	q := services.CampaignQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Limit:    limit,
		Page:     page,
	}

	campaigns, ok := runTimed(c, readTimeout, func(ctx context.Context) ([]models.Campaign, error) {
		return ar.campaigns.ListCampaigns(ctx, q)
	})
	if !ok {
		return
	}
	if page < 1 {
		page = 1
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns, "page": page})
}

// CreateCampaign POST /api/campaigns
func (ar *APIRoutes) CreateCampaign(c *gin.Context) {
	var input services.CampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, userName := currentUserID(c), currentUserName(c)

	campaign, ok := runTimed(c, writeTimeout, func(ctx context.Context) (*models.Campaign, error) {
		return ar.campaigns.CreateCampaign(ctx, userID, userName, input)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": campaign, "campaignId": campaign.ID})
}

// GetCampaign GET /api/campaigns/:id
func (ar *APIRoutes) GetCampaign(c *gin.Context) {
	id := c.Param("id")
	campaign, ok := runTimed(c, readTimeout, func(ctx context.Context) (*models.Campaign, error) {
		return ar.campaigns.GetCampaign(ctx, id)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// UpdateCampaign PUT /api/campaigns/:id
func (ar *APIRoutes) UpdateCampaign(c *gin.Context) {
	var input services.CampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, userID := c.Param("id"), currentUserID(c)

	campaign, ok := runTimed(c, writeTimeout, func(ctx context.Context) (*models.Campaign, error) {
		return ar.campaigns.UpdateCampaign(ctx, userID, id, input)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// DeleteCampaign DELETE /api/campaigns/:id
func (ar *APIRoutes) DeleteCampaign(c *gin.Context) {
	id, userID := c.Param("id"), currentUserID(c)
	_, ok := runTimed(c, writeTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, ar.campaigns.DeleteCampaign(ctx, userID, id)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AddCampaignUpdate POST /api/campaigns/:id/updates
func (ar *APIRoutes) AddCampaignUpdate(c *gin.Context) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, userID := c.Param("id"), currentUserID(c)

	update, ok := runTimed(c, writeTimeout, func(ctx context.Context) (*models.CampaignUpdate, error) {
		return ar.campaigns.AddCampaignUpdate(ctx, userID, id, req.Title, req.Content)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, update)
}

// CampaignQRCode GET /api/campaigns/:id/qrcode?size=
func (ar *APIRoutes) CampaignQRCode(c *gin.Context) {
	size, ok := queryInt(c, "size")
	if !ok {
		return
	}
	if size > 1024 {
		size = 1024
	}
	id := c.Param("id")

	png, ok := runTimed(c, readTimeout, func(ctx context.Context) ([]byte, error) {
		return ar.campaigns.WalletQRCode(ctx, id, size)
	})
	if !ok {
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

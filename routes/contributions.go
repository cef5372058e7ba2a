package routes

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/services"
)

// VerifyContribution GET /api/campaigns/:id/contribute
func (ar *APIRoutes) VerifyContribution(c *gin.Context) {
	id, header := c.Param("id"), c.GetHeader(services.PaymentSessionHeader)

	verification, ok := runTimed(c, readTimeout, func(ctx context.Context) (*services.ContributionVerification, error) {
		return ar.contributions.VerifyContribution(ctx, id, header)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"campaign": verification.Campaign,
		"payment":  verification.Payment,
		"message":  "Contribution verified successfully",
	})
}

// Contribute POST /api/campaigns/:id/contribute
func (ar *APIRoutes) Contribute(c *gin.Context) {
	var input services.ContributionInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, userID, header := c.Param("id"), currentUserID(c), c.GetHeader(services.PaymentSessionHeader)

	type outcome struct {
		contribution *models.Contribution
		existing     bool
	}
	res, ok := runTimed(c, writeTimeout, func(ctx context.Context) (outcome, error) {
		contribution, existing, err := ar.contributions.Contribute(ctx, userID, id, header, input)
		return outcome{contribution, existing}, err
	})
	if !ok {
		return
	}

	message := "Contribution created successfully"
	if res.existing {
		message = "Contribution already recorded"
	} else {
		contributionsRecorded.Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"contribution": gin.H{
			"id":         res.contribution.ID,
			"amount":     res.contribution.Amount,
			"message":    res.contribution.Message,
			"anonymous":  res.contribution.Anonymous,
			"created_at": res.contribution.CreatedAt,
		},
		"message": message,
	})
}

// ContributionHistory GET /api/contributions
func (ar *APIRoutes) ContributionHistory(c *gin.Context) {
	userID := currentUserID(c)
	contributions, ok := runTimed(c, readTimeout, func(ctx context.Context) ([]models.Contribution, error) {
		return ar.contributions.History(ctx, userID)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"contributions": contributions})
}

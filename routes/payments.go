package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/services"
)

// VerifyPayment POST /api/x402/verify-payment records a client-reported transfer
func (ar *APIRoutes) VerifyPayment(c *gin.Context) {
	var report services.PaymentReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required payment data"})
		return
	}

	type outcome struct {
		session *models.PaymentSession
		already bool
	}
	res, ok := runTimed(c, writeTimeout, func(ctx context.Context) (outcome, error) {
		session, already, err := ar.payments.RecordPaymentSession(ctx, report)
		return outcome{session, already}, err
	})
	if !ok {
		return
	}

	if res.already {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "Payment already verified",
			"sessionId": res.session.ID,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Payment verified and stored",
		"sessionId": res.session.ID,
		"txHash":    res.session.TxHash,
	})
}

// PremiumCampaigns GET /api/campaigns/premium (gated)
func (ar *APIRoutes) PremiumCampaigns(c *gin.Context) {
	if _, ok := ar.verifyPayment(c); !ok {
		return
	}
	report, ok := runTimed(c, readTimeout, func(ctx context.Context) (*services.PremiumReport, error) {
		return ar.analytics.Premium(ctx)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

// DetailedAnalytics GET /api/analytics/detailed?campaignId= (gated)
func (ar *APIRoutes) DetailedAnalytics(c *gin.Context) {
	campaignID := c.Query("campaignId")
	if campaignID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Campaign ID is required"})
		return
	}
	verification, ok := ar.verifyPayment(c)
	if !ok {
		return
	}
	analytics, ok := runTimed(c, readTimeout, func(ctx context.Context) (*services.DetailedAnalytics, error) {
		return ar.analytics.Detailed(ctx, campaignID, verification.Proof)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// BoostCampaign POST /api/campaigns/boost (gated)
func (ar *APIRoutes) BoostCampaign(c *gin.Context) {
	verification, ok := ar.verifyPayment(c)
	if !ok {
		return
	}
	var req services.BoostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Campaign ID and boost type are required"})
		return
	}

	result, ok := runTimed(c, writeTimeout, func(ctx context.Context) (*services.BoostResult, error) {
		return ar.boosts.BoostCampaign(ctx, req, verification.Proof)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"boost":            result.Boost,
		"effects":          result.Effects,
		"payment_verified": true,
		"message":          result.Message,
	})
}

package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/thulafunds/crowdfund/repository"
	"github.com/thulafunds/crowdfund/services"
)

const (
	writeTimeout = 15 * time.Second
	readTimeout  = 10 * time.Second

	userIDHeader   = "X-User-Id"
	userNameHeader = "X-User-Name"
	userIDCookie   = "user_id"
)

// APIRoutes holds the services behind the HTTP handlers
type APIRoutes struct {
	repo          *repository.Repository
	payments      *services.PaymentService
	campaigns     *services.CampaignService
	contributions *services.ContributionService
	boosts        *services.BoostService
	analytics     *services.AnalyticsService
	wallets       *services.WalletService
	dashboard     *services.DashboardService
	hub           *Hub
	rateLimit     int
}

// NewAPIRoutes wires every service onto repo. rateLimit is requests per minute per IP
// on the payment recording endpoint.
func NewAPIRoutes(repo *repository.Repository, payments *services.PaymentService, rateLimit int) *APIRoutes {
	cfg := payments.Config()
	ar := &APIRoutes{
		repo:          repo,
		payments:      payments,
		campaigns:     services.NewCampaignService(repo),
		contributions: services.NewContributionService(repo),
		boosts:        services.NewBoostService(repo),
		analytics:     services.NewAnalyticsService(repo, cfg.Currency),
		wallets:       services.NewWalletService(repo, cfg.Network),
		dashboard:     services.NewDashboardService(repo),
		rateLimit:     rateLimit,
	}
	ar.hub = NewHub(ar.contributions.RecentFeed)
	ar.contributions.SetFeed(ar.hub)
	return ar
}

// Hub is the live feed; the caller runs it
func (ar *APIRoutes) Hub() *Hub {
	return ar.hub
}

// SetupRoutes registers the gate and every endpoint on router
func (ar *APIRoutes) SetupRoutes(router *gin.Engine) {
	router.Use(PaymentGate(ar.payments))

	api := router.Group("/api")
	{
		api.GET("/campaigns", ar.ListCampaigns)
		api.POST("/campaigns", ar.CreateCampaign)
		api.GET("/campaigns/premium", ar.PremiumCampaigns)
		api.POST("/campaigns/boost", ar.BoostCampaign)
		api.GET("/campaigns/:id", ar.GetCampaign)
		api.PUT("/campaigns/:id", ar.UpdateCampaign)
		api.DELETE("/campaigns/:id", ar.DeleteCampaign)
		api.POST("/campaigns/:id/updates", ar.AddCampaignUpdate)
		api.GET("/campaigns/:id/qrcode", ar.CampaignQRCode)
		api.GET("/campaigns/:id/contribute", ar.VerifyContribution)
		api.POST("/campaigns/:id/contribute", ar.Contribute)

		api.GET("/contributions", ar.ContributionHistory)
		api.GET("/analytics/detailed", ar.DetailedAnalytics)
		api.POST("/x402/verify-payment", RateLimit(ar.rateLimit), ar.VerifyPayment)
		api.GET("/dashboard", ar.Dashboard)

		wallet := api.Group("/wallet")
		wallet.GET("", ar.GetWallets)
		wallet.PUT("", ar.LinkWallet)
		wallet.POST("", ar.AddWallet)
		wallet.DELETE("", ar.RemoveWallet)
		wallet.POST("/verify", ar.VerifyWallet)
		wallet.POST("/validate", ar.ValidateWallet)
	}

	router.GET("/ws", ar.hub.ServeWS)
	router.GET("/healthz", ar.Health)
	router.GET("/metrics", MetricsHandler())
}

// currentUserID reads the caller identity set by the auth proxy
func currentUserID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(userIDHeader)); id != "" {
		return id
	}
	if id, err := c.Cookie(userIDCookie); err == nil {
		return strings.TrimSpace(id)
	}
	return ""
}

func currentUserName(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(userNameHeader))
}

// respondError maps service errors onto {"error": ...} responses
func respondError(c *gin.Context, err error) {
	if se, ok := services.AsServiceError(err); ok {
		if se.Status >= http.StatusInternalServerError {
			log.Error().Err(se.Err).Str("path", c.Request.URL.Path).Msg(se.Message)
		}
		c.JSON(se.Status, gin.H{"error": se.Message})
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "Request timed out, please try again later"})
		return
	}
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// runTimed runs fn under a timeout, answering 408 when it expires and the
// mapped error when fn fails. ok is false when a response was already written.
func runTimed[T any](c *gin.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (value T, ok bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	resultChan := make(chan result, 1)

	go func() {
		v, err := fn(ctx)
		resultChan <- result{v, err}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			respondError(c, res.err)
			return value, false
		}
		return res.value, true
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "Request timed out, please try again later"})
		return value, false
	}
}

// Health reports database reachability
func (ar *APIRoutes) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := ar.repo.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "feed_clients": ar.hub.ClientCount()})
}

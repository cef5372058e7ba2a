package routes

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/thulafunds/crowdfund/services"
)

const exposedPaymentHeaders = "WWW-Authenticate, X-Accept-Payment, X-Payment-Amount, X-Payment-Network, X-Payment-Address, X-Payment-Description, X-Payment-Proof"

// setChallengeHeaders writes the x402 headers describing how to pay for route
func setChallengeHeaders(c *gin.Context, cfg services.PaymentConfig, route services.RoutePrice) {
	c.Header("WWW-Authenticate", `Bearer realm="x402"`)
	c.Header("X-Accept-Payment", cfg.Currency)
	c.Header("X-Payment-Amount", route.Price.String())
	c.Header("X-Payment-Network", cfg.Network)
	c.Header("X-Payment-Address", cfg.WalletAddress)
	c.Header("X-Payment-Description", route.Description)
	c.Header("Access-Control-Expose-Headers", exposedPaymentHeaders)
}

func writeChallenge(c *gin.Context, cfg services.PaymentConfig, route services.RoutePrice, status int, message string) {
	paymentChallenges.WithLabelValues(route.Path).Inc()
	setChallengeHeaders(c, cfg, route)
	c.String(status, message)
	c.Abort()
}

// PaymentGate answers 402 on gated paths when the request carries neither
// an Authorization nor an x-payment-session header. Anything else passes.
func PaymentGate(ps *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		route, ok := ps.Route(c.Request.URL.Path)
		if !ok || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if c.GetHeader(services.PaymentSessionHeader) == "" && c.GetHeader("Authorization") == "" {
			writeChallenge(c, ps.Config(), route, http.StatusPaymentRequired, "Payment Required")
			return
		}
		c.Next()
	}
}

// verifyPayment runs the session verifier for the current path. On failure the
// challenge is already written and ok is false.
func (ar *APIRoutes) verifyPayment(c *gin.Context) (result services.VerificationResult, ok bool) {
	route, gated := ar.payments.Route(c.Request.URL.Path)
	if !gated {
		return services.VerificationResult{Verified: true}, true
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	result = ar.payments.VerifyPaymentSession(ctx,
		c.GetHeader(services.PaymentSessionHeader),
		c.GetHeader("Authorization"),
		route)

	if !result.Verified {
		paymentVerifications.WithLabelValues(route.Path, "rejected").Inc()
		if result.Status == http.StatusInternalServerError {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": result.Error})
			return result, false
		}
		writeChallenge(c, ar.payments.Config(), route, result.Status, result.Error)
		return result, false
	}

	paymentVerifications.WithLabelValues(route.Path, "verified").Inc()
	if result.Proof != nil {
		if proof, err := json.Marshal(result.Proof); err == nil {
			c.Header(services.PaymentProofHeader, string(proof))
		} else {
			log.Warn().Err(err).Msg("failed to encode payment proof")
		}
	}
	return result, true
}

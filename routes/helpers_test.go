package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/thulafunds/crowdfund/repository"
	"github.com/thulafunds/crowdfund/services"
	"github.com/thulafunds/crowdfund/utils"
)

const (
	platformWallet = "0x1111111111111111111111111111111111111111"
	creatorWallet  = "0x1234567890abcdef1234567890abcdef12345678"
	payerWallet    = "0x2222222222222222222222222222222222222222"
)

type testServer struct {
	router *gin.Engine
	api    *APIRoutes
	repo   *repository.Repository
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := utils.OpenMemoryDatabase(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	repo := repository.New(db)

	cfg, err := services.NewPaymentConfig(utils.X402Config{
		WalletAddress: platformWallet,
		Network:       "base",
		Currency:      "USDC",
		MaxSessionAge: 24 * time.Hour,
	}, utils.GateConfig{Routes: []utils.GateRoute{
		{Path: "/api/analytics/detailed", Price: "0.01", Description: "Detailed campaign analytics"},
		{Path: "/api/campaigns/premium", Price: "0.005", Description: "Premium campaign features"},
		{Path: "/api/campaigns/boost", Price: "0.02", Description: "Boost campaign visibility"},
	}})
	require.NoError(t, err)

	api := NewAPIRoutes(repo, services.NewPaymentService(repo, cfg), rateLimit)
	router := gin.New()
	router.Use(RequestID(), SecurityHeaders())
	api.SetupRoutes(router)
	return &testServer{router: router, api: api, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// recordPayment reports a transfer through the public endpoint and returns the matching session header
func (s *testServer) recordPayment(t *testing.T, hash, amount, endpoint, recipient string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/x402/verify-payment", map[string]string{
		"txHash":           hash,
		"amount":           amount,
		"endpoint":         endpoint,
		"fromAddress":      payerWallet,
		"recipientAddress": recipient,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return fmt.Sprintf(`{"txHash":%q,"amount":%q,"endpoint":%q,"timestamp":%d,"recipient":%q}`,
		hash, amount, endpoint, time.Now().UnixMilli(), recipient)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func asUser(id string) map[string]string {
	return map[string]string{userIDHeader: id, userNameHeader: "Test " + id}
}

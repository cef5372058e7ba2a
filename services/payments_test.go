package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/utils"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testPaymentConfig(t *testing.T) PaymentConfig {
	t.Helper()
	cfg, err := NewPaymentConfig(utils.X402Config{
		WalletAddress: "0x1111111111111111111111111111111111111111",
		Network:       "base",
		Currency:      "USDC",
		MaxSessionAge: 24 * time.Hour,
	}, utils.GateConfig{Routes: []utils.GateRoute{
		{Path: "/api/analytics/detailed", Price: "0.01", Description: "Detailed campaign analytics"},
		{Path: "/api/campaigns/premium", Price: "0.005", Description: "Premium campaign features"},
		{Path: "/api/campaigns/boost", Price: "0.02", Description: "Boost campaign visibility"},
	}})
	require.NoError(t, err)
	return cfg
}

func newTestPaymentService(t *testing.T, store SessionStore) *PaymentService {
	ps := NewPaymentService(store, testPaymentConfig(t))
	ps.now = func() time.Time { return testNow }
	return ps
}

func seedSession(t *testing.T, store SessionStore, hash, amount, endpoint string, age time.Duration) {
	t.Helper()
	require.NoError(t, store.CreateSession(context.Background(), &models.PaymentSession{
		TxHash:      hash,
		Amount:      decimal.RequireFromString(amount),
		FromAddress: "0x2222222222222222222222222222222222222222",
		Endpoint:    endpoint,
		Status:      models.PaymentStatusCompleted,
		CreatedAt:   testNow.Add(-age),
	}))
}

func claimHeader(hash, amount, endpoint string) string {
	return fmt.Sprintf(`{"txHash":%q,"amount":%s,"endpoint":%q,"timestamp":1710072000000}`, hash, amount, endpoint)
}

func TestVerifyPaymentSession(t *testing.T) {
	store := NewMemorySessionStore()
	ps := newTestPaymentService(t, store)
	boost, ok := ps.Route(BoostEndpoint)
	require.True(t, ok)

	seedSession(t, store, "0xabc", "0.02", BoostEndpoint, time.Hour)
	seedSession(t, store, "0xlow", "0.01", BoostEndpoint, time.Hour)
	seedSession(t, store, "0xold", "5", BoostEndpoint, 25*time.Hour)

	tests := []struct {
		name    string
		session string
		auth    string
		want    bool
		status  int
		errMsg  string
	}{
		{name: "no headers", want: false, status: http.StatusPaymentRequired, errMsg: "Payment Required"},
		{name: "bearer only", auth: "Bearer token", want: true},
		{name: "malformed", session: "{not json", want: false, status: http.StatusPaymentRequired, errMsg: "Invalid payment session format"},
		{name: "unknown hash", session: claimHeader("0xnope", "0.02", BoostEndpoint), status: http.StatusPaymentRequired, errMsg: "Invalid payment session"},
		{name: "wrong endpoint", session: claimHeader("0xabc", "0.02", "/api/campaigns/premium"), status: http.StatusPaymentRequired, errMsg: "Invalid payment session"},
		{name: "exact price", session: claimHeader("0xabc", "0.02", BoostEndpoint), want: true},
		{name: "underpaid", session: claimHeader("0xlow", "0.01", BoostEndpoint), status: http.StatusPaymentRequired, errMsg: "Insufficient payment amount"},
		{name: "expired", session: claimHeader("0xold", "5", BoostEndpoint), status: http.StatusPaymentRequired, errMsg: "Payment session expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ps.VerifyPaymentSession(context.Background(), tt.session, tt.auth, boost)
			assert.Equal(t, tt.want, res.Verified)
			if !tt.want {
				assert.Equal(t, tt.status, res.Status)
				assert.Equal(t, tt.errMsg, res.Error)
				assert.Nil(t, res.Proof)
			}
		})
	}
}

func TestVerifyPaymentSession_Proof(t *testing.T) {
	store := NewMemorySessionStore()
	ps := newTestPaymentService(t, store)
	seedSession(t, store, "0xabc", "0.02", BoostEndpoint, time.Hour)
	boost, _ := ps.Route(BoostEndpoint)

	res := ps.VerifyPaymentSession(context.Background(), claimHeader("0xabc", "0.02", BoostEndpoint), "", boost)
	require.True(t, res.Verified)
	require.NotNil(t, res.Proof)
	assert.True(t, res.Proof.Verified)
	assert.Equal(t, "0xabc", res.Proof.TxHash)
	assert.True(t, res.Proof.Amount.Equal(decimal.RequireFromString("0.02")))
	assert.Equal(t, testNow.Add(-time.Hour), res.Proof.Timestamp)
}

func TestVerifyPaymentSession_PendingRejected(t *testing.T) {
	stores := map[string]SessionStore{
		"memory": NewMemorySessionStore(),
		"gorm":   newTestRepo(t),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ps := newTestPaymentService(t, store)
			boost, _ := ps.Route(BoostEndpoint)
			require.NoError(t, store.CreateSession(context.Background(), &models.PaymentSession{
				TxHash:    "0xpending",
				Amount:    decimal.RequireFromString("5"),
				Endpoint:  BoostEndpoint,
				Status:    models.PaymentStatusPending,
				CreatedAt: testNow.Add(-time.Minute),
			}))

			res := ps.VerifyPaymentSession(context.Background(), claimHeader("0xpending", "5", BoostEndpoint), "", boost)
			assert.False(t, res.Verified)
			assert.Equal(t, http.StatusPaymentRequired, res.Status)
			assert.Equal(t, "Invalid payment session", res.Error)
		})
	}
}

func TestVerifyPaymentSession_ReplayAllowed(t *testing.T) {
	store := NewMemorySessionStore()
	ps := newTestPaymentService(t, store)
	seedSession(t, store, "0xabc", "0.02", BoostEndpoint, time.Hour)
	boost, _ := ps.Route(BoostEndpoint)

	for i := 0; i < 3; i++ {
		res := ps.VerifyPaymentSession(context.Background(), claimHeader("0xabc", "0.02", BoostEndpoint), "", boost)
		assert.True(t, res.Verified, "attempt %d", i)
	}
}

func TestRecordPaymentSession(t *testing.T) {
	store := NewMemorySessionStore()
	ps := newTestPaymentService(t, store)
	ctx := context.Background()

	report := PaymentReport{
		TxHash:      "0xfeed",
		Amount:      decimal.RequireFromString("0.02"),
		Endpoint:    BoostEndpoint,
		FromAddress: "0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa",
	}

	first, already, err := ps.RecordPaymentSession(ctx, report)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, models.PaymentStatusCompleted, first.Status)
	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", first.FromAddress)

	report.Amount = decimal.RequireFromString("9")
	second, already, err := ps.RecordPaymentSession(ctx, report)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Amount.Equal(decimal.RequireFromString("0.02")))
}

func TestRecordPaymentSession_MissingData(t *testing.T) {
	ps := newTestPaymentService(t, NewMemorySessionStore())

	cases := []PaymentReport{
		{Amount: decimal.NewFromInt(1), Endpoint: "/x", FromAddress: "0x1"},
		{TxHash: "0x1", Endpoint: "/x", FromAddress: "0x1"},
		{TxHash: "0x1", Amount: decimal.NewFromInt(-1), Endpoint: "/x", FromAddress: "0x1"},
		{TxHash: "0x1", Amount: decimal.NewFromInt(1), FromAddress: "0x1"},
		{TxHash: "0x1", Amount: decimal.NewFromInt(1), Endpoint: "/x"},
	}
	for i, report := range cases {
		_, _, err := ps.RecordPaymentSession(context.Background(), report)
		se, ok := AsServiceError(err)
		require.True(t, ok, "case %d", i)
		assert.Equal(t, http.StatusBadRequest, se.Status)
		assert.Equal(t, "Missing required payment data", se.Message)
	}
}

// racingStore reports a unique violation on create although the lookup missed
type racingStore struct {
	*MemorySessionStore
	winner *models.PaymentSession
}

func (s *racingStore) CreateSession(ctx context.Context, session *models.PaymentSession) error {
	if err := s.MemorySessionStore.CreateSession(ctx, s.winner); err != nil {
		return err
	}
	return s.MemorySessionStore.CreateSession(ctx, session)
}

func TestRecordPaymentSession_LostRace(t *testing.T) {
	winner := &models.PaymentSession{
		TxHash:   "0xrace",
		Amount:   decimal.RequireFromString("0.5"),
		Endpoint: BoostEndpoint,
		Status:   models.PaymentStatusCompleted,
	}
	ps := newTestPaymentService(t, &racingStore{MemorySessionStore: NewMemorySessionStore(), winner: winner})

	got, already, err := ps.RecordPaymentSession(context.Background(), PaymentReport{
		TxHash:      "0xrace",
		Amount:      decimal.RequireFromString("0.5"),
		Endpoint:    BoostEndpoint,
		FromAddress: "0x3333333333333333333333333333333333333333",
	})
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, winner.ID, got.ID)
}

func TestBoostTierForAmount(t *testing.T) {
	assert.Equal(t, models.BoostVisibility, BoostTierForAmount(decimal.RequireFromString("0.02")))
	assert.Equal(t, models.BoostVisibility, BoostTierForAmount(decimal.RequireFromString("0.049999")))
	assert.Equal(t, models.BoostFeatured, BoostTierForAmount(decimal.RequireFromString("0.05")))
	assert.Equal(t, models.BoostFeatured, BoostTierForAmount(decimal.RequireFromString("0.0999")))
	assert.Equal(t, models.BoostPremium, BoostTierForAmount(decimal.RequireFromString("0.10")))
	assert.Equal(t, models.BoostPremium, BoostTierForAmount(decimal.RequireFromString("3")))
}

func TestNewPaymentConfig_InvalidPrice(t *testing.T) {
	_, err := NewPaymentConfig(utils.X402Config{}, utils.GateConfig{Routes: []utils.GateRoute{{Path: "/a", Price: "free"}}})
	assert.Error(t, err)

	_, err = NewPaymentConfig(utils.X402Config{}, utils.GateConfig{Routes: []utils.GateRoute{{Path: "/a", Price: "0"}}})
	assert.Error(t, err)
}

func TestParseClaim(t *testing.T) {
	claim, err := ParseClaim(`{"txHash":"0x1","amount":"0.25","endpoint":"/e","timestamp":"2025-03-10T12:00:00Z","recipient":"0xR"}`)
	require.NoError(t, err)
	assert.Equal(t, "0x1", claim.TxHash)
	assert.True(t, claim.Amount.Equal(decimal.RequireFromString("0.25")))
	assert.Equal(t, "/e", claim.Endpoint)
	assert.Equal(t, "0xR", claim.Recipient)
	assert.JSONEq(t, `"2025-03-10T12:00:00Z"`, string(claim.Timestamp))

	_, err = ParseClaim(`{"amount":"abc"}`)
	assert.Error(t, err)
}

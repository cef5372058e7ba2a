package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/repository"
	"github.com/thulafunds/crowdfund/utils"
)

const (
	PaymentSessionHeader = "x-payment-session"
	PaymentProofHeader   = "x-payment-proof"

	BoostEndpoint = "/api/campaigns/boost"
)

// SessionStore persists reported payment sessions
type SessionStore interface {
	FindSessionByTxHash(ctx context.Context, txHash string) (*models.PaymentSession, error)
	FindCompletedSession(ctx context.Context, txHash, endpoint string) (*models.PaymentSession, error)
	CreateSession(ctx context.Context, session *models.PaymentSession) error
}

// RoutePrice is one gated path and what it costs in USDC
type RoutePrice struct {
	Path        string
	Price       decimal.Decimal
	Description string
}

// PaymentConfig is the payee and the priced routes
type PaymentConfig struct {
	WalletAddress string
	Network       string
	Currency      string
	MaxSessionAge time.Duration
	Routes        []RoutePrice
}

// NewPaymentConfig converts the loaded config into prices the verifier can compare
func NewPaymentConfig(cfg utils.X402Config, gate utils.GateConfig) (PaymentConfig, error) {
	pc := PaymentConfig{
		WalletAddress: cfg.WalletAddress,
		Network:       cfg.Network,
		Currency:      cfg.Currency,
		MaxSessionAge: cfg.MaxSessionAge,
	}
	for _, r := range gate.Routes {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return pc, fmt.Errorf("gate route %s: invalid price %q: %w", r.Path, r.Price, err)
		}
		if !price.IsPositive() {
			return pc, fmt.Errorf("gate route %s: price must be positive", r.Path)
		}
		pc.Routes = append(pc.Routes, RoutePrice{Path: r.Path, Price: price, Description: r.Description})
	}
	return pc, nil
}

// PaymentClaim is the client's x-payment-session header
type PaymentClaim struct {
	TxHash    string          `json:"txHash"`
	Amount    decimal.Decimal `json:"amount"`
	Endpoint  string          `json:"endpoint"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	Recipient string          `json:"recipient,omitempty"`
}

// ParseClaim decodes the session header
func ParseClaim(header string) (*PaymentClaim, error) {
	var claim PaymentClaim
	if err := json.Unmarshal([]byte(header), &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

// PaymentProof is echoed back in x-payment-proof after a successful verification
type PaymentProof struct {
	Verified  bool            `json:"verified"`
	TxHash    string          `json:"txHash"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// VerificationResult is the outcome of checking a request's payment headers
type VerificationResult struct {
	Verified bool
	Error    string
	Status   int
	Proof    *PaymentProof
}

func rejected(status int, msg string) VerificationResult {
	return VerificationResult{Verified: false, Error: msg, Status: status}
}

// PaymentReport is the body of POST /api/x402/verify-payment
type PaymentReport struct {
	TxHash           string          `json:"txHash"`
	Amount           decimal.Decimal `json:"amount"`
	Endpoint         string          `json:"endpoint"`
	FromAddress      string          `json:"fromAddress"`
	RecipientAddress string          `json:"recipientAddress"`
}

// PaymentService verifies and records x402 payment sessions
type PaymentService struct {
	store  SessionStore
	config PaymentConfig
	now    func() time.Time
}

// NewPaymentService creates a PaymentService over store
func NewPaymentService(store SessionStore, config PaymentConfig) *PaymentService {
	if config.MaxSessionAge <= 0 {
		config.MaxSessionAge = 24 * time.Hour
	}
	return &PaymentService{store: store, config: config, now: time.Now}
}

func (ps *PaymentService) Config() PaymentConfig {
	return ps.config
}

// Route returns the gated route for path
func (ps *PaymentService) Route(path string) (RoutePrice, bool) {
	for _, r := range ps.config.Routes {
		if r.Path == path {
			return r, true
		}
	}
	return RoutePrice{}, false
}

// VerifyPaymentSession checks the claimed session against the store for route
func (ps *PaymentService) VerifyPaymentSession(ctx context.Context, sessionHeader, authHeader string, route RoutePrice) VerificationResult {
	if sessionHeader == "" && authHeader == "" {
		return rejected(http.StatusPaymentRequired, "Payment Required")
	}

	if sessionHeader == "" {
		// bearer-only requests are let through; handlers needing a proof check for one
		return VerificationResult{Verified: true}
	}

	claim, err := ParseClaim(sessionHeader)
	if err != nil {
		log.Warn().Err(err).Str("route", route.Path).Msg("malformed payment session header")
		return rejected(http.StatusPaymentRequired, "Invalid payment session format")
	}

	session, err := ps.store.FindCompletedSession(ctx, claim.TxHash, claim.Endpoint)
	if err != nil {
		if repository.IsNotFound(err) {
			return rejected(http.StatusPaymentRequired, "Invalid payment session")
		}
		log.Error().Err(err).Str("tx_hash", claim.TxHash).Msg("payment session lookup failed")
		return rejected(http.StatusInternalServerError, "Failed to verify payment")
	}

	if session.Amount.LessThan(route.Price) {
		return rejected(http.StatusPaymentRequired, "Insufficient payment amount")
	}

	if ps.now().Sub(session.CreatedAt) > ps.config.MaxSessionAge {
		return rejected(http.StatusPaymentRequired, "Payment session expired")
	}

	return VerificationResult{
		Verified: true,
		Status:   http.StatusOK,
		Proof: &PaymentProof{
			Verified:  true,
			TxHash:    session.TxHash,
			Amount:    session.Amount,
			Timestamp: session.CreatedAt,
		},
	}
}

// RecordPaymentSession stores a client-reported transfer. The bool is true when the hash was already known.
func (ps *PaymentService) RecordPaymentSession(ctx context.Context, report PaymentReport) (*models.PaymentSession, bool, error) {
	report.TxHash = strings.TrimSpace(report.TxHash)
	report.Endpoint = strings.TrimSpace(report.Endpoint)
	report.FromAddress = strings.TrimSpace(report.FromAddress)
	if report.TxHash == "" || report.Endpoint == "" || report.FromAddress == "" || !report.Amount.IsPositive() {
		return nil, false, newError(http.StatusBadRequest, "Missing required payment data")
	}

	existing, err := ps.store.FindSessionByTxHash(ctx, report.TxHash)
	if err == nil {
		return existing, true, nil
	}
	if !repository.IsNotFound(err) {
		return nil, false, internalError("Failed to verify payment", err)
	}

	session := &models.PaymentSession{
		TxHash:           report.TxHash,
		Amount:           report.Amount,
		FromAddress:      utils.NormalizeWalletAddress(report.FromAddress),
		RecipientAddress: utils.NormalizeWalletAddress(report.RecipientAddress),
		Endpoint:         report.Endpoint,
		Status:           models.PaymentStatusCompleted,
	}
	if err := ps.store.CreateSession(ctx, session); err != nil {
		if repository.IsUniqueViolation(err) {
			// lost the race against a concurrent report of the same hash
			winner, findErr := ps.store.FindSessionByTxHash(ctx, report.TxHash)
			if findErr == nil {
				return winner, true, nil
			}
			err = findErr
		}
		return nil, false, internalError("Failed to store payment session", err)
	}

	log.Info().
		Str("tx_hash", session.TxHash).
		Str("amount", session.Amount.String()).
		Str("endpoint", session.Endpoint).
		Msg("payment session recorded")

	if strings.Contains(session.Endpoint, BoostEndpoint) {
		log.Info().
			Str("tx_hash", session.TxHash).
			Str("tier", BoostTierForAmount(session.Amount)).
			Msgf("boost payment of $%s verified", session.Amount.String())
	}

	return session, false, nil
}

var (
	premiumThreshold  = decimal.RequireFromString("0.10")
	featuredThreshold = decimal.RequireFromString("0.05")
)

// BoostTierForAmount maps a boost payment onto the tier it pays for
func BoostTierForAmount(amount decimal.Decimal) string {
	switch {
	case amount.GreaterThanOrEqual(premiumThreshold):
		return models.BoostPremium
	case amount.GreaterThanOrEqual(featuredThreshold):
		return models.BoostFeatured
	default:
		return models.BoostVisibility
	}
}

// MemorySessionStore keeps sessions in a map, keyed by transaction hash
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.PaymentSession
	nextID   uint
}

// NewMemorySessionStore creates an empty MemorySessionStore
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*models.PaymentSession)}
}

func (s *MemorySessionStore) FindSessionByTxHash(_ context.Context, txHash string) (*models.PaymentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[txHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *MemorySessionStore) FindCompletedSession(ctx context.Context, txHash, endpoint string) (*models.PaymentSession, error) {
	session, err := s.FindSessionByTxHash(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if session.Endpoint != endpoint || session.Status != models.PaymentStatusCompleted {
		return nil, repository.ErrNotFound
	}
	return session, nil
}

func (s *MemorySessionStore) CreateSession(_ context.Context, session *models.PaymentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.TxHash]; ok {
		return repository.ErrDuplicate
	}
	s.nextID++
	session.ID = s.nextID
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	session.UpdatedAt = session.CreatedAt
	cp := *session
	s.sessions[session.TxHash] = &cp
	return nil
}

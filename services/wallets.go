package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/thulafunds/crowdfund/models"
	"github.com/thulafunds/crowdfund/repository"
	"github.com/thulafunds/crowdfund/utils"
)

// WalletInfo is the wallet portion of a profile
type WalletInfo struct {
	Address  string `json:"wallet_address"`
	Type     string `json:"wallet_type"`
	Verified bool   `json:"wallet_verified"`
}

// WalletValidation answers whether an address can receive USDC on Base
type WalletValidation struct {
	IsValid        bool   `json:"isValid"`
	CanReceiveUSDC bool   `json:"canReceiveUSDC"`
	Network        string `json:"network,omitempty"`
	Address        string `json:"address,omitempty"`
	Error          string `json:"error,omitempty"`
}

// WalletService manages the wallet linked to a profile
type WalletService struct {
	repo    *repository.Repository
	network string
}

func NewWalletService(repo *repository.Repository, network string) *WalletService {
	if network == "" {
		network = "base"
	}
	return &WalletService{repo: repo, network: network}
}

func cleanAddress(address string) (string, *ServiceError) {
	if strings.TrimSpace(address) == "" {
		return "", newError(http.StatusBadRequest, "Invalid wallet address")
	}
	if !utils.IsValidWalletAddress(address) {
		return "", newError(http.StatusBadRequest, "Invalid wallet address format")
	}
	return utils.NormalizeWalletAddress(address), nil
}

func walletOf(p *models.Profile) *WalletInfo {
	if p == nil || p.WalletAddress == nil || *p.WalletAddress == "" {
		return nil
	}
	info := &WalletInfo{Address: *p.WalletAddress, Verified: p.WalletVerified}
	if p.WalletType != nil {
		info.Type = *p.WalletType
	}
	return info
}

// LinkWallet upserts the user's smart wallet as verified
func (ws *WalletService) LinkWallet(ctx context.Context, userID, address string) (*WalletInfo, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	addr, verr := cleanAddress(address)
	if verr != nil {
		return nil, verr
	}
	profile, err := ws.repo.UpsertWallet(ctx, userID, addr, models.WalletTypeSmartWallet, true)
	if err != nil {
		return nil, internalError("Failed to update wallet address", err)
	}
	log.Info().Str("user_id", userID).Str("wallet", addr).Msg("wallet linked")
	return walletOf(profile), nil
}

// AddWallet stores an external wallet that still needs verification
func (ws *WalletService) AddWallet(ctx context.Context, userID, address string) (*WalletInfo, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	addr, verr := cleanAddress(address)
	if verr != nil {
		return nil, verr
	}
	profile, err := ws.repo.UpsertWallet(ctx, userID, addr, models.WalletTypeExternal, false)
	if err != nil {
		return nil, internalError("Failed to add wallet", err)
	}
	return walletOf(profile), nil
}

// VerifyWallet marks the stored wallet as verified. The address must match the stored one.
func (ws *WalletService) VerifyWallet(ctx context.Context, userID, address string) (*WalletInfo, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	addr, verr := cleanAddress(address)
	if verr != nil {
		return nil, verr
	}
	profile, err := ws.repo.MarkWalletVerified(ctx, userID, addr, models.WalletTypeConnected)
	if err != nil {
		return nil, notFoundOr(err, "Wallet not found", "Failed to verify wallet")
	}
	return walletOf(profile), nil
}

// RemoveWallet unlinks the user's wallet
func (ws *WalletService) RemoveWallet(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if err := ws.repo.ClearWallet(ctx, userID); err != nil {
		return notFoundOr(err, "Wallet not found", "Failed to remove wallet")
	}
	return nil
}

// GetWallets returns zero or one wallet for the user
func (ws *WalletService) GetWallets(ctx context.Context, userID string) ([]WalletInfo, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	profile, err := ws.repo.GetProfile(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return []WalletInfo{}, nil
		}
		return nil, internalError("Failed to fetch wallet information", err)
	}
	if info := walletOf(profile); info != nil {
		return []WalletInfo{*info}, nil
	}
	return []WalletInfo{}, nil
}

// ValidateWallet never fails; problems are reported in the result
func (ws *WalletService) ValidateWallet(address string) WalletValidation {
	addr, verr := cleanAddress(address)
	if verr != nil {
		return WalletValidation{Error: verr.Message}
	}
	return WalletValidation{
		IsValid:        true,
		CanReceiveUSDC: true,
		Network:        ws.network,
		Address:        addr,
	}
}

package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thulafunds/crowdfund/services"
)

type walletRequest struct {
	WalletAddress string `json:"walletAddress"`
}

func bindWallet(c *gin.Context) (string, bool) {
	var req walletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return "", false
	}
	return req.WalletAddress, true
}

// walletAction runs a wallet mutation and answers {"success": true, "wallet": ...}
func (ar *APIRoutes) walletAction(c *gin.Context, fn func(ctx context.Context, userID, address string) (*services.WalletInfo, error)) {
	address, ok := bindWallet(c)
	if !ok {
		return
	}
	userID := currentUserID(c)
	wallet, ok := runTimed(c, writeTimeout, func(ctx context.Context) (*services.WalletInfo, error) {
		return fn(ctx, userID, address)
	})
	if !ok {
		return
	}
	resp := gin.H{"success": true, "wallet": wallet}
	if wallet != nil {
		resp["walletAddress"] = wallet.Address
	}
	c.JSON(http.StatusOK, resp)
}

// LinkWallet PUT /api/wallet
func (ar *APIRoutes) LinkWallet(c *gin.Context) {
	ar.walletAction(c, ar.wallets.LinkWallet)
}

// AddWallet POST /api/wallet
func (ar *APIRoutes) AddWallet(c *gin.Context) {
	ar.walletAction(c, ar.wallets.AddWallet)
}

// VerifyWallet POST /api/wallet/verify
func (ar *APIRoutes) VerifyWallet(c *gin.Context) {
	ar.walletAction(c, ar.wallets.VerifyWallet)
}

// RemoveWallet DELETE /api/wallet
func (ar *APIRoutes) RemoveWallet(c *gin.Context) {
	userID := currentUserID(c)
	_, ok := runTimed(c, writeTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, ar.wallets.RemoveWallet(ctx, userID)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetWallets GET /api/wallet
func (ar *APIRoutes) GetWallets(c *gin.Context) {
	userID := currentUserID(c)
	wallets, ok := runTimed(c, readTimeout, func(ctx context.Context) ([]services.WalletInfo, error) {
		return ar.wallets.GetWallets(ctx, userID)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

// ValidateWallet POST /api/wallet/validate always answers 200 with the verdict
func (ar *APIRoutes) ValidateWallet(c *gin.Context) {
	var req walletRequest
	_ = c.ShouldBindJSON(&req)
	c.JSON(http.StatusOK, ar.wallets.ValidateWallet(req.WalletAddress))
}

// Dashboard GET /api/dashboard
func (ar *APIRoutes) Dashboard(c *gin.Context) {
	userID := currentUserID(c)
	dash, ok := runTimed(c, readTimeout, func(ctx context.Context) (*services.Dashboard, error) {
		return ar.dashboard.Dashboard(ctx, userID)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dash)
}

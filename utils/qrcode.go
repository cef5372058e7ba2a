package utils

import (
	"strconv"

	"github.com/skip2/go-qrcode"
)

// BaseChainID is the EVM chain id of Base mainnet
const BaseChainID = 8453

// GenerateQRCode renders text as a PNG QR code
func GenerateQRCode(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(text, qrcode.Medium, size)
}

// WalletPaymentURI builds an EIP-681 style URI for a wallet on the given chain
func WalletPaymentURI(address string, chainID int) string {
	if chainID <= 0 {
		return "ethereum:" + address
	}
	return "ethereum:" + address + "@" + strconv.Itoa(chainID)
}

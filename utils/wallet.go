package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var walletAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidWalletAddress reports whether addr is a 20-byte hex EVM address
func IsValidWalletAddress(addr string) bool {
	return walletAddressPattern.MatchString(strings.TrimSpace(addr))
}

// NormalizeWalletAddress trims and lower-cases an address
func NormalizeWalletAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// GenerateConnID returns a random connection id
func GenerateConnID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d%x", time.Now().UnixNano(), b)
	}
	return hex.EncodeToString(b)
}

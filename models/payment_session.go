package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// PaymentSession is one client-reported on-chain USDC transfer
type PaymentSession struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	TxHash           string          `gorm:"column:tx_hash;size:66;uniqueIndex;not null" json:"tx_hash"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"amount"`
	FromAddress      string          `gorm:"size:42;index" json:"from_address"`
	RecipientAddress string          `gorm:"size:42" json:"recipient_address"`
	Endpoint         string          `gorm:"size:255;index" json:"endpoint"`
	Status           string          `gorm:"size:20;index" json:"status"` // pending, completed
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

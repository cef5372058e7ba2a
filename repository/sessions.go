package repository

import (
	"context"

	"github.com/thulafunds/crowdfund/models"
)

// FindSessionByTxHash returns the session recorded for txHash
func (r *Repository) FindSessionByTxHash(ctx context.Context, txHash string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	if err := r.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&session).Error; err != nil {
		return nil, wrap("find payment session", err)
	}
	return &session, nil
}

// FindCompletedSession looks a session up by hash and the endpoint it was paid for
func (r *Repository) FindCompletedSession(ctx context.Context, txHash, endpoint string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := r.db.WithContext(ctx).
		Where("tx_hash = ? AND endpoint = ? AND status = ?", txHash, endpoint, models.PaymentStatusCompleted).
		First(&session).Error
	if err != nil {
		return nil, wrap("find completed payment session", err)
	}
	return &session, nil
}

// CreateSession inserts a session; a reused hash is a unique violation
func (r *Repository) CreateSession(ctx context.Context, session *models.PaymentSession) error {
	return wrap("create payment session", r.db.WithContext(ctx).Create(session).Error)
}

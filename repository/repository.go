package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository wraps the gorm handle shared by every service
type Repository struct {
	db *gorm.DB
}

// New wraps an open gorm connection
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Ping checks the underlying connection
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

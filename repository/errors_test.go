package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", ErrDuplicate)))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: PgErrUniqueViolation}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: PgErrForeignKeyViolation}))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: payment_sessions.tx_hash")))
	assert.True(t, IsUniqueViolation(errors.New("Error 1062: Duplicate entry '0xabc' for key 'tx_hash'")))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, wrap("op", nil))
	assert.ErrorIs(t, wrap("op", gorm.ErrRecordNotFound), ErrNotFound)
	assert.True(t, IsNotFound(wrap("op", gorm.ErrRecordNotFound)))

	dup := wrap("create session", gorm.ErrDuplicatedKey)
	assert.ErrorIs(t, dup, ErrDuplicate)
	var repoErr *RepositoryError
	assert.True(t, errors.As(dup, &repoErr))
	assert.Equal(t, PgErrUniqueViolation, repoErr.Code)
	assert.True(t, IsUniqueViolation(dup))

	fk := wrap("create contribution", &pgconn.PgError{Code: PgErrForeignKeyViolation, Message: "violates foreign key"})
	assert.True(t, errors.As(fk, &repoErr))
	assert.Equal(t, PgErrForeignKeyViolation, repoErr.Code)
	assert.Equal(t, "create contribution: violates foreign key", fk.Error())

	other := wrap("list", errors.New("connection reset"))
	assert.True(t, errors.As(other, &repoErr))
	assert.Equal(t, "DATABASE_ERROR", repoErr.Code)
}

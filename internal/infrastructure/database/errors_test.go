package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))

	sold := apperror.Conflict(apperror.CodeSoldOut, "Sold out")
	assert.Same(t, sold, Classify(fmt.Errorf("tx: %w", sold)))

	assert.Equal(t, apperror.KindTransient, apperror.KindOf(Classify(context.DeadlineExceeded)))
	assert.Equal(t, apperror.KindTransient, apperror.KindOf(Classify(&pgconn.PgError{Code: "57014"})))
	assert.Equal(t, apperror.KindTransient, apperror.KindOf(Classify(&pgconn.PgError{Code: "08006"})))
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(Classify(&pgconn.PgError{Code: "42P01"})))
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(Classify(errors.New("boom"))))
}

func TestIsUniqueViolation_Postgres(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

func TestOpen_SQLiteTranslatesDuplicateKeys(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	userID, itemID := uuid.New(), uuid.New()
	first := domain.SavedItem{UserID: userID, ItemType: domain.ListingEvent, ItemID: itemID}
	require.NoError(t, db.Create(&first).Error)

	dup := domain.SavedItem{UserID: userID, ItemType: domain.ListingEvent, ItemID: itemID}
	err = db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

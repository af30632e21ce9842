package repos

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"progress-engine/models"
	"progress-engine/utils"
)

func newSQLiteStore(t *testing.T) TxStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return NewGormStore(db, utils.NopLogger())
}

func TestGormStoreContract(t *testing.T) {
	runStoreContract(t, newSQLiteStore)
}

func TestGormStoreBadgeMetadata(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	_, err := s.CreateBadge(ctx, &models.Badge{
		ExternalUserID: "u1",
		Name:           "Caching Expert",
		Category:       models.BadgeCategorySpecial,
		Metadata:       []byte(`{"activity_type":"quiz","score":95}`),
	})
	require.NoError(t, err)

	b, err := s.FindBadge(ctx, "u1", "Caching Expert")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.JSONEq(t, `{"activity_type":"quiz","score":95}`, string(b.Metadata))
}

func TestGormStoreTxWithoutProfile(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	// the row lock finds nothing; fn still runs and sees the missing profile
	err := s.InUserTx(ctx, "ghost", func(tx Store) error {
		_, err := tx.GetProfile(ctx, "ghost")
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

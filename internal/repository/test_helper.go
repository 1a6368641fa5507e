package repository

import (
	"testing"

	"github.com/nimasrn/crowdfund/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Entities lists every table, in dependency order, for AutoMigrate.
func Entities() []interface{} {
	return []interface{}{
		&UserEntity{},
		&CampaignEntity{},
		&PaymentEntity{},
		&WithdrawalEntity{},
		&CommentEntity{},
		&CampaignUpdateEntity{},
		&SettingsEntity{},
		&EmailTemplateEntity{},
	}
}

// OpenTestDB returns an in-memory sqlite database with every table created.
// A single connection is used so that all queries see the same memory database.
func OpenTestDB(t testing.TB) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Entities()...))

	return pg.New(db, db)
}

func setupTestDB(t *testing.T) *pg.DB {
	return OpenTestDB(t)
}

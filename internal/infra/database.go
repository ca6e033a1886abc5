package infra

import (
	"tradecore/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx. TranslateError is
// required: the version store relies on gorm.ErrDuplicatedKey to turn a
// (deal_id, version) unique violation into a Conflict instead of an opaque
// driver error.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	return db, nil
}

// RunMigrations creates/updates all tables. Also used by integration tests.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Company{},
		&model.Deal{},
		&model.DealItem{},
		&model.DealHistory{},
		&model.DealDocument{},
	)
}

package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunMigrations runs data fixes that AutoMigrate does not cover.
// Safe to run on every start.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if err := migrateScanDefaults(db, log); err != nil {
		return err
	}
	return nil
}

// migrateScanDefaults backfills columns added after the first scan_records
// rows were written.
func migrateScanDefaults(db *gorm.DB, log *zap.Logger) error {
	if !db.Migrator().HasTable("scan_records") {
		return nil
	}

	result := db.Exec(`UPDATE scan_records SET language = 'en' WHERE language IS NULL OR language = ''`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Info("Backfilled scan language", zap.Int64("rows", result.RowsAffected))
	}

	result = db.Exec(`UPDATE scan_records SET attempts = 1 WHERE attempts IS NULL OR attempts < 1`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Info("Backfilled scan attempts", zap.Int64("rows", result.RowsAffected))
	}
	return nil
}

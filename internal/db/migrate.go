package db

import (
	"wagerescrow/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.PlatformConfig{},
		&models.Match{},
		&models.SessionVault{},
		&models.LedgerAccount{},
		&models.LedgerEntry{},
		&models.EventRecord{},
		&models.AdminAction{},
		&models.SystemAlert{},
	)
}

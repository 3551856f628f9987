package database

import (
	"log"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ProfileDB *gorm.DB

// OpenProfile opens the SQLite file backing the local profile cache
func OpenProfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	// SQLite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	ProfileDB = db
	log.Printf("✅ Opened profile cache at %s", path)
	return nil
}

// CloseProfile closes the profile database
func CloseProfile() error {
	if ProfileDB == nil {
		return nil
	}
	sqlDB, err := ProfileDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

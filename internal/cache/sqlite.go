package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one cached value. Value holds the sealed bytes when a cipher is configured.
type Entry struct {
	Key       string `gorm:"column:cache_key;primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "cache_entries"
}

// SQLite is a durable LocalCache scoped to one profile database file.
type SQLite struct {
	db     *gorm.DB
	cipher *utils.Cipher
}

// NewSQLite migrates the cache table on db. cipher may be nil.
func NewSQLite(db *gorm.DB, cipher *utils.Cipher) (*SQLite, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cache table: %w", err)
	}
	return &SQLite{db: db, cipher: cipher}, nil
}

func (s *SQLite) Get(key string) ([]byte, bool, error) {
	var e Entry
	err := s.db.Where("cache_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.cipher == nil {
		return e.Value, true, nil
	}
	plain, err := s.cipher.Open(e.Value)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decrypt cache entry %s: %w", key, err)
	}
	return plain, true, nil
}

func (s *SQLite) Set(key string, value []byte) error {
	stored := value
	if s.cipher != nil {
		sealed, err := s.cipher.Seal(value)
		if err != nil {
			return err
		}
		stored = sealed
	}
	e := Entry{Key: key, Value: stored, UpdatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (s *SQLite) Delete(key string) error {
	return s.db.Where("cache_key = ?", key).Delete(&Entry{}).Error
}

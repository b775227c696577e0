// Package kv stores expiring key value pairs in the main database.
// Storage satisfies fiber.Storage and backs token revocation on sqlite,
// where no gofiber storage driver is wired.
package kv

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
)

const keyQueryPattern = "kv_key = ?"

var (
	// ErrKeyEmpty is returned when a key is empty.
	ErrKeyEmpty = errors.New("kv key cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Storage is a gorm backed fiber.Storage.
type Storage struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns a Storage on db, db must have the KV model migrated.
func New(db *gorm.DB) (*Storage, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &Storage{db: db, now: time.Now}, nil
}

// Get returns the value of key, nil if it is missing or expired.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}

	var entry models.KV

	err := s.db.Where(keyQueryPattern, key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if entry.ExpiresAt != 0 && entry.ExpiresAt <= s.now().Unix() {
		return nil, nil
	}

	return entry.Value, nil
}

// Set stores val under key, exp 0 never expires.
func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" {
		return ErrKeyEmpty
	}

	entry := models.KV{Key: key, Value: val}
	if exp > 0 {
		entry.ExpiresAt = s.now().Add(exp).Unix()
	}

	return s.db.Clauses(clause.OnConflict{ //nolint:wrapcheck
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&entry).Error
}

// Claim stores key unless a live entry holds it already and reports whether
// it did. The insert is a single statement, so concurrent claims of one key
// have exactly one winner.
func (s *Storage) Claim(key string, exp time.Duration) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}

	now := s.now()

	if err := s.db.Where(keyQueryPattern+" AND expires_at <> 0 AND expires_at <= ?", key, now.Unix()).
		Delete(&models.KV{}).Error; err != nil {
		return false, err //nolint:wrapcheck
	}

	entry := models.KV{Key: key, Value: []byte("1")}
	if exp > 0 {
		entry.ExpiresAt = now.Add(exp).Unix()
	}

	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if res.Error != nil {
		return false, res.Error //nolint:wrapcheck
	}

	return res.RowsAffected == 1, nil
}

// Delete removes key, a missing key is not an error.
func (s *Storage) Delete(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}

	return s.db.Where(keyQueryPattern, key).Delete(&models.KV{}).Error //nolint:wrapcheck
}

// Reset removes every entry.
func (s *Storage) Reset() error {
	return s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.KV{}).Error //nolint:wrapcheck
}

// Close is a no-op, the connection belongs to the caller.
func (s *Storage) Close() error {
	return nil
}

// GC removes expired entries and returns how many were removed.
func (s *Storage) GC() (int64, error) {
	res := s.db.Where("expires_at <> 0 AND expires_at <= ?", s.now().Unix()).Delete(&models.KV{})

	return res.RowsAffected, res.Error //nolint:wrapcheck
}

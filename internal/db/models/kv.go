// Package models contains database model definitions.
package models

// KV is a raw key value entry with an optional expiry.
type KV struct {
	Key string `gorm:"column:kv_key;primaryKey;size:255"`
	// Value is the stored payload.
	Value []byte
	// ExpiresAt is the unix time after which the entry is gone, 0 for never.
	ExpiresAt int64 `gorm:"index"`
}

// TableName specifies the database table name for the KV model.
func (KV) TableName() string {
	return "kv_entries"
}

package models

import (
	"time"
)

// CacheSnapshot is the single durable row holding the serialized query
// cache. Key is fixed; Buster tags the snapshot format version so stale
// layouts are discarded on restore instead of deserialized. Key is the
// primary key and deletes are hard: a save replaces the prior row rather
// than accumulating payload blobs.
type CacheSnapshot struct {
	Key     string    `json:"key" gorm:"primaryKey"`
	Buster  string    `json:"buster" gorm:"not null"`
	SavedAt time.Time `json:"savedAt" gorm:"not null"`
	Payload []byte    `json:"-" gorm:"not null"`
}

// TableName specifies the table name for CacheSnapshot Model
func (CacheSnapshot) TableName() string {
	return "cache_snapshots"
}

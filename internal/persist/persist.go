package persist

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"lms-companion-api/internal/models"
	"lms-companion-api/internal/querycache"

	"gorm.io/gorm"
)

// SnapshotKey is the fixed durable-storage key for the cache snapshot.
const SnapshotKey = "lms-query-cache"

// FormatBuster tags the snapshot layout. A stored snapshot with a different
// buster is discarded on load instead of deserialized.
const FormatBuster = "v1"

// now is a small indirection to allow test stubbing.
var now = time.Now

// Store snapshots the entire query cache to sqlite and restores it at
// startup. All failures degrade to an absent snapshot; the adapter never
// takes the application down.
type Store struct {
	db     *gorm.DB
	buster string
	maxAge time.Duration

	autoQuit chan struct{}
}

// NewStore builds a snapshot store. maxAge bounds how old a snapshot may be
// before it is discarded on load.
func NewStore(db *gorm.DB, buster string, maxAge time.Duration) *Store {
	if buster == "" {
		buster = FormatBuster
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Store{db: db, buster: buster, maxAge: maxAge}
}

// Save serializes the entries under the fixed key, replacing any previous
// snapshot.
func (s *Store) Save(entries map[string]querycache.Entry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	row := models.CacheSnapshot{
		Key:     SnapshotKey,
		Buster:  s.buster,
		SavedAt: now(),
		Payload: payload,
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key = ?", SnapshotKey).Delete(&models.CacheSnapshot{}).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
}

// Load returns the stored snapshot, or ok=false when there is none worth
// restoring. A buster mismatch, an over-age snapshot, or an undecodable
// payload counts as absent and the stale row is removed.
func (s *Store) Load() (map[string]querycache.Entry, bool, error) {
	var row models.CacheSnapshot
	err := s.db.Where("key = ?", SnapshotKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if row.Buster != s.buster || now().Sub(row.SavedAt) > s.maxAge {
		_ = s.Remove()
		return nil, false, nil
	}
	var entries map[string]querycache.Entry
	if err := json.Unmarshal(row.Payload, &entries); err != nil {
		_ = s.Remove()
		return nil, false, nil
	}
	return entries, true, nil
}

// Remove deletes the stored snapshot.
func (s *Store) Remove() error {
	return s.db.Where("key = ?", SnapshotKey).Delete(&models.CacheSnapshot{}).Error
}

// SaveCache snapshots the cache, logging instead of failing.
func (s *Store) SaveCache(c *querycache.Cache) {
	if err := s.Save(c.Export()); err != nil {
		log.Printf("persist: snapshot save failed: %v", err)
	}
}

// RestoreCache seeds the cache from a stored snapshot if one is usable.
func (s *Store) RestoreCache(c *querycache.Cache) {
	entries, ok, err := s.Load()
	if err != nil {
		log.Printf("persist: snapshot load failed, starting empty: %v", err)
		return
	}
	if !ok {
		return
	}
	c.Import(entries)
	log.Printf("persist: restored %d cached entries", len(entries))
}

// StartAutoSave snapshots the cache on an interval until StopAutoSave.
func (s *Store) StartAutoSave(c *querycache.Cache, interval time.Duration) {
	if s.autoQuit != nil {
		return
	}
	quit := make(chan struct{})
	s.autoQuit = quit
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				s.SaveCache(c)
			}
		}
	}()
}

// StopAutoSave stops the periodic snapshot and takes a final one.
func (s *Store) StopAutoSave(c *querycache.Cache) {
	if s.autoQuit != nil {
		close(s.autoQuit)
		s.autoQuit = nil
	}
	s.SaveCache(c)
}

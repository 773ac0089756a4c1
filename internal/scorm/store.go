package scorm

import (
	"errors"
	"log"
	"sync"

	"lms-companion-api/internal/models"

	"gorm.io/gorm"
)

// ElementStore is the storage medium behind the runtime bridge. Which
// implementation backs a bridge is selected by the offline-mode flag:
// durable rows offline, session-scoped memory otherwise. The legacy
// contract never surfaces storage errors; a failed read is an absent value.
type ElementStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// SessionStore keeps elements in memory for the lifetime of one player
// session.
type SessionStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewSessionStore constructs an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{items: make(map[string]string)}
}

func (s *SessionStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *SessionStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Clear drops all session elements.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]string)
}

// DurableStore keeps elements as sqlite rows so offline progress survives
// restarts. Entries are created or overwritten on set and never deleted
// implicitly.
type DurableStore struct {
	db *gorm.DB
}

// NewDurableStore constructs a store over the given database.
func NewDurableStore(db *gorm.DB) *DurableStore {
	return &DurableStore{db: db}
}

func (s *DurableStore) Get(key string) (string, bool) {
	var row models.ContentElement
	err := s.db.Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false
	}
	if err != nil {
		log.Printf("scorm: element read failed for %s: %v", key, err)
		return "", false
	}
	return row.Value, true
}

func (s *DurableStore) Set(key, value string) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key = ?", key).Delete(&models.ContentElement{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.ContentElement{Key: key, Value: value}).Error
	})
	if err != nil {
		log.Printf("scorm: element write failed for %s: %v", key, err)
	}
}

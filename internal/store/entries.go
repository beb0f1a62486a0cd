// Package store implements the local, authoritative persistence layer:
// the weight entry collection and the settings record, both serialized
// as JSON under stable keys in a durable key-value store.
package store

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/obelyaeva/weightly/internal/models"
)

const entriesKey = "entries"

// EntryStore persists the weight entry collection. Reads never fail:
// missing or corrupt stored data is logged and treated as an empty
// collection. Writes surface *WriteError so callers learn when the
// durable view has diverged.
type EntryStore struct {
	kv  KV
	log *zap.Logger

	mu sync.Mutex

	// now and newID are swappable for tests.
	now   func() time.Time
	newID func() string
}

// NewEntryStore creates an EntryStore over the given KV.
func NewEntryStore(kv KV, log *zap.Logger) *EntryStore {
	return &EntryStore{
		kv:    kv,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// GetAll returns every entry in insertion order. Corrupt or unreadable
// stored data yields an empty slice, never an error.
func (s *EntryStore) GetAll() []models.WeightEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add assigns an ID and timestamps to the new entry, appends it and
// persists the whole collection.
func (s *EntryStore) Add(n models.NewEntry) (models.WeightEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	entry := models.WeightEntry{
		ID:        s.newID(),
		Date:      n.Date,
		Weight:    n.Weight,
		Notes:     n.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	entries := append(s.load(), entry)
	if err := s.persist(entries); err != nil {
		return models.WeightEntry{}, err
	}
	return entry, nil
}

// Update applies the patch to the entry with the given ID and refreshes
// UpdatedAt. Returns ErrNotFound, with the collection unchanged, when
// the ID is absent.
func (s *EntryStore) Update(id string, p models.EntryPatch) (models.WeightEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	for i := range entries {
		if entries[i].ID != id {
			continue
		}
		if p.Date != nil {
			entries[i].Date = *p.Date
		}
		if p.Weight != nil {
			entries[i].Weight = *p.Weight
		}
		if p.Notes != nil {
			entries[i].Notes = *p.Notes
		}
		entries[i].UpdatedAt = s.now().UTC()

		if err := s.persist(entries); err != nil {
			return models.WeightEntry{}, err
		}
		return entries[i], nil
	}
	return models.WeightEntry{}, ErrNotFound
}

// Delete removes the entry with the given ID. Returns false when the
// ID is absent.
func (s *EntryStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	for i := range entries {
		if entries[i].ID != id {
			continue
		}
		entries = append(entries[:i], entries[i+1:]...)
		if err := s.persist(entries); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// SaveAll overwrites the whole collection. Used by the import and
// recovery paths.
func (s *EntryStore) SaveAll(entries []models.WeightEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(entries)
}

// load reads the collection from storage. Callers must hold s.mu.
func (s *EntryStore) load() []models.WeightEntry {
	data, ok, err := s.kv.Get(entriesKey)
	if err != nil {
		s.log.Warn("reading entries failed, treating as empty", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var entries []models.WeightEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn("stored entries are corrupt, treating as empty", zap.Error(err))
		return nil
	}
	return entries
}

// persist writes the collection to storage. Callers must hold s.mu.
func (s *EntryStore) persist(entries []models.WeightEntry) error {
	if entries == nil {
		entries = []models.WeightEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return &WriteError{Key: entriesKey, Err: err}
	}
	if err := s.kv.Put(entriesKey, data); err != nil {
		return &WriteError{Key: entriesKey, Err: err}
	}
	return nil
}

package store

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/obelyaeva/weightly/internal/models"
)

const settingsKey = "settings"

// SettingsStore persists the singleton settings record. A persisted
// partial record is always merged over the defaults, so Get yields a
// valid WeightUnit and DateFormat even when only a name was saved.
type SettingsStore struct {
	kv  KV
	log *zap.Logger

	mu sync.Mutex
}

// NewSettingsStore creates a SettingsStore over the given KV.
func NewSettingsStore(kv KV, log *zap.Logger) *SettingsStore {
	return &SettingsStore{kv: kv, log: log}
}

// Get returns the settings, created with defaults on first access.
// Corrupt or unreadable stored data yields the defaults, never an error.
func (s *SettingsStore) Get() models.UserSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save overwrites the settings record.
func (s *SettingsStore) Save(settings models.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(settings)
}

// Update merges the patch over the current settings and saves the result.
func (s *SettingsStore) Update(p models.SettingsPatch) (models.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.load()
	if p.Name != nil {
		settings.Name = *p.Name
	}
	if p.GoalWeight != nil {
		settings.GoalWeight = p.GoalWeight
	}
	if p.StartWeight != nil {
		settings.StartWeight = p.StartWeight
	}
	if p.HeightCm != nil {
		settings.HeightCm = p.HeightCm
	}
	if p.WeightUnit != nil {
		settings.WeightUnit = *p.WeightUnit
	}
	if p.DateFormat != nil {
		settings.DateFormat = *p.DateFormat
	}

	if err := s.persist(settings); err != nil {
		return models.UserSettings{}, err
	}
	return settings, nil
}

// load reads the record from storage. Callers must hold s.mu.
func (s *SettingsStore) load() models.UserSettings {
	data, ok, err := s.kv.Get(settingsKey)
	if err != nil {
		s.log.Warn("reading settings failed, using defaults", zap.Error(err))
		return models.DefaultSettings()
	}
	if !ok {
		return models.DefaultSettings()
	}

	var settings models.UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		s.log.Warn("stored settings are corrupt, using defaults", zap.Error(err))
		return models.DefaultSettings()
	}
	return settings.WithDefaults()
}

// persist writes the record to storage. Callers must hold s.mu.
func (s *SettingsStore) persist(settings models.UserSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return &WriteError{Key: settingsKey, Err: err}
	}
	if err := s.kv.Put(settingsKey, data); err != nil {
		return &WriteError{Key: settingsKey, Err: err}
	}
	return nil
}

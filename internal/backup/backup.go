// Package backup implements export and guarded import of the full local
// state. Import is all-or-nothing: the current state is backed up
// before any write, and any failure during the write phase restores the
// backup verbatim.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/obelyaeva/weightly/internal/models"
	"github.com/obelyaeva/weightly/internal/store"
)

// Version identifies the snapshot format.
const Version = "1.0.0"

// ErrInvalidBackup reports a malformed backup payload; the local store
// is untouched when it is returned.
var ErrInvalidBackup = errors.New("invalid backup file")

// Snapshot is the self-contained export format.
type Snapshot struct {
	Entries    []models.WeightEntry `json:"entries"`
	Settings   models.UserSettings  `json:"settings"`
	ExportDate time.Time            `json:"exportDate"`
	Version    string               `json:"version"`
}

// Guard performs validated, rollback-protected swaps of the local
// store's full contents.
type Guard struct {
	entries  *store.EntryStore
	settings *store.SettingsStore
	log      *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewGuard creates a Guard over the given stores.
func NewGuard(entries *store.EntryStore, settings *store.SettingsStore, log *zap.Logger) *Guard {
	return &Guard{
		entries:  entries,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
}

// Export serializes the current entries and settings as one snapshot.
func (g *Guard) Export() ([]byte, error) {
	snapshot := Snapshot{
		Entries:    g.entries.GetAll(),
		Settings:   g.settings.Get(),
		ExportDate: g.now().UTC(),
		Version:    Version,
	}
	if snapshot.Entries == nil {
		snapshot.Entries = []models.WeightEntry{}
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Import validates data, backs up the current state, and overwrites
// entries and settings with the imported ones. On any write failure the
// pre-import backup is restored and the original error returned.
// Imported settings are merged over the usual defaults, so an older
// snapshot cannot leave required fields unset.
func (g *Guard) Import(data []byte) error {
	snapshot, err := parseSnapshot(data)
	if err != nil {
		return err
	}

	prevEntries := g.entries.GetAll()
	prevSettings := g.settings.Get()

	if err := g.entries.SaveAll(snapshot.Entries); err != nil {
		g.rollback(prevEntries, prevSettings)
		return err
	}
	if err := g.settings.Save(snapshot.Settings.WithDefaults()); err != nil {
		g.rollback(prevEntries, prevSettings)
		return err
	}

	g.log.Info("backup imported", zap.Int("entries", len(snapshot.Entries)))
	return nil
}

// rollback restores the pre-import state. Restore failures are logged;
// the original import error is what propagates to the caller.
func (g *Guard) rollback(entries []models.WeightEntry, settings models.UserSettings) {
	if err := g.entries.SaveAll(entries); err != nil {
		g.log.Error("restoring entries after failed import", zap.Error(err))
	}
	if err := g.settings.Save(settings); err != nil {
		g.log.Error("restoring settings after failed import", zap.Error(err))
	}
}

// parseSnapshot validates the payload shape before anything touches
// storage: entries must be an array and settings an object.
func parseSnapshot(data []byte) (Snapshot, error) {
	var raw struct {
		Entries  json.RawMessage `json:"entries"`
		Settings json.RawMessage `json:"settings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if !startsWith(raw.Entries, '[') {
		return Snapshot{}, fmt.Errorf("%w: entries must be an array", ErrInvalidBackup)
	}
	if !startsWith(raw.Settings, '{') {
		return Snapshot{}, fmt.Errorf("%w: settings must be an object", ErrInvalidBackup)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return snapshot, nil
}

// startsWith reports whether the raw JSON value begins with the given
// byte, ignoring leading whitespace.
func startsWith(raw json.RawMessage, b byte) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return c == b
		}
	}
	return false
}

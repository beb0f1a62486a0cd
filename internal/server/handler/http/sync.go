package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/obelyaeva/weightly/internal/airtable"
	"github.com/obelyaeva/weightly/internal/syncer"
)

// SyncService defines the coordinator operations required by the
// SyncHandler.
type SyncService interface {
	// Status reports the sync state without side effects.
	Status() syncer.SyncStatus
	// ForceSync marks everything dirty and runs one awaited push.
	ForceSync(ctx context.Context) error
	// Recover overwrites local state from the remote.
	Recover(ctx context.Context) error
	// SetOnline records a connectivity signal.
	SetOnline(online bool)
}

// RemoteAdmin defines the remote maintenance operations exposed when a
// remote is configured. Nil when running local-only.
type RemoteAdmin interface {
	// TestConnection probes both remote tables.
	TestConnection(ctx context.Context) (airtable.ConnectionStatus, error)
	// DeleteDuplicateSettingsRecords removes racing duplicates.
	DeleteDuplicateSettingsRecords(ctx context.Context) (int, error)
}

// SyncHandler handles HTTP requests for sync control and inspection.
type SyncHandler struct {
	SyncService SyncService
	// RemoteAdmin is nil when no remote is configured.
	RemoteAdmin RemoteAdmin
}

// Status handles GET /api/sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.SyncService.Status())
}

// Force handles POST /api/sync/force.
func (h *SyncHandler) Force(w http.ResponseWriter, r *http.Request) {
	err := h.SyncService.ForceSync(r.Context())
	switch {
	case errors.Is(err, syncer.ErrNoRemote):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, syncer.ErrOffline):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Recover handles POST /api/sync/recover. Destructive: remote data
// overwrites local state.
func (h *SyncHandler) Recover(w http.ResponseWriter, r *http.Request) {
	err := h.SyncService.Recover(r.Context())
	switch {
	case errors.Is(err, syncer.ErrNoRemote):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Test handles GET /api/sync/test.
func (h *SyncHandler) Test(w http.ResponseWriter, r *http.Request) {
	if h.RemoteAdmin == nil {
		http.Error(w, "remote sync is not configured", http.StatusConflict)
		return
	}
	status, err := h.RemoteAdmin.TestConnection(r.Context())
	if err != nil && status.Message == "" {
		status.Message = err.Error()
	}
	// The probe result itself is the payload, even on failure.
	writeJSON(w, http.StatusOK, status)
}

// CleanupSettings handles POST /api/sync/cleanup-settings.
func (h *SyncHandler) CleanupSettings(w http.ResponseWriter, r *http.Request) {
	if h.RemoteAdmin == nil {
		http.Error(w, "remote sync is not configured", http.StatusConflict)
		return
	}
	count, err := h.RemoteAdmin.DeleteDuplicateSettingsRecords(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": count})
}

// Online handles POST /api/online, the environment's connectivity
// signal.
func (h *SyncHandler) Online(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	h.SyncService.SetOnline(req.Online)
	w.WriteHeader(http.StatusNoContent)
}

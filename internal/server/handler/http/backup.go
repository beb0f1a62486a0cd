package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/obelyaeva/weightly/internal/backup"
)

// maxImportSize bounds the accepted backup payload.
const maxImportSize = 10 << 20

// BackupService defines the import/export operations required by the
// BackupHandler.
type BackupService interface {
	// Export serializes the full local state as one snapshot.
	Export() ([]byte, error)
	// Import swaps the local state for the snapshot, all-or-nothing.
	Import(data []byte) error
}

// BackupHandler handles HTTP requests for manual backup and restore.
type BackupHandler struct {
	BackupService BackupService
}

// Export handles GET /api/backup/export, returning the snapshot as a
// downloadable file.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.BackupService.Export()
	if err != nil {
		http.Error(w, "failed to export", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="weightly-backup.json"`)
	_, _ = w.Write(data)
}

// Import handles POST /api/backup/import.
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	err = h.BackupService.Import(data)
	switch {
	case errors.Is(err, backup.ErrInvalidBackup):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		// The guard already rolled the store back; the import failed.
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

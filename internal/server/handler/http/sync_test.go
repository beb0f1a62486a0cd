package http_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obelyaeva/weightly/internal/airtable"
	"github.com/obelyaeva/weightly/internal/syncer"
)

func TestSyncStatus(t *testing.T) {
	router, f := newTestRouter(t, nil)
	f.sync.status = syncer.SyncStatus{Pending: true, Online: true, HasRemote: false}

	w := doJSON(t, router, http.MethodGet, "/api/sync/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got syncer.SyncStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, f.sync.status, got)
}

func TestForceSync_NoRemote(t *testing.T) {
	router, f := newTestRouter(t, nil)
	f.sync.forceErr = syncer.ErrNoRemote

	w := doJSON(t, router, http.MethodPost, "/api/sync/force", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestForceSync_Offline(t *testing.T) {
	router, f := newTestRouter(t, nil)
	f.sync.forceErr = syncer.ErrOffline

	w := doJSON(t, router, http.MethodPost, "/api/sync/force", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestForceSync_Success(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	w := doJSON(t, router, http.MethodPost, "/api/sync/force", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestConnectionTest_NoRemote(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	w := doJSON(t, router, http.MethodGet, "/api/sync/test", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConnectionTest_MissingTables(t *testing.T) {
	admin := &fakeAdmin{status: airtable.ConnectionStatus{
		OK:            false,
		Message:       "tables missing",
		MissingTables: []string{"Weight Entries"},
	}}
	router, _ := newTestRouter(t, admin)

	w := doJSON(t, router, http.MethodGet, "/api/sync/test", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got airtable.ConnectionStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.OK)
	assert.Equal(t, []string{"Weight Entries"}, got.MissingTables)
}

func TestCleanupSettings(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAdmin{deleted: 2})

	w := doJSON(t, router, http.MethodPost, "/api/sync/cleanup-settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":2}`, w.Body.String())
}

func TestSetOnline(t *testing.T) {
	router, f := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/online", `{"online":false}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, f.sync.online)
	assert.False(t, *f.sync.online)
}

func TestBackupExport(t *testing.T) {
	router, f := newTestRouter(t, nil)
	f.backup.exported = []byte(`{"entries":[],"version":"1.0.0"}`)

	w := doJSON(t, router, http.MethodGet, "/api/backup/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "weightly-backup.json")
	assert.Equal(t, string(f.backup.exported), w.Body.String())
}

func TestBackupImport_Invalid(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	w := doJSON(t, router, http.MethodPost, "/api/backup/import", "garbage")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBackupImport_Success(t *testing.T) {
	router, f := newTestRouter(t, nil)
	body := `{"entries":[],"settings":{},"version":"1.0.0"}`

	w := doJSON(t, router, http.MethodPost, "/api/backup/import", body)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.Equal(t, body, string(f.backup.imported))
}

package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/obelyaeva/weightly/internal/models"
)

const (
	testEntriesPath  = "/base123/Weight Entries"
	testSettingsPath = "/base123/User Settings"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:       srv.URL,
		BaseID:        "base123",
		Token:         "secret-token",
		EntriesTable:  "Weight Entries",
		SettingsTable: "User Settings",
	}, zap.NewNop())
}

func writeRecords(w http.ResponseWriter, records ...record) {
	_ = json.NewEncoder(w).Encode(listResponse{Records: records})
}

func writeAPIError(w http.ResponseWriter, status int, errType, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"type": errType, "message": message},
	})
}

func TestFetchEntries_MapsFields(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != testEntriesPath {
			t.Errorf("path = %q; want %q", r.URL.Path, testEntriesPath)
		}
		writeRecords(w,
			record{ID: "rec1", Fields: map[string]any{
				"Entry ID":   "id-1",
				"Date":       "2024-01-01",
				"Weight":     200.5,
				"Notes":      "after holidays",
				"Created At": "2024-01-01T08:00:00Z",
				"Updated At": "2024-01-02T08:00:00Z",
			}},
			// A row without an Entry ID is not ours and must be skipped.
			record{ID: "rec2", Fields: map[string]any{"Weight": 1.0}},
		)
	})

	entries, err := c.FetchEntries(context.Background())
	if err != nil {
		t.Fatalf("FetchEntries failed: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q; want bearer credential", gotAuth)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d; want 1", len(entries))
	}
	e := entries[0]
	if e.ID != "id-1" || e.Date != "2024-01-01" || e.Weight != 200.5 || e.Notes != "after holidays" {
		t.Errorf("entry = %+v", e)
	}
	if e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
		t.Errorf("timestamps not parsed: %+v", e)
	}
}

func TestFetchEntries_TableMissingYieldsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "TABLE_NOT_FOUND", "table not found")
	})

	entries, err := c.FetchEntries(context.Background())
	if err != nil {
		t.Fatalf("expected nil error for missing table, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %+v; want empty", entries)
	}
}

func TestFetchEntries_TransportErrorPropagates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.FetchEntries(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v; want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d; want 500", apiErr.StatusCode)
	}
}

func TestCreateEntries_SkipsExistingAndBatches(t *testing.T) {
	existing := record{ID: "recA", Fields: map[string]any{"Entry ID": "id-existing"}}

	var batches [][]record
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeRecords(w, existing)
		case http.MethodPost:
			var body struct {
				Records []record `json:"records"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			batches = append(batches, body.Records)
			writeRecords(w, body.Records...)
		}
	})

	entries := []models.WeightEntry{{ID: "id-existing", Date: "2024-01-01", Weight: 200}}
	for i := 0; i < 25; i++ {
		entries = append(entries, models.WeightEntry{
			ID:     "id-" + string(rune('a'+i)),
			Date:   "2024-01-02",
			Weight: 199,
		})
	}

	if err := c.CreateEntries(context.Background(), entries); err != nil {
		t.Fatalf("CreateEntries failed: %v", err)
	}

	if len(batches) != 3 {
		t.Fatalf("batches = %d; want 3", len(batches))
	}
	if len(batches[0]) != 10 || len(batches[1]) != 10 || len(batches[2]) != 5 {
		t.Errorf("batch sizes = %d/%d/%d; want 10/10/5", len(batches[0]), len(batches[1]), len(batches[2]))
	}
	for _, batch := range batches {
		for _, r := range batch {
			if r.Fields["Entry ID"] == "id-existing" {
				t.Error("entry already present remotely was re-created")
			}
		}
	}
}

func TestCreateEntries_BatchFailureAborts(t *testing.T) {
	posts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeRecords(w)
		case http.MethodPost:
			posts++
			if posts == 2 {
				writeAPIError(w, http.StatusUnprocessableEntity, "UNKNOWN_FIELD_NAME", `Unknown field name: "Notes"`)
				return
			}
			writeRecords(w)
		}
	})

	var entries []models.WeightEntry
	for i := 0; i < 30; i++ {
		entries = append(entries, models.WeightEntry{ID: "id-" + string(rune('a'+i)), Weight: 180})
	}

	err := c.CreateEntries(context.Background(), entries)
	var fieldErr *UnknownFieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("err = %v; want *UnknownFieldError", err)
	}
	if fieldErr.Table != "Weight Entries" {
		t.Errorf("error names table %q; want %q", fieldErr.Table, "Weight Entries")
	}
	if posts != 2 {
		t.Errorf("posts = %d; want 2 (abort after failed batch)", posts)
	}
}

func TestUpsertSettings_PatchesExistingRecord(t *testing.T) {
	var patchedID string
	var patched map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeRecords(w, record{ID: "recS", Fields: map[string]any{"Name": "Sam"}})
		case http.MethodPatch:
			patchedID = r.URL.Path
			var body struct {
				Fields map[string]any `json:"fields"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			patched = body.Fields
			writeRecords(w)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})
	c.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	goal := 180.0
	settings := models.UserSettings{
		Name:       "Sam",
		GoalWeight: &goal,
		WeightUnit: models.Kg,
		DateFormat: models.DayFirst,
	}
	if err := c.UpsertSettings(context.Background(), settings); err != nil {
		t.Fatalf("UpsertSettings failed: %v", err)
	}

	if patchedID != testSettingsPath+"/recS" {
		t.Errorf("patched %q; want %q", patchedID, testSettingsPath+"/recS")
	}
	if patched["Goal Weight"] != 180.0 || patched["Weight Unit"] != "kg" {
		t.Errorf("patched fields = %+v", patched)
	}
	if patched["Last Updated"] != "2024-05-01T00:00:00Z" {
		t.Errorf("Last Updated = %v", patched["Last Updated"])
	}
}

func TestUpsertSettings_CreatesWhenAbsent(t *testing.T) {
	created := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeRecords(w)
		case http.MethodPost:
			created = true
			writeRecords(w)
		}
	})

	if err := c.UpsertSettings(context.Background(), models.DefaultSettings()); err != nil {
		t.Fatalf("UpsertSettings failed: %v", err)
	}
	if !created {
		t.Error("expected a create when no record exists")
	}
}

func TestFetchSettings_NoneReturnsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeRecords(w)
	})

	settings, err := c.FetchSettings(context.Background())
	if err != nil {
		t.Fatalf("FetchSettings failed: %v", err)
	}
	if settings != nil {
		t.Errorf("settings = %+v; want nil", settings)
	}
}

func TestTestConnection_AccumulatesMissingTables(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == testEntriesPath {
			writeAPIError(w, http.StatusNotFound, "TABLE_NOT_FOUND", "nope")
			return
		}
		writeRecords(w)
	})

	status, err := c.TestConnection(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.OK {
		t.Error("status.OK = true; want false")
	}
	if len(status.MissingTables) != 1 || status.MissingTables[0] != "Weight Entries" {
		t.Errorf("MissingTables = %v", status.MissingTables)
	}
}

func TestTestConnection_BothMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	status, err := c.TestConnection(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(status.MissingTables) != 2 {
		t.Errorf("MissingTables = %v; want both tables", status.MissingTables)
	}
}

func TestDeleteDuplicateSettingsRecords(t *testing.T) {
	var deleted []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeRecords(w,
				record{ID: "rec1", Fields: map[string]any{}},
				record{ID: "rec2", Fields: map[string]any{}},
				record{ID: "rec3", Fields: map[string]any{}},
			)
		case http.MethodDelete:
			deleted = append(deleted, r.URL.Query()["records[]"]...)
			writeRecords(w)
		}
	})

	count, err := c.DeleteDuplicateSettingsRecords(context.Background())
	if err != nil {
		t.Fatalf("DeleteDuplicateSettingsRecords failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d; want 2", count)
	}
	if len(deleted) != 2 || deleted[0] != "rec1" || deleted[1] != "rec2" {
		t.Errorf("deleted = %v; want [rec1 rec2] (keep the most recent)", deleted)
	}
}

func TestClassify_ChoiceMisconfigured(t *testing.T) {
	err := classify("User Settings", http.StatusUnprocessableEntity,
		"INVALID_MULTIPLE_CHOICE_OPTIONS", `Insufficient permissions to create new select option "kg"`)
	var choiceErr *ChoiceOptionError
	if !errors.As(err, &choiceErr) {
		t.Fatalf("err = %v; want *ChoiceOptionError", err)
	}
}

func TestClassify_BareStringErrorBody(t *testing.T) {
	var resp errorResponse
	if err := json.Unmarshal([]byte(`{"error":"NOT_FOUND"}`), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Error.Type != "NOT_FOUND" {
		t.Errorf("type = %q; want NOT_FOUND", resp.Error.Type)
	}
}

// Package http provides HTTP handlers exposing the weight tracker's
// persistence operations to the UI layer.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/obelyaeva/weightly/internal/models"
	"github.com/obelyaeva/weightly/internal/store"
)

// Input-validation bounds. Enforced here, at the UI boundary, not in
// storage.
const (
	maxWeight   = 1500
	maxNotesLen = 200
)

// EntryService defines the entry operations required by the
// EntriesHandler. Implemented by the sync coordinator.
type EntryService interface {
	// Entries returns all entries in storage order.
	Entries() []models.WeightEntry
	// AddEntry stores a new entry and schedules a push.
	AddEntry(n models.NewEntry) (models.WeightEntry, error)
	// UpdateEntry edits an entry; store.ErrNotFound when absent.
	UpdateEntry(id string, p models.EntryPatch) (models.WeightEntry, error)
	// DeleteEntry removes an entry; false when absent.
	DeleteEntry(id string) (bool, error)
}

// EntriesHandler handles HTTP requests for the entry collection.
type EntriesHandler struct {
	EntryService EntryService
}

// List handles GET /api/entries. Entries come back display-sorted:
// by date, ties broken by insertion order.
func (h *EntriesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.SortForDisplay(h.EntryService.Entries()))
}

// Create handles POST /api/entries.
func (h *EntriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.NewEntry
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := validateNewEntry(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.EntryService.AddEntry(req)
	if err != nil {
		http.Error(w, "failed to save entry", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Update handles PUT /api/entries/{id}.
func (h *EntriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.EntryPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := validatePatch(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.EntryService.UpdateEntry(id, req)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to save entry", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/entries/{id}.
func (h *EntriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ok, err := h.EntryService.DeleteEntry(id)
	if err != nil {
		http.Error(w, "failed to delete entry", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "entry not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateNewEntry(n models.NewEntry) error {
	if err := validateDate(n.Date); err != nil {
		return err
	}
	if err := validateWeight(n.Weight); err != nil {
		return err
	}
	return validateNotes(n.Notes)
}

func validatePatch(p models.EntryPatch) error {
	if p.Date != nil {
		if err := validateDate(*p.Date); err != nil {
			return err
		}
	}
	if p.Weight != nil {
		if err := validateWeight(*p.Weight); err != nil {
			return err
		}
	}
	if p.Notes != nil {
		return validateNotes(*p.Notes)
	}
	return nil
}

func validateDate(date string) error {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD")
	}
	// Compare calendar days, not instants, so "today" stays valid.
	today := time.Now().Format(models.DateLayout)
	if d.Format(models.DateLayout) > today {
		return fmt.Errorf("date must not be in the future")
	}
	return nil
}

func validateWeight(weight float64) error {
	if weight <= 0 {
		return fmt.Errorf("weight must be positive")
	}
	if weight > maxWeight {
		return fmt.Errorf("weight must be at most %d", maxWeight)
	}
	return nil
}

func validateNotes(notes string) error {
	if len([]rune(notes)) > maxNotesLen {
		return fmt.Errorf("notes must be at most %d characters", maxNotesLen)
	}
	return nil
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/obelyaeva/weightly/internal/models"
)

// SettingsService defines the settings operations required by the
// SettingsHandler. Implemented by the sync coordinator.
type SettingsService interface {
	// Settings returns the current record, defaults merged.
	Settings() models.UserSettings
	// UpdateSettings merges the patch over the current record.
	UpdateSettings(p models.SettingsPatch) (models.UserSettings, error)
}

// SettingsHandler handles HTTP requests for the settings record.
type SettingsHandler struct {
	SettingsService SettingsService
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.SettingsService.Settings())
}

// Update handles PUT /api/settings.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := validateSettingsPatch(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	settings, err := h.SettingsService.UpdateSettings(req)
	if err != nil {
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func validateSettingsPatch(p models.SettingsPatch) error {
	if p.WeightUnit != nil && *p.WeightUnit != models.Lbs && *p.WeightUnit != models.Kg {
		return fmt.Errorf("weightUnit must be %q or %q", models.Lbs, models.Kg)
	}
	if p.DateFormat != nil && *p.DateFormat != models.MonthFirst && *p.DateFormat != models.DayFirst {
		return fmt.Errorf("dateFormat must be %q or %q", models.MonthFirst, models.DayFirst)
	}
	for name, v := range map[string]*float64{
		"goalWeight":  p.GoalWeight,
		"startWeight": p.StartWeight,
		"heightCm":    p.HeightCm,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

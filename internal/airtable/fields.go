package airtable

import (
	"time"

	"github.com/obelyaeva/weightly/internal/models"
)

// Remote field names. The mapping is fixed and case-sensitive; the
// remote tables must be provisioned with exactly these columns.
const (
	fieldEntryID   = "Entry ID"
	fieldDate      = "Date"
	fieldWeight    = "Weight"
	fieldNotes     = "Notes"
	fieldCreatedAt = "Created At"
	fieldUpdatedAt = "Updated At"

	fieldName        = "Name"
	fieldGoalWeight  = "Goal Weight"
	fieldStartWeight = "Start Weight"
	fieldHeightCm    = "Height Cm"
	fieldWeightUnit  = "Weight Unit"
	fieldDateFormat  = "Date Format"
	fieldLastUpdated = "Last Updated"
)

// entryFields maps a local entry to the remote row shape.
func entryFields(e models.WeightEntry) map[string]any {
	fields := map[string]any{
		fieldEntryID:   e.ID,
		fieldDate:      e.Date,
		fieldWeight:    e.Weight,
		fieldCreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		fieldUpdatedAt: e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if e.Notes != "" {
		fields[fieldNotes] = e.Notes
	}
	return fields
}

// entryFromFields maps a remote row back to a local entry. Rows without
// an Entry ID are not ours and are skipped by the caller.
func entryFromFields(fields map[string]any) (models.WeightEntry, bool) {
	id, ok := fields[fieldEntryID].(string)
	if !ok || id == "" {
		return models.WeightEntry{}, false
	}

	e := models.WeightEntry{ID: id}
	if date, ok := fields[fieldDate].(string); ok {
		e.Date = date
	}
	if weight, ok := fields[fieldWeight].(float64); ok {
		e.Weight = weight
	}
	if notes, ok := fields[fieldNotes].(string); ok {
		e.Notes = notes
	}
	if raw, ok := fields[fieldCreatedAt].(string); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			e.CreatedAt = ts
		}
	}
	if raw, ok := fields[fieldUpdatedAt].(string); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			e.UpdatedAt = ts
		}
	}
	return e, true
}

// settingsFields maps the settings record to the remote row shape.
func settingsFields(s models.UserSettings, now time.Time) map[string]any {
	fields := map[string]any{
		fieldName:        s.Name,
		fieldWeightUnit:  string(s.WeightUnit),
		fieldDateFormat:  string(s.DateFormat),
		fieldLastUpdated: now.UTC().Format(time.RFC3339),
	}
	if s.GoalWeight != nil {
		fields[fieldGoalWeight] = *s.GoalWeight
	}
	if s.StartWeight != nil {
		fields[fieldStartWeight] = *s.StartWeight
	}
	if s.HeightCm != nil {
		fields[fieldHeightCm] = *s.HeightCm
	}
	return fields
}

// settingsFromFields maps a remote row back to a settings record,
// with the usual defaults merged under whatever the row carries.
func settingsFromFields(fields map[string]any) models.UserSettings {
	var s models.UserSettings
	if name, ok := fields[fieldName].(string); ok {
		s.Name = name
	}
	if v, ok := fields[fieldGoalWeight].(float64); ok {
		goal := v
		s.GoalWeight = &goal
	}
	if v, ok := fields[fieldStartWeight].(float64); ok {
		start := v
		s.StartWeight = &start
	}
	if v, ok := fields[fieldHeightCm].(float64); ok {
		height := v
		s.HeightCm = &height
	}
	if v, ok := fields[fieldWeightUnit].(string); ok {
		s.WeightUnit = models.WeightUnit(v)
	}
	if v, ok := fields[fieldDateFormat].(string); ok {
		s.DateFormat = models.DateFormat(v)
	}
	return s.WithDefaults()
}

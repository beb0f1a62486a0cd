// Package models defines the core data structures for weight entries
// and user settings.
package models

import (
	"sort"
	"time"
)

// WeightUnit identifies the unit a weight value is recorded in.
type WeightUnit string

const (
	// Lbs represents pounds.
	Lbs WeightUnit = "lbs"
	// Kg represents kilograms.
	Kg WeightUnit = "kg"
)

// DateFormat identifies how dates are rendered for the user.
type DateFormat string

const (
	// MonthFirst renders dates as MM/dd/yyyy.
	MonthFirst DateFormat = "MM/dd/yyyy"
	// DayFirst renders dates as dd/MM/yyyy.
	DayFirst DateFormat = "dd/MM/yyyy"
)

// DateLayout is the storage layout for entry dates (calendar date, no time).
const DateLayout = "2006-01-02"

// WeightEntry represents a single dated weight measurement.
type WeightEntry struct {
	// ID is the unique identifier for the entry, assigned at creation
	// and never reused.
	ID string `json:"id"`
	// Date is the calendar date of the measurement in YYYY-MM-DD form.
	Date string `json:"date"`
	// Weight is the measured value; the unit comes from UserSettings.
	Weight float64 `json:"weight"`
	// Notes holds an optional free-text comment.
	Notes string `json:"notes,omitempty"`
	// CreatedAt is set by the store on creation and never changes.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is refreshed by the store on every mutation.
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewEntry carries the caller-supplied fields for creating an entry.
// The store assigns ID, CreatedAt and UpdatedAt.
type NewEntry struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
	Notes  string  `json:"notes"`
}

// EntryPatch carries the fields an edit may change. Nil fields are
// left untouched.
type EntryPatch struct {
	Date   *string  `json:"date,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
	Notes  *string  `json:"notes,omitempty"`
}

// UserSettings is the singleton profile/preferences record.
type UserSettings struct {
	// Name is the display label. Empty means "no name set", which is
	// distinct from the record being absent entirely.
	Name string `json:"name"`
	// GoalWeight is the target weight; nil means not set.
	GoalWeight *float64 `json:"goalWeight,omitempty"`
	// StartWeight is the starting weight; nil means not set.
	StartWeight *float64 `json:"startWeight,omitempty"`
	// HeightCm is the user's height in centimeters; nil means not set.
	HeightCm *float64 `json:"heightCm,omitempty"`
	// WeightUnit is the unit for all weight values. Required, defaulted.
	WeightUnit WeightUnit `json:"weightUnit"`
	// DateFormat is the display format for dates. Required, defaulted.
	DateFormat DateFormat `json:"dateFormat"`
}

// SettingsPatch carries the fields a settings update may change.
// Nil fields keep their current values.
type SettingsPatch struct {
	Name        *string     `json:"name,omitempty"`
	GoalWeight  *float64    `json:"goalWeight,omitempty"`
	StartWeight *float64    `json:"startWeight,omitempty"`
	HeightCm    *float64    `json:"heightCm,omitempty"`
	WeightUnit  *WeightUnit `json:"weightUnit,omitempty"`
	DateFormat  *DateFormat `json:"dateFormat,omitempty"`
}

// DefaultSettings returns the settings used before the user saves any.
func DefaultSettings() UserSettings {
	return UserSettings{
		WeightUnit: Lbs,
		DateFormat: MonthFirst,
	}
}

// WithDefaults fills the required fields of s if a persisted partial
// record left them empty. Optional fields are never defaulted.
func (s UserSettings) WithDefaults() UserSettings {
	if s.WeightUnit == "" {
		s.WeightUnit = Lbs
	}
	if s.DateFormat == "" {
		s.DateFormat = MonthFirst
	}
	return s
}

// Dataset names a locally persisted collection that can be pushed
// to the remote store.
type Dataset string

const (
	// DatasetEntries tags the weight entry collection.
	DatasetEntries Dataset = "entries"
	// DatasetSettings tags the settings record.
	DatasetSettings Dataset = "settings"
)

// SortForDisplay returns a copy of entries ordered by date, ties broken
// by insertion order. Storage order itself is never rearranged.
func SortForDisplay(entries []WeightEntry) []WeightEntry {
	out := make([]WeightEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

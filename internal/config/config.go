// Package config provides functionality for managing configuration options
// for the application using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
)

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address"`

	// DatabasePath is the path to the local SQLite database file.
	DatabasePath string `json:"database_path"`

	// LogLevel sets the logging verbosity.
	LogLevel string `json:"log_level"`

	// AirtableBaseURL is the remote API root. Overridable for tests
	// and self-hosted compatible services.
	AirtableBaseURL string `json:"airtable_base_url"`

	// AirtableBaseID identifies the remote base holding both tables.
	AirtableBaseID string `json:"airtable_base_id"`

	// AirtableToken is the bearer credential sent with every request.
	AirtableToken string `json:"airtable_token"`

	// EntriesTable is the remote table holding weight entries.
	EntriesTable string `json:"entries_table"`

	// SettingsTable is the remote table holding the settings record.
	SettingsTable string `json:"settings_table"`

	// DebounceMs coalesces bursts of rapid edits into one push.
	DebounceMs int `json:"debounce_ms"`

	// SyncIntervalSec is the period of the background retry push.
	SyncIntervalSec int `json:"sync_interval_sec"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Address, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabasePath, "d", "weightly.db", "path to local sqlite database")
	flag.StringVar(&options.LogLevel, "l", "Info", "log level")
	flag.StringVar(&options.AirtableBaseURL, "airtable-url", "https://api.airtable.com/v0", "remote API root")
	flag.StringVar(&options.AirtableBaseID, "base", "", "remote base ID")
	flag.StringVar(&options.AirtableToken, "token", "", "remote API token")
	flag.StringVar(&options.EntriesTable, "entries-table", "Weight Entries", "remote entries table name")
	flag.StringVar(&options.SettingsTable, "settings-table", "User Settings", "remote settings table name")
	flag.IntVar(&options.DebounceMs, "debounce", 1000, "push debounce in milliseconds")
	flag.IntVar(&options.SyncIntervalSec, "sync-interval", 30, "background push period in seconds")
	flag.StringVar(&options.Config, "config", "", "path to config file")
	flag.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Address = serverAddress
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		options.DatabasePath = dbPath
	}
	if baseID := os.Getenv("AIRTABLE_BASE_ID"); baseID != "" {
		options.AirtableBaseID = baseID
	}
	if token := os.Getenv("AIRTABLE_TOKEN"); token != "" {
		options.AirtableToken = token
	}

	return options
}

// HasRemote reports whether remote sync is configured. Both a base ID
// and a credential are required; absent either, the application runs
// local-only.
func (o *Options) HasRemote() bool {
	return o.AirtableBaseID != "" && o.AirtableToken != ""
}

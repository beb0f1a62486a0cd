// Package airtable implements a stateless client for the remote tabular
// store. Every request carries the configured bearer credential, and
// non-success responses are classified into typed errors so callers can
// tell a missing table from a broken network.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/obelyaeva/weightly/internal/models"
)

// maxBatchSize is the remote API's cap on records per create or delete
// request.
const maxBatchSize = 10

// pageSize is the record cap requested per list call.
const pageSize = 100

// Config identifies the remote base, its tables and the credential.
type Config struct {
	// BaseURL is the API root, e.g. https://api.airtable.com/v0.
	BaseURL string
	// BaseID identifies the base holding both tables.
	BaseID string
	// Token is the bearer credential sent with every request.
	Token string
	// EntriesTable is the table holding weight entries.
	EntriesTable string
	// SettingsTable is the table holding the settings record.
	SettingsTable string
}

// Client is a stateless wrapper around the remote tabular API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New constructs a Client with the provided configuration.
func New(cfg Config, log *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
		now:        time.Now,
	}
}

// record is the remote row shape: an opaque record ID plus a field map.
type record struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// errorBody tolerates both error shapes the remote emits: a bare string
// and an object with type and message.
type errorBody struct {
	Type    string
	Message string
}

func (b *errorBody) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b.Type = s
		return nil
	}
	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	b.Type = obj.Type
	b.Message = obj.Message
	return nil
}

// tableURL builds the {base}/{baseID}/{table} request path.
func (c *Client) tableURL(table, suffix string) string {
	u := c.cfg.BaseURL + "/" + url.PathEscape(c.cfg.BaseID) + "/" + url.PathEscape(table)
	if suffix != "" {
		u += "/" + url.PathEscape(suffix)
	}
	return u
}

// do issues one request against the given table and decodes the JSON
// response into out when non-nil. Non-2xx responses come back as typed
// errors (see errors.go).
func (c *Client) do(ctx context.Context, method, table, suffix string, query url.Values, body, out any) error {
	reqURL := c.tableURL(table, suffix)
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		_ = json.Unmarshal(data, &errResp)
		return classify(table, resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// listRecords pages through the table and returns up to maxRecords rows
// (0 means all).
func (c *Client) listRecords(ctx context.Context, table string, maxRecords int) ([]record, error) {
	var records []record
	offset := ""
	for {
		query := url.Values{}
		query.Set("pageSize", strconv.Itoa(pageSize))
		if maxRecords > 0 {
			query.Set("maxRecords", strconv.Itoa(maxRecords))
		}
		if offset != "" {
			query.Set("offset", offset)
		}

		var resp listResponse
		if err := c.do(ctx, http.MethodGet, table, "", query, nil, &resp); err != nil {
			return nil, err
		}
		records = append(records, resp.Records...)

		if resp.Offset == "" || (maxRecords > 0 && len(records) >= maxRecords) {
			break
		}
		offset = resp.Offset
	}
	if maxRecords > 0 && len(records) > maxRecords {
		records = records[:maxRecords]
	}
	return records, nil
}

// FetchEntries returns every weight entry stored remotely. A missing
// table is treated as an empty table; any other failure propagates
// after logging.
func (c *Client) FetchEntries(ctx context.Context) ([]models.WeightEntry, error) {
	records, err := c.listRecords(ctx, c.cfg.EntriesTable, 0)
	if err != nil {
		if IsTableMissing(err) {
			c.log.Info("remote entries table does not exist, treating as empty",
				zap.String("table", c.cfg.EntriesTable))
			return nil, nil
		}
		c.log.Error("fetching remote entries failed", zap.Error(err))
		return nil, err
	}

	entries := make([]models.WeightEntry, 0, len(records))
	for _, r := range records {
		if e, ok := entryFromFields(r.Fields); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// CreateEntries pushes the given entries, skipping any whose ID already
// exists remotely. Writes go out in batches of maxBatchSize issued
// sequentially; the first failed batch aborts the rest.
func (c *Client) CreateEntries(ctx context.Context, entries []models.WeightEntry) error {
	if len(entries) == 0 {
		return nil
	}

	existing, err := c.listRecords(ctx, c.cfg.EntriesTable, 0)
	if err != nil {
		return err
	}
	remoteIDs := make(map[string]bool, len(existing))
	for _, r := range existing {
		if id, ok := r.Fields[fieldEntryID].(string); ok {
			remoteIDs[id] = true
		}
	}

	var missing []record
	for _, e := range entries {
		if remoteIDs[e.ID] {
			continue
		}
		missing = append(missing, record{Fields: entryFields(e)})
	}
	if len(missing) == 0 {
		return nil
	}

	for start := 0; start < len(missing); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		body := map[string]any{"records": missing[start:end], "typecast": true}
		if err := c.do(ctx, http.MethodPost, c.cfg.EntriesTable, "", nil, body, nil); err != nil {
			return err
		}
		c.log.Debug("pushed entry batch",
			zap.Int("count", end-start),
			zap.Int("remaining", len(missing)-end))
	}
	return nil
}

// FetchSettings returns the remote settings record, or nil when no
// record exists or the table is missing.
func (c *Client) FetchSettings(ctx context.Context) (*models.UserSettings, error) {
	records, err := c.listRecords(ctx, c.cfg.SettingsTable, 1)
	if err != nil {
		if IsTableMissing(err) {
			return nil, nil
		}
		c.log.Error("fetching remote settings failed", zap.Error(err))
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	settings := settingsFromFields(records[0].Fields)
	return &settings, nil
}

// UpsertSettings updates the first remote settings record in place, or
// creates one when none exists. At most one record is intended, but the
// remote does not enforce it; DeleteDuplicateSettingsRecords cleans up
// when two writers race.
func (c *Client) UpsertSettings(ctx context.Context, settings models.UserSettings) error {
	records, err := c.listRecords(ctx, c.cfg.SettingsTable, 1)
	if err != nil {
		return err
	}

	fields := settingsFields(settings, c.now())
	if len(records) > 0 {
		body := map[string]any{"fields": fields, "typecast": true}
		return c.do(ctx, http.MethodPatch, c.cfg.SettingsTable, records[0].ID, nil, body, nil)
	}

	body := map[string]any{"records": []record{{Fields: fields}}, "typecast": true}
	return c.do(ctx, http.MethodPost, c.cfg.SettingsTable, "", nil, body, nil)
}

// ConnectionStatus is the result of probing the remote schema.
type ConnectionStatus struct {
	// OK is true when both tables exist and responded.
	OK bool `json:"ok"`
	// Message is a human-readable summary.
	Message string `json:"message"`
	// MissingTables lists configured tables the remote does not have.
	MissingTables []string `json:"missingTables,omitempty"`
}

// TestConnection probes both tables independently, accumulating missing
// ones instead of aborting on the first. A non-missing failure is
// returned alongside whatever status was gathered.
func (c *Client) TestConnection(ctx context.Context) (ConnectionStatus, error) {
	status := ConnectionStatus{OK: true, Message: "connection ok"}
	var firstErr error

	for _, table := range []string{c.cfg.EntriesTable, c.cfg.SettingsTable} {
		_, err := c.listRecords(ctx, table, 1)
		switch {
		case err == nil:
		case IsTableMissing(err):
			status.OK = false
			status.MissingTables = append(status.MissingTables, table)
		default:
			status.OK = false
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if len(status.MissingTables) > 0 {
		status.Message = "missing tables: " + strings.Join(status.MissingTables, ", ")
	} else if firstErr != nil {
		status.Message = firstErr.Error()
	}
	return status, firstErr
}

// DeleteDuplicateSettingsRecords lists all settings records, keeps the
// most recently returned one and deletes the rest in batches. Returns
// the number of records removed.
func (c *Client) DeleteDuplicateSettingsRecords(ctx context.Context) (int, error) {
	records, err := c.listRecords(ctx, c.cfg.SettingsTable, 0)
	if err != nil {
		return 0, err
	}
	if len(records) <= 1 {
		return 0, nil
	}

	// Keep the last record the remote returned; everything before it is
	// a stale duplicate from a racing writer.
	stale := records[:len(records)-1]
	ids := make([]string, 0, len(stale))
	for _, r := range stale {
		ids = append(ids, r.ID)
	}

	for start := 0; start < len(ids); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		query := url.Values{}
		for _, id := range ids[start:end] {
			query.Add("records[]", id)
		}
		if err := c.do(ctx, http.MethodDelete, c.cfg.SettingsTable, "", query, nil, nil); err != nil {
			return start, err
		}
	}

	c.log.Info("deleted duplicate settings records", zap.Int("count", len(ids)))
	return len(ids), nil
}

// Package syncer coordinates the local store with the optional remote
// table store. The local store is authoritative: every mutation lands
// there synchronously, and remote pushes are a best-effort background
// concern that never rolls a local success back.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/obelyaeva/weightly/internal/models"
	"github.com/obelyaeva/weightly/internal/store"
)

// ErrNoRemote is returned by awaited sync actions when no remote client
// is configured.
var ErrNoRemote = errors.New("remote sync is not configured")

// ErrOffline is returned by ForceSync when the connectivity flag is off.
var ErrOffline = errors.New("offline, sync skipped")

// RemoteClient is the subset of the remote table client the coordinator
// pushes to and recovers from.
type RemoteClient interface {
	// FetchEntries returns all remote entries; a missing table reads
	// as empty.
	FetchEntries(ctx context.Context) ([]models.WeightEntry, error)
	// CreateEntries pushes entries absent remotely, keyed by ID.
	CreateEntries(ctx context.Context, entries []models.WeightEntry) error
	// FetchSettings returns the remote settings record or nil.
	FetchSettings(ctx context.Context) (*models.UserSettings, error)
	// UpsertSettings updates or creates the remote settings record.
	UpsertSettings(ctx context.Context, settings models.UserSettings) error
}

// SyncStatus is a side-effect-free snapshot of the sync state, safe to
// poll.
type SyncStatus struct {
	// Pending is true while any dataset has unpushed local changes.
	Pending bool `json:"isPending"`
	// Online mirrors the last connectivity signal received.
	Online bool `json:"isOnline"`
	// HasRemote is true when a remote client is configured.
	HasRemote bool `json:"hasRemote"`
}

// Options tune the coordinator's scheduling.
type Options struct {
	// Debounce coalesces bursts of rapid edits into one push.
	Debounce time.Duration
	// Interval is the period of the background retry push.
	Interval time.Duration
	// PushTimeout bounds one whole push attempt.
	PushTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = time.Second
	}
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.PushTimeout <= 0 {
		o.PushTimeout = time.Minute
	}
	return o
}

// Coordinator owns the dirty-dataset set, the connectivity flag and the
// push scheduling. It is fully functional with a nil remote, behaving
// as a pure local store.
type Coordinator struct {
	entries  *store.EntryStore
	settings *store.SettingsStore
	remote   RemoteClient
	log      *zap.Logger
	opts     Options

	mu       sync.Mutex
	dirty    map[models.Dataset]struct{}
	online   bool
	debounce *time.Timer

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New constructs a Coordinator. remote may be nil for local-only
// operation. The background retry loop starts immediately when a
// remote is configured; Close must be called at shutdown.
func New(entries *store.EntryStore, settings *store.SettingsStore, remote RemoteClient, log *zap.Logger, opts Options) *Coordinator {
	c := &Coordinator{
		entries:  entries,
		settings: settings,
		remote:   remote,
		log:      log,
		opts:     opts.withDefaults(),
		dirty:    make(map[models.Dataset]struct{}),
		online:   true,
		done:     make(chan struct{}),
	}

	if c.remote != nil {
		c.wg.Add(1)
		go c.retryLoop()
	}
	return c
}

// Close stops the debounce timer and the retry loop.
func (c *Coordinator) Close() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
	c.mu.Lock()
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// Entries returns every entry in storage (insertion) order.
func (c *Coordinator) Entries() []models.WeightEntry {
	return c.entries.GetAll()
}

// Settings returns the current settings record.
func (c *Coordinator) Settings() models.UserSettings {
	return c.settings.Get()
}

// AddEntry stores a new entry locally and schedules a push.
func (c *Coordinator) AddEntry(n models.NewEntry) (models.WeightEntry, error) {
	entry, err := c.entries.Add(n)
	if err != nil {
		return models.WeightEntry{}, err
	}
	c.markDirty(models.DatasetEntries)
	return entry, nil
}

// UpdateEntry edits an entry locally and schedules a push. Returns
// store.ErrNotFound when the ID is absent.
func (c *Coordinator) UpdateEntry(id string, p models.EntryPatch) (models.WeightEntry, error) {
	entry, err := c.entries.Update(id, p)
	if err != nil {
		return models.WeightEntry{}, err
	}
	c.markDirty(models.DatasetEntries)
	return entry, nil
}

// DeleteEntry removes an entry locally and schedules a push. The
// deletion is never propagated to the remote; the entry sync is
// create-if-absent only.
func (c *Coordinator) DeleteEntry(id string) (bool, error) {
	ok, err := c.entries.Delete(id)
	if err != nil || !ok {
		return ok, err
	}
	c.markDirty(models.DatasetEntries)
	return true, nil
}

// UpdateSettings merges the patch locally and schedules a push.
func (c *Coordinator) UpdateSettings(p models.SettingsPatch) (models.UserSettings, error) {
	settings, err := c.settings.Update(p)
	if err != nil {
		return models.UserSettings{}, err
	}
	c.markDirty(models.DatasetSettings)
	return settings, nil
}

// SetOnline records a connectivity change signalled by the environment.
// Flipping online does not push by itself; the next debounce or retry
// tick does.
func (c *Coordinator) SetOnline(online bool) {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	c.mu.Unlock()
	if changed {
		c.log.Info("connectivity changed", zap.Bool("online", online))
	}
}

// Status reports the current sync state without side effects.
func (c *Coordinator) Status() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SyncStatus{
		Pending:   len(c.dirty) > 0,
		Online:    c.online,
		HasRemote: c.remote != nil,
	}
}

// ForceSync marks both datasets dirty and runs one immediate push,
// surfacing any failure to the caller.
func (c *Coordinator) ForceSync(ctx context.Context) error {
	if c.remote == nil {
		return ErrNoRemote
	}

	c.mu.Lock()
	c.dirty[models.DatasetEntries] = struct{}{}
	c.dirty[models.DatasetSettings] = struct{}{}
	online := c.online
	c.mu.Unlock()

	if !online {
		// The dirty marks stay; the retry loop picks them up once
		// connectivity returns.
		return ErrOffline
	}
	return c.ProcessSyncQueue(ctx)
}

// Recover pulls entries and settings from the remote and overwrites
// local state with them. Non-empty remote entries replace the whole
// local collection (no merge); a remote settings record replaces local
// settings. Any fetch failure propagates with local data untouched.
// Destructive; intended for restoring a fresh device from backup.
func (c *Coordinator) Recover(ctx context.Context) error {
	if c.remote == nil {
		return ErrNoRemote
	}

	var (
		wg             sync.WaitGroup
		remoteEntries  []models.WeightEntry
		remoteSettings *models.UserSettings
		entriesErr     error
		settingsErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		remoteEntries, entriesErr = c.remote.FetchEntries(ctx)
	}()
	go func() {
		defer wg.Done()
		remoteSettings, settingsErr = c.remote.FetchSettings(ctx)
	}()
	wg.Wait()

	if entriesErr != nil {
		return entriesErr
	}
	if settingsErr != nil {
		return settingsErr
	}

	if len(remoteEntries) > 0 {
		if err := c.entries.SaveAll(remoteEntries); err != nil {
			return err
		}
		c.log.Info("recovered entries from remote", zap.Int("count", len(remoteEntries)))
	}
	if remoteSettings != nil {
		if err := c.settings.Save(remoteSettings.WithDefaults()); err != nil {
			return err
		}
		c.log.Info("recovered settings from remote")
	}

	// Local now mirrors remote; pending marks would only re-push what
	// was just pulled.
	c.mu.Lock()
	c.dirty = make(map[models.Dataset]struct{})
	c.mu.Unlock()
	return nil
}

// ProcessSyncQueue runs one push pass: it snapshots and clears the
// dirty set, pushes each snapshotted dataset, and on any failure
// re-marks every snapshotted dataset dirty so a later attempt retries
// the whole batch. No-op when unconfigured, offline or clean.
func (c *Coordinator) ProcessSyncQueue(ctx context.Context) error {
	c.mu.Lock()
	if c.remote == nil || !c.online || len(c.dirty) == 0 {
		c.mu.Unlock()
		return nil
	}
	snapshot := c.dirty
	c.dirty = make(map[models.Dataset]struct{})
	c.mu.Unlock()

	err := c.pushDatasets(ctx, snapshot)
	if err != nil {
		// Blanket re-queue: even datasets that succeeded in this pass
		// go back, trading precision for a simple retry story.
		c.mu.Lock()
		for ds := range snapshot {
			c.dirty[ds] = struct{}{}
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// pushDatasets performs the remote writes for each dataset in the
// snapshot, entries first.
func (c *Coordinator) pushDatasets(ctx context.Context, snapshot map[models.Dataset]struct{}) error {
	if _, ok := snapshot[models.DatasetEntries]; ok {
		if err := c.remote.CreateEntries(ctx, c.entries.GetAll()); err != nil {
			return err
		}
	}
	if _, ok := snapshot[models.DatasetSettings]; ok {
		if err := c.remote.UpsertSettings(ctx, c.settings.Get()); err != nil {
			return err
		}
	}
	return nil
}

// markDirty tags the dataset and arms the debounce timer when a push
// makes sense right now.
func (c *Coordinator) markDirty(ds models.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dirty[ds] = struct{}{}
	if c.remote == nil || !c.online {
		return
	}

	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.opts.Debounce, c.backgroundPush)
}

// backgroundPush runs one push attempt on behalf of the debounce timer
// or the retry loop. Failures are logged and re-queued, never surfaced:
// nobody is waiting.
func (c *Coordinator) backgroundPush() {
	select {
	case <-c.done:
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.PushTimeout)
	defer cancel()

	if err := c.ProcessSyncQueue(ctx); err != nil {
		c.log.Warn("background push failed, will retry", zap.Error(err))
	}
}

// retryLoop periodically re-attempts pushes that failed or were skipped
// while offline.
func (c *Coordinator) retryLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.backgroundPush()
		}
	}
}

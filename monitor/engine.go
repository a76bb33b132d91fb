// Package monitor implements the device connectivity state and alert-debounce
// engine: per-device connection state, a bounded rolling event history,
// time-windowed disconnect frequency, mute windows, and the classification of
// each incoming event into no-action, frequent-disconnect or long-offline.
//
// All state is in-memory only and lost on restart.
package monitor

import (
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/susaninz/geosite-manager/errors"
)

const (
	// DefaultMaxEvents is the default journal cap per device.
	DefaultMaxEvents = 100
	// DefaultDisconnectThreshold is the default number of disconnects within
	// DefaultDisconnectWindow that triggers a frequent-disconnect alert.
	DefaultDisconnectThreshold = 3
	// DefaultDisconnectWindow is the default rolling window for the
	// frequent-disconnect check.
	DefaultDisconnectWindow = time.Hour
	// DefaultLongOfflineThreshold is the default offline duration that a device
	// must exceed on reconnect in order to trigger a long-offline alert.
	DefaultLongOfflineThreshold = 3 * time.Minute
)

// Config is the configuration for an Engine.
type Config struct {
	// MaxEvents is the journal cap per device.
	MaxEvents int `json:"max_events"`
	// DisconnectThreshold is the number of disconnects within DisconnectWindow
	// that triggers a frequent-disconnect alert.
	DisconnectThreshold int `json:"disconnect_threshold"`
	// DisconnectWindow is the rolling window for the frequency check.
	DisconnectWindow time.Duration `json:"disconnect_window"`
	// LongOfflineThreshold is the offline duration that must be exceeded on
	// reconnect for a long-offline alert.
	LongOfflineThreshold time.Duration `json:"long_offline_threshold"`
}

func (config Config) withDefaults() Config {
	if config.MaxEvents <= 0 {
		config.MaxEvents = DefaultMaxEvents
	}
	if config.DisconnectThreshold <= 0 {
		config.DisconnectThreshold = DefaultDisconnectThreshold
	}
	if config.DisconnectWindow <= 0 {
		config.DisconnectWindow = DefaultDisconnectWindow
	}
	if config.LongOfflineThreshold <= 0 {
		config.LongOfflineThreshold = DefaultLongOfflineThreshold
	}
	return config
}

// Engine owns the device registry and applies incoming connectivity events.
// It is safe for concurrent use: each device is guarded by its own lock, so
// events for different devices do not contend with each other. No I/O happens
// inside the per-device critical section, delivery of notifications is the
// caller's job and operates on the returned immutable Outcome.
type Engine struct {
	config   Config
	registry registry
	// now is the clock used for window and mute evaluation. Overridable in
	// tests.
	now func() time.Time
}

// NewEngine creates a new Engine for the given fixed device set. Devices are
// never registered at runtime.
func NewEngine(config Config, devices []DeviceConfig) *Engine {
	config = config.withDefaults()
	return &Engine{
		config:   config,
		registry: newRegistry(devices, config.MaxEvents),
		now:      time.Now,
	}
}

// Ingest applies one connectivity event to the device with the given key and
// returns the alert decision. The whole sequence of journal append, state
// transition, classification and counter update executes atomically per
// device. A rejected event leaves the device exactly as it was.
//
// Events are assumed to arrive in chronological order per device; the journal
// is never reordered by timestamp.
func (e *Engine) Ingest(deviceKey string, event Event) (Outcome, error) {
	if event.OccurredAt.IsZero() {
		return Outcome{}, errors.NewBadRequestError("event without timestamp", errors.KindInvalidEvent,
			errors.Details{"device_key": deviceKey})
	}
	if !event.Kind.Valid() {
		return Outcome{}, errors.NewBadRequestError("unknown event kind", errors.KindInvalidEvent,
			errors.Details{"device_key": deviceKey, "event_kind": event.Kind})
	}
	d, err := e.registry.lookup(deviceKey)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "lookup device", nil)
	}
	now := e.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	// Every event updates the last-seen bookkeeping and lands in the journal,
	// regardless of kind. The journal append happens before the frequency
	// window is computed so the just-arrived event counts itself.
	d.lastSeenAt = nulls.NewTime(event.OccurredAt)
	d.signal = event.Signal
	if event.NetworkAddress != "" {
		d.networkAddress = event.NetworkAddress
	}
	d.journal.Record(event)

	var out Outcome
	var isAlert bool
	switch event.Kind {
	case EventKindDisconnected:
		d.status = StatusDisconnected
		d.disconnectedAt = nulls.NewTime(event.OccurredAt)
		d.uptimeStartedAt = nulls.Time{}
		d.counters.Disconnects++
		out, isAlert = classifyDisconnect(&d.journal, event, now,
			e.config.DisconnectWindow, e.config.DisconnectThreshold)
	case EventKindConnected:
		var offlineFor time.Duration
		hasOfflineFor := false
		if d.disconnectedAt.Valid {
			offlineFor = event.OccurredAt.Sub(d.disconnectedAt.Time)
			hasOfflineFor = true
		}
		d.status = StatusConnected
		d.uptimeStartedAt = nulls.NewTime(event.OccurredAt)
		d.disconnectedAt = nulls.Time{}
		d.counters.Connects++
		out, isAlert = classifyConnect(event, offlineFor, hasOfflineFor,
			e.config.LongOfflineThreshold)
	}
	if !isAlert {
		out = Outcome{Classification: ClassificationNoAction}
	} else if d.isMuted(now) {
		// Muting never stops status tracking, it only suppresses delivery.
		out.Suppressed = true
	}
	out.Device = d.snapshot()
	return out, nil
}

// Mute suppresses alert delivery for the device until now plus the given
// duration. Calling it again overwrites the window instead of stacking.
func (e *Engine) Mute(deviceKey string, duration time.Duration) (Snapshot, error) {
	d, err := e.registry.lookup(deviceKey)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "lookup device", nil)
	}
	now := e.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutedUntil = nulls.NewTime(now.Add(duration))
	return d.snapshot(), nil
}

// Snapshot returns a read-only copy of the device with the given key.
func (e *Engine) Snapshot(deviceKey string) (Snapshot, error) {
	d, err := e.registry.lookup(deviceKey)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "lookup device", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot(), nil
}

// SnapshotAll returns read-only copies of all devices in configuration order.
func (e *Engine) SnapshotAll() []Snapshot {
	devices := e.registry.all()
	snapshots := make([]Snapshot, 0, len(devices))
	for _, d := range devices {
		d.mu.Lock()
		snapshots = append(snapshots, d.snapshot())
		d.mu.Unlock()
	}
	return snapshots
}

// RecentEvents returns a copy of the n most recent journal entries of the
// device with the given key, most recent first.
func (e *Engine) RecentEvents(deviceKey string, n int) ([]Event, error) {
	d, err := e.registry.lookup(deviceKey)
	if err != nil {
		return nil, errors.Wrap(err, "lookup device", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	view := d.journal.MostRecent(n)
	events := make([]Event, len(view))
	copy(events, view)
	return events, nil
}

package monitor

import (
	"sync"
	"time"

	"github.com/gobuffalo/nulls"
)

// Status is the connection status of a device.
type Status string

const (
	// StatusUnknown is the only legal initial status. It is never re-entered
	// after the first connectivity event.
	StatusUnknown Status = "unknown"
	// StatusConnected means the device is currently on the network.
	StatusConnected Status = "connected"
	// StatusDisconnected means the device is currently offline.
	StatusDisconnected Status = "disconnected"
)

// Identity is the immutable identity metadata of a configured device.
type Identity struct {
	// Name is the human-readable device name.
	Name string `json:"name"`
	// Hostname the device announces via DHCP.
	Hostname string `json:"hostname"`
	// MAC is the hardware address.
	MAC string `json:"mac"`
	// Icon used when rendering the device in chat messages.
	Icon string `json:"icon"`
}

// Counters are the 24h counters of a device. They are monotonic and reset
// only by process restart, they are not a true rolling 24h window.
type Counters struct {
	Disconnects int `json:"disconnects"`
	Connects    int `json:"connects"`
}

// device is one monitored appliance. It is created at engine construction
// from static configuration and never destroyed during process lifetime. All
// mutable fields are guarded by mu.
type device struct {
	mu sync.Mutex

	key      string
	identity Identity

	networkAddress  string
	status          Status
	lastSeenAt      nulls.Time
	uptimeStartedAt nulls.Time
	disconnectedAt  nulls.Time
	signal          string
	mutedUntil      nulls.Time
	counters        Counters
	journal         Journal
}

func (d *device) isMuted(now time.Time) bool {
	return d.mutedUntil.Valid && now.Before(d.mutedUntil.Time)
}

// snapshot copies the current device state. Callers must hold d.mu.
func (d *device) snapshot() Snapshot {
	return Snapshot{
		Key:             d.key,
		Identity:        d.identity,
		NetworkAddress:  d.networkAddress,
		Status:          d.status,
		LastSeenAt:      d.lastSeenAt,
		UptimeStartedAt: d.uptimeStartedAt,
		DisconnectedAt:  d.disconnectedAt,
		Signal:          d.signal,
		MutedUntil:      d.mutedUntil,
		Counters24h:     d.counters,
		JournalLen:      d.journal.Len(),
	}
}

// Snapshot is a read-only copy of a device used for status and dashboard
// rendering outside the engine.
type Snapshot struct {
	Key             string     `json:"key"`
	Identity        Identity   `json:"identity"`
	NetworkAddress  string     `json:"network_address"`
	Status          Status     `json:"status"`
	LastSeenAt      nulls.Time `json:"last_seen_at"`
	UptimeStartedAt nulls.Time `json:"uptime_started_at"`
	DisconnectedAt  nulls.Time `json:"disconnected_at"`
	Signal          string     `json:"signal"`
	MutedUntil      nulls.Time `json:"muted_until"`
	Counters24h     Counters   `json:"counters_24h"`
	JournalLen      int        `json:"journal_len"`
}

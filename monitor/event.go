package monitor

import "time"

// EventKind is the closed set of connectivity event kinds the monitor knows
// about. Vendor-specific kinds like DHCP lease renewals are recorded as
// EventKindOther.
type EventKind string

const (
	// EventKindConnected is reported when a device (re)joined the network.
	EventKindConnected EventKind = "connected"
	// EventKindDisconnected is reported when a device left the network.
	EventKindDisconnected EventKind = "disconnected"
	// EventKindOther covers everything that does not change the connection
	// status, for example DHCP lease events.
	EventKindOther EventKind = "other"
)

// Valid reports whether the kind is one of the known event kinds.
func (kind EventKind) Valid() bool {
	switch kind {
	case EventKindConnected, EventKindDisconnected, EventKindOther:
		return true
	}
	return false
}

// ParseEventKind maps the open event strings reported by the router onto the
// closed EventKind set. Unknown strings map to EventKindOther.
func ParseEventKind(s string) EventKind {
	switch s {
	case "connected", "connect":
		return EventKindConnected
	case "disconnected", "disconnect":
		return EventKindDisconnected
	}
	return EventKindOther
}

// Event is a single reported connectivity occurrence for a device. Events are
// immutable once recorded in a Journal.
type Event struct {
	// OccurredAt is the caller-supplied timestamp. The engine does not re-stamp
	// it.
	OccurredAt time.Time `json:"occurred_at"`
	// Kind of the event.
	Kind EventKind `json:"kind"`
	// Signal is the last reported signal descriptor, opaque to the monitor.
	Signal string `json:"signal,omitempty"`
	// UptimeReport is the session duration as reported by the device itself.
	UptimeReport string `json:"uptime_report,omitempty"`
	// Reason is an optional free-form reason for the event.
	Reason string `json:"reason,omitempty"`
	// NetworkAddress is the IP the device reported with the event.
	NetworkAddress string `json:"network_address,omitempty"`
}

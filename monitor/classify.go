package monitor

import "time"

// Classification is the decision made for a single ingested event.
type Classification string

const (
	// ClassificationNoAction means nobody needs to be notified. Isolated
	// disconnects are never themselves alert-worthy, judgment is deferred to the
	// next connect event or to frequency accumulation.
	ClassificationNoAction Classification = "no-action"
	// ClassificationFrequentDisconnect means the device disconnected at least
	// the configured number of times within the rolling window.
	ClassificationFrequentDisconnect Classification = "frequent-disconnect"
	// ClassificationLongOffline means the device reconnected after being offline
	// for longer than the configured threshold.
	ClassificationLongOffline Classification = "long-offline"
)

// Outcome is the result of ingesting one event. Alert outcomes carry the
// payload needed to render a notification, so delivery can happen on an
// immutable value outside the per-device critical section.
type Outcome struct {
	// Classification of the triggering event.
	Classification Classification `json:"classification"`
	// Suppressed is set when the device was muted at alert time. The alert is
	// still produced and recorded, only delivery is up to the caller to skip.
	Suppressed bool `json:"suppressed"`
	// Device is a snapshot taken after the transition was applied.
	Device Snapshot `json:"device"`
	// RecentDisconnects is the number of qualifying disconnects within the
	// rolling window, including the triggering event. Only set for
	// ClassificationFrequentDisconnect.
	RecentDisconnects int `json:"recent_disconnects,omitempty"`
	// OfflineDuration is how long the device was offline before reconnecting.
	// Only set for ClassificationLongOffline.
	OfflineDuration time.Duration `json:"offline_duration,omitempty"`
	// LastUptime is the session duration the device reported with the
	// triggering event.
	LastUptime string `json:"last_uptime,omitempty"`
	// Signal is the signal descriptor reported with the triggering event.
	Signal string `json:"signal,omitempty"`
	// NetworkAddress is the IP reported with the triggering event.
	NetworkAddress string `json:"network_address,omitempty"`
}

// IsAlert reports whether the outcome is one of the alert classifications.
func (out Outcome) IsAlert() bool {
	return out.Classification == ClassificationFrequentDisconnect ||
		out.Classification == ClassificationLongOffline
}

// classifyDisconnect evaluates the frequency window after a disconnect
// transition. The journal must already contain the triggering event so it is
// included in its own count. The window boundary is inclusive: exactly
// threshold qualifying events alert, one fewer does not.
func classifyDisconnect(journal *Journal, event Event, now time.Time, window time.Duration, threshold int) (Outcome, bool) {
	recent := journal.CountSince(EventKindDisconnected, now.Add(-window))
	if recent < threshold {
		return Outcome{}, false
	}
	return Outcome{
		Classification:    ClassificationFrequentDisconnect,
		RecentDisconnects: recent,
		LastUptime:        event.UptimeReport,
		Signal:            event.Signal,
	}, true
}

// classifyConnect evaluates the offline duration after a connect transition.
// The boundary is strict: exactly the threshold stays silent, brief
// reconnections like DHCP renewal blips are intentionally not reported.
func classifyConnect(event Event, offlineFor time.Duration, hasOfflineFor bool, threshold time.Duration) (Outcome, bool) {
	if !hasOfflineFor || offlineFor <= threshold {
		return Outcome{}, false
	}
	return Outcome{
		Classification:  ClassificationLongOffline,
		OfflineDuration: offlineFor,
		Signal:          event.Signal,
		NetworkAddress:  event.NetworkAddress,
	}, true
}

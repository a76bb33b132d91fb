package monitor

import "time"

// Journal is the bounded per-device event history. Entries are kept
// most-recent-first and the length never exceeds the configured cap.
//
// The Journal trusts arrival order: it never reorders entries by timestamp,
// so journal order reflects arrival order. Feeding out-of-order events is a
// violation of this precondition and leads to undefined window counts.
//
// A Journal is owned exclusively by its device and must only be accessed
// while holding the device lock.
type Journal struct {
	maxEvents int
	// events holds the entries, most recent first.
	events []Event
}

func newJournal(maxEvents int) Journal {
	return Journal{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Record prepends the given Event. If the cap is exceeded, the oldest entries
// are dropped from the tail. Truncation is mandatory, not best-effort.
func (j *Journal) Record(event Event) {
	if len(j.events) < j.maxEvents {
		j.events = append(j.events, Event{})
	}
	copy(j.events[1:], j.events)
	j.events[0] = event
}

// CountSince returns the count of entries with the given kind whose timestamp
// is not before the given one. The lower bound is inclusive. This is a linear
// scan bounded by the journal cap.
func (j *Journal) CountSince(kind EventKind, notBefore time.Time) int {
	count := 0
	for _, event := range j.events {
		if event.Kind == kind && !event.OccurredAt.Before(notBefore) {
			count++
		}
	}
	return count
}

// MostRecent returns a view of the first n entries in reverse-chronological
// order. The returned slice aliases the journal and is only valid until the
// next Record call.
func (j *Journal) MostRecent(n int) []Event {
	if n > len(j.events) {
		n = len(j.events)
	}
	return j.events[:n]
}

// Len returns the current journal length.
func (j *Journal) Len() int {
	return len(j.events)
}

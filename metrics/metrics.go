// Package metrics keeps the in-memory 24h history of router metrics samples
// and threshold alerts. Like the device monitor, it is ephemeral and lost on
// restart.
package metrics

import (
	"sync"
	"time"
)

const (
	// DefaultMaxSamples is 24 hours of samples at a 5-minute cadence.
	DefaultMaxSamples = 288
	// DefaultMaxAlerts is the cap for the alert log.
	DefaultMaxAlerts = 100
)

// Sample is one router metrics report.
type Sample struct {
	Timestamp       time.Time `json:"timestamp"`
	RAMPercent      float64   `json:"ram_percent"`
	CPULoad1        float64   `json:"cpu_load1"`
	Clients         int       `json:"clients"`
	OpenClashMemory float64   `json:"openclash_memory"`
}

// Severity of a threshold alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SeverityFor grades a threshold violation. Exceeding the threshold by more
// than 10% is critical.
func SeverityFor(value, threshold float64) Severity {
	if value > threshold*1.1 {
		return SeverityCritical
	}
	return SeverityWarning
}

// Alert is one recorded threshold alert.
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	// Type names the metric, for example ram, cpu or openclash.
	Type      string   `json:"type"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
	Severity  Severity `json:"severity"`
}

// Stats summarizes the stored samples.
type Stats struct {
	AvgRAM float64 `json:"avg_ram"`
	MaxRAM float64 `json:"max_ram"`
	AvgCPU float64 `json:"avg_cpu"`
	MaxCPU float64 `json:"max_cpu"`
}

// History is the concurrency-safe metrics store.
type History struct {
	mu         sync.Mutex
	maxSamples int
	maxAlerts  int
	samples    []Sample
	alerts     []Alert
}

// NewHistory creates a History with the given caps. Non-positive caps fall
// back to the defaults.
func NewHistory(maxSamples int, maxAlerts int) *History {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	if maxAlerts <= 0 {
		maxAlerts = DefaultMaxAlerts
	}
	return &History{
		maxSamples: maxSamples,
		maxAlerts:  maxAlerts,
	}
}

// AddSample appends the given sample, dropping the oldest ones beyond the
// cap.
func (h *History) AddSample(sample Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, sample)
	if overflow := len(h.samples) - h.maxSamples; overflow > 0 {
		h.samples = h.samples[overflow:]
	}
}

// RecordAlert grades and stores the given alert, dropping the oldest ones
// beyond the cap. The graded alert is returned.
func (h *History) RecordAlert(alert Alert) Alert {
	alert.Severity = SeverityFor(alert.Value, alert.Threshold)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alerts = append(h.alerts, alert)
	if overflow := len(h.alerts) - h.maxAlerts; overflow > 0 {
		h.alerts = h.alerts[overflow:]
	}
	return alert
}

// Latest returns the most recent sample.
func (h *History) Latest() (Sample, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.samples) == 0 {
		return Sample{}, false
	}
	return h.samples[len(h.samples)-1], true
}

// RecentAlerts returns up to n alerts, most recent first.
func (h *History) RecentAlerts(n int) []Alert {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.alerts) {
		n = len(h.alerts)
	}
	alerts := make([]Alert, 0, n)
	for i := len(h.alerts) - 1; i >= len(h.alerts)-n; i-- {
		alerts = append(alerts, h.alerts[i])
	}
	return alerts
}

// SampleCount returns the number of stored samples.
func (h *History) SampleCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

// AlertCount returns the number of stored alerts.
func (h *History) AlertCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.alerts)
}

// Stats computes average and maximum over the stored samples.
func (h *History) Stats() (Stats, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.samples) == 0 {
		return Stats{}, false
	}
	var stats Stats
	for _, sample := range h.samples {
		stats.AvgRAM += sample.RAMPercent
		stats.AvgCPU += sample.CPULoad1
		if sample.RAMPercent > stats.MaxRAM {
			stats.MaxRAM = sample.RAMPercent
		}
		if sample.CPULoad1 > stats.MaxCPU {
			stats.MaxCPU = sample.CPULoad1
		}
	}
	stats.AvgRAM /= float64(len(h.samples))
	stats.AvgCPU /= float64(len(h.samples))
	return stats, true
}

package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	updateCount  map[string]int64
	notifySent   int64
	notifyFailed int64
	sweepRuns    map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		updateCount:  make(map[string]int64),
		sweepRuns:    make(map[string]int64),
	}
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordUpdate counts inbound bot updates by kind (message, callback, file).
func (m *Metrics) RecordUpdate(kind string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCount[kind]++
}

// RecordNotification counts outbound notification attempts.
func (m *Metrics) RecordNotification(delivered bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if delivered {
		m.notifySent++
	} else {
		m.notifyFailed++
	}
}

// RecordSweep counts sweep executions by name.
func (m *Metrics) RecordSweep(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepRuns[name]++
}

// Snapshot returns a copy of all counters for the stats endpoint.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64)
	for k, v := range m.requestCount {
		out["request|"+k] = v
	}
	for k, v := range m.errorCount {
		out["error|"+k] = v
	}
	for k, v := range m.updateCount {
		out["update|"+k] = v
	}
	for k, v := range m.sweepRuns {
		out["sweep|"+k] = v
	}
	out["notify|sent"] = m.notifySent
	out["notify|failed"] = m.notifyFailed
	return out
}

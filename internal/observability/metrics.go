package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	ruleCount    map[string]int64
	latencyTotal map[string]time.Duration
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests map[string]int64 `json:"requests"`
	Errors   map[string]int64 `json:"errors"`
	Rules    map[string]int64 `json:"rules"`
	// AvgLatencyMS is keyed like Requests without the status suffix.
	AvgLatencyMS map[string]float64 `json:"avg_latency_ms"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		ruleCount:    make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[path+"|"+method] += duration
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

// RecordRule counts a committed flow rule.
func (m *Metrics) RecordRule(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ruleCount[name]++
}

// RuleCount returns how often rule name has committed.
func (m *Metrics) RuleCount(name string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ruleCount[name]
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() Snapshot {
	out := Snapshot{
		Requests:     map[string]int64{},
		Errors:       map[string]int64{},
		Rules:        map[string]int64{},
		AvgLatencyMS: map[string]float64{},
	}
	if m == nil {
		return out
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	hits := make(map[string]int64)
	for k, v := range m.requestCount {
		out.Requests[k] = v
		hits[trimStatus(k)] += v
	}
	for k, v := range m.errorCount {
		out.Errors[k] = v
	}
	for k, v := range m.ruleCount {
		out.Rules[k] = v
	}
	for k, total := range m.latencyTotal {
		if n := hits[k]; n > 0 {
			out.AvgLatencyMS[k] = float64(total.Milliseconds()) / float64(n)
		}
	}
	return out
}

// RuleNames lists rules that have committed at least once, sorted.
func (s Snapshot) RuleNames() []string {
	names := make([]string, 0, len(s.Rules))
	for name := range s.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}

func trimStatus(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '|' {
			return key[:i]
		}
	}
	return key
}

// Package metrics keeps in-process counters for live sessions and wizard
// outcomes and serves them in the Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds the server's instruments.
type Metrics struct {
	namespace string

	SessionsActive *Gauge
	SessionsTotal  *Counter

	// Events counts browser events by name.
	Events *CounterVec

	// Errors counts failures by kind: mount, event, info, render, panic.
	Errors *CounterVec

	RenderDuration *Histogram

	// Completions counts finished wizards by outcome.
	Completions *CounterVec

	// SubmitFailures counts failed deliveries by submitter.
	SubmitFailures *CounterVec
}

// New creates a Metrics whose series are prefixed with namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		namespace:      namespace,
		SessionsActive: NewGauge("sessions_active", "Live sessions currently connected"),
		SessionsTotal:  NewCounter("sessions_total", "Live sessions opened"),
		Events:         NewCounterVec("events_total", "Browser events handled", "event"),
		Errors:         NewCounterVec("errors_total", "Session errors", "kind"),
		RenderDuration: NewHistogram("render_duration_seconds", "Time spent rendering a view"),
		Completions:    NewCounterVec("completions_total", "Wizards that reached the thank-you screen", "outcome"),
		SubmitFailures: NewCounterVec("submit_failures_total", "Submissions that could not be delivered", "submitter"),
	}
}

// SessionOpened records a new live session.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()
}

// SessionClosed records a live session going away.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// Event records one handled browser event.
func (m *Metrics) Event(name string) {
	if m == nil {
		return
	}
	m.Events.Inc(name)
}

// Error records a failure of the given kind.
func (m *Metrics) Error(kind string) {
	if m == nil {
		return
	}
	m.Errors.Inc(kind)
}

// Rendered records how long a render took.
func (m *Metrics) Rendered(d time.Duration) {
	if m == nil {
		return
	}
	m.RenderDuration.ObserveDuration(d)
}

// Completed records a wizard reaching the thank-you screen.
func (m *Metrics) Completed(outcome string) {
	if m == nil {
		return
	}
	m.Completions.Inc(outcome)
}

// SubmitFailed records a failed delivery.
func (m *Metrics) SubmitFailed(submitter string) {
	if m == nil {
		return
	}
	m.SubmitFailures.Inc(submitter)
}

// Handler serves the current values.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		m.WriteTo(w)
	})
}

// WriteTo writes every series in the Prometheus text format.
func (m *Metrics) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	m.writeScalar(cw, m.SessionsActive.name, m.SessionsActive.help, "gauge", m.SessionsActive.Value())
	m.writeScalar(cw, m.SessionsTotal.name, m.SessionsTotal.help, "counter", m.SessionsTotal.Value())
	for _, cv := range []*CounterVec{m.Events, m.Errors, m.Completions, m.SubmitFailures} {
		m.writeVec(cw, cv)
	}
	m.writeHistogram(cw, m.RenderDuration)
	return cw.n, cw.err
}

func (m *Metrics) fullName(name string) string {
	if m.namespace == "" {
		return name
	}
	return m.namespace + "_" + name
}

func (m *Metrics) writeScalar(w io.Writer, name, help, kind string, v float64) {
	name = m.fullName(name)
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %g\n", name, help, name, kind, name, v)
}

func (m *Metrics) writeVec(w io.Writer, cv *CounterVec) {
	name := m.fullName(cv.name)
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", name, cv.help, name)
	values := cv.Values()
	labels := make([]string, 0, len(values))
	for l := range values {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Fprintf(w, "%s{%s=%q} %g\n", name, cv.label, l, values[l])
	}
}

func (m *Metrics) writeHistogram(w io.Writer, h *Histogram) {
	name := m.fullName(h.name)
	s := h.Stats()
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s summary\n", name, h.help, name)
	fmt.Fprintf(w, "%s_sum %g\n%s_count %d\n", name, s.Sum, name, s.Count)
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

// Counter only goes up.
type Counter struct {
	name, help string
	value      atomic.Int64
}

// NewCounter creates a counter.
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

func (c *Counter) Inc()            { c.value.Add(1) }
func (c *Counter) Add(delta int64) { c.value.Add(delta) }
func (c *Counter) Value() float64  { return float64(c.value.Load()) }

// Gauge goes up and down.
type Gauge struct {
	name, help string
	value      atomic.Int64
}

// NewGauge creates a gauge.
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Inc()           { g.value.Add(1) }
func (g *Gauge) Dec()           { g.value.Add(-1) }
func (g *Gauge) Set(v int64)    { g.value.Store(v) }
func (g *Gauge) Value() float64 { return float64(g.value.Load()) }

// CounterVec is a family of counters split by one label.
type CounterVec struct {
	name, help, label string

	mu       sync.RWMutex
	counters map[string]*Counter
}

// NewCounterVec creates a counter family.
func NewCounterVec(name, help, label string) *CounterVec {
	return &CounterVec{
		name:     name,
		help:     help,
		label:    label,
		counters: make(map[string]*Counter),
	}
}

// WithLabel returns the counter for value, creating it on first use.
func (cv *CounterVec) WithLabel(value string) *Counter {
	cv.mu.RLock()
	c, ok := cv.counters[value]
	cv.mu.RUnlock()
	if ok {
		return c
	}

	cv.mu.Lock()
	defer cv.mu.Unlock()
	if c, ok = cv.counters[value]; !ok {
		c = NewCounter(cv.name, cv.help)
		cv.counters[value] = c
	}
	return c
}

// Inc increments the counter for value.
func (cv *CounterVec) Inc(value string) {
	cv.WithLabel(value).Inc()
}

// Values snapshots every counter.
func (cv *CounterVec) Values() map[string]float64 {
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	out := make(map[string]float64, len(cv.counters))
	for l, c := range cv.counters {
		out[l] = c.Value()
	}
	return out
}

// Histogram tracks count, sum, min and max of observations.
type Histogram struct {
	name, help string

	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

// NewHistogram creates a histogram.
func NewHistogram(name, help string) *Histogram {
	return &Histogram{name: name, help: help}
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 || v < h.min {
		h.min = v
	}
	if v > h.max {
		h.max = v
	}
	h.count++
	h.sum += v
}

// ObserveDuration records d in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

// HistogramStats is a snapshot of a Histogram.
type HistogramStats struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Avg   float64
}

// Stats snapshots h.
func (h *Histogram) Stats() HistogramStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := HistogramStats{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
	if h.count > 0 {
		s.Avg = h.sum / float64(h.count)
	}
	return s
}

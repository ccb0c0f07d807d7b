// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for the loop and its relays. Metrics implements
// api.Observer and keeps its own registry so several runtimes can coexist.

package control

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/momentics/hioload-relay/api"
)

var _ api.Observer = (*Metrics)(nil)

// Metrics holds the relay collectors.
type Metrics struct {
	registry      *prometheus.Registry
	machines      prometheus.Gauge
	wakeups       prometheus.Counter
	spawns        prometheus.Counter
	spawnFailures prometheus.Counter
	terminations  prometheus.Counter
	requests      *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors under namespace. The loop
// name is attached as a constant label.
func NewMetrics(namespace, loop string) *Metrics {
	labels := prometheus.Labels{"loop": loop}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		machines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "machines",
			Help:        "Machines currently registered on the loop.",
			ConstLabels: labels,
		}),
		wakeups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "wakeups_total",
			Help:        "Wakeup calls dispatched to machines.",
			ConstLabels: labels,
		}),
		spawns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "spawns_total",
			Help:        "Machines created from seeds.",
			ConstLabels: labels,
		}),
		spawnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "spawn_failures_total",
			Help:        "Seeds rejected by the factory.",
			ConstLabels: labels,
		}),
		terminations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "terminations_total",
			Help:        "Machines unregistered after returning done.",
			ConstLabels: labels,
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "requests_total",
			Help:        "Relayed requests drained, by handler outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.machines, m.wakeups, m.spawns, m.spawnFailures, m.terminations, m.requests)
	return m
}

func (m *Metrics) MachineAdded()   { m.machines.Inc() }
func (m *Metrics) MachineRemoved() { m.machines.Dec(); m.terminations.Inc() }
func (m *Metrics) Wakeup()         { m.wakeups.Inc() }
func (m *Metrics) Spawned()        { m.spawns.Inc() }
func (m *Metrics) SpawnFailed()    { m.spawnFailures.Inc() }

func (m *Metrics) RequestDrained(spawned bool) {
	if spawned {
		m.requests.WithLabelValues("spawn").Inc()
		return
	}
	m.requests.WithLabelValues("none").Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Snapshot flattens gathered counters and gauges into name{labels} keys.
// The constant loop label is omitted.
func (m *Metrics) Snapshot() map[string]any {
	out := make(map[string]any)
	families, err := m.registry.Gather()
	if err != nil {
		out["metrics.error"] = err.Error()
		return out
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			var parts []string
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "loop" {
					continue
				}
				parts = append(parts, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(parts)
			key := mf.GetName()
			if len(parts) > 0 {
				key += "{" + strings.Join(parts, ",") + "}"
			}
			switch {
			case metric.GetCounter() != nil:
				out[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				out[key] = metric.GetGauge().GetValue()
			}
		}
	}
	return out
}

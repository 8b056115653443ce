/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package metrics exports prometheus metrics about the tests a driver runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperledger-labs/stepharness/pkg/driver"
)

const Namespace = "stepharness"

// Metrics implements driver.Observer.  Every Metrics owns its registry, so
// several suites may be measured within one process.
type Metrics struct {
	registry *prometheus.Registry

	testsTotal   *prometheus.CounterVec
	stepsTotal   *prometheus.CounterVec
	testDuration *prometheus.HistogramVec
	activeTest   prometheus.Gauge
}

// New creates the metrics, labelled with the id of the run.
func New(runID string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"run_id": runID}

	return &Metrics{
		registry: registry,

		testsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "tests_total",
			Help:        "Count of concluded tests",
			ConstLabels: labels,
		}, []string{
			"status",
		}),

		stepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "steps_total",
			Help:        "Count of step invocations, by the action returned",
			ConstLabels: labels,
		}, []string{
			"action",
		}),

		testDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   Namespace,
			Name:        "test_duration_seconds",
			Help:        "Duration of concluded tests",
			ConstLabels: labels,
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{
			"status",
		}),

		activeTest: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "active_test",
			Help:        "Index of the executing test, -1 when idle",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) Observe(event driver.Event) error {
	switch event.Type {
	case driver.EventTestBegan:
		m.activeTest.Set(float64(event.Test))
	case driver.EventStepReturned:
		m.stepsTotal.WithLabelValues(event.Action.Kind.String()).Inc()
	case driver.EventTestConcluded:
		status := event.Record.Status.String()
		m.testsTotal.WithLabelValues(status).Inc()
		m.testDuration.WithLabelValues(status).Observe(event.Duration.Seconds())
		m.activeTest.Set(-1)
	}
	return nil
}

// TestsTotal returns the counter of tests concluded with status.
func (m *Metrics) TestsTotal(status string) prometheus.Counter {
	return m.testsTotal.WithLabelValues(status)
}

// StepsTotal returns the counter of steps which returned an action of kind.
func (m *Metrics) StepsTotal(kind string) prometheus.Counter {
	return m.stepsTotal.WithLabelValues(kind)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteFile writes the current metrics to path, for collection by the node
// exporter's textfile collector.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	kitmetrics "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/fabric-stub/fabric-stub-go/pkg/core/metrics"
)

// Provider creates go-kit meters backed by prometheus collectors registered
// with its registerer. A collector that is already registered is reused, so
// several clients may share one registry.
type Provider struct {
	Registerer prom.Registerer
}

// NewProvider returns a provider registering with r, or with the prometheus
// default registerer if r is nil.
func NewProvider(r prom.Registerer) *Provider {
	if r == nil {
		r = prom.DefaultRegisterer
	}
	return &Provider{Registerer: r}
}

// NewCounter creates a counter vector.
func (p *Provider) NewCounter(o metrics.CounterOpts) metrics.Counter {
	cv := prom.NewCounterVec(prom.CounterOpts{
		Namespace: o.Namespace,
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
	}, o.LabelNames)
	return &Counter{Counter: prometheus.NewCounter(register(p.Registerer, cv).(*prom.CounterVec))}
}

// NewGauge creates a gauge vector.
func (p *Provider) NewGauge(o metrics.GaugeOpts) metrics.Gauge {
	gv := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: o.Namespace,
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
	}, o.LabelNames)
	return &Gauge{Gauge: prometheus.NewGauge(register(p.Registerer, gv).(*prom.GaugeVec))}
}

// NewHistogram creates a histogram vector.
func (p *Provider) NewHistogram(o metrics.HistogramOpts) metrics.Histogram {
	hv := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: o.Namespace,
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
		Buckets:   o.Buckets,
	}, o.LabelNames)
	return &Histogram{Histogram: prometheus.NewHistogram(register(p.Registerer, hv).(*prom.HistogramVec))}
}

func register(r prom.Registerer, c prom.Collector) prom.Collector {
	if err := r.Register(c); err != nil {
		if are, ok := err.(prom.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

// Counter adapts a go-kit counter.
type Counter struct{ kitmetrics.Counter }

// With returns the counter for the given label values.
func (c *Counter) With(labelValues ...string) metrics.Counter {
	return &Counter{Counter: c.Counter.With(labelValues...)}
}

// Gauge adapts a go-kit gauge.
type Gauge struct{ kitmetrics.Gauge }

// With returns the gauge for the given label values.
func (g *Gauge) With(labelValues ...string) metrics.Gauge {
	return &Gauge{Gauge: g.Gauge.With(labelValues...)}
}

// Histogram adapts a go-kit histogram.
type Histogram struct{ kitmetrics.Histogram }

// With returns the histogram for the given label values.
func (h *Histogram) With(labelValues ...string) metrics.Histogram {
	return &Histogram{Histogram: h.Histogram.With(labelValues...)}
}

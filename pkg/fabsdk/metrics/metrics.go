/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"github.com/fabric-stub/fabric-stub-go/pkg/core/metrics"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/metrics/disabled"
)

var (
	callsReceived = metrics.CounterOpts{
		Subsystem:  "driver",
		Name:       "calls_received",
		Help:       "The number of read-only calls received.",
		LabelNames: []string{"resource"},
	}
	callsFailed = metrics.CounterOpts{
		Subsystem:  "driver",
		Name:       "calls_failed",
		Help:       "The number of read-only calls that failed.",
		LabelNames: []string{"resource", "code"},
	}
	callDuration = metrics.HistogramOpts{
		Subsystem:  "driver",
		Name:       "call_duration",
		Help:       "The time to complete a read-only call.",
		LabelNames: []string{"resource"},
	}
	transactionsReceived = metrics.CounterOpts{
		Subsystem:  "driver",
		Name:       "transactions_received",
		Help:       "The number of transactions received.",
		LabelNames: []string{"resource"},
	}
	transactionsFailed = metrics.CounterOpts{
		Subsystem:  "driver",
		Name:       "transactions_failed",
		Help:       "The number of transactions that failed.",
		LabelNames: []string{"resource", "code"},
	}
	transactionDuration = metrics.HistogramOpts{
		Subsystem:  "driver",
		Name:       "transaction_duration",
		Help:       "The time from proposal to on-chain verification of a transaction.",
		LabelNames: []string{"resource"},
	}
	commitTimeouts = metrics.CounterOpts{
		Subsystem: "committer",
		Name:      "commit_timeouts",
		Help:      "The number of submissions that saw no commit event before the deadline.",
	}
	verificationFailures = metrics.CounterOpts{
		Subsystem: "driver",
		Name:      "verification_failures",
		Help:      "The number of commit events whose block did not contain the transaction.",
	}
	cacheSize = metrics.GaugeOpts{
		Subsystem: "blocksync",
		Name:      "cache_size",
		Help:      "The number of blocks held by the block cache.",
	}
	blocksFetched = metrics.CounterOpts{
		Subsystem: "blocksync",
		Name:      "blocks_fetched",
		Help:      "The number of blocks fetched into the block cache.",
	}
	pollFailures = metrics.CounterOpts{
		Subsystem: "blocksync",
		Name:      "poll_failures",
		Help:      "The number of failed height polls and block fetches.",
	}
)

// ClientMetrics contains the metrics recorded by the driver, the committer
// and the block cache
type ClientMetrics struct {
	CallsReceived        metrics.Counter
	CallsFailed          metrics.Counter
	CallDuration         metrics.Histogram
	TransactionsReceived metrics.Counter
	TransactionsFailed   metrics.Counter
	TransactionDuration  metrics.Histogram
	CommitTimeouts       metrics.Counter
	VerificationFailures metrics.Counter
	CacheSize            metrics.Gauge
	BlocksFetched        metrics.Counter
	PollFailures         metrics.Counter
}

// NewClientMetrics builds a new instance of ClientMetrics
func NewClientMetrics(p metrics.Provider, namespace string) *ClientMetrics {
	return &ClientMetrics{
		CallsReceived:        p.NewCounter(withNamespace(callsReceived, namespace)),
		CallsFailed:          p.NewCounter(withNamespace(callsFailed, namespace)),
		CallDuration:         p.NewHistogram(histogramWithNamespace(callDuration, namespace)),
		TransactionsReceived: p.NewCounter(withNamespace(transactionsReceived, namespace)),
		TransactionsFailed:   p.NewCounter(withNamespace(transactionsFailed, namespace)),
		TransactionDuration:  p.NewHistogram(histogramWithNamespace(transactionDuration, namespace)),
		CommitTimeouts:       p.NewCounter(withNamespace(commitTimeouts, namespace)),
		VerificationFailures: p.NewCounter(withNamespace(verificationFailures, namespace)),
		CacheSize:            p.NewGauge(gaugeWithNamespace(cacheSize, namespace)),
		BlocksFetched:        p.NewCounter(withNamespace(blocksFetched, namespace)),
		PollFailures:         p.NewCounter(withNamespace(pollFailures, namespace)),
	}
}

// Disabled returns metrics that record nothing
func Disabled() *ClientMetrics {
	return NewClientMetrics(&disabled.Provider{}, "")
}

func withNamespace(o metrics.CounterOpts, ns string) metrics.CounterOpts {
	o.Namespace = ns
	return o
}

func gaugeWithNamespace(o metrics.GaugeOpts, ns string) metrics.GaugeOpts {
	o.Namespace = ns
	return o
}

func histogramWithNamespace(o metrics.HistogramOpts, ns string) metrics.HistogramOpts {
	o.Namespace = ns
	return o
}

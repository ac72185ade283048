/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package blocksync

import (
	"time"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/cryptosuite"
	"github.com/fabric-stub/fabric-stub-go/pkg/fabsdk/metrics"
	"github.com/fabric-stub/fabric-stub-go/pkg/util/concurrent/scheduler"
	"github.com/fabric-stub/fabric-stub-go/pkg/util/concurrent/workerpool"
)

const (
	// DefaultCapacity is the default number of blocks held by the cache
	DefaultCapacity = 20
	// DefaultPollInterval is the delay between height polls when no new block was seen
	DefaultPollInterval = time.Second
	// DefaultRetryInterval is the delay before polling again after a failed poll or fetch
	DefaultRetryInterval = time.Second
	// DefaultRequestTimeout bounds each call to the block source
	DefaultRequestTimeout = 30 * time.Second
)

type params struct {
	capacity       int
	pollInterval   time.Duration
	retryInterval  time.Duration
	requestTimeout time.Duration
	scheduler      *scheduler.Scheduler
	pool           *workerpool.Pool
	metrics        *metrics.ClientMetrics
	hashOpts       core.HashOpts
}

func defaultParams() *params {
	return &params{
		capacity:       DefaultCapacity,
		pollInterval:   DefaultPollInterval,
		retryInterval:  DefaultRetryInterval,
		requestTimeout: DefaultRequestTimeout,
		hashOpts:       cryptosuite.GetSHA256Opts(),
	}
}

// Opt is a cache option
type Opt func(p *params)

// WithCapacity sets the maximum number of cached blocks
func WithCapacity(value int) Opt {
	return func(p *params) {
		if value > 0 {
			logger.Debugf("Capacity: %d", value)
			p.capacity = value
		}
	}
}

// WithPollInterval sets the delay between polls when the cache is up to date
func WithPollInterval(value time.Duration) Opt {
	return func(p *params) {
		if value > 0 {
			logger.Debugf("PollInterval: %s", value)
			p.pollInterval = value
		}
	}
}

// WithRetryInterval sets the delay before polling again after a failure
func WithRetryInterval(value time.Duration) Opt {
	return func(p *params) {
		if value > 0 {
			logger.Debugf("RetryInterval: %s", value)
			p.retryInterval = value
		}
	}
}

// WithRequestTimeout bounds each height query and block fetch
func WithRequestTimeout(value time.Duration) Opt {
	return func(p *params) {
		if value > 0 {
			p.requestTimeout = value
		}
	}
}

// WithScheduler sets the scheduler that arms the poll timer
func WithScheduler(value *scheduler.Scheduler) Opt {
	return func(p *params) {
		p.scheduler = value
	}
}

// WithWorkerPool sets the pool on which callbacks are run
func WithWorkerPool(value *workerpool.Pool) Opt {
	return func(p *params) {
		p.pool = value
	}
}

// WithMetrics sets the metrics recorded by the cache
func WithMetrics(value *metrics.ClientMetrics) Opt {
	return func(p *params) {
		p.metrics = value
	}
}

// WithHashOpts sets the digest used for block hashes
func WithHashOpts(value core.HashOpts) Opt {
	return func(p *params) {
		if value != nil {
			p.hashOpts = value
		}
	}
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resource

import (
	reqContext "context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/util/concurrent/scheduler"
)

const (
	defaultRefreshInterval = time.Minute
	defaultRefreshTimeout  = 10 * time.Second
)

// DiscoverFunc returns the current set of resource descriptors
type DiscoverFunc func(ctx reqContext.Context) ([]fab.ResourceDescriptor, error)

// Refresher periodically replaces the contents of a registry with the
// descriptors returned by a discovery function. A failed discovery leaves
// the registry as it was.
type Refresher struct {
	registry  *Registry
	discover  DiscoverFunc
	interval  time.Duration
	timeout   time.Duration
	scheduler *scheduler.Scheduler

	mutex   sync.Mutex
	handle  *scheduler.Handle
	running bool
}

// RefresherOpt is a refresher option
type RefresherOpt func(r *Refresher)

// WithRefreshInterval sets the time between discoveries
func WithRefreshInterval(value time.Duration) RefresherOpt {
	return func(r *Refresher) {
		if value > 0 {
			r.interval = value
		}
	}
}

// WithRefreshTimeout bounds a single discovery
func WithRefreshTimeout(value time.Duration) RefresherOpt {
	return func(r *Refresher) {
		if value > 0 {
			r.timeout = value
		}
	}
}

// WithScheduler sets the scheduler on which refreshes are armed
func WithScheduler(value *scheduler.Scheduler) RefresherOpt {
	return func(r *Refresher) {
		r.scheduler = value
	}
}

// NewRefresher returns a refresher for the registry
func NewRefresher(registry *Registry, discover DiscoverFunc, opts ...RefresherOpt) *Refresher {
	r := &Refresher{
		registry: registry,
		discover: discover,
		interval: defaultRefreshInterval,
		timeout:  defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scheduler == nil {
		r.scheduler = scheduler.New()
	}
	return r
}

// Start runs a discovery immediately and then once every refresh interval
func (r *Refresher) Start() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.running {
		return errors.New("resource refresher already started")
	}
	r.running = true
	return r.arm(0)
}

// Stop cancels the next scheduled refresh. A discovery in flight completes
// but its result is still applied.
func (r *Refresher) Stop() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.running = false
	if r.handle != nil {
		r.handle.Cancel()
		r.handle = nil
	}
}

// Refresh runs a discovery and replaces the registry contents with the result
func (r *Refresher) Refresh(ctx reqContext.Context) error {
	descriptors, err := r.discover(ctx)
	if err != nil {
		return errors.WithMessage(err, "resource discovery failed")
	}
	return r.registry.Replace(descriptors)
}

// arm must be called with the lock held
func (r *Refresher) arm(delay time.Duration) error {
	h, err := r.scheduler.Schedule(delay, r.run)
	if err != nil {
		return errors.WithMessage(err, "unable to schedule resource refresh")
	}
	r.handle = h
	return nil
}

func (r *Refresher) run() {
	ctx, cancel := reqContext.WithTimeout(reqContext.Background(), r.timeout)
	defer cancel()

	if err := r.Refresh(ctx); err != nil {
		logger.Warnf("Keeping current resource descriptors: %s", err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.running {
		return
	}
	if err := r.arm(r.interval); err != nil {
		logger.Errorf("Resource refresh stopped: %s", err)
	}
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package workerpool

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
)

var logger = logging.NewLogger("fabstub/util")

// DefaultSize is the number of tasks that may run concurrently when no size is given
const DefaultSize = 16

// ErrClosed is returned when a task is submitted to a closed pool
var ErrClosed = errors.New("worker pool is closed")

// Pool runs submitted tasks with bounded concurrency. Submit never blocks
// the caller; tasks wait for a free slot on their own goroutine.
type Pool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	mutex  sync.RWMutex
	closed bool
}

// New returns a pool that runs at most size tasks at a time
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Submit queues the task for execution
func (p *Pool) Submit(task func()) error {
	return p.start(task, true)
}

// Go runs a task that may block on work submitted to this pool, such as a
// request waiting for its own continuations. The task is tracked by Close
// but does not take a slot.
func (p *Pool) Go(task func()) error {
	return p.start(task, false)
}

func (p *Pool) start(task func(), bounded bool) error {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if p.closed {
		return ErrClosed
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if bounded {
			if err := p.sem.Acquire(context.Background(), 1); err != nil {
				logger.Errorf("unable to acquire worker slot: %s", err)
				return
			}
			defer p.sem.Release(1)
		}

		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("worker task panicked: %v", r)
			}
		}()
		task()
	}()

	return nil
}

// Close rejects further submissions and waits for queued tasks to finish
func (p *Pool) Close() {
	p.mutex.Lock()
	p.closed = true
	p.mutex.Unlock()

	p.wg.Wait()
}

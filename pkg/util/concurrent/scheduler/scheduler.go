/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ErrClosed is returned when a task is scheduled on a closed scheduler
var ErrClosed = errors.New("scheduler is closed")

// Task is a unit of deferred work
type Task func()

// Handle identifies a scheduled task. A task runs at most once; calling
// Cancel before it runs prevents it from running at all.
type Handle struct {
	timer *time.Timer
	state int32
	owner *Scheduler
}

const (
	pending int32 = iota
	fired
	cancelled
)

// Cancel stops the task from running. It returns false if the task
// already ran or was already cancelled.
func (h *Handle) Cancel() bool {
	if !atomic.CompareAndSwapInt32(&h.state, pending, cancelled) {
		return false
	}
	h.timer.Stop()
	h.owner.release(h)
	return true
}

// Done returns true once the task has run or has been cancelled
func (h *Handle) Done() bool {
	return atomic.LoadInt32(&h.state) != pending
}

// Scheduler runs tasks after a delay. Each engine instance owns its own
// Scheduler so that closing one never affects timers armed by another.
type Scheduler struct {
	mutex   sync.Mutex
	handles map[*Handle]struct{}
	closed  bool
}

// New returns a new Scheduler
func New() *Scheduler {
	return &Scheduler{handles: make(map[*Handle]struct{})}
}

// Schedule arms a timer that runs the given task after delay. A zero or
// negative delay runs the task as soon as possible on its own goroutine.
func (s *Scheduler) Schedule(delay time.Duration, task Task) (*Handle, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	h := &Handle{owner: s}
	s.handles[h] = struct{}{}
	h.timer = time.AfterFunc(delay, func() {
		if !atomic.CompareAndSwapInt32(&h.state, pending, fired) {
			return
		}
		s.release(h)
		task()
	})

	return h, nil
}

// Pending returns the number of armed tasks
func (s *Scheduler) Pending() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.handles)
}

// Close cancels all armed tasks. Subsequent calls to Schedule fail with ErrClosed.
func (s *Scheduler) Close() {
	s.mutex.Lock()
	handles := s.handles
	s.handles = make(map[*Handle]struct{})
	s.closed = true
	s.mutex.Unlock()

	for h := range handles {
		if atomic.CompareAndSwapInt32(&h.state, pending, cancelled) {
			h.timer.Stop()
		}
	}
}

func (s *Scheduler) release(h *Handle) {
	s.mutex.Lock()
	delete(s.handles, h)
	s.mutex.Unlock()
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package committer submits signed envelopes to the ordering service and
// reports the outcome of each submission exactly once.
package committer

import (
	reqContext "context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/txn"
	"github.com/fabric-stub/fabric-stub-go/pkg/fabsdk/metrics"
	"github.com/fabric-stub/fabric-stub-go/pkg/util/concurrent/scheduler"
	"github.com/fabric-stub/fabric-stub-go/pkg/util/concurrent/workerpool"
)

var logger = logging.NewLogger("fabstub/fab")

// DefaultTimeout is the time to wait for a commit event after submission
const DefaultTimeout = 5 * time.Second

// Handler receives the outcome of a submission. It is invoked exactly once
// with either the commit event or an error.
type Handler func(event *fab.TxStatusEvent, err error)

// Committer broadcasts envelopes and waits for their commit events
type Committer struct {
	orderers  []fab.Orderer
	listener  fab.CommitListener
	timeout   time.Duration
	scheduler *scheduler.Scheduler
	pool      *workerpool.Pool
	metrics   *metrics.ClientMetrics
	ownsSched bool
}

// Opt is a committer option
type Opt func(c *Committer)

// WithTimeout sets the time to wait for the commit event
func WithTimeout(value time.Duration) Opt {
	return func(c *Committer) {
		if value > 0 {
			c.timeout = value
		}
	}
}

// WithScheduler sets the scheduler that arms commit timeouts
func WithScheduler(value *scheduler.Scheduler) Opt {
	return func(c *Committer) {
		c.scheduler = value
	}
}

// WithWorkerPool sets the pool on which handlers are invoked
func WithWorkerPool(value *workerpool.Pool) Opt {
	return func(c *Committer) {
		c.pool = value
	}
}

// WithMetrics sets the metrics recorded by the committer
func WithMetrics(value *metrics.ClientMetrics) Opt {
	return func(c *Committer) {
		c.metrics = value
	}
}

// New returns a new Committer
func New(orderers []fab.Orderer, listener fab.CommitListener, opts ...Opt) *Committer {
	c := &Committer{
		orderers: orderers,
		listener: listener,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.scheduler == nil {
		c.scheduler = scheduler.New()
		c.ownsSched = true
	}
	if c.pool == nil {
		c.pool = workerpool.New(workerpool.DefaultSize)
	}
	if c.metrics == nil {
		c.metrics = metrics.Disabled()
	}
	return c
}

// Orderers returns the orderers used for broadcast
func (c *Committer) Orderers() []fab.Orderer {
	return c.orderers
}

// Submit registers for the transaction's commit event, broadcasts the
// envelope and arms the commit timeout. The handler is invoked exactly once,
// on the worker pool, with whichever of the commit event, the timeout, a
// broadcast failure or the cancellation of ctx happens first.
func (c *Committer) Submit(ctx reqContext.Context, envelope *fab.SignedEnvelope, txID string, handler Handler) {
	c.submit(ctx, envelope, txID, func(event *fab.TxStatusEvent, err error) {
		c.dispatch(handler, event, err)
	})
}

// SubmitAndWait submits the envelope and blocks until its outcome is known
// or ctx is done. It may be called from a task running on the committer's
// worker pool.
func (c *Committer) SubmitAndWait(ctx reqContext.Context, envelope *fab.SignedEnvelope, txID string) (*fab.TxStatusEvent, error) {
	type result struct {
		event *fab.TxStatusEvent
		err   error
	}

	// completed on the responding goroutine, never through the pool
	resultch := make(chan result, 1)
	c.submit(ctx, envelope, txID, func(event *fab.TxStatusEvent, err error) {
		resultch <- result{event: event, err: err}
	})

	select {
	case r := <-resultch:
		return r.event, r.err
	case <-ctx.Done():
		select {
		case r := <-resultch:
			return r.event, r.err
		default:
		}
		return nil, status.New(status.ClientStatus, status.Cancelled.ToInt32(),
			"submission of transaction ["+txID+"] cancelled: "+ctx.Err().Error(), nil)
	}
}

// submit runs the submission. complete is called exactly once and must not block.
func (c *Committer) submit(ctx reqContext.Context, envelope *fab.SignedEnvelope, txID string, complete Handler) {
	if c.listener == nil {
		complete(nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "commit listener is required"))
		return
	}

	// Register before broadcasting so that a fast commit is never missed
	reg, statusch, err := c.listener.RegisterTxStatus(txID)
	if err != nil {
		complete(nil, errors.Wrap(err, "error registering for TxStatus event"))
		return
	}

	s := &submission{
		txID:      txID,
		complete:  complete,
		done:      make(chan struct{}),
		committer: c,
		reg:       reg,
	}

	h, err := c.scheduler.Schedule(c.timeout, s.timeout)
	if err != nil {
		s.respond(nil, errors.Wrap(err, "unable to arm commit timeout"))
		return
	}
	s.setTimer(h)

	go s.wait(ctx, statusch)
	go s.broadcast(ctx, envelope)
}

// Close cancels every armed commit timeout. A scheduler passed with
// WithScheduler is left to its owner.
func (c *Committer) Close() {
	if c.ownsSched {
		c.scheduler.Close()
	}
}

func (c *Committer) dispatch(handler Handler, event *fab.TxStatusEvent, err error) {
	task := func() { handler(event, err) }
	if perr := c.pool.Submit(task); perr != nil {
		go task()
	}
}

type submission struct {
	txID      string
	complete  Handler
	done      chan struct{}
	committer *Committer
	reg       fab.Registration
	responded int32
	timer     atomic.Value
}

func (s *submission) setTimer(h *scheduler.Handle) {
	s.timer.Store(h)
}

// respond completes the submission. Only the first caller wins; later
// calls are no-ops and return false.
func (s *submission) respond(event *fab.TxStatusEvent, err error) bool {
	if !atomic.CompareAndSwapInt32(&s.responded, 0, 1) {
		return false
	}

	close(s.done)
	if h, ok := s.timer.Load().(*scheduler.Handle); ok {
		h.Cancel()
	}
	if s.reg != nil {
		s.committer.listener.Unregister(s.reg)
	}

	if err != nil {
		logger.Debugf("Submission of transaction [%s] failed: %s", s.txID, err)
	} else {
		logger.Debugf("Transaction [%s] committed in block %d", s.txID, event.BlockNumber)
	}

	s.complete(event, err)
	return true
}

func (s *submission) timeout() {
	err := status.Newf(status.ClientStatus, status.CommitTimeout,
		"commit failed: no commit event for transaction [%s] within %s; check endorsement policy peer coverage",
		s.txID, s.committer.timeout)
	if s.respond(nil, err) {
		s.committer.metrics.CommitTimeouts.Add(1)
		logger.Warnf("Commit of transaction [%s] timed out", s.txID)
	}
}

func (s *submission) wait(ctx reqContext.Context, statusch <-chan *fab.TxStatusEvent) {
	select {
	case event, ok := <-statusch:
		if !ok {
			s.respond(nil, status.New(status.ClientStatus, status.Cancelled.ToInt32(),
				"commit listener closed while waiting for transaction ["+s.txID+"]", nil))
			return
		}
		if !event.Valid() {
			s.respond(event, status.New(status.ClientStatus, status.CommitRejected.ToInt32(),
				"transaction ["+s.txID+"] was rejected with validation code "+event.TxValidationCode.String(),
				[]interface{}{event.TxValidationCode}))
			return
		}
		s.respond(event, nil)
	case <-ctx.Done():
		s.respond(nil, status.New(status.ClientStatus, status.Cancelled.ToInt32(),
			"submission of transaction ["+s.txID+"] cancelled: "+ctx.Err().Error(), nil))
	case <-s.done:
	}
}

func (s *submission) broadcast(ctx reqContext.Context, envelope *fab.SignedEnvelope) {
	resp, err := txn.Broadcast(ctx, envelope, s.committer.orderers)
	if err != nil {
		s.respond(nil, err)
		return
	}
	logger.Debugf("Transaction [%s] accepted by orderer [%s]", s.txID, resp.Orderer)
}

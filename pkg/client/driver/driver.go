/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package driver exposes read-only calls and on-chain verified transactions
// against the resources of a Fabric network.
//
// A call endorses a proposal on the resource's peers and returns the agreed
// result. A transaction additionally requires every endorser to agree, is
// ordered and committed, and is only reported successful once the committed
// block has been fetched and found to contain the transaction.
package driver

import (
	reqContext "context"
	"fmt"
	"time"

	"github.com/fabric-stub/fabric-stub-go/pkg/client/driver/invoke"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/endorsement"
	"github.com/fabric-stub/fabric-stub-go/pkg/fabsdk/metrics"
	"github.com/fabric-stub/fabric-stub-go/pkg/util/concurrent/workerpool"
)

var logger = logging.NewLogger("fabstub/client")

const defaultHandlerTimeout = time.Second * 180

// TransactionContext holds the account, block manager and resource
// descriptor supplied with every request
type TransactionContext = invoke.TransactionContext

// Request contains the method and arguments to invoke
type Request = invoke.Request

// Response contains the result of a call or transaction
type Response = invoke.Response

// ResponseCallback receives the outcome of an asynchronous request
type ResponseCallback func(Response, error)

// Client runs calls and transactions through the handler chain
type Client struct {
	clientContext *invoke.ClientContext
	pool          *workerpool.Pool
	metrics       *metrics.ClientMetrics
	timeout       time.Duration
}

// Opt is a client option
type Opt func(*Client)

// WithHashOpts sets the hash used for transaction IDs and read/write set fingerprints
func WithHashOpts(value core.HashOpts) Opt {
	return func(c *Client) {
		c.clientContext.HashOpts = value
		c.clientContext.AnalyzerOpts = append(c.clientContext.AnalyzerOpts, endorsement.WithHashOpts(value))
	}
}

// WithEndorsementOpts adds options to the endorsement analysis, for example
// a signature verifier or an endorsement policy
func WithEndorsementOpts(opts ...endorsement.Opt) Opt {
	return func(c *Client) {
		c.clientContext.AnalyzerOpts = append(c.clientContext.AnalyzerOpts, opts...)
	}
}

// WithWorkerPool sets the pool that runs asynchronous requests and their callbacks
func WithWorkerPool(value *workerpool.Pool) Opt {
	return func(c *Client) {
		c.pool = value
	}
}

// WithMetrics sets the metrics recorded by the client
func WithMetrics(value *metrics.ClientMetrics) Opt {
	return func(c *Client) {
		c.metrics = value
	}
}

// WithTimeout bounds each request that has no deadline of its own
func WithTimeout(value time.Duration) Opt {
	return func(c *Client) {
		c.timeout = value
	}
}

// New returns a driver client. peers resolves the endorsers named by a
// resource descriptor; committer orders transactions and waits for their
// commit events.
func New(peers fab.PeerResolver, committer invoke.Committer, opts ...Opt) *Client {
	c := &Client{
		clientContext: &invoke.ClientContext{
			Peers:     peers,
			Committer: committer,
		},
		timeout: defaultHandlerTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = workerpool.New(workerpool.DefaultSize)
	}
	if c.metrics == nil {
		c.metrics = metrics.Disabled()
	}
	c.clientContext.Metrics = c.metrics
	return c
}

// Call endorses a read-only invocation and returns the agreed result
func (c *Client) Call(ctx reqContext.Context, txCtx TransactionContext, request Request) (Response, error) {
	labels := []string{"resource", resourceName(txCtx)}
	c.metrics.CallsReceived.With(labels...).Add(1)
	startTime := time.Now()

	r, err := c.InvokeHandler(ctx, invoke.NewCallHandler(), txCtx, request)
	if err != nil {
		c.metrics.CallsFailed.With(append(labels, "code", failureCode(err))...).Add(1)
		return r, err
	}

	c.metrics.CallDuration.With(labels...).Observe(time.Since(startTime).Seconds())
	return r, nil
}

// AsyncCall runs Call in the background and passes the outcome to cb
func (c *Client) AsyncCall(ctx reqContext.Context, txCtx TransactionContext, request Request, cb ResponseCallback) {
	c.async(cb, func() (Response, error) { return c.Call(ctx, txCtx, request) })
}

// SendTransaction endorses, orders and commits a transaction, then verifies
// that the block reported by the commit event contains it
func (c *Client) SendTransaction(ctx reqContext.Context, txCtx TransactionContext, request Request) (Response, error) {
	labels := []string{"resource", resourceName(txCtx)}
	c.metrics.TransactionsReceived.With(labels...).Add(1)
	startTime := time.Now()

	r, err := c.InvokeHandler(ctx, invoke.NewTransactionHandler(), txCtx, request)
	if err != nil {
		c.metrics.TransactionsFailed.With(append(labels, "code", failureCode(err))...).Add(1)
		return r, err
	}

	c.metrics.TransactionDuration.With(labels...).Observe(time.Since(startTime).Seconds())
	return r, nil
}

// AsyncSendTransaction runs SendTransaction in the background and passes the outcome to cb
func (c *Client) AsyncSendTransaction(ctx reqContext.Context, txCtx TransactionContext, request Request, cb ResponseCallback) {
	c.async(cb, func() (Response, error) { return c.SendTransaction(ctx, txCtx, request) })
}

// InvokeHandler invokes the handler chain with the given request
func (c *Client) InvokeHandler(ctx reqContext.Context, handler invoke.Handler, txCtx TransactionContext, request Request) (Response, error) {
	if ctx == nil {
		ctx = reqContext.Background()
	}
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel reqContext.CancelFunc
		ctx, cancel = reqContext.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	requestContext := &invoke.RequestContext{
		Request:   request,
		TxContext: txCtx,
		Ctx:       ctx,
	}

	handler.Handle(requestContext, c.clientContext)

	if requestContext.Error != nil {
		logger.Debugf("Request [%s] on resource [%s] failed: %s", request.Method, resourceName(txCtx), requestContext.Error)
	}
	return requestContext.Response, requestContext.Error
}

// Close waits for outstanding asynchronous requests
func (c *Client) Close() {
	c.pool.Close()
}

// async runs fn outside the pool's slots, since it waits on commit and
// block continuations that run on the pool, and hands the outcome to cb on
// the pool.
func (c *Client) async(cb ResponseCallback, fn func() (Response, error)) {
	err := c.pool.Go(func() {
		resp, err := fn()
		if perr := c.pool.Submit(func() { cb(resp, err) }); perr != nil {
			cb(resp, err)
		}
	})
	if err != nil {
		go cb(Response{}, status.New(status.ClientStatus, status.Cancelled.ToInt32(), err.Error(), nil))
	}
}

func resourceName(txCtx TransactionContext) string {
	if txCtx.Resource == nil {
		return ""
	}
	return txCtx.Resource.Name
}

func failureCode(err error) string {
	if s, ok := status.FromError(err); ok {
		return fmt.Sprintf("%s:%d", s.Group, s.Code)
	}
	return "unknown"
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package retry re-runs an operation that failed with a transient transport
// error, such as a ledger query whose peers were briefly unreachable.
// Consensus, commit and verification failures are never retried.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	grpcCodes "google.golang.org/grpc/codes"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/multi"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
)

var logger = logging.NewLogger("fabstub/common")

// Opts defines the retry parameters
type Opts struct {
	// Attempts is the number of retries after the first call.
	Attempts int
	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the wait before any retry.
	MaxBackoff time.Duration
	// BackoffFactor multiplies the wait after each retry: the n-th retry
	// waits InitialBackoff * BackoffFactor^(n-1).
	BackoffFactor float64
	// RetryableCodes lists, per status group, the codes worth retrying.
	// DefaultRetryableCodes is used when empty.
	RetryableCodes map[status.Group][]status.Code
}

// DefaultRetryableCodes are the transport-level failures.
var DefaultRetryableCodes = map[status.Group][]status.Code{
	status.EndorserClientStatus: {status.ConnectionFailed},
	status.OrdererClientStatus:  {status.ConnectionFailed},
	status.EndorserServerStatus: {
		status.Code(common.Status_SERVICE_UNAVAILABLE),
		status.Code(common.Status_INTERNAL_SERVER_ERROR),
	},
	status.EventServerStatus:   {status.Code(common.Status_SERVICE_UNAVAILABLE)},
	status.GRPCTransportStatus: {status.Code(grpcCodes.Unavailable)},
}

// DefaultOpts retries three times, starting at half a second.
var DefaultOpts = Opts{
	Attempts:       3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     60 * time.Second,
	BackoffFactor:  2.0,
	RetryableCodes: DefaultRetryableCodes,
}

// Handler decides whether an error is worth another attempt and how long to
// wait before it.
type Handler interface {
	Required(err error) bool
	Backoff() time.Duration
}

type key struct {
	group status.Group
	code  status.Code
}

type handler struct {
	opts      Opts
	retryable map[key]bool
	retries   int
	backoff   time.Duration
}

// New returns a Handler for a single operation. Handlers count attempts, so
// they are not reusable.
func New(opts Opts) Handler {
	codes := opts.RetryableCodes
	if len(codes) == 0 {
		codes = DefaultRetryableCodes
	}

	h := &handler{opts: opts, retryable: make(map[key]bool)}
	for group, cs := range codes {
		for _, c := range cs {
			h.retryable[key{group, c}] = true
		}
	}
	return h
}

// Required reports whether err is retryable and attempts remain. When it
// returns true, Backoff holds the wait for the coming attempt.
func (h *handler) Required(err error) bool {
	if h.retries >= h.opts.Attempts {
		return false
	}

	s, ok := status.FromError(err)
	if !ok || !h.retryable[key{s.Group, status.Code(s.Code)}] {
		return false
	}

	h.backoff = h.backoffPeriod()
	h.retries++
	return true
}

func (h *handler) Backoff() time.Duration {
	return h.backoff
}

func (h *handler) backoffPeriod() time.Duration {
	backoff, max := float64(h.opts.InitialBackoff), float64(h.opts.MaxBackoff)
	for j := 0; j < h.retries && backoff < max; j++ {
		backoff *= h.opts.BackoffFactor
	}
	return time.Duration(math.Min(backoff, max))
}

// Invoke calls fn until it succeeds, the handler declines a retry, or ctx is
// done; the last error is returned. A multi error is retried if any of its
// members is retryable.
func Invoke(ctx context.Context, h Handler, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Debugf("succeeded on attempt #%d", attempt)
			}
			return nil
		}
		if !required(h, err) {
			logger.Debugf("not retrying after %d attempt(s): %s", attempt, err)
			return err
		}
		logger.Debugf("attempt #%d failed, retrying in %s: %s", attempt, h.Backoff(), err)

		t := time.NewTimer(h.Backoff())
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}

func required(h Handler, err error) bool {
	errs, ok := err.(multi.Errors)
	if !ok {
		return h.Required(err)
	}
	for _, e := range errs {
		if h.Required(e) {
			return true
		}
	}
	return false
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package blocksync keeps a bounded, contiguous window of the most recent
// blocks of a channel. Blocks are ingested strictly in order by polling the
// block height and fetching each new block in turn. Requests for blocks
// that have not arrived yet are queued until the block is fetched.
package blocksync

import (
	reqContext "context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/block"
	"github.com/fabric-stub/fabric-stub-go/pkg/fabsdk/metrics"
	"github.com/fabric-stub/fabric-stub-go/pkg/util/concurrent/scheduler"
	"github.com/fabric-stub/fabric-stub-go/pkg/util/concurrent/workerpool"
)

var logger = logging.NewLogger("fabstub/fab")

// State is the state of the cache
type State int32

const (
	// Stopped means the cache is not polling
	Stopped State = iota
	// Polling means the cache is ingesting blocks
	Polling
)

func (s State) String() string {
	if s == Polling {
		return "Polling"
	}
	return "Stopped"
}

// BlockCallback receives the result of a block request
type BlockCallback func(b *block.Block, err error)

// HeightCallback receives the result of a height request
type HeightCallback func(height uint64, err error)

// Cache is the block synchronization cache
type Cache struct {
	source fab.BlockSource
	params

	mutex      sync.RWMutex
	state      State
	generation uint64
	blocks     []*block.Block
	pending    map[uint64][]BlockCallback

	acquired     bool
	lastAcquired uint64
	knownHeight  uint64

	pollHandle    *scheduler.Handle
	busy          bool
	pollRequested bool
}

// New returns a new block cache reading from source. The cache is stopped
// until Start is called.
func New(source fab.BlockSource, opts ...Opt) *Cache {
	p := defaultParams()
	for _, opt := range opts {
		opt(p)
	}
	if p.scheduler == nil {
		p.scheduler = scheduler.New()
	}
	if p.pool == nil {
		p.pool = workerpool.New(workerpool.DefaultSize)
	}
	if p.metrics == nil {
		p.metrics = metrics.Disabled()
	}

	return &Cache{
		source:  source,
		params:  *p,
		pending: make(map[uint64][]BlockCallback),
	}
}

// Start begins polling. Calling Start on a running cache has no effect.
func (c *Cache) Start() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.state == Polling {
		return
	}

	logger.Debugf("Starting block cache")
	c.state = Polling
	c.generation++
	c.armPoll(0)
}

// Stop halts polling, fails every pending request with a Cancelled error
// and clears the cache. Results of in-flight calls to the block source are
// discarded.
func (c *Cache) Stop() {
	c.mutex.Lock()
	if c.state == Stopped {
		c.mutex.Unlock()
		return
	}

	logger.Debugf("Stopping block cache")
	c.state = Stopped
	c.generation++
	if c.pollHandle != nil {
		c.pollHandle.Cancel()
		c.pollHandle = nil
	}

	pending := c.pending
	c.pending = make(map[uint64][]BlockCallback)
	c.blocks = nil
	c.acquired = false
	c.lastAcquired = 0
	c.knownHeight = 0
	c.busy = false
	c.pollRequested = false
	c.metrics.CacheSize.Set(0)
	c.mutex.Unlock()

	for n, callbacks := range pending {
		err := status.Newf(status.ClientStatus, status.Cancelled, "block cache stopped while waiting for block %d", n)
		for _, cb := range callbacks {
			c.invoke(cb, nil, err)
		}
	}
}

// State returns the current state
func (c *Cache) State() State {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.state
}

// HasBlock returns true if block n is within the cached range
func (c *Cache) HasBlock(n uint64) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	_, ok := c.lookup(n)
	return ok
}

// Range returns the oldest and newest cached block numbers, or false if the cache is empty
func (c *Cache) Range() (oldest, newest uint64, ok bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if len(c.blocks) == 0 {
		return 0, 0, false
	}
	return c.blocks[0].Number, c.blocks[len(c.blocks)-1].Number, true
}

// Size returns the number of cached blocks
func (c *Cache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.blocks)
}

// AsyncGetBlock delivers block n to cb. Blocks older than the cached range
// are fetched directly without being cached. Cached blocks are delivered
// immediately. Newer blocks are delivered once the cache has ingested them.
func (c *Cache) AsyncGetBlock(n uint64, cb BlockCallback) {
	c.mutex.RLock()
	b, hit := c.lookup(n)
	hit = hit && c.state == Polling
	c.mutex.RUnlock()

	if hit {
		c.invoke(cb, b, nil)
		return
	}

	// the range may have moved since the read lock was released
	c.mutex.Lock()

	if c.state != Polling {
		c.mutex.Unlock()
		c.invoke(cb, nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "block cache is not started"))
		return
	}

	if b, ok := c.lookup(n); ok {
		c.mutex.Unlock()
		c.invoke(cb, b, nil)
		return
	}

	if len(c.blocks) > 0 && n < c.blocks[0].Number {
		c.mutex.Unlock()
		logger.Debugf("Block %d is older than the cached range; fetching directly", n)
		c.fetchDirect(n, cb)
		return
	}

	logger.Debugf("Block %d is not yet available; registering pending request", n)
	c.pending[n] = append(c.pending[n], cb)
	c.armPoll(0)
	c.mutex.Unlock()
}

// GetBlock returns block n, waiting for it to be ingested if necessary
func (c *Cache) GetBlock(ctx reqContext.Context, n uint64) (*block.Block, error) {
	type result struct {
		b   *block.Block
		err error
	}

	resultch := make(chan result, 1)
	c.AsyncGetBlock(n, func(b *block.Block, err error) {
		resultch <- result{b: b, err: err}
	})

	select {
	case r := <-resultch:
		return r.b, r.err
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "waiting for block %d", n)
	}
}

// BlockHeight queries the source for the number of the latest block and
// feeds the answer into the cache as if it had been notified
func (c *Cache) BlockHeight(ctx reqContext.Context) (uint64, error) {
	h, err := c.source.BlockNumber(ctx)
	if err != nil {
		return 0, errors.WithMessage(err, "querying block height failed")
	}
	c.NotifyHeight(h)
	return h, nil
}

// AsyncGetBlockHeight delivers the latest block number to cb
func (c *Cache) AsyncGetBlockHeight(cb HeightCallback) {
	c.run(func() {
		ctx, cancel := reqContext.WithTimeout(reqContext.Background(), c.requestTimeout)
		defer cancel()
		cb(c.BlockHeight(ctx))
	})
}

// NotifyHeight informs the cache that block h exists, typically from a
// block event feed. If h is beyond what has been ingested a poll is
// triggered immediately.
func (c *Cache) NotifyHeight(h uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.state != Polling {
		return
	}
	if h > c.knownHeight {
		c.knownHeight = h
	}
	if !c.acquired || h > c.lastAcquired {
		c.armPoll(0)
	}
}

// lookup must be called with the lock held
func (c *Cache) lookup(n uint64) (*block.Block, bool) {
	if len(c.blocks) == 0 {
		return nil, false
	}
	oldest := c.blocks[0].Number
	if n < oldest || n > c.blocks[len(c.blocks)-1].Number {
		return nil, false
	}
	return c.blocks[n-oldest], true
}

// armPoll must be called with the lock held. While a poll or fetch is in
// flight the request is recorded and honoured when the cycle ends.
func (c *Cache) armPoll(delay time.Duration) {
	if c.state != Polling {
		return
	}
	if c.busy {
		if delay == 0 {
			c.pollRequested = true
		}
		return
	}
	if c.pollHandle != nil && !c.pollHandle.Done() {
		if delay > 0 {
			return
		}
		c.pollHandle.Cancel()
	}

	gen := c.generation
	h, err := c.scheduler.Schedule(delay, func() { c.poll(gen) })
	if err != nil {
		logger.Warnf("Unable to schedule block height poll: %s", err)
		c.pollHandle = nil
		return
	}
	c.pollHandle = h
}

// endCycle must be called with the lock held
func (c *Cache) endCycle(delay time.Duration) {
	c.busy = false
	if c.pollRequested {
		c.pollRequested = false
		delay = 0
	}
	c.armPoll(delay)
}

func (c *Cache) poll(gen uint64) {
	c.mutex.Lock()
	if gen != c.generation || c.state != Polling || c.busy {
		c.mutex.Unlock()
		return
	}
	c.busy = true
	c.pollHandle = nil
	c.pollRequested = false
	c.mutex.Unlock()

	ctx, cancel := reqContext.WithTimeout(reqContext.Background(), c.requestTimeout)
	height, err := c.source.BlockNumber(ctx)
	cancel()

	c.mutex.Lock()
	if gen != c.generation {
		c.mutex.Unlock()
		return
	}

	if err != nil {
		logger.Warnf("Block height poll failed: %s", err)
		c.metrics.PollFailures.Add(1)
		c.endCycle(c.retryInterval)
		c.mutex.Unlock()
		return
	}

	if height > c.knownHeight {
		c.knownHeight = height
	}

	if c.acquired && height <= c.lastAcquired {
		c.endCycle(c.pollInterval)
		c.mutex.Unlock()
		return
	}

	next := height
	if c.acquired {
		next = c.lastAcquired + 1
	}
	c.mutex.Unlock()

	c.fetch(gen, next)
}

func (c *Cache) fetch(gen uint64, n uint64) {
	for {
		ctx, cancel := reqContext.WithTimeout(reqContext.Background(), c.requestTimeout)
		b, err := c.fetchBlock(ctx, n)
		cancel()

		c.mutex.Lock()
		if gen != c.generation {
			c.mutex.Unlock()
			return
		}

		if err != nil {
			logger.Warnf("Fetching block %d failed: %s", n, err)
			c.metrics.PollFailures.Add(1)
			var failed []BlockCallback
			if status.Is(err, status.MalformedBlock) {
				failed = c.pending[n]
				delete(c.pending, n)
			}
			c.endCycle(c.retryInterval)
			c.mutex.Unlock()

			for _, cb := range failed {
				c.invoke(cb, nil, err)
			}
			return
		}

		resolved, stale := c.push(b)
		more := b.Number < c.knownHeight
		if !more {
			c.endCycle(0)
		}
		c.mutex.Unlock()

		for _, cb := range resolved {
			c.invoke(cb, b, nil)
		}
		for target, callbacks := range stale {
			for _, cb := range callbacks {
				c.fetchDirect(target, cb)
			}
		}

		if !more {
			return
		}
		n = b.Number + 1
	}
}

// push must be called with the lock held. It returns the callbacks waiting
// for b and the pending requests that can no longer be ingested because they
// are older than the cached range.
func (c *Cache) push(b *block.Block) ([]BlockCallback, map[uint64][]BlockCallback) {
	c.blocks = append(c.blocks, b)
	if len(c.blocks) > c.capacity {
		evicted := len(c.blocks) - c.capacity
		for i := 0; i < evicted; i++ {
			c.blocks[i] = nil
		}
		c.blocks = c.blocks[evicted:]
	}

	c.acquired = true
	c.lastAcquired = b.Number
	c.metrics.BlocksFetched.Add(1)
	c.metrics.CacheSize.Set(float64(len(c.blocks)))

	resolved := c.pending[b.Number]
	delete(c.pending, b.Number)

	var stale map[uint64][]BlockCallback
	oldest := c.blocks[0].Number
	for target, callbacks := range c.pending {
		if target < oldest {
			if stale == nil {
				stale = make(map[uint64][]BlockCallback)
			}
			stale[target] = callbacks
			delete(c.pending, target)
		}
	}

	logger.Debugf("Cached block %d; cache holds %d blocks", b.Number, len(c.blocks))
	return resolved, stale
}

func (c *Cache) fetchBlock(ctx reqContext.Context, n uint64) (*block.Block, error) {
	raw, err := c.source.BlockByNumber(ctx, n)
	if err != nil {
		return nil, errors.WithMessagef(err, "fetching block %d failed", n)
	}

	b, err := block.Parse(raw, block.WithHashOpts(c.hashOpts))
	if err != nil {
		return nil, err
	}
	if b.Number != n {
		return nil, status.Newf(status.ClientStatus, status.MalformedBlock, "requested block %d but received block %d", n, b.Number)
	}
	return b, nil
}

func (c *Cache) fetchDirect(n uint64, cb BlockCallback) {
	c.run(func() {
		ctx, cancel := reqContext.WithTimeout(reqContext.Background(), c.requestTimeout)
		defer cancel()
		cb(c.fetchBlock(ctx, n))
	})
}

func (c *Cache) invoke(cb BlockCallback, b *block.Block, err error) {
	c.run(func() { cb(b, err) })
}

func (c *Cache) run(task func()) {
	if err := c.pool.Submit(task); err != nil {
		logger.Debugf("Worker pool unavailable (%s); running task on its own goroutine", err)
		go task()
	}
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package blocksync

import (
	reqContext "context"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/block"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/mocks"
)

type blockResult struct {
	b   *block.Block
	err error
}

func newTestCache(source *mocks.MockBlockSource, opts ...Opt) *Cache {
	defaults := []Opt{
		WithPollInterval(time.Hour),
		WithRetryInterval(10 * time.Millisecond),
		WithRequestTimeout(time.Second),
	}
	return New(source, append(defaults, opts...)...)
}

// seed places blocks [from..to] of the ledger in the cache and marks it as polling
func seed(t *testing.T, c *Cache, ledger *mocks.MockLedger, from, to uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.state = Polling
	c.generation++
	for n := from; n <= to; n++ {
		pb, err := ledger.Block(n)
		require.NoError(t, err)
		b, err := block.FromProto(pb)
		require.NoError(t, err)
		c.blocks = append(c.blocks, b)
	}
	c.acquired = true
	c.lastAcquired = to
	c.knownHeight = to
}

func collect() (BlockCallback, <-chan blockResult) {
	resultch := make(chan blockResult, 1)
	return func(b *block.Block, err error) {
		resultch <- blockResult{b: b, err: err}
	}, resultch
}

func assertContiguous(t *testing.T, c *Cache) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	assert.LessOrEqual(t, len(c.blocks), c.capacity)
	for i := 1; i < len(c.blocks); i++ {
		assert.Equal(t, c.blocks[i-1].Number+1, c.blocks[i].Number, "cache must hold a contiguous run of blocks")
	}
}

func TestStartFetchesLatestBlock(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(10)
	source := mocks.NewMockBlockSource(ledger)
	c := newTestCache(source)
	defer c.Stop()

	assert.Equal(t, Stopped, c.State())
	c.Start()
	assert.Equal(t, Polling, c.State())

	g.Eventually(func() bool { return c.HasBlock(9) }).Should(BeTrue())

	oldest, newest, ok := c.Range()
	assert.True(t, ok)
	assert.Equal(t, uint64(9), oldest)
	assert.Equal(t, uint64(9), newest)
	assert.Equal(t, []uint64{9}, source.Fetched())
}

func TestSequentialIngestion(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(1)
	source := mocks.NewMockBlockSource(ledger)
	c := newTestCache(source, WithCapacity(5))
	defer c.Stop()

	c.Start()
	g.Eventually(func() bool { return c.HasBlock(0) }).Should(BeTrue())

	ledger.AppendN(10)
	c.NotifyHeight(10)

	g.Eventually(func() bool { return c.HasBlock(10) }).Should(BeTrue())
	assertContiguous(t, c)

	oldest, newest, ok := c.Range()
	assert.True(t, ok)
	assert.Equal(t, uint64(6), oldest)
	assert.Equal(t, uint64(10), newest)
	assert.Equal(t, 5, c.Size())
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, source.Fetched())
}

func TestContiguousUnderGrowth(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(1)
	source := mocks.NewMockBlockSource(ledger)
	c := newTestCache(source, WithCapacity(4), WithPollInterval(5*time.Millisecond))
	defer c.Stop()

	c.Start()

	for i := 0; i < 30; i++ {
		ledger.AppendN(1)
		if i%3 == 0 {
			c.NotifyHeight(ledger.Height() - 1)
		}
		assertContiguous(t, c)
		time.Sleep(time.Millisecond)
	}

	g.Eventually(func() bool { return c.HasBlock(30) }).Should(BeTrue())
	assertContiguous(t, c)

	seen := make(map[uint64]bool)
	for _, n := range source.Fetched() {
		assert.False(t, seen[n], "block %d fetched twice", n)
		seen[n] = true
	}
}

func TestHasBlock(t *testing.T) {
	ledger := mocks.NewLedger(10)
	c := newTestCache(mocks.NewMockBlockSource(ledger))

	for n := uint64(0); n < 10; n++ {
		assert.False(t, c.HasBlock(n), "empty cache must not report block %d", n)
	}

	seed(t, c, ledger, 3, 6)
	defer c.Stop()

	for n := uint64(0); n < 10; n++ {
		assert.Equal(t, n >= 3 && n <= 6, c.HasBlock(n), "block %d", n)
	}
}

func TestGetCachedBlock(t *testing.T) {
	ledger := mocks.NewLedger(20)
	source := mocks.NewMockBlockSource(ledger)
	c := newTestCache(source)
	seed(t, c, ledger, 10, 12)
	defer c.Stop()

	b, err := c.GetBlock(reqContext.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), b.Number)
	assert.True(t, b.HasTransaction(mocks.TxIDFor(11)))
	assert.Equal(t, 0, source.FetchCalls())
}

func TestCachedBlockServedUnderReadLock(t *testing.T) {
	ledger := mocks.NewLedger(20)
	c := newTestCache(mocks.NewMockBlockSource(ledger))
	seed(t, c, ledger, 10, 12)
	defer c.Stop()

	// a concurrent reader must not hold up a cache hit
	c.mutex.RLock()
	cb, resultch := collect()
	c.AsyncGetBlock(11, cb)

	select {
	case r := <-resultch:
		require.NoError(t, r.err)
		assert.Equal(t, uint64(11), r.b.Number)
	case <-time.After(2 * time.Second):
		t.Error("cached block not delivered while the read lock was held")
	}
	c.mutex.RUnlock()
}

func TestOldBlockFetchedDirectly(t *testing.T) {
	ledger := mocks.NewLedger(20)
	source := mocks.NewMockBlockSource(ledger)
	c := newTestCache(source)
	seed(t, c, ledger, 10, 12)
	defer c.Stop()

	b, err := c.GetBlock(reqContext.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), b.Number)
	assert.Equal(t, []uint64{2}, source.Fetched())

	oldest, newest, _ := c.Range()
	assert.Equal(t, uint64(10), oldest, "direct fetches must not be cached")
	assert.Equal(t, uint64(12), newest)
}

func TestPendingRequestWaitsForExactBlock(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(96)
	source := mocks.NewMockBlockSource(ledger)
	c := newTestCache(source)
	seed(t, c, ledger, 80, 95)
	defer c.Stop()

	ledger.AppendN(3)

	cb, resultch := collect()
	c.AsyncGetBlock(100, cb)

	g.Eventually(func() bool { return c.HasBlock(98) }).Should(BeTrue())
	assert.Equal(t, []uint64{96, 97, 98}, source.Fetched())
	g.Consistently(resultch, 100*time.Millisecond).ShouldNot(Receive())

	ledger.AppendN(2)
	c.NotifyHeight(100)

	var r blockResult
	g.Eventually(resultch).Should(Receive(&r))
	require.NoError(t, r.err)
	assert.Equal(t, uint64(100), r.b.Number)
	assert.Equal(t, []uint64{96, 97, 98, 99, 100}, source.Fetched())
	assertContiguous(t, c)
}

func TestPendingOlderThanFirstIngestedBlock(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(10)
	source := mocks.NewMockBlockSource(ledger)
	c := newTestCache(source)
	defer c.Stop()

	c.Start()
	cb, resultch := collect()
	c.AsyncGetBlock(4, cb)

	var r blockResult
	g.Eventually(resultch).Should(Receive(&r))
	require.NoError(t, r.err)
	assert.Equal(t, uint64(4), r.b.Number)
	assert.False(t, c.HasBlock(4))
}

func TestStopCancelsPending(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(20)
	source := mocks.NewMockBlockSource(ledger)
	c := newTestCache(source)
	seed(t, c, ledger, 15, 19)

	cb, resultch := collect()
	c.AsyncGetBlock(50, cb)

	c.Stop()
	assert.Equal(t, Stopped, c.State())
	assert.Equal(t, 0, c.Size())
	assert.False(t, c.HasBlock(19))

	var r blockResult
	g.Eventually(resultch).Should(Receive(&r))
	require.Error(t, r.err)
	assert.True(t, status.Is(r.err, status.Cancelled))

	// stopping twice is a no-op
	c.Stop()
}

func TestStopDuringFetchDiscardsResult(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(5)
	source := mocks.NewMockBlockSource(ledger)
	source.FetchDelay = 50 * time.Millisecond
	c := newTestCache(source)

	c.Start()
	g.Eventually(source.FetchCalls).Should(Equal(1))
	c.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, c.Size())
}

func TestNotStarted(t *testing.T) {
	g := NewWithT(t)

	c := newTestCache(mocks.NewMockBlockSource(mocks.NewLedger(1)))

	cb, resultch := collect()
	c.AsyncGetBlock(0, cb)

	var r blockResult
	g.Eventually(resultch).Should(Receive(&r))
	assert.True(t, status.Is(r.err, status.PreconditionFailed))
}

func TestPollFailureRetries(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(3)
	source := mocks.NewMockBlockSource(ledger)
	source.SetNumberError(errors.New("peer unavailable"))
	c := newTestCache(source)
	defer c.Stop()

	c.Start()
	g.Eventually(source.NumberCalls).Should(BeNumerically(">=", 3))
	assert.Equal(t, Polling, c.State())
	assert.Equal(t, 0, c.Size())

	source.SetNumberError(nil)
	g.Eventually(func() bool { return c.HasBlock(2) }).Should(BeTrue())
}

func TestFetchFailureRetries(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(3)
	source := mocks.NewMockBlockSource(ledger)
	source.SetFetchError(errors.New("connection reset"))
	c := newTestCache(source)
	defer c.Stop()

	c.Start()
	g.Eventually(source.FetchCalls).Should(BeNumerically(">=", 3))
	assert.Equal(t, 0, c.Size())

	source.SetFetchError(nil)
	g.Eventually(func() bool { return c.HasBlock(2) }).Should(BeTrue())
}

func TestMalformedBlockFailsPending(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(5)
	source := mocks.NewMockBlockSource(ledger)
	c := newTestCache(source, WithRetryInterval(time.Hour))
	seed(t, c, ledger, 0, 4)
	defer c.Stop()

	ledger.AppendN(1)
	source.Override(5, []byte("garbage"))

	cb, resultch := collect()
	c.AsyncGetBlock(5, cb)

	var r blockResult
	g.Eventually(resultch).Should(Receive(&r))
	require.Error(t, r.err)
	assert.True(t, status.Is(r.err, status.MalformedBlock))

	assert.Equal(t, Polling, c.State())
	assert.True(t, c.HasBlock(4))
}

func TestBlockHeight(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(4)
	source := mocks.NewMockBlockSource(ledger)
	c := newTestCache(source)
	seed(t, c, ledger, 0, 3)
	defer c.Stop()

	ledger.AppendN(2)

	h, err := c.BlockHeight(reqContext.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), h)

	g.Eventually(func() bool { return c.HasBlock(5) }).Should(BeTrue())

	var wg sync.WaitGroup
	wg.Add(1)
	c.AsyncGetBlockHeight(func(height uint64, err error) {
		defer wg.Done()
		assert.NoError(t, err)
		assert.Equal(t, uint64(5), height)
	})
	wg.Wait()

	source.SetNumberError(errors.New("down"))
	_, err = c.BlockHeight(reqContext.Background())
	assert.Error(t, err)
}

func TestGetBlockContextDone(t *testing.T) {
	ledger := mocks.NewLedger(3)
	c := newTestCache(mocks.NewMockBlockSource(ledger))
	seed(t, c, ledger, 0, 2)
	defer c.Stop()

	ctx, cancel := reqContext.WithTimeout(reqContext.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetBlock(ctx, 10)
	require.Error(t, err)
	assert.Equal(t, reqContext.DeadlineExceeded, errors.Cause(err))
}

func TestRestart(t *testing.T) {
	g := NewWithT(t)

	ledger := mocks.NewLedger(3)
	c := newTestCache(mocks.NewMockBlockSource(ledger))

	c.Start()
	g.Eventually(func() bool { return c.HasBlock(2) }).Should(BeTrue())

	c.Stop()
	assert.False(t, c.HasBlock(2))

	ledger.AppendN(1)
	c.Start()
	defer c.Stop()
	g.Eventually(func() bool { return c.HasBlock(3) }).Should(BeTrue())
}

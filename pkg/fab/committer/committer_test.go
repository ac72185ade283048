/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package committer

import (
	reqContext "context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/test/mockfab"
	promprovider "github.com/fabric-stub/fabric-stub-go/pkg/core/metrics/prometheus"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/mocks"
	"github.com/fabric-stub/fabric-stub-go/pkg/fabsdk/metrics"
	"github.com/fabric-stub/fabric-stub-go/pkg/util/concurrent/workerpool"
)

const txID = "txid1"

var envelope = &fab.SignedEnvelope{Payload: []byte("payload"), Signature: []byte("signature")}

func TestSubmitCommitted(t *testing.T) {
	listener := mocks.NewMockCommitListener()
	orderer := mocks.NewMockOrderer("orderer1")
	orderer.OnBroadcast = func(*fab.SignedEnvelope) {
		assert.True(t, listener.IsRegistered(txID), "transaction must be registered before broadcast")
		listener.Notify(&fab.TxStatusEvent{TxID: txID, TxValidationCode: pb.TxValidationCode_VALID, BlockNumber: 42})
	}

	c := New([]fab.Orderer{orderer}, listener, WithTimeout(time.Second))
	defer c.Close()

	event, err := c.SubmitAndWait(reqContext.Background(), envelope, txID)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), event.BlockNumber)
	assert.Len(t, orderer.Envelopes(), 1)
	assert.Equal(t, []string{txID}, listener.Unregistered())
}

func TestSubmitRejected(t *testing.T) {
	listener := mocks.NewMockCommitListener()
	orderer := mocks.NewMockOrderer("orderer1")
	orderer.OnBroadcast = func(*fab.SignedEnvelope) {
		listener.Notify(&fab.TxStatusEvent{TxID: txID, TxValidationCode: pb.TxValidationCode_MVCC_READ_CONFLICT, BlockNumber: 7})
	}

	c := New([]fab.Orderer{orderer}, listener)
	defer c.Close()

	event, err := c.SubmitAndWait(reqContext.Background(), envelope, txID)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.CommitRejected))
	assert.False(t, status.Is(err, status.CommitTimeout))
	require.NotNil(t, event)
	assert.Equal(t, pb.TxValidationCode_MVCC_READ_CONFLICT, event.TxValidationCode)

	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, []interface{}{pb.TxValidationCode_MVCC_READ_CONFLICT}, s.Details)
}

func TestSubmitTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(promprovider.NewProvider(registry), "test")

	listener := mocks.NewMockCommitListener()
	c := New([]fab.Orderer{mocks.NewMockOrderer("orderer1")}, listener, WithTimeout(20*time.Millisecond), WithMetrics(m))
	defer c.Close()

	_, err := c.SubmitAndWait(reqContext.Background(), envelope, txID)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.CommitTimeout))
	assert.Contains(t, err.Error(), "check endorsement policy peer coverage")
	assert.False(t, listener.IsRegistered(txID))

	count, err := testutil.GatherAndCount(registry, "test_committer_commit_timeouts")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubmitAllOrderersFail(t *testing.T) {
	listener := mocks.NewMockCommitListener()
	o1 := mocks.NewMockOrderer("orderer1")
	o1.Error = errors.New("service unavailable")
	o2 := mocks.NewMockOrderer("orderer2")
	o2.Error = errors.New("bad status")

	c := New([]fab.Orderer{o1, o2}, listener, WithTimeout(time.Second))
	defer c.Close()

	_, err := c.SubmitAndWait(reqContext.Background(), envelope, txID)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.OrdererUnavailable))
	assert.Equal(t, 1, o1.Calls())
	assert.Equal(t, 1, o2.Calls())
	assert.False(t, listener.IsRegistered(txID), "registration must be released on broadcast failure")
}

func TestSubmitFailover(t *testing.T) {
	listener := mocks.NewMockCommitListener()
	bad := mocks.NewMockOrderer("orderer1")
	bad.Error = errors.New("service unavailable")
	good := mocks.NewMockOrderer("orderer2")
	good.OnBroadcast = func(*fab.SignedEnvelope) {
		listener.Notify(&fab.TxStatusEvent{TxID: txID, TxValidationCode: pb.TxValidationCode_VALID, BlockNumber: 3})
	}

	c := New([]fab.Orderer{bad, good}, listener)
	defer c.Close()

	event, err := c.SubmitAndWait(reqContext.Background(), envelope, txID)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), event.BlockNumber)
	assert.Len(t, good.Envelopes(), 1)
}

func TestSubmitRegistrationFails(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	listener := mockfab.NewMockCommitListener(mockCtrl)
	listener.EXPECT().RegisterTxStatus(txID).Return(nil, nil, errors.New("event service unavailable"))

	orderer := mocks.NewMockOrderer("orderer1")
	c := New([]fab.Orderer{orderer}, listener)
	defer c.Close()

	_, err := c.SubmitAndWait(reqContext.Background(), envelope, txID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event service unavailable")
	assert.Equal(t, 0, orderer.Calls(), "nothing must be broadcast without a registration")
}

func TestSubmitWithGomockListener(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	statusch := make(chan *fab.TxStatusEvent, 1)
	reg := "reg"

	listener := mockfab.NewMockCommitListener(mockCtrl)
	listener.EXPECT().RegisterTxStatus(txID).Return(reg, mockfab.ReadOnlyChannel(statusch), nil)
	listener.EXPECT().Unregister(reg).Times(1)

	orderer := mocks.NewMockOrderer("orderer1")
	orderer.OnBroadcast = func(*fab.SignedEnvelope) {
		statusch <- &fab.TxStatusEvent{TxID: txID, TxValidationCode: pb.TxValidationCode_VALID, BlockNumber: 9}
	}

	c := New([]fab.Orderer{orderer}, listener)
	defer c.Close()

	event, err := c.SubmitAndWait(reqContext.Background(), envelope, txID)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), event.BlockNumber)
}

func TestSubmitContextCancelled(t *testing.T) {
	listener := mocks.NewMockCommitListener()
	c := New([]fab.Orderer{mocks.NewMockOrderer("orderer1")}, listener, WithTimeout(time.Hour))
	defer c.Close()

	ctx, cancel := reqContext.WithCancel(reqContext.Background())

	var calls int32
	done := make(chan error, 1)
	c.Submit(ctx, envelope, txID, func(_ *fab.TxStatusEvent, err error) {
		atomic.AddInt32(&calls, 1)
		done <- err
	})
	cancel()

	err := <-done
	assert.True(t, status.Is(err, status.Cancelled))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRespondExactlyOnce(t *testing.T) {
	g := NewWithT(t)

	listener := mocks.NewMockCommitListener()
	c := New(nil, listener)
	defer c.Close()

	for i := 0; i < 100; i++ {
		var calls int32
		s := &submission{
			txID:      txID,
			done:      make(chan struct{}),
			committer: c,
			complete:  func(*fab.TxStatusEvent, error) { atomic.AddInt32(&calls, 1) },
		}

		var wins int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for j := 0; j < 4; j++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				<-start
				if s.respond(&fab.TxStatusEvent{TxID: txID}, nil) {
					atomic.AddInt32(&wins, 1)
				}
			}()
			go func() {
				defer wg.Done()
				<-start
				s.timeout()
			}()
		}
		close(start)
		wg.Wait()

		assert.LessOrEqual(t, atomic.LoadInt32(&wins), int32(1))
		g.Eventually(func() int32 { return atomic.LoadInt32(&calls) }).Should(Equal(int32(1)))
		g.Consistently(func() int32 { return atomic.LoadInt32(&calls) }, 5*time.Millisecond).Should(Equal(int32(1)))
	}
}

func TestEventRacesTimeout(t *testing.T) {
	g := NewWithT(t)

	for i := 0; i < 50; i++ {
		listener := mocks.NewMockCommitListener()
		orderer := mocks.NewMockOrderer("orderer1")
		orderer.OnBroadcast = func(*fab.SignedEnvelope) {
			go func() {
				time.Sleep(time.Millisecond)
				listener.Notify(&fab.TxStatusEvent{TxID: txID, TxValidationCode: pb.TxValidationCode_VALID})
			}()
		}

		c := New([]fab.Orderer{orderer}, listener, WithTimeout(time.Millisecond))

		var calls int32
		c.Submit(reqContext.Background(), envelope, txID, func(*fab.TxStatusEvent, error) {
			atomic.AddInt32(&calls, 1)
		})

		g.Eventually(func() int32 { return atomic.LoadInt32(&calls) }).Should(Equal(int32(1)))
		time.Sleep(5 * time.Millisecond)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "handler must fire exactly once")
		c.Close()
	}
}

func TestNoListener(t *testing.T) {
	c := New([]fab.Orderer{mocks.NewMockOrderer("orderer1")}, nil)
	defer c.Close()

	_, err := c.SubmitAndWait(reqContext.Background(), envelope, txID)
	assert.True(t, status.Is(err, status.PreconditionFailed))
}

func TestSubmitAndWaitFromSaturatedPool(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Close()

	listener := mocks.NewMockCommitListener()
	orderer := mocks.NewMockOrderer("orderer1")
	orderer.OnBroadcast = func(*fab.SignedEnvelope) {
		listener.Notify(&fab.TxStatusEvent{TxID: txID, TxValidationCode: pb.TxValidationCode_VALID, BlockNumber: 4})
	}

	c := New([]fab.Orderer{orderer}, listener, WithWorkerPool(pool), WithTimeout(500*time.Millisecond))
	defer c.Close()

	// the waiting task holds the pool's only slot
	errch := make(chan error, 1)
	require.NoError(t, pool.Submit(func() {
		_, err := c.SubmitAndWait(reqContext.Background(), envelope, txID)
		errch <- err
	}))

	select {
	case err := <-errch:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("SubmitAndWait did not complete while its caller held the only worker")
	}
}

func TestSubmitAndWaitContextDone(t *testing.T) {
	listener := mocks.NewMockCommitListener()
	c := New([]fab.Orderer{mocks.NewMockOrderer("orderer1")}, listener, WithTimeout(time.Minute))
	defer c.Close()

	ctx, cancel := reqContext.WithTimeout(reqContext.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.SubmitAndWait(ctx, envelope, txID)
	assert.True(t, status.Is(err, status.Cancelled), "unexpected error: %v", err)
	NewWithT(t).Eventually(func() bool { return listener.IsRegistered(txID) }, time.Second).Should(BeFalse())
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package workerpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	p := New(2)

	var count int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func() { atomic.AddInt32(&count, 1) }))
	}
	p.Close()

	assert.Equal(t, int32(10), atomic.LoadInt32(&count))
	assert.Equal(t, ErrClosed, p.Submit(func() {}))
}

func TestBoundedConcurrency(t *testing.T) {
	p := New(3)

	var running, maxRunning int32
	for i := 0; i < 12; i++ {
		require.NoError(t, p.Submit(func() {
			n := atomic.AddInt32(&running, 1)
			for {
				m := atomic.LoadInt32(&maxRunning)
				if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		}))
	}
	p.Close()

	assert.True(t, atomic.LoadInt32(&maxRunning) <= 3)
	assert.True(t, atomic.LoadInt32(&maxRunning) >= 1)
}

func TestPanickingTask(t *testing.T) {
	p := New(1)

	var count int32
	require.NoError(t, p.Submit(func() { panic("boom") }))
	require.NoError(t, p.Submit(func() { atomic.AddInt32(&count, 1) }))
	p.Close()

	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestDefaultSize(t *testing.T) {
	p := New(0)
	defer p.Close()

	done := make(chan struct{})
	require.NoError(t, p.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}

func TestGoWaitsOnSubmittedTask(t *testing.T) {
	p := New(1)

	done := make(chan struct{})
	require.NoError(t, p.Go(func() {
		// the continuation needs the only slot
		continued := make(chan struct{})
		require.NoError(t, p.Submit(func() { close(continued) }))
		<-continued
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task blocked on its own continuation")
	}

	p.Close()
	assert.Equal(t, ErrClosed, p.Go(func() {}))
}

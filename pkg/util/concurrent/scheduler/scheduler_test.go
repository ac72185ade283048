/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule(t *testing.T) {
	g := NewWithT(t)
	s := New()
	defer s.Close()

	var count int32
	h, err := s.Schedule(10*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	require.NoError(t, err)

	g.Eventually(func() int32 { return atomic.LoadInt32(&count) }).Should(Equal(int32(1)))
	assert.True(t, h.Done())
	assert.False(t, h.Cancel(), "cancel after run must report false")
	assert.Equal(t, 0, s.Pending())
}

func TestCancel(t *testing.T) {
	s := New()
	defer s.Close()

	var count int32
	h, err := s.Schedule(50*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pending())

	assert.True(t, h.Cancel())
	assert.False(t, h.Cancel())
	assert.Equal(t, 0, s.Pending())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestClose(t *testing.T) {
	s := New()

	var count int32
	for i := 0; i < 5; i++ {
		_, err := s.Schedule(50*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
		require.NoError(t, err)
	}

	s.Close()
	assert.Equal(t, 0, s.Pending())

	_, err := s.Schedule(0, func() {})
	assert.Equal(t, ErrClosed, err)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestIndependentSchedulers(t *testing.T) {
	g := NewWithT(t)
	s1 := New()
	s2 := New()
	defer s2.Close()

	var count int32
	_, err := s1.Schedule(20*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	require.NoError(t, err)
	_, err = s2.Schedule(20*time.Millisecond, func() { atomic.AddInt32(&count, 10) })
	require.NoError(t, err)

	s1.Close()

	g.Eventually(func() int32 { return atomic.LoadInt32(&count) }).Should(Equal(int32(10)))
}

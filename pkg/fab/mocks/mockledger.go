/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	reqContext "context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/pkg/errors"
)

// MockLedger is an in-memory chain of blocks
type MockLedger struct {
	mutex  sync.RWMutex
	blocks []*common.Block
}

// NewLedger returns a ledger holding count blocks built by NewChain with DefaultTxs
func NewLedger(count int) *MockLedger {
	return &MockLedger{blocks: NewChain(count, DefaultTxs)}
}

// Append adds a block holding txs to the end of the chain and returns it
func (l *MockLedger) Append(txs ...MockTx) *common.Block {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	var prev []byte
	if n := len(l.blocks); n > 0 {
		prev = HeaderHash(l.blocks[n-1].Header)
	}
	b := NewBlock(uint64(len(l.blocks)), prev, txs...)
	l.blocks = append(l.blocks, b)
	return b
}

// AppendN appends count blocks using DefaultTxs
func (l *MockLedger) AppendN(count int) {
	for i := 0; i < count; i++ {
		l.mutex.RLock()
		n := uint64(len(l.blocks))
		l.mutex.RUnlock()
		l.Append(DefaultTxs(n)...)
	}
}

// Height returns the number of blocks in the chain
func (l *MockLedger) Height() uint64 {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return uint64(len(l.blocks))
}

// Block returns block n
func (l *MockLedger) Block(n uint64) (*common.Block, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if n >= uint64(len(l.blocks)) {
		return nil, errors.Errorf("block %d not found", n)
	}
	return l.blocks[n], nil
}

// MockBlockSource serves blocks from a MockLedger
type MockBlockSource struct {
	Ledger     *MockLedger
	FetchDelay time.Duration

	mutex       sync.RWMutex
	numberErr   error
	fetchErr    error
	overrides   map[uint64][]byte
	numberCalls int32
	fetchCalls  int32
	fetched     []uint64
}

// NewMockBlockSource returns a block source for the ledger
func NewMockBlockSource(ledger *MockLedger) *MockBlockSource {
	return &MockBlockSource{Ledger: ledger, overrides: make(map[uint64][]byte)}
}

// SetNumberError makes BlockNumber fail with err (nil clears it)
func (s *MockBlockSource) SetNumberError(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.numberErr = err
}

// SetFetchError makes BlockByNumber fail with err (nil clears it)
func (s *MockBlockSource) SetFetchError(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.fetchErr = err
}

// Override serves raw in place of block n
func (s *MockBlockSource) Override(n uint64, raw []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.overrides[n] = raw
}

// BlockNumber returns the number of the latest block
func (s *MockBlockSource) BlockNumber(ctx reqContext.Context) (uint64, error) {
	atomic.AddInt32(&s.numberCalls, 1)

	s.mutex.RLock()
	err := s.numberErr
	s.mutex.RUnlock()
	if err != nil {
		return 0, err
	}

	h := s.Ledger.Height()
	if h == 0 {
		return 0, errors.New("ledger is empty")
	}
	return h - 1, nil
}

// BlockByNumber returns the marshalled block n
func (s *MockBlockSource) BlockByNumber(ctx reqContext.Context, n uint64) ([]byte, error) {
	atomic.AddInt32(&s.fetchCalls, 1)

	if s.FetchDelay > 0 {
		select {
		case <-time.After(s.FetchDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mutex.Lock()
	err := s.fetchErr
	raw, overridden := s.overrides[n]
	s.fetched = append(s.fetched, n)
	s.mutex.Unlock()

	if err != nil {
		return nil, err
	}
	if overridden {
		return raw, nil
	}

	b, err := s.Ledger.Block(n)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(b)
}

// NumberCalls returns the number of BlockNumber calls
func (s *MockBlockSource) NumberCalls() int {
	return int(atomic.LoadInt32(&s.numberCalls))
}

// FetchCalls returns the number of BlockByNumber calls
func (s *MockBlockSource) FetchCalls() int {
	return int(atomic.LoadInt32(&s.fetchCalls))
}

// Fetched returns the block numbers requested, in order
func (s *MockBlockSource) Fetched() []uint64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]uint64(nil), s.fetched...)
}

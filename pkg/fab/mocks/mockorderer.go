/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	reqContext "context"
	"sync"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
)

// MockOrderer is a mock fab.Orderer. It records every envelope it receives.
type MockOrderer struct {
	OrdererURL string
	Error      error
	Delay      time.Duration
	// OnBroadcast is invoked with each accepted envelope
	OnBroadcast func(envelope *fab.SignedEnvelope)

	mutex     sync.Mutex
	envelopes []*fab.SignedEnvelope
	calls     int
}

// NewMockOrderer returns a mock orderer that accepts every broadcast
func NewMockOrderer(url string) *MockOrderer {
	return &MockOrderer{OrdererURL: url}
}

// URL returns the URL of the mock Orderer
func (o *MockOrderer) URL() string {
	return o.OrdererURL
}

// SendBroadcast records the envelope and returns SUCCESS, or Error if set
func (o *MockOrderer) SendBroadcast(ctx reqContext.Context, envelope *fab.SignedEnvelope) (*common.Status, error) {
	if o.Delay > 0 {
		select {
		case <-time.After(o.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	o.mutex.Lock()
	o.calls++
	if o.Error != nil {
		o.mutex.Unlock()
		return nil, o.Error
	}
	o.envelopes = append(o.envelopes, envelope)
	o.mutex.Unlock()

	if o.OnBroadcast != nil {
		o.OnBroadcast(envelope)
	}

	s := common.Status_SUCCESS
	return &s, nil
}

// Calls returns the number of broadcasts attempted
func (o *MockOrderer) Calls() int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.calls
}

// Envelopes returns the accepted envelopes
func (o *MockOrderer) Envelopes() []*fab.SignedEnvelope {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return append([]*fab.SignedEnvelope(nil), o.envelopes...)
}

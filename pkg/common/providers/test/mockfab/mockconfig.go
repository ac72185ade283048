/*
Copyright SecureKey Technologies Inc., Unchain B.V. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mockfab

import (
	"time"

	"github.com/golang/mock/gomock"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
)

// DefaultMockConfig returns a default mock config for testing
func DefaultMockConfig(mockCtrl *gomock.Controller) *MockEndpointConfig {
	config := NewMockEndpointConfig(mockCtrl)

	config.EXPECT().Timeout(fab.PeerConnection).Return(time.Second * 5).AnyTimes()
	config.EXPECT().Timeout(fab.OrdererConnection).Return(time.Second * 5).AnyTimes()
	config.EXPECT().Timeout(fab.Proposal).Return(time.Second * 10).AnyTimes()
	config.EXPECT().Timeout(fab.Commit).Return(time.Second * 5).AnyTimes()
	config.EXPECT().Timeout(fab.Poll).Return(time.Millisecond * 20).AnyTimes()
	config.EXPECT().Timeout(fab.PollRetry).Return(time.Millisecond * 20).AnyTimes()
	config.EXPECT().Timeout(fab.ResourceRefresh).Return(time.Minute).AnyTimes()
	config.EXPECT().ChannelID().Return("mychannel").AnyTimes()
	config.EXPECT().BlockCacheCapacity().Return(20).AnyTimes()
	config.EXPECT().HashAlgorithm().Return("SHA2").AnyTimes()
	config.EXPECT().WorkerPoolSize().Return(8).AnyTimes()
	config.EXPECT().MetricsEnabled().Return(false).AnyTimes()
	config.EXPECT().MetricsNamespace().Return("fabstub").AnyTimes()

	return config
}

// ReadOnlyChannel converts ch for use as a mocked event channel return value.
func ReadOnlyChannel(ch chan *fab.TxStatusEvent) <-chan *fab.TxStatusEvent {
	return ch
}

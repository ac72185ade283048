/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	"time"
)

// EndpointConfig contains endpoint network configurations
type EndpointConfig interface {
	Timeout(TimeoutType) time.Duration
	ChannelID() string
	PeersConfig() map[string]PeerConfig
	PeerConfig(name string) (*PeerConfig, bool)
	OrderersConfig() map[string]OrdererConfig
	Resources() []ResourceDescriptor
	BlockCacheCapacity() int
	HashAlgorithm() string
	WorkerPoolSize() int
	MetricsEnabled() bool
	MetricsNamespace() string
}

// TimeoutType enumerates the different types of outgoing connections
type TimeoutType int

const (
	// PeerConnection connection timeout
	PeerConnection TimeoutType = iota
	// OrdererConnection orderer connection timeout
	OrdererConnection
	// Proposal timeout for a single endorsement round
	Proposal
	// Commit timeout waiting for a transaction commit event
	Commit
	// Poll interval between block height polls
	Poll
	// PollRetry delay before re-polling after a failed poll or fetch
	PollRetry
	// ResourceRefresh interval between resource descriptor refreshes
	ResourceRefresh
)

// ResourceProvider supplies the current resource descriptors. Callers
// re-resolve on every request.
type ResourceProvider interface {
	Resource(name string) (*ResourceDescriptor, bool)
	Resources() []*ResourceDescriptor
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"strings"
	"time"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
)

// MockConfig is an in-memory fab.EndpointConfig
type MockConfig struct {
	Channel       string
	Peers         map[string]fab.PeerConfig
	Orderers      map[string]fab.OrdererConfig
	ResourceList  []fab.ResourceDescriptor
	Timeouts      map[fab.TimeoutType]time.Duration
	CacheCapacity int
	HashAlg       string
	PoolSize      int
	Metrics       bool
	Namespace     string
}

// NewMockConfig returns a config for TestChannel with short timeouts
func NewMockConfig() *MockConfig {
	return &MockConfig{
		Channel:  TestChannel,
		Peers:    make(map[string]fab.PeerConfig),
		Orderers: make(map[string]fab.OrdererConfig),
		Timeouts: map[fab.TimeoutType]time.Duration{
			fab.PeerConnection:    3 * time.Second,
			fab.OrdererConnection: 3 * time.Second,
			fab.Proposal:          5 * time.Second,
			fab.Commit:            5 * time.Second,
			fab.Poll:              100 * time.Millisecond,
			fab.PollRetry:         50 * time.Millisecond,
			fab.ResourceRefresh:   time.Minute,
		},
		CacheCapacity: 20,
		HashAlg:       "SHA2",
		PoolSize:      4,
		Namespace:     "test",
	}
}

// Timeout returns the configured timeout for tType
func (c *MockConfig) Timeout(tType fab.TimeoutType) time.Duration {
	return c.Timeouts[tType]
}

// ChannelID returns the channel
func (c *MockConfig) ChannelID() string {
	return c.Channel
}

// PeersConfig returns the peers
func (c *MockConfig) PeersConfig() map[string]fab.PeerConfig {
	return c.Peers
}

// PeerConfig returns the named peer
func (c *MockConfig) PeerConfig(name string) (*fab.PeerConfig, bool) {
	p, ok := c.Peers[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return &p, true
}

// OrderersConfig returns the orderers
func (c *MockConfig) OrderersConfig() map[string]fab.OrdererConfig {
	return c.Orderers
}

// Resources returns the resource descriptors
func (c *MockConfig) Resources() []fab.ResourceDescriptor {
	return c.ResourceList
}

// BlockCacheCapacity returns the block cache capacity
func (c *MockConfig) BlockCacheCapacity() int {
	return c.CacheCapacity
}

// HashAlgorithm returns the hash algorithm
func (c *MockConfig) HashAlgorithm() string {
	return c.HashAlg
}

// WorkerPoolSize returns the worker pool size
func (c *MockConfig) WorkerPoolSize() int {
	return c.PoolSize
}

// MetricsEnabled returns true if metrics are enabled
func (c *MockConfig) MetricsEnabled() bool {
	return c.Metrics
}

// MetricsNamespace returns the metrics namespace
func (c *MockConfig) MetricsNamespace() string {
	return c.Namespace
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/config/lookup"
)

var logger = logging.NewLogger("fabstub/fab")

const (
	defaultPeerConnectionTimeout    = time.Second * 10
	defaultOrdererConnectionTimeout = time.Second * 15
	defaultProposalTimeout          = time.Second * 30
	defaultCommitTimeout            = time.Second * 5
	defaultPollInterval             = time.Second
	defaultPollRetryInterval        = time.Second * 2
	defaultResourceRefreshInterval  = time.Minute
	defaultBlockCacheCapacity       = 20
	defaultWorkerPoolSize           = 16
	defaultHashAlgorithm            = "SHA2"
	defaultMetricsNamespace         = "fabstub"
)

var timeoutKeys = map[fab.TimeoutType]struct {
	key string
	def time.Duration
}{
	fab.PeerConnection:    {"timeouts.peerConnection", defaultPeerConnectionTimeout},
	fab.OrdererConnection: {"timeouts.ordererConnection", defaultOrdererConnectionTimeout},
	fab.Proposal:          {"timeouts.proposal", defaultProposalTimeout},
	fab.Commit:            {"timeouts.commit", defaultCommitTimeout},
	fab.Poll:              {"timeouts.poll", defaultPollInterval},
	fab.PollRetry:         {"timeouts.pollRetry", defaultPollRetryInterval},
	fab.ResourceRefresh:   {"timeouts.resourceRefresh", defaultResourceRefreshInterval},
}

//ConfigFromBackend returns endpoint config implementation for given backend
func ConfigFromBackend(coreBackend ...core.ConfigBackend) (fab.EndpointConfig, error) {
	config := &EndpointConfig{backend: lookup.New(coreBackend...)}

	if err := config.loadEndpointConfiguration(); err != nil {
		return nil, errors.WithMessage(err, "network configuration load failed")
	}

	return config, nil
}

// EndpointConfig represents the endpoint configuration for the client
type EndpointConfig struct {
	backend   *lookup.ConfigLookup
	channelID string
	peers     map[string]fab.PeerConfig
	orderers  map[string]fab.OrdererConfig
	resources []fab.ResourceDescriptor
}

// Timeout reads timeouts for the given timeout type, if type is not found in the config
// then default is set as per the const value above for the corresponding type
func (c *EndpointConfig) Timeout(tType fab.TimeoutType) time.Duration {
	k, ok := timeoutKeys[tType]
	if !ok {
		return 0
	}
	if timeout := c.backend.GetDuration(k.key); timeout > 0 {
		return timeout
	}
	return k.def
}

// ChannelID returns the channel the client is connected to
func (c *EndpointConfig) ChannelID() string {
	return c.channelID
}

// PeersConfig returns the configured peers by name
func (c *EndpointConfig) PeersConfig() map[string]fab.PeerConfig {
	return c.peers
}

// PeerConfig returns the named peer
func (c *EndpointConfig) PeerConfig(name string) (*fab.PeerConfig, bool) {
	p, ok := c.peers[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return &p, true
}

// OrderersConfig returns the configured orderers by name
func (c *EndpointConfig) OrderersConfig() map[string]fab.OrdererConfig {
	return c.orderers
}

// Resources returns the statically configured resource descriptors
func (c *EndpointConfig) Resources() []fab.ResourceDescriptor {
	return c.resources
}

// BlockCacheCapacity returns the number of blocks kept by the block cache
func (c *EndpointConfig) BlockCacheCapacity() int {
	if n := c.backend.GetInt("blockCache.capacity"); n > 0 {
		return n
	}
	return defaultBlockCacheCapacity
}

// HashAlgorithm returns SHA2 or SM3
func (c *EndpointConfig) HashAlgorithm() string {
	if alg := c.backend.GetUpperString("client.cryptoconfig.hashAlgorithm"); alg != "" {
		return alg
	}
	return defaultHashAlgorithm
}

// WorkerPoolSize returns the number of workers running callbacks
func (c *EndpointConfig) WorkerPoolSize() int {
	if n := c.backend.GetInt("client.workerPoolSize"); n > 0 {
		return n
	}
	return defaultWorkerPoolSize
}

// MetricsEnabled returns true if prometheus metrics should be registered
func (c *EndpointConfig) MetricsEnabled() bool {
	return c.backend.GetBool("client.metrics.enabled")
}

// MetricsNamespace returns the prometheus namespace
func (c *EndpointConfig) MetricsNamespace() string {
	if ns := c.backend.GetString("client.metrics.namespace"); ns != "" {
		return ns
	}
	return defaultMetricsNamespace
}

func (c *EndpointConfig) loadEndpointConfiguration() error {
	c.channelID = c.backend.GetString("channel")

	c.peers = make(map[string]fab.PeerConfig)
	if err := c.backend.UnmarshalKey("peers", &c.peers); err != nil {
		return errors.WithMessage(err, "failed to parse 'peers' config item")
	}
	c.orderers = make(map[string]fab.OrdererConfig)
	if err := c.backend.UnmarshalKey("orderers", &c.orderers); err != nil {
		return errors.WithMessage(err, "failed to parse 'orderers' config item")
	}
	if err := c.backend.UnmarshalKey("resources", &c.resources); err != nil {
		return errors.WithMessage(err, "failed to parse 'resources' config item")
	}

	for name, p := range c.peers {
		if p.URL == "" {
			return errors.Errorf("peer %s has no url", name)
		}
	}
	for name, o := range c.orderers {
		if o.URL == "" {
			return errors.Errorf("orderer %s has no url", name)
		}
	}

	for i := range c.resources {
		r := &c.resources[i]
		if r.Name == "" || r.ChaincodeID == "" {
			return errors.Errorf("resource #%d requires a name and a chaincode", i)
		}
		if r.ChannelID == "" {
			r.ChannelID = c.channelID
		}
		if r.ProposalWaitTime == 0 {
			r.ProposalWaitTime = c.Timeout(fab.Proposal)
		}
		for _, e := range r.Endorsers {
			if _, ok := c.PeerConfig(e); !ok {
				logger.Warnf("resource %s names unknown endorser %s", r.Name, e)
			}
		}
	}

	logger.Debugf("loaded %d peers, %d orderers, %d resources for channel [%s]", len(c.peers), len(c.orderers), len(c.resources), c.channelID)
	return nil
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fabsdk enables client usage of a Hyperledger Fabric network.
//
// New reads the endpoint configuration and wires the components shared by
// every request: the peer resolver, the orderers, the block cache fed by a
// deliver event stream, the commit pipeline and the resource registry. The
// driver returned by Driver runs calls and transactions against resources
// resolved through TransactionContext.
package fabsdk

import (
	"sort"

	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/fabric-stub/fabric-stub-go/pkg/client/driver"
	"github.com/fabric-stub/fabric-stub-go/pkg/client/resource"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/msp"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/config/comm"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/cryptosuite"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/logging/api"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/metrics/prometheus"
	fabImpl "github.com/fabric-stub/fabric-stub-go/pkg/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/blocksync"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/channel"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/committer"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/endorsement"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/events/deliverclient"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/orderer"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/peer"
	"github.com/fabric-stub/fabric-stub-go/pkg/fabsdk/metrics"
	"github.com/fabric-stub/fabric-stub-go/pkg/util/concurrent/scheduler"
	"github.com/fabric-stub/fabric-stub-go/pkg/util/concurrent/workerpool"
)

var logger = logging.NewLogger("fabstub/fabsdk")

// FabricSDK provides access (and context) to clients being managed by the SDK
type FabricSDK struct {
	opts options

	config   fab.EndpointConfig
	hashOpts core.HashOpts
	metrics  *metrics.ClientMetrics

	scheduler *scheduler.Scheduler
	pool      *workerpool.Pool

	peers     *peer.Resolver
	cache     *blocksync.Cache
	events    *deliverclient.Client
	committer *committer.Committer
	registry  *resource.Registry
	refresher *resource.Refresher
	driver    *driver.Client
}

type options struct {
	account        msp.Account
	loggerProvider api.LoggerProvider
	registerer     prom.Registerer
	discover       resource.DiscoverFunc
	endorsementOps []endorsement.Opt
}

// Option configures the SDK
type Option func(opts *options) error

// WithAccount sets the account that signs ledger queries and event
// subscriptions. It is also the default account of TransactionContext.
func WithAccount(account msp.Account) Option {
	return func(opts *options) error {
		opts.account = account
		return nil
	}
}

// WithLoggerProvider installs a logger provider, for example zaplog
func WithLoggerProvider(p api.LoggerProvider) Option {
	return func(opts *options) error {
		opts.loggerProvider = p
		return nil
	}
}

// WithMetricsRegisterer sets the registerer used when metrics are enabled
// in the config. The prometheus default registerer is used otherwise.
func WithMetricsRegisterer(r prom.Registerer) Option {
	return func(opts *options) error {
		opts.registerer = r
		return nil
	}
}

// WithResourceDiscovery refreshes the resource registry from discover
// at the configured resource refresh interval
func WithResourceDiscovery(discover resource.DiscoverFunc) Option {
	return func(opts *options) error {
		if discover == nil {
			return errors.New("discover function is nil")
		}
		opts.discover = discover
		return nil
	}
}

// WithEndorsementOpts adds options to every endorsement analysis, for
// example a signature verifier
func WithEndorsementOpts(opts ...endorsement.Opt) Option {
	return func(o *options) error {
		o.endorsementOps = append(o.endorsementOps, opts...)
		return nil
	}
}

// New initializes the SDK from the given config and starts its background
// components. Close must be called to release them.
func New(configProvider core.ConfigProvider, opts ...Option) (*FabricSDK, error) {
	sdk := &FabricSDK{}
	for _, opt := range opts {
		if err := opt(&sdk.opts); err != nil {
			return nil, errors.WithMessage(err, "Error in option passed to New")
		}
	}

	if sdk.opts.loggerProvider != nil {
		logging.Initialize(sdk.opts.loggerProvider)
	}

	if sdk.opts.account == nil {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "account is required")
	}

	if configProvider == nil {
		return nil, errors.New("config provider is required")
	}
	backends, err := configProvider()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load config")
	}

	if err := sdk.init(backends); err != nil {
		sdk.Close()
		return nil, err
	}

	logger.Infof("SDK initialized for channel [%s] with %d resources", sdk.config.ChannelID(), len(sdk.registry.Resources()))
	return sdk, nil
}

func (sdk *FabricSDK) init(backends []core.ConfigBackend) error {
	config, err := fabImpl.ConfigFromBackend(backends...)
	if err != nil {
		return errors.WithMessage(err, "failed to create endpoint config")
	}
	sdk.config = config

	if config.ChannelID() == "" {
		return errors.New("channel is required")
	}

	sdk.hashOpts, err = cryptosuite.HashOptsFor(config.HashAlgorithm())
	if err != nil {
		return err
	}

	sdk.metrics = metrics.Disabled()
	if config.MetricsEnabled() {
		r := sdk.opts.registerer
		if r == nil {
			r = prom.DefaultRegisterer
		}
		sdk.metrics = metrics.NewClientMetrics(prometheus.NewProvider(r), config.MetricsNamespace())
	}

	sdk.scheduler = scheduler.New()
	sdk.pool = workerpool.New(config.WorkerPoolSize())
	sdk.peers = peer.NewResolver(config)

	orderers, err := orderer.FromConfig(config)
	if err != nil {
		return errors.WithMessage(err, "failed to create orderers")
	}
	if len(orderers) == 0 {
		return errors.New("at least one orderer is required")
	}

	peers, err := sdk.peers.Peers(peerNames(config))
	if err != nil {
		return errors.WithMessage(err, "failed to create peers")
	}
	if len(peers) == 0 {
		return errors.New("at least one peer is required")
	}

	ledger, err := channel.NewLedger(config.ChannelID(), sdk.opts.account, peer.PeersToTxnProcessors(peers), channel.WithHashOpts(sdk.hashOpts))
	if err != nil {
		return errors.WithMessage(err, "failed to create ledger client")
	}

	sdk.cache = blocksync.New(ledger,
		blocksync.WithCapacity(config.BlockCacheCapacity()),
		blocksync.WithPollInterval(config.Timeout(fab.Poll)),
		blocksync.WithRetryInterval(config.Timeout(fab.PollRetry)),
		blocksync.WithRequestTimeout(config.Timeout(fab.Proposal)),
		blocksync.WithScheduler(sdk.scheduler),
		blocksync.WithWorkerPool(sdk.pool),
		blocksync.WithMetrics(sdk.metrics),
		blocksync.WithHashOpts(sdk.hashOpts),
	)

	endpoints, err := deliverEndpoints(config)
	if err != nil {
		return err
	}
	sdk.events, err = deliverclient.New(sdk.opts.account, config.ChannelID(), endpoints,
		deliverclient.WithDialTimeout(config.Timeout(fab.PeerConnection)),
		deliverclient.WithHashOpts(sdk.hashOpts),
		deliverclient.WithBlockHeightListener(sdk.cache),
	)
	if err != nil {
		return errors.WithMessage(err, "failed to create deliver client")
	}

	sdk.committer = committer.New(orderers, sdk.events,
		committer.WithTimeout(config.Timeout(fab.Commit)),
		committer.WithScheduler(sdk.scheduler),
		committer.WithWorkerPool(sdk.pool),
		committer.WithMetrics(sdk.metrics),
	)

	sdk.registry, err = resource.NewRegistry(config.Resources()...)
	if err != nil {
		return errors.WithMessage(err, "invalid resource configuration")
	}

	if sdk.opts.discover != nil {
		sdk.refresher = resource.NewRefresher(sdk.registry, sdk.opts.discover,
			resource.WithRefreshInterval(config.Timeout(fab.ResourceRefresh)),
			resource.WithRefreshTimeout(config.Timeout(fab.Proposal)),
			resource.WithScheduler(sdk.scheduler),
		)
	}

	sdk.driver = driver.New(sdk.peers, sdk.committer,
		driver.WithHashOpts(sdk.hashOpts),
		driver.WithEndorsementOpts(sdk.opts.endorsementOps...),
		driver.WithWorkerPool(sdk.pool),
		driver.WithMetrics(sdk.metrics),
	)

	sdk.cache.Start()
	if err := sdk.events.Connect(); err != nil {
		return errors.WithMessage(err, "failed to connect deliver client")
	}
	if sdk.refresher != nil {
		if err := sdk.refresher.Start(); err != nil {
			return errors.WithMessage(err, "failed to start resource refresher")
		}
	}
	return nil
}

// Driver returns the client that runs calls and transactions
func (sdk *FabricSDK) Driver() *driver.Client {
	return sdk.driver
}

// Config returns the endpoint config the SDK was created with
func (sdk *FabricSDK) Config() fab.EndpointConfig {
	return sdk.config
}

// Resources returns the resource registry
func (sdk *FabricSDK) Resources() fab.ResourceProvider {
	return sdk.registry
}

// BlockCache returns the block cache shared by every transaction context
func (sdk *FabricSDK) BlockCache() *blocksync.Cache {
	return sdk.cache
}

// TransactionContext returns a context for the named resource signed by the
// SDK account
func (sdk *FabricSDK) TransactionContext(resourceName string) (driver.TransactionContext, error) {
	return sdk.TransactionContextFor(sdk.opts.account, resourceName)
}

// TransactionContextFor returns a context for the named resource signed by
// the given account. The resource is looked up on every call so that a
// refreshed registry is picked up.
func (sdk *FabricSDK) TransactionContextFor(account msp.Account, resourceName string) (driver.TransactionContext, error) {
	r, ok := sdk.registry.Resource(resourceName)
	if !ok {
		return driver.TransactionContext{}, status.Newf(status.ClientStatus, status.PreconditionFailed, "resource [%s] not found", resourceName)
	}
	return driver.TransactionContext{
		Account:      account,
		BlockManager: sdk.cache,
		Resource:     r,
	}, nil
}

// Close frees up the resources used by the SDK, in the reverse order they
// were started
func (sdk *FabricSDK) Close() {
	logger.Debug("Closing SDK")

	if sdk.refresher != nil {
		sdk.refresher.Stop()
	}
	// the deliver client closes outstanding registrations, which fails any
	// transaction still waiting for its commit
	if sdk.events != nil {
		sdk.events.Close()
	}
	if sdk.cache != nil {
		sdk.cache.Stop()
	}
	// the driver, committer and cache share the pool and the scheduler
	if sdk.pool != nil {
		sdk.pool.Close()
	}
	if sdk.scheduler != nil {
		sdk.scheduler.Close()
	}
}

func peerNames(config fab.EndpointConfig) []string {
	var names []string
	for name := range config.PeersConfig() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func deliverEndpoints(config fab.EndpointConfig) ([]comm.Endpoint, error) {
	var endpoints []comm.Endpoint
	for _, name := range peerNames(config) {
		peerCfg, _ := config.PeerConfig(name)
		tlsCACert, err := peerCfg.TLSCACerts.Bytes()
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to load TLS CA certs for peer %s", name)
		}
		endpoints = append(endpoints, comm.Endpoint{
			URL:         peerCfg.URL,
			GRPCOptions: peerCfg.GRPCOptions,
			TLSCACert:   tlsCACert,
		})
	}
	return endpoints, nil
}

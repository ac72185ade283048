/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package peer provides the endorsing peers a transaction is proposed to.
package peer

import (
	reqContext "context"
	"sync"

	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/config/comm"
)

var logger = logging.NewLogger("fabstub/fab")

// Peer is an endorsing peer reached over gRPC, unless another proposal
// processor is installed with WithPeerProcessor.
type Peer struct {
	config      fab.EndpointConfig
	processor   fab.ProposalProcessor
	mspID       string
	endpoint    comm.Endpoint
	commManager comm.CommManager
}

// Option configures a Peer.
type Option func(*Peer) error

// New returns a peer. Unless a processor is supplied, the URL must be set
// by an option and the TLS root certificate, when given, must parse.
func New(config fab.EndpointConfig, opts ...Option) (*Peer, error) {
	p := &Peer{
		config:      config,
		commManager: &comm.DefaultCommManager{},
		endpoint:    comm.Endpoint{GRPCOptions: make(map[string]interface{})},
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.processor == nil {
		e, err := newPeerEndorser(&peerEndorserRequest{
			endpoint:    p.endpoint,
			config:      p.config,
			commManager: p.commManager,
		})
		if err != nil {
			return nil, err
		}
		p.processor = e
	}
	return p, nil
}

// WithURL sets the peer URL (grpc:// or grpcs://).
func WithURL(url string) Option {
	return func(p *Peer) error {
		p.endpoint.URL = url
		return nil
	}
}

// WithTLSCACert sets the PEM root certificate the peer's TLS certificate is
// checked against.
func WithTLSCACert(pem []byte) Option {
	return func(p *Peer) error {
		p.endpoint.TLSCACert = pem
		return nil
	}
}

// WithServerName overrides the TLS server name.
func WithServerName(serverName string) Option {
	return grpcOption("ssl-target-name-override", serverName)
}

// WithInsecure dials without TLS when the URL has no scheme.
func WithInsecure() Option {
	return grpcOption("allow-insecure", true)
}

func grpcOption(key string, value interface{}) Option {
	return func(p *Peer) error {
		p.endpoint.GRPCOptions[key] = value
		return nil
	}
}

// WithMSPID sets the MSP of the organization owning the peer.
func WithMSPID(mspID string) Option {
	return func(p *Peer) error {
		p.mspID = mspID
		return nil
	}
}

// WithCommManager replaces the connection manager.
func WithCommManager(cm comm.CommManager) Option {
	return func(p *Peer) error {
		p.commManager = cm
		return nil
	}
}

// WithPeerProcessor routes proposals to processor instead of dialing the
// peer.
func WithPeerProcessor(processor fab.ProposalProcessor) Option {
	return func(p *Peer) error {
		p.processor = processor
		return nil
	}
}

// FromPeerConfig takes the URL, MSP, TLS root certificate and grpc options
// of the peer from its config entry.
func FromPeerConfig(cfg *fab.PeerConfig) Option {
	return func(p *Peer) error {
		pem, err := cfg.TLSCACerts.Bytes()
		if err != nil {
			return err
		}
		p.endpoint.URL = cfg.URL
		p.endpoint.TLSCACert = pem
		for k, v := range cfg.GRPCOptions {
			p.endpoint.GRPCOptions[k] = v
		}
		p.mspID = cfg.MSPID
		return nil
	}
}

// MSPID returns the MSP of the peer's organization.
func (p *Peer) MSPID() string {
	return p.mspID
}

// URL returns the peer URL.
func (p *Peer) URL() string {
	return p.endpoint.URL
}

func (p *Peer) String() string {
	return p.endpoint.URL
}

// ProcessTransactionProposal sends a signed proposal to the peer for
// simulation and endorsement.
func (p *Peer) ProcessTransactionProposal(ctx reqContext.Context, proposal fab.ProcessProposalRequest) (*fab.TransactionProposalResponse, error) {
	return p.processor.ProcessTransactionProposal(ctx, proposal)
}

// PeersToTxnProcessors returns the peers as proposal processors.
func PeersToTxnProcessors(peers []fab.Peer) []fab.ProposalProcessor {
	processors := make([]fab.ProposalProcessor, 0, len(peers))
	for _, p := range peers {
		processors = append(processors, p)
	}
	return processors
}

// Resolver resolves configured peer names to peers. Peers are created on
// first use and reused afterwards.
type Resolver struct {
	config fab.EndpointConfig
	opts   []Option

	mutex sync.Mutex
	peers map[string]fab.Peer
}

// NewResolver returns a resolver for the peers in config. The options are
// applied to every peer it creates.
func NewResolver(config fab.EndpointConfig, opts ...Option) *Resolver {
	return &Resolver{
		config: config,
		opts:   opts,
		peers:  make(map[string]fab.Peer),
	}
}

// Peers returns the peers with the given names, in order.
func (r *Resolver) Peers(names []string) ([]fab.Peer, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	peers := make([]fab.Peer, 0, len(names))
	for _, name := range names {
		p, err := r.peer(name)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}
	return peers, nil
}

func (r *Resolver) peer(name string) (fab.Peer, error) {
	if p, ok := r.peers[name]; ok {
		return p, nil
	}

	cfg, ok := r.config.PeerConfig(name)
	if !ok {
		return nil, errors.Errorf("peer config not found for peer : %s", name)
	}
	p, err := New(r.config, append([]Option{FromPeerConfig(cfg)}, r.opts...)...)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating peer %s failed", name)
	}
	r.peers[name] = p
	return p, nil
}

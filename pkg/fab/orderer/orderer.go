/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package orderer broadcasts signed envelopes to an ordering service node
// over the AtomicBroadcast gRPC service.
package orderer

import (
	reqContext "context"
	"io"
	"sort"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	ab "github.com/hyperledger/fabric-protos-go/orderer"
	"github.com/pkg/errors"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/multi"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/config/comm"
)

var logger = logging.NewLogger("fabstub/fab")

// Orderer is one ordering service node. A connection is opened for each
// broadcast and released when it completes.
type Orderer struct {
	config      fab.EndpointConfig
	endpoint    comm.Endpoint
	dialTimeout time.Duration
	commManager comm.CommManager
}

// Option configures an Orderer.
type Option func(*Orderer) error

// New returns an orderer. The URL must be set by an option, and a TLS root
// certificate, when given, must parse.
func New(config fab.EndpointConfig, opts ...Option) (*Orderer, error) {
	o := &Orderer{
		config:      config,
		commManager: &comm.DefaultCommManager{},
		endpoint:    comm.Endpoint{GRPCOptions: make(map[string]interface{})},
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if o.endpoint.URL == "" {
		return nil, errors.New("orderer URL is required")
	}
	if _, err := comm.DialOptions(o.endpoint); err != nil {
		return nil, err
	}
	if config != nil {
		o.dialTimeout = config.Timeout(fab.OrdererConnection)
	}
	return o, nil
}

// FromConfig returns an orderer for every entry of the orderers section,
// sorted by name.
func FromConfig(config fab.EndpointConfig, opts ...Option) ([]fab.Orderer, error) {
	names := make([]string, 0, len(config.OrderersConfig()))
	for name := range config.OrderersConfig() {
		names = append(names, name)
	}
	sort.Strings(names)

	orderers := make([]fab.Orderer, 0, len(names))
	for _, name := range names {
		o, err := New(config, append([]Option{FromOrdererName(name)}, opts...)...)
		if err != nil {
			return nil, errors.WithMessagef(err, "creating orderer %s failed", name)
		}
		orderers = append(orderers, o)
	}
	return orderers, nil
}

// WithURL sets the orderer URL (grpc:// or grpcs://).
func WithURL(url string) Option {
	return func(o *Orderer) error {
		o.endpoint.URL = url
		return nil
	}
}

// WithTLSCACert sets the PEM root certificate the orderer's TLS
// certificate is checked against.
func WithTLSCACert(pem []byte) Option {
	return func(o *Orderer) error {
		o.endpoint.TLSCACert = pem
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
	return func(o *Orderer) error {
		o.endpoint.GRPCOptions[key] = value
		return nil
	}
}

// WithCommManager replaces the connection manager.
func WithCommManager(cm comm.CommManager) Option {
	return func(o *Orderer) error {
		o.commManager = cm
		return nil
	}
}

// FromOrdererConfig takes the URL, TLS root certificate and grpc options
// of the orderer from its config entry.
func FromOrdererConfig(cfg *fab.OrdererConfig) Option {
	return func(o *Orderer) error {
		pem, err := cfg.TLSCACerts.Bytes()
		if err != nil {
			return err
		}
		o.endpoint.URL = cfg.URL
		o.endpoint.TLSCACert = pem
		for k, v := range cfg.GRPCOptions {
			o.endpoint.GRPCOptions[k] = v
		}
		return nil
	}
}

// FromOrdererName looks the orderer up by name in the endpoint config
// passed to New.
func FromOrdererName(name string) Option {
	return func(o *Orderer) error {
		if o.config == nil {
			return errors.New("endpoint config is required to resolve orderer by name")
		}
		cfg, ok := o.config.OrderersConfig()[name]
		if !ok {
			return errors.Errorf("orderer config not found for orderer : %s", name)
		}
		return FromOrdererConfig(&cfg)(o)
	}
}

// URL returns the orderer URL.
func (o *Orderer) URL() string {
	return o.endpoint.URL
}

func (o *Orderer) String() string {
	return o.endpoint.URL
}

// SendBroadcast sends one envelope and waits for the orderer to close the
// stream. Every non-SUCCESS response is returned as an OrdererServerStatus
// error; transport failures as GRPCTransportStatus or, for a failed dial,
// OrdererClientStatus ConnectionFailed.
func (o *Orderer) SendBroadcast(ctx reqContext.Context, envelope *fab.SignedEnvelope) (*common.Status, error) {
	conn, err := comm.Dial(ctx, o.commManager, o.endpoint, o.dialTimeout)
	if err != nil {
		if rpcStatus, ok := grpcstatus.FromError(err); ok {
			return nil, errors.WithMessage(status.NewFromGRPCStatus(rpcStatus), "connection failed")
		}
		return nil, status.New(status.OrdererClientStatus, status.ConnectionFailed.ToInt32(), err.Error(), nil)
	}
	defer o.commManager.ReleaseConn(conn)

	stream, err := ab.NewAtomicBroadcastClient(conn).Broadcast(ctx)
	if err != nil {
		return nil, errors.Wrap(transportError(err), "opening broadcast stream failed")
	}

	if err := stream.Send(&common.Envelope{Payload: envelope.Payload, Signature: envelope.Signature}); err != nil {
		return nil, errors.Wrap(transportError(err), "failed to send envelope to orderer")
	}
	if err := stream.CloseSend(); err != nil {
		logger.Debugf("unable to close broadcast stream [%s]", err)
	}

	return recvAll(stream)
}

// recvAll reads responses until the stream ends. The returned status is the
// last SUCCESS seen; any rejection or stream failure is returned as error.
func recvAll(stream ab.AtomicBroadcast_BroadcastClient) (*common.Status, error) {
	var last common.Status
	var errs multi.Errors
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, errors.Wrap(transportError(err), "broadcast recv failed"))
			break
		}
		if resp.Status != common.Status_SUCCESS {
			errs = append(errs, status.New(status.OrdererServerStatus, int32(resp.Status), resp.Info, nil))
			continue
		}
		last = resp.Status
	}
	return &last, errs.ToError()
}

func transportError(err error) error {
	if rpcStatus, ok := grpcstatus.FromError(err); ok {
		return status.NewFromGRPCStatus(rpcStatus)
	}
	return err
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/config/urlutil"
)

var logger = logging.NewLogger("fabstub/core")

const (
	// GRPC max message size (same as Fabric)
	maxCallRecvMsgSize = 100 * 1024 * 1024
	maxCallSendMsgSize = 100 * 1024 * 1024
)

// Endpoint describes how to reach a peer or orderer.
type Endpoint struct {
	URL         string
	GRPCOptions map[string]interface{}
	TLSCACert   []byte
}

// Address returns the dial target, with the protocol prefix removed.
func (e Endpoint) Address() string {
	return urlutil.ToAddress(e.URL)
}

// TLSConfig returns the TLS configuration trusting the given PEM root
// certificates. An empty PEM falls back to the system pool.
func TLSConfig(caPEM []byte, serverName string) (*tls.Config, error) {
	certPool, err := x509.SystemCertPool()
	if err != nil || certPool == nil {
		certPool = x509.NewCertPool()
	}
	if len(caPEM) > 0 && !certPool.AppendCertsFromPEM(caPEM) {
		return nil, errors.New("failed to append TLS CA certificate: no valid PEM block")
	}
	return &tls.Config{RootCAs: certPool, ServerName: serverName, MinVersion: tls.VersionTLS12}, nil
}

// DialOptions builds the gRPC dial options for the endpoint from its
// grpcOptions (ssl-target-name-override, keep-alive-*, fail-fast,
// allow-insecure).
func DialOptions(e Endpoint) ([]grpc.DialOption, error) {
	var opts []grpc.DialOption

	if kap := keepAliveOptions(e.GRPCOptions); kap.Time > 0 {
		opts = append(opts, grpc.WithKeepaliveParams(kap))
	}
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.WaitForReady(!failFast(e.GRPCOptions))))

	if urlutil.AttemptSecured(e.URL, allowInsecure(e.GRPCOptions)) {
		tlsConfig, err := TLSConfig(e.TLSCACert, serverNameOverride(e.GRPCOptions))
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	opts = append(opts, grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxCallRecvMsgSize),
		grpc.MaxCallSendMsgSize(maxCallSendMsgSize)))

	return opts, nil
}

// CommManager dials and releases gRPC connections.
type CommManager interface {
	DialContext(ctx context.Context, target string, opts ...grpc.DialOption) (*grpc.ClientConn, error)
	ReleaseConn(conn *grpc.ClientConn)
}

// DefaultCommManager opens a new connection per request and closes it on release.
type DefaultCommManager struct{}

// DialContext dials target, blocking until the connection is up or ctx is done.
func (*DefaultCommManager) DialContext(ctx context.Context, target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	logger.Debugf("DialContext [%s]", target)
	opts = append(opts, grpc.WithBlock())
	return grpc.DialContext(ctx, target, opts...)
}

// ReleaseConn closes the connection.
func (*DefaultCommManager) ReleaseConn(conn *grpc.ClientConn) {
	logger.Debugf("ReleaseConn [%p]", conn)
	if err := conn.Close(); err != nil {
		logger.Debugf("unable to close connection [%s]", err)
	}
}

// Dial opens a connection with the given timeout.
func Dial(ctx context.Context, cm CommManager, e Endpoint, timeout time.Duration) (*grpc.ClientConn, error) {
	opts, err := DialOptions(e)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return cm.DialContext(ctx, e.Address(), opts...)
}

func serverNameOverride(grpcOptions map[string]interface{}) string {
	if str, ok := grpcOptions["ssl-target-name-override"].(string); ok {
		return str
	}
	return ""
}

func failFast(grpcOptions map[string]interface{}) bool {
	if ff, ok := grpcOptions["fail-fast"]; ok {
		return cast.ToBool(ff)
	}
	return true
}

func keepAliveOptions(grpcOptions map[string]interface{}) keepalive.ClientParameters {
	var kap keepalive.ClientParameters
	if kaTime, ok := grpcOptions["keep-alive-time"]; ok {
		kap.Time = cast.ToDuration(kaTime)
	}
	if kaTimeout, ok := grpcOptions["keep-alive-timeout"]; ok {
		kap.Timeout = cast.ToDuration(kaTimeout)
	}
	if kaPermit, ok := grpcOptions["keep-alive-permit"]; ok {
		kap.PermitWithoutStream = cast.ToBool(kaPermit)
	}
	return kap
}

func allowInsecure(grpcOptions map[string]interface{}) bool {
	if v, ok := grpcOptions["allow-insecure"]; ok {
		return cast.ToBool(v)
	}
	return false
}

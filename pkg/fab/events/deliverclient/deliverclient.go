/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package deliverclient receives filtered blocks from the peer deliver
// service and turns them into transaction status events. The stream is
// re-established on failure, resuming after the last block received.
package deliverclient

import (
	"context"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/protobuf/proto"
	cb "github.com/hyperledger/fabric-protos-go/common"
	ab "github.com/hyperledger/fabric-protos-go/orderer"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/options"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/msp"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/config/comm"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/events/dispatcher"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/txn"
)

var logger = logging.NewLogger("fabstub/fab")

const (
	disconnected int32 = iota
	connected
)

// Client connects to a peer and receives transaction status events for a channel.
type Client struct {
	params
	mutex           sync.RWMutex
	account         msp.Account
	channelID       string
	endpoints       []comm.Endpoint
	dispatcher      *dispatcher.Dispatcher
	connectionState int32
	ctx             context.Context
	cancel          context.CancelFunc
	done            chan struct{}
	started         int32
}

// New returns a new deliver event client for the channel. The endpoints are
// tried in turn on every reconnect. Connect must be called to start receiving
// events.
func New(account msp.Account, channelID string, endpoints []comm.Endpoint, opts ...options.Opt) (*Client, error) {
	if channelID == "" {
		return nil, errors.New("expecting channel ID")
	}
	if account == nil {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "account is required")
	}
	if len(endpoints) == 0 {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "at least one deliver endpoint is required")
	}

	params := defaultParams()
	options.Apply(opts, params)

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		params:     *params,
		account:    account,
		channelID:  channelID,
		endpoints:  endpoints,
		dispatcher: dispatcher.New(opts...),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}, nil
}

// Connect starts the dispatcher and the stream listener. It returns
// immediately; the connection is established in the background.
func (c *Client) Connect() error {
	if !atomic.CompareAndSwapInt32(&c.started, 0, 1) {
		return errors.New("deliver client already started")
	}

	if err := c.dispatcher.Start(); err != nil {
		return errors.WithMessage(err, "error starting dispatcher")
	}

	go c.run()
	return nil
}

// Close disconnects from the deliver server and closes every outstanding
// registration channel.
func (c *Client) Close() {
	if !atomic.CompareAndSwapInt32(&c.started, 1, 2) {
		logger.Debug("Deliver client is not running")
		return
	}

	logger.Debug("Stopping deliver client...")
	c.cancel()

	select {
	case <-c.done:
	case <-time.After(c.respTimeout):
		logger.Warn("Timed out waiting for the stream listener to exit")
	}

	if err := c.dispatcher.Stop(); err != nil {
		logger.Warnf("Error stopping dispatcher: %s", err)
	}
}

// IsConnected returns true while a stream to a deliver server is open
func (c *Client) IsConnected() bool {
	return atomic.LoadInt32(&c.connectionState) == connected
}

// RegisterTxStatus registers for the status of the given transaction. The
// returned channel receives exactly one event.
func (c *Client) RegisterTxStatus(txID string) (fab.Registration, <-chan *fab.TxStatusEvent, error) {
	return c.dispatcher.RegisterTxStatus(txID)
}

// Unregister removes the given registration and closes the event channel.
func (c *Client) Unregister(reg fab.Registration) {
	c.dispatcher.Unregister(reg)
}

// LastBlockNum returns the number of the last block received
func (c *Client) LastBlockNum() uint64 {
	return c.dispatcher.LastBlockNum()
}

func (c *Client) run() {
	defer close(c.done)

	backoff := c.initialBackoff
	var attempts uint

	for i := 0; ; i++ {
		endpoint := c.endpoints[i%len(c.endpoints)]

		received, err := c.listen(endpoint)
		if c.ctx.Err() != nil {
			logger.Debug("Deliver client closed. Exiting stream listener")
			return
		}

		if received {
			backoff = c.initialBackoff
			attempts = 0
		}
		attempts++

		if c.maxReconnectAttempts > 0 && attempts > c.maxReconnectAttempts {
			logger.Errorf("Giving up on deliver service after %d attempts: %s", attempts-1, err)
			return
		}

		logger.Warnf("Deliver stream to %s ended: %s. Reconnecting in %s", endpoint.URL, err, backoff)

		t := time.NewTimer(backoff)
		select {
		case <-c.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		if backoff *= 2; backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

// listen opens a DeliverFiltered stream to the endpoint and publishes the
// blocks it receives until the stream fails. It reports whether any block
// was received.
func (c *Client) listen(endpoint comm.Endpoint) (bool, error) {
	logger.Debugf("Connecting to %s...", endpoint.URL)

	conn, err := comm.Dial(c.ctx, c.commManager, endpoint, c.dialTimeout)
	if err != nil {
		return false, status.New(status.EventServerStatus, int32(cb.Status_SERVICE_UNAVAILABLE), err.Error(), []interface{}{endpoint.URL})
	}
	defer c.commManager.ReleaseConn(conn)

	ctx, cancel := context.WithCancel(c.ctx)
	defer cancel()

	stream, err := pb.NewDeliverClient(conn).DeliverFiltered(ctx)
	if err != nil {
		return false, convertRPCError(err)
	}

	env, err := c.seekEnvelope()
	if err != nil {
		return false, err
	}
	if err := stream.Send(env); err != nil {
		return false, convertRPCError(err)
	}

	atomic.StoreInt32(&c.connectionState, connected)
	defer atomic.StoreInt32(&c.connectionState, disconnected)
	logger.Debugf("Connected to %s", endpoint.URL)

	received := false
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return received, errors.New("stream closed by deliver server")
		}
		if err != nil {
			return received, convertRPCError(err)
		}

		switch t := resp.Type.(type) {
		case *pb.DeliverResponse_FilteredBlock:
			received = true
			if err := c.dispatcher.PublishFilteredBlock(t.FilteredBlock, endpoint.URL); err != nil {
				return received, err
			}
		case *pb.DeliverResponse_Status:
			logger.Debugf("Received deliver status: %s", t.Status)
			if t.Status != cb.Status_SUCCESS {
				return received, status.New(status.EventServerStatus, int32(t.Status), "received error status from deliver server", nil)
			}
			return received, errors.New("deliver server completed the seek request")
		default:
			logger.Warnf("Unsupported deliver response type: %T", t)
		}
	}
}

func (c *Client) seekInfo() *ab.SeekInfo {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	// Resume after the last block we've seen so no commit events are missed
	if lastBlockNum := c.dispatcher.LastBlockNum(); lastBlockNum < math.MaxUint64 {
		return seekInfoFrom(lastBlockNum + 1)
	}

	switch c.seekType {
	case SeekFrom:
		return seekInfoFrom(c.fromBlock)
	default:
		return seekInfoNewest()
	}
}

func (c *Client) seekEnvelope() (*cb.Envelope, error) {
	var opts []txn.HeaderOpt
	if c.hashOpts != nil {
		opts = append(opts, txn.WithHashOpts(c.hashOpts))
	}

	txh, err := txn.NewHeader(c.account, c.channelID, opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create transaction header for seek request")
	}

	channelHeader, err := txn.CreateChannelHeader(cb.HeaderType_DELIVER_SEEK_INFO, txn.ChannelHeaderOpts{TxnHeader: txh})
	if err != nil {
		return nil, err
	}

	header, err := txn.CreateHeader(txh, channelHeader)
	if err != nil {
		return nil, err
	}

	data, err := proto.Marshal(c.seekInfo())
	if err != nil {
		return nil, errors.Wrap(err, "marshal of seek info failed")
	}

	payload, err := proto.Marshal(&cb.Payload{Header: header, Data: data})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of seek payload failed")
	}

	signed, err := txn.SignEnvelope(c.account, payload)
	if err != nil {
		return nil, err
	}

	return &cb.Envelope{Payload: signed.Payload, Signature: signed.Signature}, nil
}

func convertRPCError(err error) error {
	if rpcStatus, ok := grpcstatus.FromError(err); ok {
		return status.NewFromGRPCStatus(rpcStatus)
	}
	return err
}

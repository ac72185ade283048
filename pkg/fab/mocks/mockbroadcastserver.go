/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"io"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	po "github.com/hyperledger/fabric-protos-go/orderer"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/fabric-stub/fabric-stub-go/pkg/util/test"
)

var broadcastResponseSuccess = &po.BroadcastResponse{Status: common.Status_SUCCESS}
var broadcastResponseError = &po.BroadcastResponse{Status: common.Status_INTERNAL_SERVER_ERROR}

// MockBroadcastServer mock broadcast server. Every accepted envelope is
// appended to Ledger as a block, when set, and published to Deliveries as a
// filtered block.
type MockBroadcastServer struct {
	BroadcastError               error
	Creds                        credentials.TransportCredentials
	BroadcastCustomResponse      *po.BroadcastResponse
	BroadcastInternalServerError bool
	// ValidationCode is the code given to committed transactions
	ValidationCode pb.TxValidationCode
	Ledger         *MockLedger
	Deliveries     *MockDeliverServer

	mutex     sync.Mutex
	envelopes []*common.Envelope
	// commits are appended and published in block order
	commitMutex sync.Mutex

	server test.GRPCServer
}

// Broadcast mock broadcast
func (m *MockBroadcastServer) Broadcast(server po.AtomicBroadcast_BroadcastServer) error {
	for {
		env, err := server.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if m.BroadcastError != nil {
			return m.BroadcastError
		}

		if m.BroadcastInternalServerError {
			if err := server.Send(broadcastResponseError); err != nil {
				return err
			}
			continue
		}

		if m.BroadcastCustomResponse != nil {
			if err := server.Send(m.BroadcastCustomResponse); err != nil {
				return err
			}
			continue
		}

		m.mutex.Lock()
		m.envelopes = append(m.envelopes, env)
		m.mutex.Unlock()

		if err := server.Send(broadcastResponseSuccess); err != nil {
			return err
		}

		m.commit(env)
	}
}

func (m *MockBroadcastServer) commit(env *common.Envelope) {
	txID, err := txIDFromEnvelope(env)
	if err != nil {
		test.Logf("MockBroadcastServer: %s", err)
		return
	}

	tx := MockTx{TxID: txID, Code: m.ValidationCode}

	m.commitMutex.Lock()
	defer m.commitMutex.Unlock()

	var number uint64
	if m.Ledger != nil {
		number = m.Ledger.Append(tx).Header.Number
	}
	if m.Deliveries != nil {
		m.Deliveries.Publish(NewFilteredBlock(number, tx))
	}
}

// Deliver is not served by the mock ordering service
func (m *MockBroadcastServer) Deliver(server po.AtomicBroadcast_DeliverServer) error {
	return grpcstatus.Error(codes.Unimplemented, "deliver is not supported by the mock orderer")
}

// Envelopes returns the envelopes accepted by the server
func (m *MockBroadcastServer) Envelopes() []*common.Envelope {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]*common.Envelope(nil), m.envelopes...)
}

func txIDFromEnvelope(env *common.Envelope) (string, error) {
	return TxIDFromPayload(env.Payload)
}

// TxIDFromPayload returns the transaction ID in the channel header of a
// marshalled envelope payload
func TxIDFromPayload(raw []byte) (string, error) {
	payload := &common.Payload{}
	if err := proto.Unmarshal(raw, payload); err != nil {
		return "", err
	}
	if payload.Header == nil {
		return "", nil
	}
	chdr := &common.ChannelHeader{}
	if err := proto.Unmarshal(payload.Header.ChannelHeader, chdr); err != nil {
		return "", err
	}
	return chdr.TxId, nil
}

// Start the MockBroadcastServer on the given address and return the bound address
func (m *MockBroadcastServer) Start(address string) string {
	return m.server.Start("MockBroadcastServer", address, m.Creds, func(srv *grpc.Server) {
		po.RegisterAtomicBroadcastServer(srv, m)
	})
}

// Stop the MockBroadcastServer and wait for completion.
func (m *MockBroadcastServer) Stop() {
	m.server.Stop("MockBroadcastServer")
}

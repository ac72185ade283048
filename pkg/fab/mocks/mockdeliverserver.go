/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"

	"github.com/golang/protobuf/proto"
	cb "github.com/hyperledger/fabric-protos-go/common"
	ab "github.com/hyperledger/fabric-protos-go/orderer"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/fabric-stub/fabric-stub-go/pkg/util/test"
)

type subscriber struct {
	blocks chan *pb.FilteredBlock
	kick   chan error
}

// MockDeliverServer is a mock peer deliver server. Filtered blocks passed to
// Publish are streamed to every connected DeliverFiltered subscriber.
type MockDeliverServer struct {
	Creds credentials.TransportCredentials

	mutex       sync.RWMutex
	subscribers map[*subscriber]struct{}
	seeks       []*ab.SeekInfo

	server test.GRPCServer
}

// NewMockDeliverServer returns a new MockDeliverServer
func NewMockDeliverServer() *MockDeliverServer {
	return &MockDeliverServer{subscribers: make(map[*subscriber]struct{})}
}

// Publish sends the filtered block to all subscribers
func (s *MockDeliverServer) Publish(fblock *pb.FilteredBlock) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for sub := range s.subscribers {
		sub.blocks <- fblock
	}
}

// Disconnect terminates every stream and returns the given error to the clients
func (s *MockDeliverServer) Disconnect(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for sub := range s.subscribers {
		sub.kick <- err
		delete(s.subscribers, sub)
	}
}

// Subscribers returns the number of connected DeliverFiltered streams
func (s *MockDeliverServer) Subscribers() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.subscribers)
}

// Seeks returns the seek requests received, in order
func (s *MockDeliverServer) Seeks() []*ab.SeekInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]*ab.SeekInfo(nil), s.seeks...)
}

// Deliver is not served by the mock
func (s *MockDeliverServer) Deliver(srv pb.Deliver_DeliverServer) error {
	return grpcstatus.Error(codes.Unimplemented, "only filtered delivery is supported")
}

// DeliverWithPrivateData is not served by the mock
func (s *MockDeliverServer) DeliverWithPrivateData(srv pb.Deliver_DeliverWithPrivateDataServer) error {
	return grpcstatus.Error(codes.Unimplemented, "only filtered delivery is supported")
}

// DeliverFiltered delivers a stream of filtered blocks
func (s *MockDeliverServer) DeliverFiltered(srv pb.Deliver_DeliverFilteredServer) error {
	envelope, err := srv.Recv()
	if err != nil {
		return err
	}

	seekInfo, err := unpackSeekInfo(envelope)
	if err != nil {
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	}

	sub := &subscriber{
		blocks: make(chan *pb.FilteredBlock, 100),
		kick:   make(chan error, 1),
	}

	s.mutex.Lock()
	s.seeks = append(s.seeks, seekInfo)
	s.subscribers[sub] = struct{}{}
	s.mutex.Unlock()

	defer func() {
		s.mutex.Lock()
		delete(s.subscribers, sub)
		s.mutex.Unlock()
	}()

	for {
		select {
		case fblock := <-sub.blocks:
			err := srv.Send(&pb.DeliverResponse{
				Type: &pb.DeliverResponse_FilteredBlock{FilteredBlock: fblock},
			})
			if err != nil {
				return err
			}
		case err := <-sub.kick:
			return err
		case <-srv.Context().Done():
			return nil
		}
	}
}

func unpackSeekInfo(envelope *cb.Envelope) (*ab.SeekInfo, error) {
	payload := &cb.Payload{}
	if err := proto.Unmarshal(envelope.Payload, payload); err != nil {
		return nil, err
	}
	seekInfo := &ab.SeekInfo{}
	if err := proto.Unmarshal(payload.Data, seekInfo); err != nil {
		return nil, err
	}
	return seekInfo, nil
}

// Start the MockDeliverServer on the given address and return the bound address
func (s *MockDeliverServer) Start(address string) string {
	return s.server.Start("MockDeliverServer", address, s.Creds, func(srv *grpc.Server) {
		pb.RegisterDeliverServer(srv, s)
	})
}

// Stop the MockDeliverServer and wait for completion.
func (s *MockDeliverServer) Stop() {
	s.server.Stop("MockDeliverServer")
}

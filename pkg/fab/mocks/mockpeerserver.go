/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/grpc"

	"github.com/fabric-stub/fabric-stub-go/pkg/util/test"
)

// MockPeerServer serves the endorser and deliver services on one address,
// as a peer does
type MockPeerServer struct {
	Endorser *MockEndorserServer
	Deliver  *MockDeliverServer

	server test.GRPCServer
}

// Start the MockPeerServer on the given address and return the bound address
func (s *MockPeerServer) Start(address string) string {
	return s.server.Start("MockPeerServer", address, nil, func(srv *grpc.Server) {
		pb.RegisterEndorserServer(srv, s.Endorser)
		pb.RegisterDeliverServer(srv, s.Deliver)
	})
}

// Stop the MockPeerServer and wait for completion.
func (s *MockPeerServer) Stop() {
	s.server.Stop("MockPeerServer")
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"context"
	"strconv"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/fabric-stub/fabric-stub-go/pkg/util/test"
)

const (
	qscc                = "qscc"
	qsccChainInfo       = "GetChainInfo"
	qsccBlockByNumber   = "GetBlockByNumber"
	mockEndorserSuccess = int32(common.Status_SUCCESS)
)

// MockEndorserServer mock endorser server to process endorsement proposals.
// Proposals for qscc are answered from Ledger when it is set.
type MockEndorserServer struct {
	Creds         credentials.TransportCredentials
	ProposalError error
	// ResponseStatus, when non-zero, is returned as the response status
	// with ResponseMessage
	ResponseStatus  int32
	ResponseMessage string
	Payload         []byte
	Results         []byte
	Ledger          *MockLedger

	mutex sync.Mutex
	calls []string

	server test.GRPCServer
}

// ProcessProposal mock implementation that returns success if error is not set
// error if it is
func (m *MockEndorserServer) ProcessProposal(ctx context.Context, signed *pb.SignedProposal) (*pb.ProposalResponse, error) {
	ccID, args, err := unpackProposal(signed)
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	if len(args) > 0 {
		m.calls = append(m.calls, ccID+"."+string(args[0]))
	}
	m.mutex.Unlock()

	if m.ProposalError != nil {
		return nil, m.ProposalError
	}

	if m.ResponseStatus != 0 && m.ResponseStatus != mockEndorserSuccess {
		return &pb.ProposalResponse{Response: &pb.Response{
			Status:  m.ResponseStatus,
			Message: m.ResponseMessage,
		}}, nil
	}

	payload := m.Payload
	if ccID == qscc && m.Ledger != nil {
		payload, err = m.queryLedger(args)
		if err != nil {
			return &pb.ProposalResponse{Response: &pb.Response{
				Status:  int32(common.Status_INTERNAL_SERVER_ERROR),
				Message: err.Error(),
			}}, nil
		}
	}

	return &pb.ProposalResponse{
		Response:    &pb.Response{Status: mockEndorserSuccess, Payload: payload},
		Endorsement: &pb.Endorsement{Endorser: []byte("endorser"), Signature: []byte("signature")},
		Payload:     NewProposalResponsePayload(ccID, mockEndorserSuccess, payload, m.Results),
	}, nil
}

func (m *MockEndorserServer) queryLedger(args [][]byte) ([]byte, error) {
	switch string(args[0]) {
	case qsccChainInfo:
		height := m.Ledger.Height()
		info := &common.BlockchainInfo{Height: height}
		if height > 0 {
			b, err := m.Ledger.Block(height - 1)
			if err != nil {
				return nil, err
			}
			info.CurrentBlockHash = HeaderHash(b.Header)
			info.PreviousBlockHash = b.Header.PreviousHash
		}
		return proto.Marshal(info)
	case qsccBlockByNumber:
		if len(args) < 3 {
			return nil, errors.New("incorrect number of arguments")
		}
		n, err := strconv.ParseUint(string(args[2]), 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse block number")
		}
		b, err := m.Ledger.Block(n)
		if err != nil {
			return nil, err
		}
		return proto.Marshal(b)
	default:
		return nil, errors.Errorf("requested function %s not found", args[0])
	}
}

// Calls returns the invoked "chaincode.function" pairs, in order
func (m *MockEndorserServer) Calls() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string(nil), m.calls...)
}

func unpackProposal(signed *pb.SignedProposal) (string, [][]byte, error) {
	proposal := &pb.Proposal{}
	if err := proto.Unmarshal(signed.ProposalBytes, proposal); err != nil {
		return "", nil, errors.Wrap(err, "unmarshal proposal failed")
	}
	ccPayload := &pb.ChaincodeProposalPayload{}
	if err := proto.Unmarshal(proposal.Payload, ccPayload); err != nil {
		return "", nil, errors.Wrap(err, "unmarshal chaincode proposal payload failed")
	}
	cis := &pb.ChaincodeInvocationSpec{}
	if err := proto.Unmarshal(ccPayload.Input, cis); err != nil {
		return "", nil, errors.Wrap(err, "unmarshal chaincode invocation spec failed")
	}
	spec := cis.GetChaincodeSpec()
	return spec.GetChaincodeId().GetName(), spec.GetInput().GetArgs(), nil
}

// Start the MockEndorserServer on the given address and return the bound address
func (m *MockEndorserServer) Start(address string) string {
	return m.server.Start("MockEndorserServer", address, m.Creds, func(srv *grpc.Server) {
		pb.RegisterEndorserServer(srv, m)
	})
}

// Stop the MockEndorserServer and wait for completion.
func (m *MockEndorserServer) Stop() {
	m.server.Stop("MockEndorserServer")
}

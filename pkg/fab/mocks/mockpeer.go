/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	reqContext "context"
	"sync"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/msp"
)

// MockPeer is an in-memory fab.Peer. Fields must be set before the peer
// is used concurrently.
type MockPeer struct {
	MockName string
	MockURL  string
	MockMSP  string

	// Response
	Status          int32
	Payload         []byte
	ResponseMessage string
	Results         []byte
	ChaincodeID     string
	// ProposalResponsePayload replaces the payload built from the fields above
	ProposalResponsePayload []byte

	// Endorser is the identity in the dummy endorsement used when Signer is nil
	Endorser []byte
	Signer   msp.Account

	Error error
	Delay time.Duration

	mutex sync.Mutex
	calls int
}

// NewMockPeer returns a peer of Org1MSP that answers with status 200.
func NewMockPeer(name string, url string) *MockPeer {
	return &MockPeer{MockName: name, MockURL: url, MockMSP: "Org1MSP", Status: 200}
}

// Name returns the mock name
func (p *MockPeer) Name() string {
	return p.MockName
}

// MSPID returns the mock MSP ID
func (p *MockPeer) MSPID() string {
	return p.MockMSP
}

// URL returns the mock URL
func (p *MockPeer) URL() string {
	return p.MockURL
}

// Calls returns the number of proposals received
func (p *MockPeer) Calls() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.calls
}

// ProcessTransactionProposal answers with the configured response, or
// Error, after Delay.
func (p *MockPeer) ProcessTransactionProposal(ctx reqContext.Context, request fab.ProcessProposalRequest) (*fab.TransactionProposalResponse, error) {
	if p.Delay > 0 {
		t := time.NewTimer(p.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mutex.Lock()
	p.calls++
	p.mutex.Unlock()

	if p.Error != nil {
		return nil, p.Error
	}

	payload := p.ProposalResponsePayload
	if len(payload) == 0 {
		payload = NewProposalResponsePayload(p.ChaincodeID, p.Status, p.Payload, p.Results)
	}

	endorsement, err := p.endorse(payload)
	if err != nil {
		return nil, err
	}

	return &fab.TransactionProposalResponse{
		ProposalResponse: &pb.ProposalResponse{
			Response:    &pb.Response{Status: p.Status, Message: p.ResponseMessage, Payload: p.Payload},
			Payload:     payload,
			Endorsement: endorsement,
		},
		Endorser: p.MockURL,
		Status:   p.Status,
	}, nil
}

// endorse signs payload||identity the way a peer signs its endorsement.
func (p *MockPeer) endorse(payload []byte) (*pb.Endorsement, error) {
	if p.Signer == nil {
		return &pb.Endorsement{Endorser: p.Endorser, Signature: []byte("signature")}, nil
	}

	identity, err := p.Signer.Identity()
	if err != nil {
		return nil, err
	}

	msg := make([]byte, 0, len(payload)+len(identity))
	msg = append(append(msg, payload...), identity...)
	sig, err := p.Signer.Sign(msg)
	if err != nil {
		return nil, err
	}
	return &pb.Endorsement{Endorser: identity, Signature: sig}, nil
}

// NewProposalResponsePayload marshals a ProposalResponsePayload carrying a
// ChaincodeAction with the given response and read/write set.
func NewProposalResponsePayload(ccID string, status int32, payload []byte, results []byte) []byte {
	action := &pb.ChaincodeAction{
		Results:  results,
		Response: &pb.Response{Status: status, Payload: payload},
	}
	if ccID != "" {
		action.ChaincodeId = &pb.ChaincodeID{Name: ccID}
	}

	return marshalOrPanic(&pb.ProposalResponsePayload{
		ProposalHash: []byte("proposal_hash"),
		Extension:    marshalOrPanic(action),
	})
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package endorsement

import (
	"context"
	"testing"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/mocks"
	"github.com/fabric-stub/fabric-stub-go/pkg/msp"
	"github.com/fabric-stub/fabric-stub-go/pkg/msp/test/mockmsp"
)

func newPeer(url string, payload, results string) *mocks.MockPeer {
	p := mocks.NewMockPeer(url, url)
	p.Payload = []byte(payload)
	p.Results = []byte(results)
	return p
}

func collect(t *testing.T, peers ...*mocks.MockPeer) []*fab.TransactionProposalResponse {
	var responses []*fab.TransactionProposalResponse
	for _, p := range peers {
		r, err := p.ProcessTransactionProposal(context.Background(), fab.ProcessProposalRequest{})
		if err != nil {
			responses = append(responses, &fab.TransactionProposalResponse{Endorser: p.URL(), Err: err})
			continue
		}
		responses = append(responses, r)
	}
	return responses
}

func TestAllAgree(t *testing.T) {
	a := New(collect(t,
		newPeer("peer0", "value", "rwset"),
		newPeer("peer1", "value", "rwset"),
		newPeer("peer2", "value", "rwset"),
	))

	assert.True(t, a.HasSuccess())
	assert.True(t, a.AllSuccess())
	assert.Len(t, a.Successes(), 3)
	assert.Empty(t, a.Failures())
	require.Len(t, a.Groups(), 1)
	assert.Len(t, a.Groups()[0].Responses, 3)
	assert.Equal(t, []byte("value"), a.Result())
	assert.NotNil(t, a.Payload())
	assert.NoError(t, a.Error(true))
	assert.NoError(t, a.Error(false))
}

func TestDivergentPayload(t *testing.T) {
	a := New(collect(t,
		newPeer("peer0", "value", "rwset"),
		newPeer("peer1", "value", "rwset"),
		newPeer("peer2", "other", "rwset"),
	))

	assert.False(t, a.HasSuccess())
	assert.False(t, a.AllSuccess())
	assert.Nil(t, a.Payload())
	assert.Nil(t, a.Result())

	err := a.Error(false)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.ConsensusFailure))
	assert.Contains(t, err.Error(), "payloads do not match")
}

func TestDivergentReadWriteSet(t *testing.T) {
	a := New(collect(t,
		newPeer("peer0", "value", "rwset-a"),
		newPeer("peer1", "value", "rwset-b"),
	))

	assert.False(t, a.HasSuccess())
	assert.Len(t, a.Groups(), 2)

	err := a.Error(false)
	assert.Contains(t, err.Error(), "2 consistency groups")
}

func TestPartialFailure(t *testing.T) {
	failing := newPeer("peer2", "", "")
	failing.Status = 500
	failing.ResponseMessage = "chaincode error"

	a := New(collect(t,
		newPeer("peer0", "value", "rwset"),
		newPeer("peer1", "value", "rwset"),
		failing,
	))

	assert.True(t, a.HasSuccess(), "successes agree")
	assert.False(t, a.AllSuccess(), "one peer failed")
	assert.Len(t, a.Failures(), 1)
	assert.NoError(t, a.Error(false))

	err := a.Error(true)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.ConsensusFailure))
	assert.Contains(t, err.Error(), "1 of 3 peers failed")
	assert.Contains(t, err.Error(), "peer2: failed, status 500: chaincode error")

	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Len(t, s.Details, 3)
}

func TestTransportFailure(t *testing.T) {
	down := newPeer("peer1", "", "")
	down.Error = errors.New("connection refused")

	a := New(collect(t, newPeer("peer0", "value", "rwset"), down))
	assert.True(t, a.HasSuccess())
	assert.False(t, a.AllSuccess())
	assert.Contains(t, a.Error(true).Error(), "peer1: failed, connection refused")
}

func TestNoSuccess(t *testing.T) {
	a := New(nil)
	assert.False(t, a.HasSuccess())
	assert.False(t, a.AllSuccess())
	assert.Contains(t, a.Error(false).Error(), "no peer endorsed the proposal")

	bad := newPeer("peer0", "", "")
	bad.Status = 404
	a = New(collect(t, bad))
	assert.False(t, a.HasSuccess())
	assert.Len(t, a.Failures(), 1)
}

func TestInvalidResponses(t *testing.T) {
	garbled := newPeer("peer1", "value", "rwset")
	garbled.ProposalResponsePayload = []byte("not a payload")

	a := New(collect(t, newPeer("peer0", "value", "rwset"), garbled))
	assert.False(t, a.HasSuccess())
	require.Len(t, a.Invalid(), 1)
	assert.Equal(t, "peer1", a.Invalid()[0].Response.Endorser)
	assert.Contains(t, a.Error(false).Error(), "1 invalid responses")

	responses := collect(t, newPeer("peer0", "value", "rwset"))
	responses[0].ProposalResponse.Endorsement = nil
	a = New(responses)
	assert.False(t, a.HasSuccess())
	assert.Len(t, a.Invalid(), 1)
}

func newSigningPeer(t *testing.T, url, mspID string) *mocks.MockPeer {
	id, err := mockmsp.NewIdentity(mspID, url)
	require.NoError(t, err)
	account, err := msp.NewAccount(mspID, id.CertPEM, id.Key)
	require.NoError(t, err)

	p := newPeer(url, "value", "rwset")
	p.MockMSP = mspID
	p.Signer = account
	return p
}

func TestVerifier(t *testing.T) {
	p0 := newSigningPeer(t, "peer0", "Org1MSP")
	p1 := newSigningPeer(t, "peer1", "Org2MSP")

	responses := collect(t, p0, p1)
	a := New(responses, WithVerifier(msp.NewDeserializer()))
	assert.True(t, a.AllSuccess())
	assert.Equal(t, []string{"Org1MSP", "Org2MSP"}, a.EndorsedMSPs())

	responses[1].ProposalResponse.Endorsement.Signature = responses[0].ProposalResponse.Endorsement.Signature
	a = New(responses, WithVerifier(msp.NewDeserializer()))
	assert.False(t, a.HasSuccess())
	require.Len(t, a.Invalid(), 1)
	assert.Contains(t, a.Invalid()[0].Reason.Error(), "verification failed")

	a = New(collect(t, p0, p1), WithVerifier(msp.NewDeserializer("Org1MSP")))
	assert.False(t, a.HasSuccess(), "Org2MSP is not trusted")
}

func TestPolicy(t *testing.T) {
	p0 := newSigningPeer(t, "peer0", "Org1MSP")
	p1 := newSigningPeer(t, "peer1", "Org2MSP")
	responses := collect(t, p0, p1)

	policy, err := ParsePolicy("Org1MSP && Org2MSP")
	require.NoError(t, err)
	assert.True(t, New(responses, WithPolicy(policy)).AllSuccess())

	policy, err = ParsePolicy("Org1MSP && Org3MSP")
	require.NoError(t, err)
	a := New(responses, WithPolicy(policy))
	assert.True(t, a.HasSuccess())
	assert.False(t, a.AllSuccess())
	assert.Contains(t, a.Error(true).Error(), "endorsement policy [Org1MSP && Org3MSP] not satisfied by Org1MSP,Org2MSP")
}

func TestParsePolicy(t *testing.T) {
	endorsed := map[string]bool{"Org1MSP": true, "Org2MSP": true}

	tests := []struct {
		expr     string
		expected bool
	}{
		{"Org1MSP", true},
		{"Org3MSP", false},
		{"Org1MSP && (Org2MSP || Org3MSP)", true},
		{"Org1MSP && Org3MSP", false},
		{"OutOf(2, 'Org1MSP.peer', 'Org2MSP.member', 'Org3MSP.member')", true},
		{"OutOf(3, 'Org1MSP.peer', 'Org2MSP.member', 'Org3MSP.member')", false},
		{"AND('Org1MSP.peer', OR('Org3MSP.member', 'Org2MSP.member'))", true},
		{"and('Org1MSP.member', 'Org3MSP.member')", false},
		{"OR(Org3MSP, OutOf(1, 'Org2MSP'))", true},
	}

	for _, tc := range tests {
		p, err := ParsePolicy(tc.expr)
		require.NoError(t, err, tc.expr)
		ok, err := p.Satisfied(endorsed)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.expected, ok, tc.expr)
	}

	for _, expr := range []string{"", "Org1MSP &&", "1 + 2", "OutOf('x', Org1MSP)", "OutOf(1)"} {
		_, err := ParsePolicy(expr)
		assert.Error(t, err, expr)
	}
}

func TestNilResponsesIgnored(t *testing.T) {
	responses := collect(t, newPeer("peer0", "value", "rwset"))
	responses = append(responses, nil)
	a := New(responses)
	assert.True(t, a.AllSuccess())
}

func TestChaincodeResponseMismatch(t *testing.T) {
	// identical proposal response payloads but different chaincode responses
	p0 := newPeer("peer0", "a", "rwset")
	p1 := newPeer("peer1", "a", "rwset")
	responses := collect(t, p0, p1)
	responses[1].ProposalResponse.Response = &pb.Response{Status: 200, Payload: []byte("b")}

	a := New(responses)
	assert.False(t, a.HasSuccess())
}

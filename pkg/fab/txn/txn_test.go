/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/Hyperledger-TWGC/tjfoc-gm/sm3"
	"github.com/golang/mock/gomock"
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	mockaccount "github.com/fabric-stub/fabric-stub-go/pkg/common/providers/test/mockmsp"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/cryptosuite"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/mocks"
	"github.com/fabric-stub/fabric-stub-go/pkg/msp/test/mockmsp"
)

const testChannel = "testchannel"

func testResource() *fab.ResourceDescriptor {
	return &fab.ResourceDescriptor{
		Name:        "asset",
		ChannelID:   testChannel,
		ChaincodeID: "basic",
		Endorsers:   []string{"peer0", "peer1"},
	}
}

func TestNewHeader(t *testing.T) {
	account := mockmsp.NewAccount("Org1MSP")
	creator, err := account.Identity()
	require.NoError(t, err)

	nonce := []byte("0123456789abcdef01234567")

	txh, err := NewHeader(account, testChannel, WithNonce(nonce))
	require.NoError(t, err)

	digest := sha256.Sum256(append(append([]byte{}, nonce...), creator...))
	assert.Equal(t, fab.TransactionID(hex.EncodeToString(digest[:])), txh.TransactionID())
	assert.Equal(t, creator, txh.Creator())
	assert.Equal(t, nonce, txh.Nonce())
	assert.Equal(t, testChannel, txh.ChannelID())

	txh2, err := NewHeader(account, testChannel)
	require.NoError(t, err)
	assert.Len(t, txh2.Nonce(), NonceSize)
	assert.NotEqual(t, txh.TransactionID(), txh2.TransactionID())
}

func TestNewHeaderSM3(t *testing.T) {
	account := mockmsp.NewAccount("Org1MSP")
	creator, err := account.Identity()
	require.NoError(t, err)

	nonce := []byte("nonce")
	txh, err := NewHeader(account, testChannel, WithNonce(nonce), WithHashOpts(cryptosuite.GetSM3Opts()))
	require.NoError(t, err)

	expected := sm3.Sm3Sum(append(append([]byte{}, nonce...), creator...))
	assert.Equal(t, fab.TransactionID(hex.EncodeToString(expected)), txh.TransactionID())
}

func TestNewHeaderExplicitCreator(t *testing.T) {
	other := mockmsp.NewAccount("Org2MSP")
	creator, err := other.Identity()
	require.NoError(t, err)

	txh, err := NewHeader(nil, testChannel, WithCreator(creator), WithNonce([]byte("n")))
	require.NoError(t, err)
	assert.Equal(t, creator, txh.Creator())
}

func TestNewHeaderInvalidAccount(t *testing.T) {
	_, err := NewHeader(nil, testChannel)
	assert.True(t, status.Is(err, status.PreconditionFailed))

	account := mockmsp.NewAccount("Org1MSP")
	account.IDErr = errors.New("no identity")
	_, err = NewHeader(account, testChannel)
	assert.True(t, status.Is(err, status.InvalidAccountType), "unexpected error: %v", err)

	_, err = NewHeader(nil, testChannel, WithCreator([]byte("not-an-identity")))
	assert.True(t, status.Is(err, status.InvalidAccountType), "unexpected error: %v", err)

	_, err = NewHeader(nil, testChannel, WithCreator([]byte{}))
	assert.True(t, status.Is(err, status.InvalidAccountType), "unexpected error: %v", err)
}

func TestCreateChaincodeInvokeProposal(t *testing.T) {
	account := mockmsp.NewAccount("Org1MSP")
	txh, err := NewHeader(account, testChannel)
	require.NoError(t, err)

	_, err = CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{Fcn: "Hello"})
	assert.True(t, status.Is(err, status.PreconditionFailed))

	_, err = CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{ChaincodeID: "cc"})
	assert.True(t, status.Is(err, status.PreconditionFailed))

	_, err = CreateChaincodeInvokeProposal(nil, fab.ChaincodeInvokeRequest{ChaincodeID: "cc", Fcn: "Hello"})
	assert.True(t, status.Is(err, status.PreconditionFailed))
}

func TestBuildProposal(t *testing.T) {
	account := mockmsp.NewAccount("Org1MSP")

	tp, signed, err := BuildProposal(account, testResource(), "transfer", []string{"a", "b", "10"})
	require.NoError(t, err)

	expectedSig, err := account.Sign(signed.ProposalBytes)
	require.NoError(t, err)
	assert.Equal(t, expectedSig, signed.Signature)

	prop := &pb.Proposal{}
	require.NoError(t, proto.Unmarshal(signed.ProposalBytes, prop))

	hdr := &common.Header{}
	require.NoError(t, proto.Unmarshal(prop.Header, hdr))

	chdr := &common.ChannelHeader{}
	require.NoError(t, proto.Unmarshal(hdr.ChannelHeader, chdr))
	assert.Equal(t, string(tp.TxnID), chdr.TxId)
	assert.Equal(t, testChannel, chdr.ChannelId)
	assert.Equal(t, int32(common.HeaderType_ENDORSER_TRANSACTION), chdr.Type)

	ext := &pb.ChaincodeHeaderExtension{}
	require.NoError(t, proto.Unmarshal(chdr.Extension, ext))
	assert.Equal(t, "basic", ext.ChaincodeId.Name)

	shdr := &common.SignatureHeader{}
	require.NoError(t, proto.Unmarshal(hdr.SignatureHeader, shdr))
	creator, _ := account.Identity()
	assert.Equal(t, creator, shdr.Creator)

	h := sha256.Sum256(append(append([]byte{}, shdr.Nonce...), shdr.Creator...))
	assert.Equal(t, hex.EncodeToString(h[:]), chdr.TxId, "transaction ID must be derived from the signature header")

	ccpp := &pb.ChaincodeProposalPayload{}
	require.NoError(t, proto.Unmarshal(prop.Payload, ccpp))
	cis := &pb.ChaincodeInvocationSpec{}
	require.NoError(t, proto.Unmarshal(ccpp.Input, cis))
	assert.Equal(t, pb.ChaincodeSpec_GOLANG, cis.ChaincodeSpec.Type)
	assert.Equal(t, [][]byte{[]byte("transfer"), []byte("a"), []byte("b"), []byte("10")}, cis.ChaincodeSpec.Input.Args)
}

func TestBuildProposalErrors(t *testing.T) {
	account := mockmsp.NewAccount("Org1MSP")

	_, _, err := BuildProposal(account, nil, "m", nil)
	assert.True(t, status.Is(err, status.PreconditionFailed))

	_, _, err = BuildProposal(account, testResource(), "", nil)
	assert.True(t, status.Is(err, status.PreconditionFailed))

	r := testResource()
	r.ChaincodeLang = "COBOL"
	_, _, err = BuildProposal(account, r, "m", nil)
	assert.True(t, status.Is(err, status.PreconditionFailed))

	r.ChaincodeLang = "NODE"
	_, _, err = BuildProposal(account, r, "m", nil)
	assert.NoError(t, err)

	account.SignErr = errors.New("hsm offline")
	_, _, err = BuildProposal(account, testResource(), "m", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "hsm offline")
}

func TestSendProposal(t *testing.T) {
	account := mockmsp.NewAccount("Org1MSP")
	_, signed, err := BuildProposal(account, testResource(), "query", nil)
	require.NoError(t, err)

	peer1 := mocks.NewMockPeer("peer1", "grpcs://peer1:7051")
	peer1.Payload = []byte("A")
	dup := mocks.NewMockPeer("peer1-dup", "grpcs://peer1:7051")
	peer2 := mocks.NewMockPeer("peer2", "grpcs://peer2:7051")
	peer2.Error = errors.New("connection refused")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	responses := SendProposal(ctx, signed, []fab.ProposalProcessor{peer1, dup, peer2, nil})
	require.Len(t, responses, 2)

	assert.Equal(t, 1, peer1.Calls())
	assert.Equal(t, 0, dup.Calls())
	assert.Equal(t, 1, peer2.Calls())

	assert.NoError(t, responses[0].Err)
	assert.Equal(t, []byte("A"), responses[0].ProposalResponse.Response.Payload)

	assert.EqualError(t, responses[1].Err, "connection refused")
	assert.Equal(t, "grpcs://peer2:7051", responses[1].Endorser)
	assert.Nil(t, responses[1].ProposalResponse)
}

func endorse(t *testing.T, tp *fab.TransactionProposal, peers ...*mocks.MockPeer) []*fab.TransactionProposalResponse {
	var responses []*fab.TransactionProposalResponse
	for _, p := range peers {
		r, err := p.ProcessTransactionProposal(context.Background(), fab.ProcessProposalRequest{})
		require.NoError(t, err)
		responses = append(responses, r)
	}
	return responses
}

func TestBuildEndorserPayload(t *testing.T) {
	account := mockmsp.NewAccount("Org1MSP")
	tp, _, err := BuildProposal(account, testResource(), "transfer", []string{"a"})
	require.NoError(t, err)

	peer1 := mocks.NewMockPeer("peer1", "peer1:7051")
	peer1.Results = []byte("rwset")
	peer1.Endorser = []byte("endorser1")
	peer2 := mocks.NewMockPeer("peer2", "peer2:7051")
	peer2.Results = []byte("rwset")
	peer2.Endorser = []byte("endorser2")

	responses := endorse(t, tp, peer1, peer2)

	payloadBytes, err := BuildEndorserPayload(tp, responses)
	require.NoError(t, err)

	payload := &common.Payload{}
	require.NoError(t, proto.Unmarshal(payloadBytes, payload))

	hdr := &common.Header{}
	require.NoError(t, proto.Unmarshal(tp.Header, hdr))
	assert.True(t, proto.Equal(hdr, payload.Header))

	tx := &pb.Transaction{}
	require.NoError(t, proto.Unmarshal(payload.Data, tx))
	require.Len(t, tx.Actions, 1)
	assert.Equal(t, hdr.SignatureHeader, tx.Actions[0].Header)

	ccap := &pb.ChaincodeActionPayload{}
	require.NoError(t, proto.Unmarshal(tx.Actions[0].Payload, ccap))
	assert.Equal(t, responses[0].ProposalResponse.Payload, ccap.Action.ProposalResponsePayload)
	require.Len(t, ccap.Action.Endorsements, 2)
	assert.Equal(t, []byte("endorser1"), ccap.Action.Endorsements[0].Endorser)
	assert.Equal(t, []byte("endorser2"), ccap.Action.Endorsements[1].Endorser)

	// same inputs, same bytes
	again, err := BuildEndorserPayload(tp, responses)
	require.NoError(t, err)
	assert.Equal(t, payloadBytes, again)
}

func TestBuildEndorserPayloadErrors(t *testing.T) {
	account := mockmsp.NewAccount("Org1MSP")
	tp, _, err := BuildProposal(account, testResource(), "transfer", nil)
	require.NoError(t, err)

	_, err = BuildEndorserPayload(tp, nil)
	assert.True(t, status.Is(err, status.PreconditionFailed))

	peer1 := mocks.NewMockPeer("peer1", "peer1:7051")
	peer1.Results = []byte("rwset-1")
	peer2 := mocks.NewMockPeer("peer2", "peer2:7051")
	peer2.Results = []byte("rwset-2")
	_, err = BuildEndorserPayload(tp, endorse(t, tp, peer1, peer2))
	assert.True(t, status.Is(err, status.ConsensusFailure))

	failing := mocks.NewMockPeer("peer3", "peer3:7051")
	failing.Status = 500
	_, err = BuildEndorserPayload(tp, endorse(t, tp, failing))
	assert.True(t, status.Is(err, status.ConsensusFailure))

	_, err = BuildEndorserPayload(tp, []*fab.TransactionProposalResponse{{Endorser: "peer4", Err: errors.New("down")}})
	assert.True(t, status.Is(err, status.ConsensusFailure))
}

func TestSignEnvelope(t *testing.T) {
	account := mockmsp.NewAccount("Org1MSP")

	env, err := SignEnvelope(account, []byte("payload"))
	require.NoError(t, err)
	expected, _ := account.Sign([]byte("payload"))
	assert.Equal(t, expected, env.Signature)
	assert.Equal(t, []byte("payload"), env.Payload)

	_, err = SignEnvelope(nil, []byte("payload"))
	assert.True(t, status.Is(err, status.PreconditionFailed))

	_, err = SignEnvelope(account, nil)
	assert.True(t, status.Is(err, status.PreconditionFailed))
}

func TestBuildProposalSignsProposalBytes(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	identity, err := mockmsp.NewAccount("Org1MSP").Identity()
	require.NoError(t, err)

	var signed []byte
	account := mockaccount.NewMockAccount(mockCtrl)
	account.EXPECT().Identity().Return(identity, nil).Times(1)
	account.EXPECT().Sign(gomock.Any()).DoAndReturn(func(msg []byte) ([]byte, error) {
		signed = msg
		return []byte("sig"), nil
	}).Times(1)

	_, sp, err := BuildProposal(account, testResource(), "transfer", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, signed, sp.ProposalBytes)
	assert.Equal(t, []byte("sig"), sp.Signature)
}

func TestSignEnvelopeSignError(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	account := mockaccount.NewMockAccount(mockCtrl)
	account.EXPECT().Sign([]byte("payload")).Return(nil, errors.New("key unavailable"))

	_, err := SignEnvelope(account, []byte("payload"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key unavailable")
}

func TestBroadcast(t *testing.T) {
	env := &fab.SignedEnvelope{Payload: []byte("p"), Signature: []byte("s")}

	bad := mocks.NewMockOrderer("orderer0:7050")
	bad.Error = errors.New("service unavailable")
	good := mocks.NewMockOrderer("orderer1:7050")

	for i := 0; i < 10; i++ {
		resp, err := Broadcast(context.Background(), env, []fab.Orderer{bad, good})
		require.NoError(t, err)
		assert.Equal(t, "orderer1:7050", resp.Orderer)
	}
	assert.Len(t, good.Envelopes(), 10)
}

func TestBroadcastAllFail(t *testing.T) {
	env := &fab.SignedEnvelope{Payload: []byte("p"), Signature: []byte("s")}

	o1 := mocks.NewMockOrderer("orderer0:7050")
	o1.Error = errors.New("down")
	o2 := mocks.NewMockOrderer("orderer1:7050")
	o2.Error = errors.New("forbidden")

	_, err := Broadcast(context.Background(), env, []fab.Orderer{o1, o2})
	require.Error(t, err)
	assert.True(t, status.Is(err, status.OrdererUnavailable))
	assert.Contains(t, err.Error(), "down")
	assert.Contains(t, err.Error(), "forbidden")
	assert.Equal(t, 1, o1.Calls())
	assert.Equal(t, 1, o2.Calls())

	_, err = Broadcast(context.Background(), env, nil)
	assert.True(t, status.Is(err, status.OrdererUnavailable))
}

func TestBroadcastShuffles(t *testing.T) {
	env := &fab.SignedEnvelope{Payload: []byte("p"), Signature: []byte("s")}
	o1 := mocks.NewMockOrderer("orderer0:7050")
	o2 := mocks.NewMockOrderer("orderer1:7050")

	for i := 0; i < 100; i++ {
		_, err := Broadcast(context.Background(), env, []fab.Orderer{o1, o2})
		require.NoError(t, err)
	}
	assert.True(t, o1.Calls() > 0 && o2.Calls() > 0, "both orderers should be picked first at some point")
	assert.Equal(t, 100, o1.Calls()+o2.Calls())
}

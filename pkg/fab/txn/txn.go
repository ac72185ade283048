/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package txn enables creating, endorsing and sending transactions to Fabric peers and orderers.
package txn

import (
	"bytes"
	reqContext "context"
	"math/rand"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/multi"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
)

var logger = logging.NewLogger("fabstub/fab")

// New create a transaction with proposal response, following the endorsement policy.
func New(request fab.TransactionRequest) (*fab.Transaction, error) {
	if request.Proposal == nil || request.Proposal.Proposal == nil {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "proposal is required")
	}
	if len(request.ProposalResponses) == 0 {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "at least one proposal response is necessary")
	}

	proposal := request.Proposal

	// the original header
	hdr := &common.Header{}
	if err := proto.Unmarshal(proposal.Header, hdr); err != nil {
		return nil, encodingError(err, "unmarshal proposal header failed")
	}

	// the original payload
	pPayl := &pb.ChaincodeProposalPayload{}
	if err := proto.Unmarshal(proposal.Payload, pPayl); err != nil {
		return nil, encodingError(err, "unmarshal proposal payload failed")
	}

	var responsePayload []byte
	endorsements := make([]*pb.Endorsement, 0, len(request.ProposalResponses))
	for _, r := range request.ProposalResponses {
		if r == nil || r.Err != nil || r.ProposalResponse == nil || r.ProposalResponse.Response == nil {
			return nil, status.Newf(status.EndorserClientStatus, status.ConsensusFailure, "proposal response from %s is missing", endorserOf(r))
		}
		if r.ProposalResponse.Response.Status < 200 || r.ProposalResponse.Response.Status >= 400 {
			return nil, status.Newf(status.EndorserClientStatus, status.ConsensusFailure, "proposal response was not successful, error code %d, msg %s", r.ProposalResponse.Response.Status, r.ProposalResponse.Response.Message)
		}
		if responsePayload == nil {
			responsePayload = r.ProposalResponse.Payload
		} else if !bytes.Equal(responsePayload, r.ProposalResponse.Payload) {
			return nil, status.Newf(status.EndorserClientStatus, status.ConsensusFailure, "proposal response payloads are not the same")
		}
		if r.ProposalResponse.Endorsement == nil {
			return nil, status.Newf(status.EndorserClientStatus, status.MissingEndorsement, "proposal response from %s carries no endorsement", r.Endorser)
		}
		endorsements = append(endorsements, r.ProposalResponse.Endorsement)
	}

	cea := &pb.ChaincodeEndorsedAction{ProposalResponsePayload: responsePayload, Endorsements: endorsements}

	// the transient map never leaves the client
	propPayloadBytes, err := proto.Marshal(&pb.ChaincodeProposalPayload{Input: pPayl.Input})
	if err != nil {
		return nil, encodingError(err, "marshal proposal payload failed")
	}

	capBytes, err := proto.Marshal(&pb.ChaincodeActionPayload{ChaincodeProposalPayload: propPayloadBytes, Action: cea})
	if err != nil {
		return nil, encodingError(err, "marshal chaincode action payload failed")
	}

	taa := &pb.TransactionAction{Header: hdr.SignatureHeader, Payload: capBytes}

	return &fab.Transaction{
		Transaction: &pb.Transaction{Actions: []*pb.TransactionAction{taa}},
		Proposal:    proposal,
	}, nil
}

// BuildEndorserPayload re-encodes the endorsed responses into the payload
// bytes the ordering service expects. Nothing is signed here.
func BuildEndorserPayload(proposal *fab.TransactionProposal, responses []*fab.TransactionProposalResponse) ([]byte, error) {
	tx, err := New(fab.TransactionRequest{Proposal: proposal, ProposalResponses: responses})
	if err != nil {
		return nil, err
	}

	hdr := &common.Header{}
	if err := proto.Unmarshal(tx.Proposal.Header, hdr); err != nil {
		return nil, encodingError(err, "unmarshal proposal header failed")
	}

	txBytes, err := proto.Marshal(tx.Transaction)
	if err != nil {
		return nil, encodingError(err, "marshal transaction failed")
	}

	payloadBytes, err := proto.Marshal(&common.Payload{Header: hdr, Data: txBytes})
	if err != nil {
		return nil, encodingError(err, "marshal payload failed")
	}
	return payloadBytes, nil
}

// Broadcast sends the envelope to the orderers in random order until one
// accepts it. When every orderer fails the error carries each failure.
func Broadcast(reqCtx reqContext.Context, envelope *fab.SignedEnvelope, orderers []fab.Orderer) (*fab.TransactionResponse, error) {
	if len(orderers) == 0 {
		return nil, status.Newf(status.OrdererClientStatus, status.OrdererUnavailable, "orderers not set")
	}
	if envelope == nil {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "envelope is required")
	}

	var errs error
	for _, i := range rand.Perm(len(orderers)) {
		if err := reqCtx.Err(); err != nil {
			errs = multi.Append(errs, err)
			break
		}

		o := orderers[i]
		logger.Debugf("Broadcasting envelope to orderer :%s", o.URL())
		if _, err := o.SendBroadcast(reqCtx, envelope); err != nil {
			logger.Warnf("Broadcast to orderer %s failed: %s", o.URL(), err)
			errs = multi.Append(errs, errors.WithMessagef(err, "calling orderer '%s' failed", o.URL()))
			continue
		}

		logger.Debugf("Receive Success Response from orderer %s", o.URL())
		return &fab.TransactionResponse{Orderer: o.URL()}, nil
	}

	return nil, status.New(status.OrdererClientStatus, status.OrdererUnavailable.ToInt32(),
		errors.WithMessage(errs, "all orderers failed").Error(), []interface{}{errs})
}

func endorserOf(r *fab.TransactionProposalResponse) string {
	if r == nil {
		return "<nil>"
	}
	return r.Endorser
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	reqContext "context"

	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// TransactionID is the hex txid shared by a proposal and the envelope built
// from its endorsements.
type TransactionID string

// EmptyTransactionID is returned alongside errors raised before a txid exists.
const EmptyTransactionID TransactionID = ""

// TransactionHeader is the identity-bound metadata of one transaction.
type TransactionHeader interface {
	TransactionID() TransactionID
	ChannelID() string
	Creator() []byte
	Nonce() []byte
}

// ChaincodeInvokeRequest names the chaincode function to simulate and its
// arguments. TransientMap is passed to the endorsers but never ordered.
type ChaincodeInvokeRequest struct {
	ChaincodeID  string
	Lang         pb.ChaincodeSpec_Type
	Fcn          string
	Args         [][]byte
	TransientMap map[string][]byte
}

// TransactionProposal is an unsigned proposal together with its txid.
type TransactionProposal struct {
	TxnID TransactionID
	*pb.Proposal
}

// ProcessProposalRequest carries a signed proposal to an endorser.
type ProcessProposalRequest struct {
	SignedProposal *pb.SignedProposal
}

// ProposalProcessor is an endorser: it simulates a signed proposal and
// returns its endorsed response.
type ProposalProcessor interface {
	ProcessTransactionProposal(reqContext.Context, ProcessProposalRequest) (*TransactionProposalResponse, error)
}

// TransactionProposalResponse is one endorser's answer. When the endorser
// could not be reached, Err is set and ProposalResponse is nil.
type TransactionProposalResponse struct {
	*pb.ProposalResponse

	Endorser        string
	Status          int32
	ChaincodeStatus int32
	Err             error
}

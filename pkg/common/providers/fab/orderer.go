/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	reqContext "context"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// Orderer accepts signed transaction envelopes for ordering. A nil error
// means the orderer acknowledged the envelope with a SUCCESS status; it
// says nothing about whether the transaction will commit as valid.
type Orderer interface {
	URL() string
	SendBroadcast(ctx reqContext.Context, envelope *SignedEnvelope) (*common.Status, error)
}

// SignedEnvelope is a marshalled common.Payload and the creator's signature
// over it.
type SignedEnvelope struct {
	Payload   []byte
	Signature []byte
}

// TransactionRequest is a proposal with the endorser responses collected
// for it.
type TransactionRequest struct {
	Proposal          *TransactionProposal
	ProposalResponses []*TransactionProposalResponse
}

// Transaction is the endorsed transaction ready to be wrapped in an
// envelope.
type Transaction struct {
	Proposal    *TransactionProposal
	Transaction *pb.Transaction
}

// TransactionResponse names the orderer that accepted a broadcast.
type TransactionResponse struct {
	Orderer string
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package invoke provides the handlers that carry a call or a transaction
// from proposal to result.
package invoke

import (
	reqContext "context"

	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/msp"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/block"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/endorsement"
	"github.com/fabric-stub/fabric-stub-go/pkg/fabsdk/metrics"
)

// BlockManager provides blocks by number and the current block height
type BlockManager interface {
	GetBlock(ctx reqContext.Context, number uint64) (*block.Block, error)
	BlockHeight(ctx reqContext.Context) (uint64, error)
}

// Committer submits a signed envelope and waits for its commit event
type Committer interface {
	SubmitAndWait(ctx reqContext.Context, envelope *fab.SignedEnvelope, txID string) (*fab.TxStatusEvent, error)
}

// TransactionContext holds the collaborators supplied with every request
type TransactionContext struct {
	Account      msp.Account
	BlockManager BlockManager
	Resource     *fab.ResourceDescriptor
}

// Request contains the method and arguments to invoke on the resource's chaincode
type Request struct {
	Method string
	Args   []string
}

// Response contains the result of a call or transaction
type Response struct {
	Payload          []byte
	TransactionID    fab.TransactionID
	TxValidationCode pb.TxValidationCode
	BlockNumber      uint64
	Proposal         *fab.TransactionProposal
	Responses        []*fab.TransactionProposalResponse
}

// Handler for chaining transaction executions
type Handler interface {
	Handle(requestContext *RequestContext, clientContext *ClientContext)
}

// ClientContext contains the services shared by all requests
type ClientContext struct {
	Peers        fab.PeerResolver
	Committer    Committer
	HashOpts     core.HashOpts
	AnalyzerOpts []endorsement.Opt
	Metrics      *metrics.ClientMetrics
}

// RequestContext contains the request, its context and the response built up by the handlers
type RequestContext struct {
	Request     Request
	TxContext   TransactionContext
	Response    Response
	Error       error
	Ctx         reqContext.Context
	Targets     []fab.Peer
	Endorsement *endorsement.Analyzer
}

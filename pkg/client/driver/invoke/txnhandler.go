/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	reqContext "context"
	"reflect"

	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/endorsement"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/peer"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/txn"
)

var logger = logging.NewLogger("fabstub/client")

//ValidationHandler checks that the request carries everything needed before any network call
type ValidationHandler struct {
	next Handler
}

//Handle validates the request
func (h *ValidationHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	txCtx := requestContext.TxContext
	switch {
	case isNil(txCtx.Account):
		requestContext.Error = status.Newf(status.ClientStatus, status.PreconditionFailed, "account is required")
		return
	case isNil(txCtx.BlockManager):
		requestContext.Error = status.Newf(status.ClientStatus, status.PreconditionFailed, "block manager is required")
		return
	case txCtx.Resource == nil:
		requestContext.Error = status.Newf(status.ClientStatus, status.PreconditionFailed, "resource descriptor is required")
		return
	case requestContext.Request.Method == "":
		requestContext.Error = status.Newf(status.ClientStatus, status.PreconditionFailed, "method is required")
		return
	}

	if requestContext.Ctx == nil {
		requestContext.Ctx = reqContext.Background()
	}

	//Delegate to next step if any
	if h.next != nil {
		h.next.Handle(requestContext, clientContext)
	}
}

// isNil also reports typed nil pointers held in an interface
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

//ProposalProcessorHandler resolves the resource's endorsers to peers
type ProposalProcessorHandler struct {
	next Handler
}

//Handle selects proposal processors
func (h *ProposalProcessorHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	if len(requestContext.Targets) == 0 {
		resource := requestContext.TxContext.Resource
		if clientContext.Peers == nil {
			requestContext.Error = status.Newf(status.ClientStatus, status.PreconditionFailed, "peer resolver is required")
			return
		}

		targets, err := clientContext.Peers.Peers(resource.Endorsers)
		if err != nil {
			requestContext.Error = errors.WithMessagef(err, "failed to resolve endorsers of resource [%s]", resource.Name)
			return
		}
		if len(targets) == 0 {
			requestContext.Error = status.New(status.ClientStatus, status.NoPeersFound.ToInt32(),
				"resource ["+resource.Name+"] has no endorsing peers", nil)
			return
		}
		requestContext.Targets = targets
	}

	//Delegate to next step if any
	if h.next != nil {
		h.next.Handle(requestContext, clientContext)
	}
}

//EndorsementHandler builds, signs and sends the proposal to the targets
type EndorsementHandler struct {
	next Handler
}

//Handle for endorsing transactions
func (e *EndorsementHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	txCtx := requestContext.TxContext

	var opts []txn.HeaderOpt
	if clientContext.HashOpts != nil {
		opts = append(opts, txn.WithHashOpts(clientContext.HashOpts))
	}

	proposal, signedProposal, err := txn.BuildProposal(txCtx.Account, txCtx.Resource, requestContext.Request.Method, requestContext.Request.Args, opts...)
	if err != nil {
		requestContext.Error = err
		return
	}

	requestContext.Response.Proposal = proposal
	requestContext.Response.TransactionID = proposal.TxnID

	ctx := requestContext.Ctx
	if wait := txCtx.Resource.ProposalWaitTime; wait > 0 {
		var cancel reqContext.CancelFunc
		ctx, cancel = reqContext.WithTimeout(ctx, wait)
		defer cancel()
	}

	logger.Debugf("Sending proposal [%s] to %d endorsers", proposal.TxnID, len(requestContext.Targets))
	requestContext.Response.Responses = txn.SendProposal(ctx, signedProposal, peer.PeersToTxnProcessors(requestContext.Targets))

	//Delegate to next step if any
	if e.next != nil {
		e.next.Handle(requestContext, clientContext)
	}
}

//EndorsementValidationHandler checks that the endorsements reach consensus
type EndorsementValidationHandler struct {
	next       Handler
	requireAll bool
}

//Handle for analyzing proposal responses
func (f *EndorsementValidationHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	opts := clientContext.AnalyzerOpts
	if expr := requestContext.TxContext.Resource.EndorsementPolicy; expr != "" {
		policy, err := endorsement.ParsePolicy(expr)
		if err != nil {
			requestContext.Error = status.Newf(status.ClientStatus, status.PreconditionFailed, "resource [%s]: %s", requestContext.TxContext.Resource.Name, err)
			return
		}
		opts = append(append([]endorsement.Opt(nil), opts...), endorsement.WithPolicy(policy))
	}

	analyzer := endorsement.New(requestContext.Response.Responses, opts...)
	requestContext.Endorsement = analyzer

	if err := analyzer.Error(f.requireAll); err != nil {
		requestContext.Error = err
		return
	}

	requestContext.Response.Payload = analyzer.Result()

	//Delegate to next step if any
	if f.next != nil {
		f.next.Handle(requestContext, clientContext)
	}
}

//CommitTxHandler for committing transactions
type CommitTxHandler struct {
	next Handler
}

//Handle builds the envelope from the agreed endorsements and waits for it to commit
func (c *CommitTxHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	if clientContext.Committer == nil {
		requestContext.Error = status.Newf(status.ClientStatus, status.PreconditionFailed, "committer is required")
		return
	}

	txID := string(requestContext.Response.TransactionID)

	payload, err := txn.BuildEndorserPayload(requestContext.Response.Proposal, requestContext.Endorsement.Successes())
	if err != nil {
		requestContext.Error = err
		return
	}

	envelope, err := txn.SignEnvelope(requestContext.TxContext.Account, payload)
	if err != nil {
		requestContext.Error = err
		return
	}

	event, err := clientContext.Committer.SubmitAndWait(requestContext.Ctx, envelope, txID)
	if event != nil {
		requestContext.Response.TxValidationCode = event.TxValidationCode
		requestContext.Response.BlockNumber = event.BlockNumber
	}
	if err != nil {
		requestContext.Error = err
		return
	}

	//Delegate to next step if any
	if c.next != nil {
		c.next.Handle(requestContext, clientContext)
	}
}

//VerifyTxHandler checks that the block named by the commit event holds the transaction
type VerifyTxHandler struct {
	next Handler
}

//Handle fetches the committed block and looks for the transaction in it
func (v *VerifyTxHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	txID := string(requestContext.Response.TransactionID)
	blockNum := requestContext.Response.BlockNumber

	b, err := requestContext.TxContext.BlockManager.GetBlock(requestContext.Ctx, blockNum)
	if err != nil {
		requestContext.Error = errors.WithMessagef(err, "unable to fetch block %d to verify transaction [%s]", blockNum, txID)
		return
	}

	if !b.HasTransaction(txID) {
		if clientContext.Metrics != nil {
			clientContext.Metrics.VerificationFailures.Add(1)
		}
		logger.Errorf("Commit event placed transaction [%s] in block %d but the block does not contain it", txID, blockNum)
		requestContext.Error = status.Newf(status.ClientStatus, status.OnChainVerificationFailed,
			"transaction [%s] not found in block %d", txID, blockNum)
		return
	}

	//Delegate to next step if any
	if v.next != nil {
		v.next.Handle(requestContext, clientContext)
	}
}

//NewCallHandler returns a handler that endorses a read-only call and requires
//the successful endorsements to agree
func NewCallHandler(next ...Handler) Handler {
	return NewValidationHandler(
		NewProposalProcessorHandler(
			NewEndorsementHandler(
				NewEndorsementValidationHandler(false, next...),
			),
		),
	)
}

//NewTransactionHandler returns a handler that endorses, orders, commits and
//verifies a transaction. Every targeted endorser must agree.
func NewTransactionHandler(next ...Handler) Handler {
	return NewValidationHandler(
		NewProposalProcessorHandler(
			NewEndorsementHandler(
				NewEndorsementValidationHandler(true,
					NewCommitHandler(
						NewVerifyTxHandler(next...),
					),
				),
			),
		),
	)
}

//NewValidationHandler returns a handler that validates the request
func NewValidationHandler(next ...Handler) *ValidationHandler {
	return &ValidationHandler{next: getNext(next)}
}

//NewProposalProcessorHandler returns a handler that selects proposal processors
func NewProposalProcessorHandler(next ...Handler) *ProposalProcessorHandler {
	return &ProposalProcessorHandler{next: getNext(next)}
}

//NewEndorsementHandler returns a handler that endorses a transaction proposal
func NewEndorsementHandler(next ...Handler) *EndorsementHandler {
	return &EndorsementHandler{next: getNext(next)}
}

//NewEndorsementValidationHandler returns a handler that validates an endorsement
func NewEndorsementValidationHandler(requireAll bool, next ...Handler) *EndorsementValidationHandler {
	return &EndorsementValidationHandler{next: getNext(next), requireAll: requireAll}
}

//NewCommitHandler returns a handler that commits transaction propsal responses
func NewCommitHandler(next ...Handler) *CommitTxHandler {
	return &CommitTxHandler{next: getNext(next)}
}

//NewVerifyTxHandler returns a handler that verifies a committed transaction on-chain
func NewVerifyTxHandler(next ...Handler) *VerifyTxHandler {
	return &VerifyTxHandler{next: getNext(next)}
}

func getNext(next []Handler) Handler {
	if len(next) > 0 {
		return next[0]
	}
	return nil
}

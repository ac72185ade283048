/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package channel queries the ledger of a channel through the query system
// chaincode (qscc) of its peers.
package channel

import (
	reqContext "context"
	"fmt"
	"strconv"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/multi"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/retry"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/msp"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/txn"
)

var logger = logging.NewLogger("fabstub/fab")

// Ledger is a client that provides access to the underlying ledger of a channel.
// Each query is sent to the targets in order until one of them answers.
type Ledger struct {
	chName    string
	account   msp.Account
	targets   []fab.ProposalProcessor
	retryOpts retry.Opts
	hashOpts  core.HashOpts
}

// Option configures the Ledger
type Option func(*Ledger)

// WithRetry sets the retry options applied when every target failed with a
// transient error
func WithRetry(opts retry.Opts) Option {
	return func(l *Ledger) {
		l.retryOpts = opts
	}
}

// WithHashOpts sets the hash used for query transaction IDs
func WithHashOpts(opts core.HashOpts) Option {
	return func(l *Ledger) {
		l.hashOpts = opts
	}
}

// NewLedger constructs a Ledger client for the named channel. Queries are
// signed with account.
func NewLedger(chName string, account msp.Account, targets []fab.ProposalProcessor, opts ...Option) (*Ledger, error) {
	if chName == "" {
		return nil, errors.New("channel name is required")
	}
	if account == nil {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "account is required")
	}
	if len(targets) == 0 {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "at least one target is required")
	}

	l := &Ledger{
		chName:    chName,
		account:   account,
		targets:   targets,
		retryOpts: retry.DefaultOpts,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// QueryInfo queries for various useful information on the state of the channel
// (height, current block hash).
func (c *Ledger) QueryInfo(reqCtx reqContext.Context) (*common.BlockchainInfo, error) {
	logger.Debug("queryInfo - start")

	payload, err := c.query(reqCtx, qsccRequest("GetChainInfo", c.chName))
	if err != nil {
		return nil, err
	}

	response := &common.BlockchainInfo{}
	if err := proto.Unmarshal(payload, response); err != nil {
		return nil, errors.Wrap(err, "unmarshal of blockchain info failed")
	}
	return response, nil
}

// QueryBlock queries the ledger for Block by block number.
// blockNumber: The number which is the ID of the Block.
// It returns the marshalled block.
func (c *Ledger) QueryBlock(reqCtx reqContext.Context, blockNumber uint64) ([]byte, error) {
	return c.query(reqCtx, qsccRequest("GetBlockByNumber", c.chName, strconv.FormatUint(blockNumber, 10)))
}

// BlockNumber returns the number of the latest block, which is one less than
// the ledger height.
func (c *Ledger) BlockNumber(reqCtx reqContext.Context) (uint64, error) {
	info, err := c.QueryInfo(reqCtx)
	if err != nil {
		return 0, err
	}
	if info.Height == 0 {
		return 0, errors.New("ledger is empty")
	}
	return info.Height - 1, nil
}

// BlockByNumber returns the marshalled block with the given number
func (c *Ledger) BlockByNumber(reqCtx reqContext.Context, number uint64) ([]byte, error) {
	return c.QueryBlock(reqCtx, number)
}

// qsccRequest builds a query system chaincode invocation. qscc takes the
// channel name as its first argument.
func qsccRequest(fcn string, args ...string) fab.ChaincodeInvokeRequest {
	request := fab.ChaincodeInvokeRequest{ChaincodeID: "qscc", Fcn: fcn}
	for _, arg := range args {
		request.Args = append(request.Args, []byte(arg))
	}
	return request
}

func (c *Ledger) query(reqCtx reqContext.Context, request fab.ChaincodeInvokeRequest) ([]byte, error) {
	var payload []byte
	err := retry.Invoke(reqCtx, retry.New(c.retryOpts), func() error {
		var err error
		payload, err = c.queryTargets(reqCtx, request)
		return err
	})
	return payload, err
}

func (c *Ledger) queryTargets(reqCtx reqContext.Context, request fab.ChaincodeInvokeRequest) ([]byte, error) {
	signedProposal, err := c.signedProposal(request)
	if err != nil {
		return nil, err
	}

	var errs multi.Errors
	for _, target := range c.targets {
		payload, err := queryTarget(reqCtx, target, signedProposal)
		if err == nil {
			return payload, nil
		}
		logger.Debugf("%s query failed on target %v: %s", request.Fcn, target, err)
		errs = append(errs, err)

		if reqCtx.Err() != nil {
			break
		}
	}
	return nil, errs
}

func (c *Ledger) signedProposal(request fab.ChaincodeInvokeRequest) (*pb.SignedProposal, error) {
	var opts []txn.HeaderOpt
	if c.hashOpts != nil {
		opts = append(opts, txn.WithHashOpts(c.hashOpts))
	}

	txh, err := txn.NewHeader(c.account, c.chName, opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "creation of transaction header failed")
	}

	tp, err := txn.CreateChaincodeInvokeProposal(txh, request)
	if err != nil {
		return nil, errors.WithMessage(err, "creation of qscc proposal failed")
	}

	return txn.SignProposal(c.account, tp.Proposal)
}

func queryTarget(reqCtx reqContext.Context, target fab.ProposalProcessor, signedProposal *pb.SignedProposal) ([]byte, error) {
	resp, err := target.ProcessTransactionProposal(reqCtx, fab.ProcessProposalRequest{SignedProposal: signedProposal})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.ProposalResponse == nil || resp.ProposalResponse.Response == nil {
		return nil, status.New(status.EndorserClientStatus, status.Unknown.ToInt32(), fmt.Sprintf("empty qscc response from %v", target), nil)
	}
	if resp.Status != int32(common.Status_SUCCESS) {
		return nil, status.New(status.EndorserServerStatus, resp.Status, resp.ProposalResponse.Response.Message, nil)
	}
	return resp.ProposalResponse.Response.Payload, nil
}

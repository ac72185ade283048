/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	reqContext "context"
	"fmt"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/msp"
)

// CreateChaincodeInvokeProposal creates a proposal for transaction.
func CreateChaincodeInvokeProposal(txh *TransactionHeader, request fab.ChaincodeInvokeRequest) (*fab.TransactionProposal, error) {
	if txh == nil {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "transaction header is required")
	}

	if request.ChaincodeID == "" {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "ChaincodeID is required")
	}

	if request.Fcn == "" {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "Fcn is required")
	}

	// Add function name to arguments
	argsArray := make([][]byte, len(request.Args)+1)
	argsArray[0] = []byte(request.Fcn)
	for i, arg := range request.Args {
		argsArray[i+1] = arg
	}

	ccis := &pb.ChaincodeInvocationSpec{ChaincodeSpec: &pb.ChaincodeSpec{
		Type: request.Lang, ChaincodeId: &pb.ChaincodeID{Name: request.ChaincodeID},
		Input: &pb.ChaincodeInput{Args: argsArray}}}

	cisBytes, err := proto.Marshal(ccis)
	if err != nil {
		return nil, encodingError(err, "marshal invocation spec failed")
	}

	ccPropPayloadBytes, err := proto.Marshal(&pb.ChaincodeProposalPayload{Input: cisBytes, TransientMap: request.TransientMap})
	if err != nil {
		return nil, encodingError(err, "marshal chaincode proposal payload failed")
	}

	channelHeader, err := CreateChannelHeader(common.HeaderType_ENDORSER_TRANSACTION, ChannelHeaderOpts{
		TxnHeader:   txh,
		ChaincodeID: request.ChaincodeID,
	})
	if err != nil {
		return nil, encodingError(err, "create channel header failed")
	}

	header, err := CreateHeader(txh, channelHeader)
	if err != nil {
		return nil, encodingError(err, "create header failed")
	}

	headerBytes, err := proto.Marshal(header)
	if err != nil {
		return nil, encodingError(err, "marshal header failed")
	}

	return &fab.TransactionProposal{
		TxnID:    txh.TransactionID(),
		Proposal: &pb.Proposal{Header: headerBytes, Payload: ccPropPayloadBytes},
	}, nil
}

// SignProposal serializes the proposal and has the account sign the bytes.
func SignProposal(account msp.Account, proposal *pb.Proposal) (*pb.SignedProposal, error) {
	if account == nil {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "account is required")
	}

	proposalBytes, err := proto.Marshal(proposal)
	if err != nil {
		return nil, encodingError(err, "marshal proposal failed")
	}

	signature, err := account.Sign(proposalBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "sign failed")
	}

	return &pb.SignedProposal{ProposalBytes: proposalBytes, Signature: signature}, nil
}

// BuildProposal creates and signs a proposal invoking method on the
// resource's chaincode.
func BuildProposal(account msp.Account, resource *fab.ResourceDescriptor, method string, args []string, opts ...HeaderOpt) (*fab.TransactionProposal, *pb.SignedProposal, error) {
	if resource == nil {
		return nil, nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "resource descriptor is required")
	}

	txh, err := NewHeader(account, resource.ChannelID, opts...)
	if err != nil {
		return nil, nil, err
	}

	byteArgs := make([][]byte, len(args))
	for i, a := range args {
		byteArgs[i] = []byte(a)
	}

	lang, err := chaincodeType(resource.ChaincodeLang)
	if err != nil {
		return nil, nil, err
	}

	tp, err := CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{
		ChaincodeID: resource.ChaincodeID,
		Lang:        lang,
		Fcn:         method,
		Args:        byteArgs,
	})
	if err != nil {
		return nil, nil, err
	}

	signed, err := SignProposal(account, tp.Proposal)
	if err != nil {
		return nil, nil, err
	}

	return tp, signed, nil
}

func chaincodeType(lang string) (pb.ChaincodeSpec_Type, error) {
	if lang == "" {
		return pb.ChaincodeSpec_GOLANG, nil
	}
	t, ok := pb.ChaincodeSpec_Type_value[lang]
	if !ok {
		return pb.ChaincodeSpec_UNDEFINED, status.Newf(status.ClientStatus, status.PreconditionFailed, "unsupported chaincode language [%s]", lang)
	}
	return pb.ChaincodeSpec_Type(t), nil
}

// SendProposal sends a signed proposal to each distinct target concurrently.
// A target that fails yields a response carrying Err rather than being dropped.
func SendProposal(reqCtx reqContext.Context, signedProposal *pb.SignedProposal, targets []fab.ProposalProcessor) []*fab.TransactionProposalResponse {
	targets = getTargetsWithoutDuplicates(targets)
	request := fab.ProcessProposalRequest{SignedProposal: signedProposal}

	responses := make([]*fab.TransactionProposalResponse, len(targets))
	var wg sync.WaitGroup

	for i, p := range targets {
		wg.Add(1)
		go func(i int, processor fab.ProposalProcessor) {
			defer wg.Done()

			resp, err := processor.ProcessTransactionProposal(reqCtx, request)
			if err != nil {
				logger.Debugf("Received error response from txn proposal processing: %s", err)
				failed := &fab.TransactionProposalResponse{Endorser: targetName(processor), Err: err}
				if resp != nil {
					failed.Status = resp.Status
					failed.ProposalResponse = resp.ProposalResponse
				}
				responses[i] = failed
				return
			}
			if resp == nil {
				responses[i] = &fab.TransactionProposalResponse{
					Endorser: targetName(processor),
					Err:      errors.New("endorser returned no response"),
				}
				return
			}
			responses[i] = resp
		}(i, p)
	}
	wg.Wait()

	return responses
}

func targetName(p fab.ProposalProcessor) string {
	if peer, ok := p.(fab.Peer); ok {
		return peer.URL()
	}
	return fmt.Sprintf("%v", p)
}

// getTargetsWithoutDuplicates returns a list of targets without duplicates
func getTargetsWithoutDuplicates(targets []fab.ProposalProcessor) []fab.ProposalProcessor {
	peerUrlsToTargets := map[string]fab.ProposalProcessor{}
	var uniqueTargets []fab.ProposalProcessor

	for i := range targets {
		if targets[i] == nil {
			continue
		}
		peer, ok := targets[i].(fab.Peer)
		if !ok {
			uniqueTargets = append(uniqueTargets, targets[i])
			continue
		}
		if _, present := peerUrlsToTargets[peer.URL()]; !present {
			uniqueTargets = append(uniqueTargets, targets[i])
			peerUrlsToTargets[peer.URL()] = targets[i]
		}
	}

	if len(uniqueTargets) != len(targets) {
		logger.Warn("Duplicate target peers in configuration")
	}

	return uniqueTargets
}

func encodingError(err error, msg string) error {
	return status.New(status.ClientStatus, status.EncodingError.ToInt32(), fmt.Sprintf("%s: %s", msg, err), []interface{}{err})
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	reqContext "context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/config/comm"
)

// chaincodeErrorPattern matches the chaincode error an endorser embeds in
// an Unknown grpc status, e.g. "chaincode error (status: 500, message: x)".
var chaincodeErrorPattern = regexp.MustCompile(`status:([^,]*),\s*message:(.*)\)`)

// launchErrors are endorser messages reporting that the chaincode container
// is not ready, or not installed.
var launchErrors = []struct {
	marker string
	code   status.Code
}{
	{"premature execution", status.PrematureChaincodeExecution},
	{"chaincode is already launching", status.ChaincodeAlreadyLaunching},
	{"could not find chaincode with name", status.ChaincodeNameNotFound},
	{"cannot get package for chaincode", status.ChaincodeNameNotFound},
}

// peerEndorser calls the Endorser gRPC service of one peer.
type peerEndorser struct {
	endpoint    comm.Endpoint
	dialTimeout time.Duration
	commManager comm.CommManager
}

type peerEndorserRequest struct {
	endpoint    comm.Endpoint
	config      fab.EndpointConfig
	commManager comm.CommManager
}

func newPeerEndorser(req *peerEndorserRequest) (*peerEndorser, error) {
	if req.endpoint.URL == "" {
		return nil, errors.New("target is required")
	}
	if _, err := comm.DialOptions(req.endpoint); err != nil {
		return nil, err
	}

	e := &peerEndorser{endpoint: req.endpoint, commManager: req.commManager}
	if e.commManager == nil {
		e.commManager = &comm.DefaultCommManager{}
	}
	if req.config != nil {
		e.dialTimeout = req.config.Timeout(fab.PeerConnection)
	}
	return e, nil
}

// ProcessTransactionProposal sends the proposal and returns the endorser's
// answer. On failure the response is still returned, carrying whatever the
// peer sent, so the caller can report it per endorser.
func (p *peerEndorser) ProcessTransactionProposal(ctx reqContext.Context, request fab.ProcessProposalRequest) (*fab.TransactionProposalResponse, error) {
	target := p.endpoint.URL
	logger.Debugf("sending proposal to endorser [%s]", target)

	resp, err := p.sendProposal(ctx, request)
	if err != nil {
		tpr := &fab.TransactionProposalResponse{Endorser: target, ProposalResponse: resp}
		if resp != nil && resp.Response != nil {
			tpr.Status = resp.Response.Status
		}
		return tpr, errors.Wrapf(err, "Transaction processing for endorser [%s]", target)
	}

	ccStatus, err := getChaincodeResponseStatus(resp)
	if err != nil {
		return nil, errors.WithMessage(err, "chaincode response status parsing failed")
	}
	return &fab.TransactionProposalResponse{
		ProposalResponse: resp,
		Endorser:         target,
		Status:           resp.GetResponse().Status,
		ChaincodeStatus:  ccStatus,
	}, nil
}

func (p *peerEndorser) sendProposal(ctx reqContext.Context, request fab.ProcessProposalRequest) (*pb.ProposalResponse, error) {
	conn, err := comm.Dial(ctx, p.commManager, p.endpoint, p.dialTimeout)
	if err != nil {
		if rpcStatus, ok := grpcstatus.FromError(err); ok {
			return nil, errors.WithMessage(status.NewFromGRPCStatus(rpcStatus), "connection failed")
		}
		return nil, status.New(status.EndorserClientStatus, status.ConnectionFailed.ToInt32(), err.Error(), []interface{}{p.endpoint.URL})
	}
	defer p.commManager.ReleaseConn(conn)

	resp, err := pb.NewEndorserClient(conn).ProcessProposal(ctx, request.SignedProposal)
	if err != nil {
		logger.Errorf("process proposal failed [%s]", err)
		return nil, convertRPCError(err)
	}
	return resp, extractChaincodeErrorFromResponse(resp)
}

// convertRPCError classifies a ProcessProposal failure: chaincode errors
// and launch errors reported through an Unknown grpc status are unpacked,
// anything else stays a transport status.
func convertRPCError(err error) error {
	rpcStatus, ok := grpcstatus.FromError(err)
	if !ok {
		return err
	}

	if code, message, extractErr := extractChaincodeError(rpcStatus); extractErr == nil {
		return status.NewFromExtractedChaincodeError(code, message)
	}
	if rpcStatus.Code() == codes.Unknown {
		if code, message, found := launchError(rpcStatus.Message()); found {
			return status.New(status.EndorserClientStatus, code.ToInt32(), message, nil)
		}
	}
	return status.NewFromGRPCStatus(rpcStatus)
}

func extractChaincodeError(s *grpcstatus.Status) (int, string, error) {
	if s.Code() != codes.Unknown || s.Message() == "" {
		return 0, "", errors.New("Unable to parse GRPC status message")
	}

	m := chaincodeErrorPattern.FindStringSubmatch(s.Message())
	if m == nil {
		return 0, "", errors.Errorf("no chaincode status in GRPC message [%s]", s.Message())
	}
	code, err := strconv.Atoi(strings.TrimSpace(m[1]))
	if err != nil {
		return 0, "", errors.Errorf("Non-number returned as GRPC status [%s] ", strings.TrimSpace(m[1]))
	}
	message := strings.TrimSpace(m[2])
	if code == 0 || message == "" {
		return 0, "", errors.Errorf("Unable to parse GRPC Status Message Code: %v Message: %v", code, message)
	}
	return code, message, nil
}

// launchError returns the launch error code found in msg, and msg from the
// marker on.
func launchError(msg string) (status.Code, string, bool) {
	for _, le := range launchErrors {
		if i := strings.Index(msg, le.marker); i >= 0 {
			return le.code, msg[i:], true
		}
	}
	return 0, "", false
}

// extractChaincodeErrorFromResponse turns a non-2xx/3xx response status into
// an error. Launch errors get their client code; the rest keep the
// chaincode's status.
func extractChaincodeErrorFromResponse(resp *pb.ProposalResponse) error {
	if resp.Response == nil {
		return status.New(status.EndorserClientStatus, status.Unknown.ToInt32(), "proposal response has no response", nil)
	}

	s := resp.Response.Status
	if s >= int32(common.Status_SUCCESS) && s < int32(common.Status_BAD_REQUEST) {
		return nil
	}

	details := []interface{}{resp.Endorsement, resp.Response.Payload}
	if code, _, found := launchError(resp.Response.Message); found {
		return status.New(status.EndorserClientStatus, code.ToInt32(), resp.Response.Message, details)
	}
	return status.New(status.ChaincodeStatus, s, resp.Response.Message, details)
}

// getChaincodeResponseStatus returns the status set by the chaincode, found
// in the proposal response payload's ChaincodeAction. The outer response
// status is used when the payload carries none.
func getChaincodeResponseStatus(resp *pb.ProposalResponse) (int32, error) {
	if resp.Payload == nil {
		return resp.GetResponse().GetStatus(), nil
	}

	payload := &pb.ProposalResponsePayload{}
	if err := proto.Unmarshal(resp.Payload, payload); err != nil {
		return 0, errors.Wrap(err, "unmarshal of proposal response payload failed")
	}
	action := &pb.ChaincodeAction{}
	if err := proto.Unmarshal(payload.Extension, action); err != nil {
		return 0, errors.Wrap(err, "unmarshal of chaincode action failed")
	}
	if action.Response != nil {
		return action.Response.Status, nil
	}
	return resp.GetResponse().GetStatus(), nil
}

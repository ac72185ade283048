/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status attaches a group and a code to the errors returned by the
// client, so callers can tell them apart: a PreconditionFailed or
// EncodingError is a caller bug, a CommitTimeout usually means missing
// endorsing peers, and an OnChainVerificationFailed is a correctness alarm.
//
// The group names the component that produced the error. Client groups use
// the codes of this package; server groups carry the component's own codes
// (common.Status for peers and orderers, TxValidationCode for commit
// events, grpc codes for transport failures).
package status

import (
	"fmt"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	grpcCodes "google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/multi"
)

// Group identifies the component a Status came from.
type Group int32

// Status groups.
const (
	UnknownStatus Group = iota
	// GRPCTransportStatus codes are grpc codes.
	GRPCTransportStatus
	// EndorserServerStatus codes are common.Status values returned by a peer.
	EndorserServerStatus
	// EventServerStatus codes are transaction validation codes.
	EventServerStatus
	// OrdererServerStatus codes are common.Status values returned by an orderer.
	OrdererServerStatus
	EndorserClientStatus
	OrdererClientStatus
	ClientStatus
	// ChaincodeStatus codes are set by the chaincode itself.
	ChaincodeStatus
)

var groupNames = [...]string{
	UnknownStatus:        "Unknown",
	GRPCTransportStatus:  "gRPC Transport Status",
	EndorserServerStatus: "Endorser Server Status",
	EventServerStatus:    "Event Server Status",
	OrdererServerStatus:  "Orderer Server Status",
	EndorserClientStatus: "Endorser Client Status",
	OrdererClientStatus:  "Orderer Client Status",
	ClientStatus:         "Client Status",
	ChaincodeStatus:      "Chaincode status",
}

func (g Group) String() string {
	if g < 0 || int(g) >= len(groupNames) {
		return groupNames[UnknownStatus]
	}
	return groupNames[g]
}

func (g Group) isClient() bool {
	return g == EndorserClientStatus || g == OrdererClientStatus || g == ClientStatus
}

// Status is an error with a group, a code and optional details such as the
// endorser URL or the failed members of a multi error.
type Status struct {
	Group   Group
	Code    int32
	Message string
	Details []interface{}
}

// New returns a Status with the given parameters
func New(group Group, code int32, msg string, details []interface{}) *Status {
	return &Status{Group: group, Code: code, Message: msg, Details: details}
}

// Newf returns a Status in the given group with a formatted message and no details
func Newf(group Group, code Code, format string, args ...interface{}) *Status {
	return New(group, code.ToInt32(), fmt.Sprintf(format, args...), nil)
}

// NewFromGRPCStatus converts a grpc status, keeping its detail messages.
func NewFromGRPCStatus(s *grpcstatus.Status) *Status {
	if s == nil {
		return nil
	}
	p := s.Proto()
	details := make([]interface{}, 0, len(p.Details))
	for _, d := range p.Details {
		details = append(details, d)
	}
	return New(GRPCTransportStatus, p.Code, s.Message(), details)
}

// NewFromExtractedChaincodeError returns the status of a chaincode error
// parsed out of an endorser's grpc error.
func NewFromExtractedChaincodeError(code int, message string) *Status {
	return New(ChaincodeStatus, int32(code), message, nil)
}

// FromError returns the Status carried by err, looking through wrapping.
// A nil err is OK. A multi error becomes a ClientStatus MultipleErrors whose
// details are its members.
func FromError(err error) (*Status, bool) {
	if err == nil {
		return &Status{Code: OK.ToInt32()}, true
	}

	var s *Status
	if errors.As(err, &s) {
		return s, true
	}

	var m multi.Errors
	if errors.As(err, &m) {
		details := make([]interface{}, len(m))
		for i, e := range m {
			details[i] = e
		}
		return New(ClientStatus, MultipleErrors.ToInt32(), m.Error(), details), true
	}
	return nil, false
}

// Is reports whether err carries a client-group Status with the given code.
// Server groups are never matched since their codes mean something else.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	s, ok := FromError(err)
	return ok && s.Group.isClient() && s.Code == code.ToInt32()
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s Code: (%d) %s. Description: %s", s.Group, s.Code, s.codeString(), s.Message)
}

func (s *Status) codeString() string {
	switch {
	case s.Group == GRPCTransportStatus:
		return grpcCodes.Code(s.Code).String()
	case s.Group == EndorserServerStatus, s.Group == OrdererServerStatus:
		return common.Status(s.Code).String()
	case s.Group == EventServerStatus:
		return pb.TxValidationCode(s.Code).String()
	case s.Group.isClient():
		return Code(s.Code).String()
	default:
		return Unknown.String()
	}
}

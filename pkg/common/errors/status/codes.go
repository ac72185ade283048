/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import "strconv"

// Code is a client-side status code, meaningful in the EndorserClientStatus,
// OrdererClientStatus and ClientStatus groups. Server groups carry the
// codes of the component that produced them instead.
type Code uint32

// Transport and endorsement codes.
const (
	OK                 Code = 0
	Unknown            Code = 1
	ConnectionFailed   Code = 2
	NoPeersFound       Code = 6
	MultipleErrors     Code = 7
	MissingEndorsement Code = 9

	// Raised by peers while a chaincode container is starting. Parsed out
	// of the endorser's error message.
	PrematureChaincodeExecution Code = 21
	ChaincodeAlreadyLaunching   Code = 22
	ChaincodeNameNotFound       Code = 23
)

// Transaction lifecycle codes.
const (
	// PreconditionFailed: the request lacks an account, a block manager or
	// a resource descriptor, or is otherwise malformed. Never retried.
	PreconditionFailed Code = 30
	// EncodingError: a proposal, payload or envelope could not be
	// serialized or decoded.
	EncodingError Code = 31
	// InvalidAccountType: the account identity is not a serialized MSP
	// identity.
	InvalidAccountType Code = 32
	// ConsensusFailure: endorsement responses disagree, or too few of them
	// succeeded.
	ConsensusFailure Code = 33
	// OrdererUnavailable: every orderer rejected the broadcast.
	OrdererUnavailable Code = 34
	// CommitTimeout: no commit event arrived in time.
	CommitTimeout Code = 35
	// CommitRejected: the network marked the transaction invalid.
	CommitRejected Code = 36
	// OnChainVerificationFailed: a commit event names a block that does not
	// contain the transaction.
	OnChainVerificationFailed Code = 37
	// MalformedBlock: a block violates a structural invariant.
	MalformedBlock Code = 38
	// Cancelled: the component owning a pending request was stopped.
	Cancelled Code = 39
)

var codeNames = map[Code]string{
	OK:                          "OK",
	Unknown:                     "UNKNOWN",
	ConnectionFailed:            "CONNECTION_FAILED",
	NoPeersFound:                "NO_PEERS_FOUND",
	MultipleErrors:              "MULTIPLE_ERRORS",
	MissingEndorsement:          "MISSING_ENDORSEMENT",
	PrematureChaincodeExecution: "PREMATURE_CHAINCODE_EXECUTION",
	ChaincodeAlreadyLaunching:   "CHAINCODE_ALREADY_LAUNCHING",
	ChaincodeNameNotFound:       "CHAINCODE_NAME_NOT_FOUND",
	PreconditionFailed:          "PRECONDITION_FAILED",
	EncodingError:               "ENCODING_ERROR",
	InvalidAccountType:          "INVALID_ACCOUNT_TYPE",
	ConsensusFailure:            "CONSENSUS_FAILURE",
	OrdererUnavailable:          "ORDERER_UNAVAILABLE",
	CommitTimeout:               "COMMIT_TIMEOUT",
	CommitRejected:              "COMMIT_REJECTED",
	OnChainVerificationFailed:   "ON_CHAIN_VERIFICATION_FAILED",
	MalformedBlock:              "MALFORMED_BLOCK",
	Cancelled:                   "CANCELLED",
}

// ToInt32 returns the code as stored in Status.Code.
func (c Code) ToInt32() int32 {
	return int32(c)
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return strconv.Itoa(int(c))
}

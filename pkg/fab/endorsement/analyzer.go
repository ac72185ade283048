/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package endorsement classifies the endorsement responses collected for a
// proposal and decides whether the endorsing peers agree.
package endorsement

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	mb "github.com/hyperledger/fabric-protos-go/msp"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/msp"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/cryptosuite"
)

var logger = logging.NewLogger("fabstub/fab")

// Group is a set of successful responses that agree on the simulated
// read/write set
type Group struct {
	Fingerprint string
	Responses   []*fab.TransactionProposalResponse
}

// Invalid is a successful response that could not take part in consistency
// grouping
type Invalid struct {
	Response *fab.TransactionProposalResponse
	Reason   error
}

type options struct {
	deserializer msp.IdentityDeserializer
	policy       *Policy
	cryptoSuite  core.CryptoSuite
	hashOpts     core.HashOpts
}

// Opt is an analyzer option
type Opt func(*options)

// WithVerifier verifies each endorsement signature using identities
// obtained from the deserializer. Responses that fail are invalid.
func WithVerifier(d msp.IdentityDeserializer) Opt {
	return func(o *options) {
		o.deserializer = d
	}
}

// WithPolicy makes AllSuccess also require the policy to be satisfied by
// the MSPs of the valid endorsers
func WithPolicy(p *Policy) Opt {
	return func(o *options) {
		o.policy = p
	}
}

// WithHashOpts sets the digest used for consistency fingerprints
func WithHashOpts(opts core.HashOpts) Opt {
	return func(o *options) {
		o.hashOpts = opts
	}
}

// Analyzer partitions endorsement responses into successes and failures and
// groups the successes by read/write set.
type Analyzer struct {
	opts          options
	successes     []*fab.TransactionProposalResponse
	failures      []*fab.TransactionProposalResponse
	invalid       []*Invalid
	groups        []*Group
	payloadsAgree bool
	endorsedMSPs  map[string]bool
}

// New analyzes the given responses
func New(responses []*fab.TransactionProposalResponse, opts ...Opt) *Analyzer {
	o := options{hashOpts: cryptosuite.GetSHA256Opts()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cryptoSuite == nil {
		o.cryptoSuite = cryptosuite.GetDefault()
	}

	a := &Analyzer{opts: o, payloadsAgree: true, endorsedMSPs: make(map[string]bool)}

	for _, r := range responses {
		if r == nil {
			continue
		}
		if isSuccess(r) {
			a.successes = append(a.successes, r)
		} else {
			a.failures = append(a.failures, r)
		}
	}

	a.analyze()

	return a
}

func isSuccess(r *fab.TransactionProposalResponse) bool {
	if r.Err != nil || r.ProposalResponse == nil || r.ProposalResponse.Response == nil {
		return false
	}
	s := r.ProposalResponse.Response.Status
	return s >= int32(common.Status_SUCCESS) && s < int32(common.Status_BAD_REQUEST)
}

func (a *Analyzer) analyze() {
	groups := make(map[string]*Group)

	for i, r := range a.successes {
		if i > 0 {
			first := a.successes[0].ProposalResponse
			if !bytes.Equal(first.Payload, r.ProposalResponse.Payload) ||
				!bytes.Equal(first.Response.Payload, r.ProposalResponse.Response.Payload) {
				a.payloadsAgree = false
			}
		}

		fingerprint, mspID, err := a.inspect(r)
		if err != nil {
			logger.Debugf("endorsement from %s is invalid: %s", r.Endorser, err)
			a.invalid = append(a.invalid, &Invalid{Response: r, Reason: err})
			continue
		}
		if mspID != "" {
			a.endorsedMSPs[mspID] = true
		}

		g, ok := groups[fingerprint]
		if !ok {
			g = &Group{Fingerprint: fingerprint}
			groups[fingerprint] = g
			a.groups = append(a.groups, g)
		}
		g.Responses = append(g.Responses, r)
	}
}

// inspect returns the consistency fingerprint of the response and the MSP of its endorser
func (a *Analyzer) inspect(r *fab.TransactionProposalResponse) (string, string, error) {
	prp := &pb.ProposalResponsePayload{}
	if err := proto.Unmarshal(r.ProposalResponse.Payload, prp); err != nil {
		return "", "", errors.Wrap(err, "failed to deserialize proposal response payload")
	}

	action := &pb.ChaincodeAction{}
	if err := proto.Unmarshal(prp.Extension, action); err != nil {
		return "", "", errors.Wrap(err, "failed to deserialize chaincode action")
	}

	endorsement := r.ProposalResponse.Endorsement
	if endorsement == nil {
		return "", "", errors.New("missing endorsement")
	}

	mspID, err := a.endorserMSP(r, endorsement)
	if err != nil {
		return "", "", err
	}

	digest, err := a.opts.cryptoSuite.Hash(action.Results, a.opts.hashOpts)
	if err != nil {
		return "", "", errors.WithMessage(err, "failed to digest read/write set")
	}

	return hex.EncodeToString(digest), mspID, nil
}

func (a *Analyzer) endorserMSP(r *fab.TransactionProposalResponse, endorsement *pb.Endorsement) (string, error) {
	if a.opts.deserializer != nil {
		id, err := a.opts.deserializer.DeserializeIdentity(endorsement.Endorser)
		if err != nil {
			return "", errors.WithMessage(err, "failed to deserialize endorser")
		}
		msg := append(append([]byte{}, r.ProposalResponse.Payload...), endorsement.Endorser...)
		if err := id.Verify(msg, endorsement.Signature); err != nil {
			return "", errors.WithMessage(err, "endorsement signature verification failed")
		}
		return id.Identifier().MSPID, nil
	}

	sID := &mb.SerializedIdentity{}
	if err := proto.Unmarshal(endorsement.Endorser, sID); err == nil && sID.Mspid != "" {
		return sID.Mspid, nil
	}
	return "", nil
}

// HasSuccess returns true if at least one peer succeeded, every success
// carries the same payload, and the successes form exactly one consistency
// group with no invalid members.
func (a *Analyzer) HasSuccess() bool {
	return len(a.successes) > 0 && a.payloadsAgree && len(a.groups) == 1 && len(a.invalid) == 0
}

// AllSuccess returns true if HasSuccess holds, no peer failed and the
// policy, if any, is satisfied
func (a *Analyzer) AllSuccess() bool {
	if !a.HasSuccess() || len(a.failures) > 0 {
		return false
	}
	return a.policySatisfied() == nil
}

func (a *Analyzer) policySatisfied() error {
	if a.opts.policy == nil {
		return nil
	}
	ok, err := a.opts.policy.Satisfied(a.endorsedMSPs)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("endorsement policy [%s] not satisfied by %s", a.opts.policy, strings.Join(a.EndorsedMSPs(), ","))
	}
	return nil
}

// Payload returns the agreed proposal response payload or nil if there is no consensus
func (a *Analyzer) Payload() []byte {
	if !a.HasSuccess() {
		return nil
	}
	return a.successes[0].ProposalResponse.Payload
}

// Result returns the agreed chaincode response payload or nil if there is no consensus
func (a *Analyzer) Result() []byte {
	if !a.HasSuccess() {
		return nil
	}
	return a.successes[0].ProposalResponse.Response.Payload
}

// Successes returns the successful responses
func (a *Analyzer) Successes() []*fab.TransactionProposalResponse {
	return a.successes
}

// Failures returns the failed responses
func (a *Analyzer) Failures() []*fab.TransactionProposalResponse {
	return a.failures
}

// Groups returns the consistency groups in order of first appearance
func (a *Analyzer) Groups() []*Group {
	return a.groups
}

// Invalid returns the successful responses excluded from grouping
func (a *Analyzer) Invalid() []*Invalid {
	return a.invalid
}

// EndorsedMSPs returns the sorted MSP IDs of the valid endorsers
func (a *Analyzer) EndorsedMSPs() []string {
	var ids []string
	for id := range a.endorsedMSPs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Error returns nil if the responses reach consensus, otherwise a
// ConsensusFailure status describing each peer. With requireAll every peer
// must have succeeded.
func (a *Analyzer) Error(requireAll bool) error {
	if requireAll && a.AllSuccess() || !requireAll && a.HasSuccess() {
		return nil
	}

	var reasons []string
	switch {
	case len(a.successes) == 0:
		reasons = append(reasons, "no peer endorsed the proposal")
	case !a.payloadsAgree:
		reasons = append(reasons, "proposal response payloads do not match")
	}
	if len(a.groups) > 1 {
		reasons = append(reasons, fmt.Sprintf("responses form %d consistency groups", len(a.groups)))
	}
	if len(a.invalid) > 0 {
		reasons = append(reasons, fmt.Sprintf("%d invalid responses", len(a.invalid)))
	}
	if requireAll && len(a.failures) > 0 {
		reasons = append(reasons, fmt.Sprintf("%d of %d peers failed", len(a.failures), len(a.failures)+len(a.successes)))
	}
	if requireAll && a.HasSuccess() && len(a.failures) == 0 {
		if err := a.policySatisfied(); err != nil {
			reasons = append(reasons, err.Error())
		}
	}

	details := a.breakdown()
	msg := fmt.Sprintf("endorsement consensus failed: %s [%s]", strings.Join(reasons, "; "), strings.Join(details, "; "))

	detailsIfc := make([]interface{}, len(details))
	for i, d := range details {
		detailsIfc[i] = d
	}
	return status.New(status.EndorserClientStatus, status.ConsensusFailure.ToInt32(), msg, detailsIfc)
}

func (a *Analyzer) breakdown() []string {
	var lines []string
	for i, g := range a.groups {
		for _, r := range g.Responses {
			lines = append(lines, fmt.Sprintf("%s: success, status %d, group %d", r.Endorser, r.ProposalResponse.Response.Status, i+1))
		}
	}
	for _, inv := range a.invalid {
		lines = append(lines, fmt.Sprintf("%s: invalid, %s", inv.Response.Endorser, inv.Reason))
	}
	for _, r := range a.failures {
		lines = append(lines, fmt.Sprintf("%s: failed, %s", r.Endorser, failureReason(r)))
	}
	return lines
}

func failureReason(r *fab.TransactionProposalResponse) string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if r.ProposalResponse == nil || r.ProposalResponse.Response == nil {
		return "no response"
	}
	return fmt.Sprintf("status %d: %s", r.ProposalResponse.Response.Status, r.ProposalResponse.Response.Message)
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"crypto/rand"
	"encoding/hex"
	"hash"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	"github.com/hyperledger/fabric-protos-go/common"
	mb "github.com/hyperledger/fabric-protos-go/msp"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/msp"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/cryptosuite"
)

// NonceSize is the size of the random nonce placed in each signature header
const NonceSize = 24

// TransactionHeader contains metadata for a transaction created by the SDK.
type TransactionHeader struct {
	id        fab.TransactionID
	creator   []byte
	nonce     []byte
	channelID string
}

// TransactionID returns the transaction's computed identifier.
func (th *TransactionHeader) TransactionID() fab.TransactionID {
	return th.id
}

// Creator returns the transaction creator's identity bytes.
func (th *TransactionHeader) Creator() []byte {
	return th.creator
}

// Nonce returns the transaction's generated nonce.
func (th *TransactionHeader) Nonce() []byte {
	return th.nonce
}

// ChannelID returns the transaction's target channel identifier.
func (th *TransactionHeader) ChannelID() string {
	return th.channelID
}

type headerOptions struct {
	nonce       []byte
	creator     []byte
	hashOpts    core.HashOpts
	cryptoSuite core.CryptoSuite
}

// HeaderOpt is an option for creating a transaction header
type HeaderOpt func(*headerOptions)

// WithNonce uses the given nonce instead of a random one
func WithNonce(nonce []byte) HeaderOpt {
	return func(o *headerOptions) {
		o.nonce = nonce
	}
}

// WithCreator uses the given serialized identity as the creator instead of
// asking the account for it
func WithCreator(creator []byte) HeaderOpt {
	return func(o *headerOptions) {
		o.creator = creator
	}
}

// WithHashOpts selects the digest used for the transaction ID
func WithHashOpts(opts core.HashOpts) HeaderOpt {
	return func(o *headerOptions) {
		o.hashOpts = opts
	}
}

// WithCryptoSuite sets the crypto suite used for the transaction ID
func WithCryptoSuite(cs core.CryptoSuite) HeaderOpt {
	return func(o *headerOptions) {
		o.cryptoSuite = cs
	}
}

// NewHeader computes a TransactionID from the account's identity and a
// random nonce. The identity must be a marshalled msp.SerializedIdentity.
func NewHeader(account msp.Account, channelID string, opts ...HeaderOpt) (*TransactionHeader, error) {
	o := headerOptions{hashOpts: cryptosuite.GetSHA256Opts()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cryptoSuite == nil {
		o.cryptoSuite = cryptosuite.GetDefault()
	}

	creator := o.creator
	if creator == nil {
		if account == nil {
			return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "account is required")
		}
		var err error
		creator, err = account.Identity()
		if err != nil {
			return nil, status.Newf(status.ClientStatus, status.InvalidAccountType, "identity from account failed: %s", err)
		}
	}
	if err := checkCreator(creator); err != nil {
		return nil, err
	}

	nonce := o.nonce
	if nonce == nil {
		var err error
		nonce, err = newNonce()
		if err != nil {
			return nil, errors.WithMessage(err, "nonce creation failed")
		}
	}

	h, err := o.cryptoSuite.GetHash(o.hashOpts)
	if err != nil {
		return nil, errors.WithMessage(err, "hash function creation failed")
	}

	id, err := ComputeTxnID(nonce, creator, h)
	if err != nil {
		return nil, errors.WithMessage(err, "txn ID computation failed")
	}

	return &TransactionHeader{
		id:        fab.TransactionID(id),
		creator:   creator,
		nonce:     nonce,
		channelID: channelID,
	}, nil
}

// ComputeTxnID returns hex(H(nonce || creator))
func ComputeTxnID(nonce, creator []byte, h hash.Hash) (string, error) {
	b := make([]byte, 0, len(nonce)+len(creator))
	b = append(b, nonce...)
	b = append(b, creator...)

	if _, err := h.Write(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func checkCreator(creator []byte) error {
	sID := &mb.SerializedIdentity{}
	if err := proto.Unmarshal(creator, sID); err != nil {
		return status.Newf(status.ClientStatus, status.InvalidAccountType, "account identity is not a serialized identity: %s", err)
	}
	if sID.Mspid == "" || len(sID.IdBytes) == 0 {
		return status.Newf(status.ClientStatus, status.InvalidAccountType, "account identity is missing MSP ID or certificate")
	}
	return nil
}

func newNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "error getting random bytes")
	}
	return nonce, nil
}

// SignEnvelope signs the payload bytes with the account
func SignEnvelope(account msp.Account, payload []byte) (*fab.SignedEnvelope, error) {
	if account == nil {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "account is required")
	}
	if len(payload) == 0 {
		return nil, status.Newf(status.ClientStatus, status.PreconditionFailed, "payload is required")
	}

	signature, err := account.Sign(payload)
	if err != nil {
		return nil, errors.WithMessage(err, "signing of payload failed")
	}
	return &fab.SignedEnvelope{Payload: payload, Signature: signature}, nil
}

// ChannelHeaderOpts holds the parameters to create a ChannelHeader.
type ChannelHeaderOpts struct {
	TxnHeader   *TransactionHeader
	Epoch       uint64
	ChaincodeID string
	Timestamp   time.Time
	TLSCertHash []byte
}

// CreateChannelHeader is a utility method to build a common chain header
func CreateChannelHeader(headerType common.HeaderType, opts ChannelHeaderOpts) (*common.ChannelHeader, error) {
	logger.Debugf("buildChannelHeader - headerType: %s channelID: %s txID: %s epoch: %d chaincodeID: %s", headerType, opts.TxnHeader.channelID, opts.TxnHeader.id, opts.Epoch, opts.ChaincodeID)
	channelHeader := &common.ChannelHeader{
		Type:        int32(headerType),
		ChannelId:   opts.TxnHeader.channelID,
		TxId:        string(opts.TxnHeader.id),
		Epoch:       opts.Epoch,
		TlsCertHash: opts.TLSCertHash,
	}

	if opts.Timestamp.IsZero() {
		opts.Timestamp = time.Now()
	}

	ts, err := ptypes.TimestampProto(opts.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create timestamp in channel header")
	}
	channelHeader.Timestamp = ts

	if opts.ChaincodeID != "" {
		headerExt := &pb.ChaincodeHeaderExtension{
			ChaincodeId: &pb.ChaincodeID{Name: opts.ChaincodeID},
		}
		headerExtBytes, err := proto.Marshal(headerExt)
		if err != nil {
			return nil, errors.Wrap(err, "marshal header extension failed")
		}
		channelHeader.Extension = headerExtBytes
	}
	return channelHeader, nil
}

// CreateHeader creates a Header from a ChannelHeader.
func CreateHeader(txh *TransactionHeader, channelHeader *common.ChannelHeader) (*common.Header, error) {
	signatureHeader := &common.SignatureHeader{
		Creator: txh.creator,
		Nonce:   txh.nonce,
	}
	sh, err := proto.Marshal(signatureHeader)
	if err != nil {
		return nil, errors.Wrap(err, "marshal signatureHeader failed")
	}
	ch, err := proto.Marshal(channelHeader)
	if err != nil {
		return nil, errors.Wrap(err, "marshal channelHeader failed")
	}
	return &common.Header{
		SignatureHeader: sh,
		ChannelHeader:   ch,
	}, nil
}

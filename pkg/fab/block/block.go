/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package block parses Fabric blocks into the header fields, transaction
// IDs and validity flags the client needs to verify commits.
package block

import (
	"encoding/asn1"
	"encoding/hex"
	"math/big"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/cryptosuite"
)

var logger = logging.NewLogger("fabstub/fab")

// Block is a parsed block
type Block struct {
	Number       uint64
	PreviousHash []byte
	DataHash     []byte
	// TxIDs holds one entry per data entry. Entries that could not be
	// parsed hold an empty ID so indexes stay aligned with Validity.
	TxIDs    []string
	Validity []pb.TxValidationCode

	cryptoSuite core.CryptoSuite
	hashOpts    core.HashOpts

	hashOnce sync.Once
	hash     []byte
	hashErr  error

	indexOnce sync.Once
	index     map[string]int
}

type options struct {
	cryptoSuite core.CryptoSuite
	hashOpts    core.HashOpts
}

// Opt is a parse option
type Opt func(*options)

// WithHashOpts selects the digest used for the block hash
func WithHashOpts(opts core.HashOpts) Opt {
	return func(o *options) {
		o.hashOpts = opts
	}
}

// WithCryptoSuite sets the crypto suite used for the block hash
func WithCryptoSuite(cs core.CryptoSuite) Opt {
	return func(o *options) {
		o.cryptoSuite = cs
	}
}

// Parse unmarshals and parses a raw block
func Parse(raw []byte, opts ...Opt) (*Block, error) {
	b := &common.Block{}
	if err := proto.Unmarshal(raw, b); err != nil {
		return nil, malformed("unmarshal block failed: %s", err)
	}
	return FromProto(b, opts...)
}

// FromProto parses a block. Malformed data entries are logged and recorded
// with an empty transaction ID. A block whose transactions filter does not
// have one flag per data entry is rejected.
func FromProto(b *common.Block, opts ...Opt) (*Block, error) {
	o := options{hashOpts: cryptosuite.GetSHA256Opts()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cryptoSuite == nil {
		o.cryptoSuite = cryptosuite.GetDefault()
	}

	if b == nil || b.Header == nil {
		return nil, malformed("block header is missing")
	}

	var data [][]byte
	if b.Data != nil {
		data = b.Data.Data
	}

	txIDs := make([]string, len(data))
	for i, envBytes := range data {
		txID, err := extractTxID(envBytes)
		if err != nil {
			logger.Warnf("Block %d: unable to extract transaction ID from entry %d: %s", b.Header.Number, i, err)
			continue
		}
		txIDs[i] = txID
	}

	filter, err := transactionsFilter(b)
	if err != nil {
		return nil, err
	}
	if len(filter) != len(txIDs) {
		return nil, malformed("block %d has %d transactions but %d validation flags", b.Header.Number, len(txIDs), len(filter))
	}

	validity := make([]pb.TxValidationCode, len(filter))
	for i, f := range filter {
		validity[i] = pb.TxValidationCode(f)
	}

	return &Block{
		Number:       b.Header.Number,
		PreviousHash: b.Header.PreviousHash,
		DataHash:     b.Header.DataHash,
		TxIDs:        txIDs,
		Validity:     validity,
		cryptoSuite:  o.cryptoSuite,
		hashOpts:     o.hashOpts,
	}, nil
}

func transactionsFilter(b *common.Block) ([]byte, error) {
	if b.Metadata == nil || len(b.Metadata.Metadata) <= int(common.BlockMetadataIndex_TRANSACTIONS_FILTER) {
		return nil, malformed("block %d has no transactions filter", b.Header.Number)
	}
	return b.Metadata.Metadata[common.BlockMetadataIndex_TRANSACTIONS_FILTER], nil
}

func extractTxID(envBytes []byte) (string, error) {
	env := &common.Envelope{}
	if err := proto.Unmarshal(envBytes, env); err != nil {
		return "", errors.Wrap(err, "unmarshal envelope failed")
	}

	payload := &common.Payload{}
	if err := proto.Unmarshal(env.Payload, payload); err != nil {
		return "", errors.Wrap(err, "unmarshal payload failed")
	}
	if payload.Header == nil {
		return "", errors.New("payload header is missing")
	}

	chdr := &common.ChannelHeader{}
	if err := proto.Unmarshal(payload.Header.ChannelHeader, chdr); err != nil {
		return "", errors.Wrap(err, "unmarshal channel header failed")
	}
	return chdr.TxId, nil
}

// HeaderBytes returns the ASN.1 DER encoding of the header fields that the
// block hash is computed over
func HeaderBytes(number uint64, previousHash, dataHash []byte) ([]byte, error) {
	raw, err := asn1.Marshal(asn1Header{
		Number:       new(big.Int).SetUint64(number),
		PreviousHash: previousHash,
		DataHash:     dataHash,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode block header")
	}
	return raw, nil
}

type asn1Header struct {
	Number       *big.Int
	PreviousHash []byte
	DataHash     []byte
}

// Hash returns the hash of the block header. It is computed once.
func (b *Block) Hash() ([]byte, error) {
	b.hashOnce.Do(func() {
		raw, err := HeaderBytes(b.Number, b.PreviousHash, b.DataHash)
		if err != nil {
			b.hashErr = err
			return
		}
		b.hash, b.hashErr = b.cryptoSuite.Hash(raw, b.hashOpts)
	})
	return b.hash, b.hashErr
}

// HashString returns the hex encoded block hash
func (b *Block) HashString() string {
	h, err := b.Hash()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(h)
}

func (b *Block) buildIndex() {
	b.indexOnce.Do(func() {
		b.index = make(map[string]int, len(b.TxIDs))
		for i, id := range b.TxIDs {
			if id == "" {
				continue
			}
			if _, ok := b.index[id]; !ok {
				b.index[id] = i
			}
		}
	})
}

// HasTransaction returns true if the block contains the transaction
func (b *Block) HasTransaction(txID string) bool {
	if txID == "" {
		return false
	}
	b.buildIndex()
	_, ok := b.index[txID]
	return ok
}

// IsValid returns true if the transaction at index i was marked valid
func (b *Block) IsValid(i int) bool {
	if i < 0 || i >= len(b.Validity) {
		return false
	}
	return b.Validity[i] == pb.TxValidationCode_VALID
}

// ValidationCode returns the validation code of the transaction and false
// if the block does not contain it
func (b *Block) ValidationCode(txID string) (pb.TxValidationCode, bool) {
	if txID == "" {
		return pb.TxValidationCode_INVALID_OTHER_REASON, false
	}
	b.buildIndex()
	i, ok := b.index[txID]
	if !ok {
		return pb.TxValidationCode_INVALID_OTHER_REASON, false
	}
	return b.Validity[i], true
}

func malformed(format string, args ...interface{}) error {
	return status.Newf(status.ClientStatus, status.MalformedBlock, format, args...)
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"crypto/sha256"
	"encoding/asn1"
	"math/big"
	"strconv"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// TestChannel is the channel used by mock blocks
const TestChannel = "mychannel"

// MockTx is a transaction to be placed in a mock block
type MockTx struct {
	TxID string
	Code pb.TxValidationCode
}

// NewTx returns a valid mock transaction
func NewTx(txID string) MockTx {
	return MockTx{TxID: txID, Code: pb.TxValidationCode_VALID}
}

// NewInvalidTx returns a mock transaction with the given validation code
func NewInvalidTx(txID string, code pb.TxValidationCode) MockTx {
	return MockTx{TxID: txID, Code: code}
}

// NewBlock creates a block containing an endorser transaction envelope for
// each of the given transactions, a data hash over the envelopes and a
// transactions filter holding their validation codes
func NewBlock(number uint64, previousHash []byte, txs ...MockTx) *common.Block {
	block := newBlock(number, previousHash)

	filter := make([]byte, len(txs))
	for i, tx := range txs {
		block.Data.Data = append(block.Data.Data, NewEnvelopeBytes(tx.TxID))
		filter[i] = uint8(tx.Code)
	}

	block.Header.DataHash = computeDataHash(block.Data.Data)
	block.Metadata.Metadata[common.BlockMetadataIndex_TRANSACTIONS_FILTER] = filter

	return block
}

// NewChain creates count linked blocks starting at block 0. Block n holds
// the transactions returned by txs(n).
func NewChain(count int, txs func(n uint64) []MockTx) []*common.Block {
	var blocks []*common.Block
	var prev []byte
	for n := uint64(0); n < uint64(count); n++ {
		b := NewBlock(n, prev, txs(n)...)
		prev = HeaderHash(b.Header)
		blocks = append(blocks, b)
	}
	return blocks
}

// TxIDFor returns the default transaction ID placed in block n by NewLedger
func TxIDFor(n uint64) string {
	return "tx" + strconv.FormatUint(n, 10)
}

// DefaultTxs places the single transaction TxIDFor(n) in block n
func DefaultTxs(n uint64) []MockTx {
	return []MockTx{NewTx(TxIDFor(n))}
}

// NewEnvelopeBytes returns a marshalled endorser transaction envelope for txID
func NewEnvelopeBytes(txID string) []byte {
	chdr := &common.ChannelHeader{
		Type:      int32(common.HeaderType_ENDORSER_TRANSACTION),
		Version:   1,
		Timestamp: &timestamp.Timestamp{Seconds: time.Now().Unix()},
		ChannelId: TestChannel,
		TxId:      txID,
	}
	payload := &common.Payload{
		Header: &common.Header{ChannelHeader: marshalOrPanic(chdr)},
		Data:   marshalOrPanic(&pb.Transaction{Actions: []*pb.TransactionAction{{}}}),
	}
	return marshalOrPanic(&common.Envelope{Payload: marshalOrPanic(payload)})
}

// NewFilteredBlock creates a filtered block as sent by the peer deliver service
func NewFilteredBlock(number uint64, txs ...MockTx) *pb.FilteredBlock {
	fb := &pb.FilteredBlock{ChannelId: TestChannel, Number: number}
	for _, tx := range txs {
		fb.FilteredTransactions = append(fb.FilteredTransactions, &pb.FilteredTransaction{
			Txid:             tx.TxID,
			Type:             common.HeaderType_ENDORSER_TRANSACTION,
			TxValidationCode: tx.Code,
		})
	}
	return fb
}

// MarshalBlock marshals the block or panics
func MarshalBlock(b *common.Block) []byte {
	return marshalOrPanic(b)
}

// HeaderHash returns SHA-256 over the ASN.1 encoding of the block header
func HeaderHash(h *common.BlockHeader) []byte {
	raw, err := asn1.Marshal(struct {
		Number       *big.Int
		PreviousHash []byte
		DataHash     []byte
	}{
		Number:       new(big.Int).SetUint64(h.Number),
		PreviousHash: h.PreviousHash,
		DataHash:     h.DataHash,
	})
	if err != nil {
		panic(err)
	}
	d := sha256.Sum256(raw)
	return d[:]
}

func marshalOrPanic(pb proto.Message) []byte {
	data, err := proto.Marshal(pb)
	if err != nil {
		panic(err)
	}
	return data
}

// newBlock construct a block with no data and no metadata.
func newBlock(seqNum uint64, previousHash []byte) *common.Block {
	block := &common.Block{}
	block.Header = &common.BlockHeader{}
	block.Header.Number = seqNum
	block.Header.PreviousHash = previousHash
	block.Data = &common.BlockData{}

	var metadataContents [][]byte
	for i := 0; i < len(common.BlockMetadataIndex_name); i++ {
		metadataContents = append(metadataContents, []byte{})
	}
	block.Metadata = &common.BlockMetadata{Metadata: metadataContents}

	return block
}

func computeDataHash(data [][]byte) []byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// TxStatusEvent contains the data for a transaction status event. It is
// delivered exactly once per submitted transaction.
type TxStatusEvent struct {
	TxID             string
	TxValidationCode pb.TxValidationCode
	BlockNumber      uint64
	SourceURL        string
}

// Valid returns true if the network accepted the transaction.
func (e *TxStatusEvent) Valid() bool {
	return e.TxValidationCode == pb.TxValidationCode_VALID
}

// Registration is a handle that is returned from a successful RegisterXXXEvent.
// This handle should be used in Unregister in order to unregister the event.
type Registration interface{}

// CommitListener delivers commit notifications for transactions.
type CommitListener interface {
	// RegisterTxStatus registers for transaction status events for the given
	// transaction id. The channel receives at most one event.
	RegisterTxStatus(txID string) (Registration, <-chan *TxStatusEvent, error)

	// Unregister removes the given registration and closes the event channel.
	Unregister(reg Registration)
}

// BlockHeightListener is notified of the newest block number observed on the
// event feed.
type BlockHeightListener interface {
	NotifyHeight(number uint64)
}

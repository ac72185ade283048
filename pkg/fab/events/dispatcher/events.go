/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
)

// TxStatusReg is the registration handle returned by RegisterTxStatus.
type TxStatusReg struct {
	TxID    string
	Eventch chan *fab.TxStatusEvent
}

// RegistrationInfo counts the live registrations.
type RegistrationInfo struct {
	TotalRegistrations       int
	NumTxStatusRegistrations int
}

// The requests below are queued on the dispatcher's event channel and
// handled, in order, by its goroutine.

type registerTxStatus struct {
	reg   *TxStatusReg
	regch chan<- fab.Registration
	errch chan<- error
}

type unregister struct {
	reg fab.Registration
}

type filteredBlock struct {
	block     *pb.FilteredBlock
	sourceURL string
}

type stop struct {
	errch chan<- error
}

type registrationInfo struct {
	infoch chan<- *RegistrationInfo
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package deliverclient

import (
	"math"

	ab "github.com/hyperledger/fabric-protos-go/orderer"
)

// SeekType selects where a new deliver stream starts.
type SeekType string

const (
	// SeekNewest starts at the newest block of the channel.
	SeekNewest SeekType = "newest"
	// SeekFrom starts at the configured block number.
	SeekFrom SeekType = "from"
)

func position(number uint64) *ab.SeekPosition {
	return &ab.SeekPosition{Type: &ab.SeekPosition_Specified{Specified: &ab.SeekSpecified{Number: number}}}
}

// streams never stop on their own; they block for new blocks until closed
func newSeekInfo(start *ab.SeekPosition) *ab.SeekInfo {
	return &ab.SeekInfo{
		Start:    start,
		Stop:     position(math.MaxUint64),
		Behavior: ab.SeekInfo_BLOCK_UNTIL_READY,
	}
}

func seekInfoNewest() *ab.SeekInfo {
	return newSeekInfo(&ab.SeekPosition{Type: &ab.SeekPosition_Newest{Newest: &ab.SeekNewest{}}})
}

func seekInfoFrom(number uint64) *ab.SeekInfo {
	return newSeekInfo(position(number))
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	reqContext "context"
)

// BlockSource queries the ledger of the channel.
type BlockSource interface {
	// BlockNumber returns the number of the latest block on the ledger,
	// that is the ledger height minus one.
	BlockNumber(ctx reqContext.Context) (uint64, error)

	// BlockByNumber returns the marshalled common.Block with the given number.
	BlockByNumber(ctx reqContext.Context, number uint64) ([]byte, error)
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package core

import (
	"hash"
)

// ConfigBackend backend for all config types
type ConfigBackend interface {
	Lookup(key string, opts ...LookupOption) (interface{}, bool)
}

// ConfigProvider provides the config backends. It is resolved once, when
// the SDK is created.
type ConfigProvider func() ([]ConfigBackend, error)

// LookupOpts contains options for looking up key in config backend
type LookupOpts struct {
	UnmarshalType interface{}
}

// LookupOption option to lookup key in config backend
type LookupOption func(opts *LookupOpts)

// WithUnmarshalType lookup option which can be used to unmarshal
// lookup value to provided type
func WithUnmarshalType(unmarshalType interface{}) LookupOption {
	return func(opts *LookupOpts) {
		opts.UnmarshalType = unmarshalType
	}
}

// HashOpts contains options for hashing with a CSP.
type HashOpts interface {
	// Algorithm returns the hash algorithm identifier (to be used).
	Algorithm() string
}

// CryptoSuite computes the digests used for transaction ids, block hashes
// and endorsement fingerprints.
type CryptoSuite interface {
	// Hash hashes messages msg using options opts.
	// If opts is nil, the default hash function will be used.
	Hash(msg []byte, opts HashOpts) ([]byte, error)

	// GetHash returns and instance of hash.Hash using options opts.
	// If opts is nil, the default hash function will be returned.
	GetHash(opts HashOpts) (hash.Hash, error)
}

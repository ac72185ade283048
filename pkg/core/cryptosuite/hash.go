/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cryptosuite provides the digests used for transaction IDs,
// block header hashes and endorsement checks. Standard Fabric networks use
// SHA-256; GM networks use SM3.
package cryptosuite

import (
	"crypto/sha256"
	"hash"
	"strings"
	"sync"

	"github.com/Hyperledger-TWGC/tjfoc-gm/sm3"
	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
)

var logger = logging.NewLogger("fabstub/core")

const (
	// SHA2 is SHA-256, the digest of standard Fabric networks
	SHA2 = "SHA2"
	// SM3 is the digest of GM (guomi) Fabric networks
	SM3 = "SM3"
)

var hashes = map[string]func() hash.Hash{
	SHA2: sha256.New,
	SM3:  sm3.New,
}

// canonical maps the accepted spellings of an algorithm to SHA2 or SM3.
func canonical(algorithm string) (string, error) {
	switch strings.ToUpper(algorithm) {
	case "", SHA2, "SHA256", "SHA-256":
		return SHA2, nil
	case SM3:
		return SM3, nil
	}
	return "", errors.Errorf("unsupported hash algorithm [%s]", algorithm)
}

type hashOpts string

func (o hashOpts) Algorithm() string {
	return string(o)
}

// GetSHA256Opts returns options for computing SHA-256.
func GetSHA256Opts() core.HashOpts {
	return hashOpts(SHA2)
}

// GetSM3Opts returns options for computing SM3.
func GetSM3Opts() core.HashOpts {
	return hashOpts(SM3)
}

// HashOptsFor returns the options for the named algorithm. An empty name
// selects SHA2.
func HashOptsFor(algorithm string) (core.HashOpts, error) {
	alg, err := canonical(algorithm)
	if err != nil {
		return nil, err
	}
	return hashOpts(alg), nil
}

// HashSuite is a CryptoSuite computing SHA-256 or SM3 digests.
type HashSuite struct {
	def string
}

// NewHashSuite returns a suite using defaultAlgorithm when no opts are given.
func NewHashSuite(defaultAlgorithm string) *HashSuite {
	return &HashSuite{def: defaultAlgorithm}
}

// Hash hashes msg using opts, or the suite default if opts is nil.
func (s *HashSuite) Hash(msg []byte, opts core.HashOpts) ([]byte, error) {
	h, err := s.GetHash(opts)
	if err != nil {
		return nil, err
	}
	h.Write(msg)
	return h.Sum(nil), nil
}

// GetHash returns a fresh hash.Hash for opts, or the suite default if opts is nil.
func (s *HashSuite) GetHash(opts core.HashOpts) (hash.Hash, error) {
	alg := s.def
	if opts != nil {
		alg = opts.Algorithm()
	}
	alg, err := canonical(alg)
	if err != nil {
		return nil, err
	}
	return hashes[alg](), nil
}

var defaultSuite struct {
	sync.Mutex
	suite core.CryptoSuite
}

// GetDefault returns the process-wide suite. Unless SetDefault was called
// first, this is a SHA2 HashSuite.
func GetDefault() core.CryptoSuite {
	defaultSuite.Lock()
	defer defaultSuite.Unlock()

	if defaultSuite.suite == nil {
		logger.Debug("no default cryptosuite set, using SHA2 hash suite")
		defaultSuite.suite = NewHashSuite(SHA2)
	}
	return defaultSuite.suite
}

// SetDefault installs the process-wide suite. It fails once a default
// exists, including the one created by an earlier GetDefault.
func SetDefault(suite core.CryptoSuite) error {
	if suite == nil {
		return errors.New("attempting to set invalid default suite")
	}

	defaultSuite.Lock()
	defer defaultSuite.Unlock()

	if defaultSuite.suite != nil {
		return errors.New("default crypto suite is already set")
	}
	defaultSuite.suite = suite
	return nil
}

// DefaultInitialized reports whether a default suite exists.
func DefaultInitialized() bool {
	defaultSuite.Lock()
	defer defaultSuite.Unlock()
	return defaultSuite.suite != nil
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"

	"github.com/golang/protobuf/proto"
	mb "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/cryptosuite"
)

var logger = logging.NewLogger("fabstub/msp")

// Account is an ECDSA signing account holding an enrollment certificate
// and its private key in memory
type Account struct {
	mspID       string
	cert        []byte
	key         *ecdsa.PrivateKey
	cryptoSuite core.CryptoSuite
	hashOpts    core.HashOpts
}

// AccountOption configures an Account
type AccountOption func(*Account)

// WithCryptoSuite sets the suite used to digest messages before signing
func WithCryptoSuite(cs core.CryptoSuite) AccountOption {
	return func(a *Account) {
		a.cryptoSuite = cs
	}
}

// NewAccount returns an account for the given MSP, PEM encoded certificate
// and private key
func NewAccount(mspID string, certPEM []byte, key *ecdsa.PrivateKey, opts ...AccountOption) (*Account, error) {
	if mspID == "" {
		return nil, errors.New("MSP ID is required")
	}
	if key == nil {
		return nil, errors.New("private key is required")
	}

	cert, err := parseCertificate(certPEM)
	if err != nil {
		return nil, err
	}

	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok || pub.X.Cmp(key.PublicKey.X) != 0 || pub.Y.Cmp(key.PublicKey.Y) != 0 {
		return nil, errors.New("private key does not match certificate")
	}

	a := &Account{
		mspID:    mspID,
		cert:     certPEM,
		key:      key,
		hashOpts: cryptosuite.GetSHA256Opts(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cryptoSuite == nil {
		a.cryptoSuite = cryptosuite.GetDefault()
	}

	return a, nil
}

// NewAccountFromPEM returns an account from a PEM encoded certificate and
// a PEM encoded PKCS8 or EC private key
func NewAccountFromPEM(mspID string, certPEM, keyPEM []byte, opts ...AccountOption) (*Account, error) {
	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}
	return NewAccount(mspID, certPEM, key, opts...)
}

// MSPID returns the MSP of the account
func (a *Account) MSPID() string {
	return a.mspID
}

// Identity returns the marshalled msp.SerializedIdentity of the account
func (a *Account) Identity() ([]byte, error) {
	identity, err := proto.Marshal(&mb.SerializedIdentity{Mspid: a.mspID, IdBytes: a.cert})
	if err != nil {
		return nil, errors.Wrap(err, "marshal serializedIdentity failed")
	}
	return identity, nil
}

// Sign digests msg and returns a DER encoded low-S ECDSA signature
func (a *Account) Sign(msg []byte) ([]byte, error) {
	if len(msg) == 0 {
		return nil, errors.New("object (to sign) required")
	}

	digest, err := a.cryptoSuite.Hash(msg, a.hashOpts)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to hash object")
	}

	r, s, err := ecdsa.Sign(rand.Reader, a.key, digest)
	if err != nil {
		return nil, errors.Wrap(err, "ECDSA sign failed")
	}

	s = toLowS(&a.key.PublicKey, s)

	logger.Debugf("signed %d bytes for %s", len(msg), a.mspID)

	return marshalSignature(r, s)
}

func parseCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, errors.New("certificate is not PEM encoded")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse certificate failed")
	}
	return cert, nil
}

func parsePrivateKey(keyPEM []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.New("private key is not PEM encoded")
	}

	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key failed")
	}
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.Errorf("unsupported private key type %T", key)
	}
	return ecKey, nil
}

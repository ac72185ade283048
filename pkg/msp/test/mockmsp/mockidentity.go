/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mockmsp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"time"

	"github.com/golang/protobuf/proto"
	mb "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/pkg/errors"
)

// Identity is a generated self-signed enrollment certificate and its key
type Identity struct {
	MSPID   string
	CertPEM []byte
	KeyPEM  []byte
	Key     *ecdsa.PrivateKey
}

// NewIdentity generates a P-256 key and a self-signed certificate for the given name
func NewIdentity(mspID, name string) (*Identity, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generate key failed")
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 64))
	if err != nil {
		return nil, errors.Wrap(err, "generate serial failed")
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: name, Organization: []string{mspID}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, errors.Wrap(err, "create certificate failed")
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "marshal key failed")
	}

	return &Identity{
		MSPID:   mspID,
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		Key:     key,
	}, nil
}

// Serialized returns the marshalled msp.SerializedIdentity
func (i *Identity) Serialized() []byte {
	b, err := proto.Marshal(&mb.SerializedIdentity{Mspid: i.MSPID, IdBytes: i.CertPEM})
	if err != nil {
		panic(err)
	}
	return b
}

// Account is a lightweight account whose signature is the SHA-256 digest
// of the signed bytes. It is only meant for tests that do not verify signatures.
type Account struct {
	MSPID   string
	Cert    []byte
	SignErr error
	IDErr   error
}

// NewAccount returns a test account for the given MSP
func NewAccount(mspID string) *Account {
	return &Account{MSPID: mspID, Cert: []byte("cert-" + mspID)}
}

// Identity returns the marshalled msp.SerializedIdentity
func (a *Account) Identity() ([]byte, error) {
	if a.IDErr != nil {
		return nil, a.IDErr
	}
	return proto.Marshal(&mb.SerializedIdentity{Mspid: a.MSPID, IdBytes: a.Cert})
}

// Sign returns the SHA-256 digest of msg
func (a *Account) Sign(msg []byte) ([]byte, error) {
	if a.SignErr != nil {
		return nil, a.SignErr
	}
	d := sha256.Sum256(msg)
	return d[:], nil
}

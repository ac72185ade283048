/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"crypto/ecdsa"
	"encoding/hex"

	"github.com/golang/protobuf/proto"
	mb "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/msp"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/cryptosuite"
)

type identity struct {
	id          *msp.IdentityIdentifier
	pub         *ecdsa.PublicKey
	cryptoSuite core.CryptoSuite
}

func (i *identity) Identifier() *msp.IdentityIdentifier {
	return i.id
}

func (i *identity) Verify(msg []byte, sig []byte) error {
	r, s, err := unmarshalSignature(sig)
	if err != nil {
		return err
	}
	if !isLowS(i.pub, s) {
		return errors.New("invalid S: must be smaller than half the order of the curve")
	}

	digest, err := i.cryptoSuite.Hash(msg, cryptosuite.GetSHA256Opts())
	if err != nil {
		return errors.WithMessage(err, "failed to hash message")
	}

	if !ecdsa.Verify(i.pub, digest, r, s) {
		return errors.Errorf("signature verification failed for %s", i.id.MSPID)
	}
	return nil
}

// Deserializer turns marshalled msp.SerializedIdentity bytes carrying a PEM
// certificate into a verifying Identity. When MSP IDs are given only
// identities from those MSPs are accepted.
type Deserializer struct {
	mspIDs      map[string]bool
	cryptoSuite core.CryptoSuite
}

// NewDeserializer returns a new identity deserializer
func NewDeserializer(mspIDs ...string) *Deserializer {
	d := &Deserializer{
		mspIDs:      make(map[string]bool),
		cryptoSuite: cryptosuite.GetDefault(),
	}
	for _, id := range mspIDs {
		d.mspIDs[id] = true
	}
	return d
}

// DeserializeIdentity implements msp.IdentityDeserializer
func (d *Deserializer) DeserializeIdentity(serializedIdentity []byte) (msp.Identity, error) {
	sID := &mb.SerializedIdentity{}
	if err := proto.Unmarshal(serializedIdentity, sID); err != nil {
		return nil, errors.Wrap(err, "unmarshal serializedIdentity failed")
	}

	if len(d.mspIDs) > 0 && !d.mspIDs[sID.Mspid] {
		return nil, errors.Errorf("MSP %s is not trusted", sID.Mspid)
	}

	cert, err := parseCertificate(sID.IdBytes)
	if err != nil {
		return nil, err
	}

	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.Errorf("unsupported public key type %T", cert.PublicKey)
	}

	return &identity{
		id: &msp.IdentityIdentifier{
			MSPID: sID.Mspid,
			ID:    hex.EncodeToString(cert.SerialNumber.Bytes()),
		},
		pub:         pub,
		cryptoSuite: d.cryptoSuite,
	}, nil
}

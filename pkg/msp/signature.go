/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

func marshalSignature(r, s *big.Int) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	sig, err := b.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode signature")
	}
	return sig, nil
}

func unmarshalSignature(raw []byte) (*big.Int, *big.Int, error) {
	var inner cryptobyte.String
	input := cryptobyte.String(raw)
	r, s := new(big.Int), new(big.Int)

	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(r) || !inner.ReadASN1Integer(s) || !inner.Empty() {
		return nil, nil, errors.New("invalid signature encoding")
	}
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return nil, nil, errors.New("invalid signature: r and s must be positive")
	}
	return r, s, nil
}

func halfOrder(k *ecdsa.PublicKey) *big.Int {
	return new(big.Int).Rsh(k.Curve.Params().N, 1)
}

func isLowS(k *ecdsa.PublicKey, s *big.Int) bool {
	return s.Cmp(halfOrder(k)) != 1
}

// toLowS maps s to N-s when s is in the upper half of the curve order.
// Fabric peers reject signatures with a high S.
func toLowS(k *ecdsa.PublicKey, s *big.Int) *big.Int {
	if isLowS(k, s) {
		return s
	}
	return new(big.Int).Sub(k.Curve.Params().N, s)
}

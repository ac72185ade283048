/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	mb "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCert(t *testing.T) ([]byte, *ecdsa.PrivateKey) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: "user1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), key
}

func TestNewAccount(t *testing.T) {
	certPEM, key := newCert(t)

	_, err := NewAccount("", certPEM, key)
	assert.Error(t, err)

	_, err = NewAccount("Org1MSP", certPEM, nil)
	assert.Error(t, err)

	_, err = NewAccount("Org1MSP", []byte("not a cert"), key)
	assert.Error(t, err)

	_, otherKey := newCert(t)
	_, err = NewAccount("Org1MSP", certPEM, otherKey)
	assert.EqualError(t, err, "private key does not match certificate")

	a, err := NewAccount("Org1MSP", certPEM, key)
	require.NoError(t, err)
	assert.Equal(t, "Org1MSP", a.MSPID())

	raw, err := a.Identity()
	require.NoError(t, err)

	sID := &mb.SerializedIdentity{}
	require.NoError(t, proto.Unmarshal(raw, sID))
	assert.Equal(t, "Org1MSP", sID.Mspid)
	assert.Equal(t, certPEM, sID.IdBytes)
}

func TestNewAccountFromPEM(t *testing.T) {
	certPEM, key := newCert(t)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	_, err = NewAccountFromPEM("Org1MSP", certPEM, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}))
	assert.NoError(t, err)

	ec, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	_, err = NewAccountFromPEM("Org1MSP", certPEM, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: ec}))
	assert.NoError(t, err)

	_, err = NewAccountFromPEM("Org1MSP", certPEM, []byte("garbage"))
	assert.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	certPEM, key := newCert(t)
	a, err := NewAccount("Org1MSP", certPEM, key)
	require.NoError(t, err)

	_, err = a.Sign(nil)
	assert.Error(t, err)

	msg := []byte("proposal bytes")
	sig, err := a.Sign(msg)
	require.NoError(t, err)

	_, s, err := unmarshalSignature(sig)
	require.NoError(t, err)
	assert.True(t, isLowS(&key.PublicKey, s))

	raw, err := a.Identity()
	require.NoError(t, err)

	id, err := NewDeserializer("Org1MSP").DeserializeIdentity(raw)
	require.NoError(t, err)
	assert.Equal(t, "Org1MSP", id.Identifier().MSPID)
	assert.Equal(t, "2a", id.Identifier().ID)

	assert.NoError(t, id.Verify(msg, sig))
	assert.Error(t, id.Verify([]byte("tampered"), sig))
	assert.Error(t, id.Verify(msg, []byte{0x30, 0x00}))
}

func TestDeserializerUntrustedMSP(t *testing.T) {
	certPEM, key := newCert(t)
	a, err := NewAccount("Org2MSP", certPEM, key)
	require.NoError(t, err)

	raw, err := a.Identity()
	require.NoError(t, err)

	_, err = NewDeserializer("Org1MSP").DeserializeIdentity(raw)
	assert.EqualError(t, err, "MSP Org2MSP is not trusted")

	_, err = NewDeserializer().DeserializeIdentity([]byte("junk"))
	assert.Error(t, err)
}

func TestToLowS(t *testing.T) {
	_, key := newCert(t)
	pub := &key.PublicKey
	n := pub.Curve.Params().N

	high := new(big.Int).Sub(n, big.NewInt(1))
	assert.False(t, isLowS(pub, high))

	low := toLowS(pub, high)
	assert.True(t, isLowS(pub, low))
	assert.Equal(t, int64(1), low.Int64())

	assert.Equal(t, big.NewInt(7), toLowS(pub, big.NewInt(7)))
}

func TestSignatureEncoding(t *testing.T) {
	r, s := big.NewInt(12345), big.NewInt(67890)
	der, err := marshalSignature(r, s)
	require.NoError(t, err)

	r2, s2, err := unmarshalSignature(der)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Cmp(r2))
	assert.Equal(t, 0, s.Cmp(s2))

	_, _, err = unmarshalSignature(append(der, 0x00))
	assert.Error(t, err)

	zero, err := marshalSignature(big.NewInt(0), s)
	require.NoError(t, err)
	_, _, err = unmarshalSignature(zero)
	assert.Error(t, err)
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

// Account is the signing capability supplied with each request. Signing is
// delegated to the account so that key custody can live elsewhere, for
// example in a remote key management service.
type Account interface {
	// Identity returns the serialized identity (a marshalled
	// msp.SerializedIdentity) used as the transaction creator.
	Identity() ([]byte, error)

	// Sign signs msg and returns the signature.
	Sign(msg []byte) ([]byte, error)
}

// Identity is a public identity that can verify signatures.
type Identity interface {
	// Identifier returns the identity identifier.
	Identifier() *IdentityIdentifier

	// Verify a signature over some message using this identity as reference.
	Verify(msg []byte, sig []byte) error
}

// IdentityIdentifier is a holder for the identifier of a specific
// identity, naturally namespaced, by its provider identifier.
type IdentityIdentifier struct {
	// The identifier of the associated membership service provider
	MSPID string

	// The identifier for an identity within a provider
	ID string
}

// IdentityDeserializer turns a serialized identity into an Identity.
type IdentityDeserializer interface {
	DeserializeIdentity(serializedIdentity []byte) (Identity, error)
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

// Peer is an endorsing peer of an organization.
type Peer interface {
	ProposalProcessor

	URL() string
	MSPID() string
}

// PeerResolver maps the endorser names of a resource to peers. Unknown
// names are an error.
type PeerResolver interface {
	Peers(names []string) ([]Peer, error)
}

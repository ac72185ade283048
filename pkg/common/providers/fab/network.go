/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

// PeerConfig defines a peer configuration
type PeerConfig struct {
	URL         string
	MSPID       string `mapstructure:"mspid"`
	GRPCOptions map[string]interface{}
	TLSCACerts  TLSCACerts
}

// OrdererConfig defines an orderer configuration
type OrdererConfig struct {
	URL         string
	GRPCOptions map[string]interface{}
	TLSCACerts  TLSCACerts
}

// TLSCACerts holds a TLS root certificate, either inline or by path.
type TLSCACerts struct {
	Path string
	Pem  string
}

// Bytes returns the PEM bytes, reading Path when no inline PEM is set.
// It returns nil when neither is configured.
func (c TLSCACerts) Bytes() ([]byte, error) {
	if c.Pem != "" {
		return []byte(c.Pem), nil
	}
	if c.Path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read TLS CA certificate %s", c.Path)
	}
	return b, nil
}

// ResourceDescriptor maps a logical resource name to the channel, chaincode
// and endorsing peers serving it. Descriptors are immutable; the resource
// registry replaces them wholesale.
type ResourceDescriptor struct {
	Name              string
	ChannelID         string `mapstructure:"channel"`
	ChaincodeID       string `mapstructure:"chaincode"`
	ChaincodeLang     string
	Endorsers         []string
	ProposalWaitTime  time.Duration
	EndorsementPolicy string
}

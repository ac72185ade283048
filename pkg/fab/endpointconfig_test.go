/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/config"
)

var configPath = filepath.Join("..", "core", "config", "testdata", "config_test.yaml")

func TestConfigFromBackend(t *testing.T) {
	backends, err := config.FromFile(configPath)()
	require.NoError(t, err)

	cfg, err := ConfigFromBackend(backends...)
	require.NoError(t, err)

	assert.Equal(t, "mychannel", cfg.ChannelID())
	assert.Equal(t, 20, cfg.BlockCacheCapacity())
	assert.Equal(t, "SHA2", cfg.HashAlgorithm())
	assert.Equal(t, 16, cfg.WorkerPoolSize())
	assert.True(t, cfg.MetricsEnabled())
	assert.Equal(t, "fabstub", cfg.MetricsNamespace())

	assert.Equal(t, 10*time.Second, cfg.Timeout(fab.PeerConnection))
	assert.Equal(t, 5*time.Second, cfg.Timeout(fab.Commit))
	assert.Equal(t, 2*time.Second, cfg.Timeout(fab.PollRetry))
	assert.Equal(t, defaultResourceRefreshInterval, cfg.Timeout(fab.ResourceRefresh))

	require.Len(t, cfg.PeersConfig(), 2)
	p, ok := cfg.PeerConfig("peer0.org1.example.com")
	require.True(t, ok)
	assert.Equal(t, "grpcs://localhost:7051", p.URL)
	assert.Equal(t, "Org1MSP", p.MSPID)
	assert.Equal(t, "peer0.org1.example.com", p.GRPCOptions["ssl-target-name-override"])

	_, ok = cfg.PeerConfig("peer9.org1.example.com")
	assert.False(t, ok)

	require.Len(t, cfg.OrderersConfig(), 1)
	assert.Equal(t, "grpcs://localhost:7050", cfg.OrderersConfig()["orderer.example.com"].URL)

	require.Len(t, cfg.Resources(), 1)
	r := cfg.Resources()[0]
	assert.Equal(t, "asset", r.Name)
	assert.Equal(t, "mychannel", r.ChannelID)
	assert.Equal(t, "basic", r.ChaincodeID)
	assert.Equal(t, "golang", r.ChaincodeLang)
	assert.Equal(t, []string{"peer0.org1.example.com", "peer0.org2.example.com"}, r.Endorsers)
	assert.Equal(t, 30*time.Second, r.ProposalWaitTime)
	assert.Equal(t, "Org1MSP && Org2MSP", r.EndorsementPolicy)
}

func TestConfigDefaults(t *testing.T) {
	backends, err := config.FromRaw([]byte(`
channel: ch1
resources:
  - name: kv
    chaincode: kvcc
`), "yaml")()
	require.NoError(t, err)

	cfg, err := ConfigFromBackend(backends...)
	require.NoError(t, err)

	assert.Equal(t, defaultBlockCacheCapacity, cfg.BlockCacheCapacity())
	assert.Equal(t, defaultHashAlgorithm, cfg.HashAlgorithm())
	assert.Equal(t, defaultCommitTimeout, cfg.Timeout(fab.Commit))
	assert.False(t, cfg.MetricsEnabled())
	assert.Equal(t, "ch1", cfg.Resources()[0].ChannelID)
	assert.Equal(t, defaultProposalTimeout, cfg.Resources()[0].ProposalWaitTime)
}

func TestConfigInvalid(t *testing.T) {
	for name, raw := range map[string]string{
		"peer without url":        "peers:\n  p1:\n    mspid: Org1MSP\n",
		"orderer without url":     "orderers:\n  o1:\n    grpcOptions:\n      fail-fast: true\n",
		"resource without a name": "resources:\n  - chaincode: cc\n",
	} {
		backends, err := config.FromRaw([]byte(raw), "yaml")()
		require.NoError(t, err, name)

		_, err = ConfigFromBackend(backends...)
		assert.Error(t, err, name)
	}
}

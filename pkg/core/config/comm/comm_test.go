/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTLSConfigBadPEM(t *testing.T) {
	_, err := TLSConfig([]byte("not a certificate"), "")
	assert.Error(t, err)

	cfg, err := TLSConfig(nil, "peer0.org1.example.com")
	require.NoError(t, err)
	assert.Equal(t, "peer0.org1.example.com", cfg.ServerName)
}

func TestGRPCOptions(t *testing.T) {
	opts := map[string]interface{}{
		"ssl-target-name-override": "orderer.example.com",
		"keep-alive-time":          "10s",
		"keep-alive-timeout":       20 * time.Second,
		"keep-alive-permit":        "true",
		"fail-fast":                false,
		"allow-insecure":           true,
	}

	assert.Equal(t, "orderer.example.com", serverNameOverride(opts))
	assert.False(t, failFast(opts))
	assert.True(t, allowInsecure(opts))

	kap := keepAliveOptions(opts)
	assert.Equal(t, 10*time.Second, kap.Time)
	assert.Equal(t, 20*time.Second, kap.Timeout)
	assert.True(t, kap.PermitWithoutStream)

	assert.True(t, failFast(nil))
	assert.False(t, allowInsecure(nil))
	assert.Equal(t, "", serverNameOverride(nil))
}

func TestDialOptions(t *testing.T) {
	opts, err := DialOptions(Endpoint{URL: "grpc://127.0.0.1:7051"})
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	opts, err = DialOptions(Endpoint{URL: "grpcs://127.0.0.1:7051", GRPCOptions: map[string]interface{}{"keep-alive-time": "1s"}})
	require.NoError(t, err)
	assert.Len(t, opts, 4)

	_, err = DialOptions(Endpoint{URL: "grpcs://127.0.0.1:7051", TLSCACert: []byte("bad")})
	assert.Error(t, err)

	assert.Equal(t, "127.0.0.1:7051", Endpoint{URL: "grpcs://127.0.0.1:7051"}.Address())
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package lookup

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
)

type mapBackend map[string]interface{}

func (b mapBackend) Lookup(key string, opts ...core.LookupOption) (interface{}, bool) {
	v, ok := b[key]
	return v, ok
}

var backend mapBackend

func TestMain(m *testing.M) {
	backend = setupCustomBackend("key")
	r := m.Run()
	os.Exit(r)
}

func setupCustomBackend(prefix string) mapBackend {
	return mapBackend{
		prefix + ".bool.true":          true,
		prefix + ".bool.false":         false,
		prefix + ".bool.invalid":       "INVALID",
		prefix + ".int.positive":       5,
		prefix + ".int.negative":       -5,
		prefix + ".int.invalid":        "INVALID",
		prefix + ".string.valid":       "valid-string",
		prefix + ".string.mixed.case":  "VaLiD-StRiNg",
		prefix + ".duration.valid.sec": "35s",
		prefix + ".duration.valid.min": 5 * time.Minute,
		prefix + ".duration.invalid":   "INVALID",
		prefix + ".timeouts": map[string]interface{}{
			"commit":    "5s",
			"proposal":  "30s",
			"capacity":  "20",
			"hashAlgos": "sm3",
		},
	}
}

func getMultipleCustomBackends(prefixes []string) []core.ConfigBackend {
	var backends []core.ConfigBackend
	for _, prefix := range prefixes {
		backends = append(backends, setupCustomBackend(prefix))
	}
	return backends
}

func TestGetBool(t *testing.T) {
	//Test single backend lookup
	testLookup := New(backend)
	assert.True(t, testLookup.GetBool("key.bool.true"), "expected lookup to return true")
	assert.False(t, testLookup.GetBool("key.bool.false"), "expected lookup to return false")
	assert.False(t, testLookup.GetBool("key.bool.invalid"), "expected lookup to return false for invalid value")
	assert.False(t, testLookup.GetBool("key.bool.notexisting"), "expected lookup to return false for not existing value")

	//Test With multiple backend
	keyPrefixes := []string{"key1", "key2", "key3", "key4"}
	testLookup = New(getMultipleCustomBackends(keyPrefixes)...)

	for _, prefix := range keyPrefixes {
		assert.True(t, testLookup.GetBool(prefix+".bool.true"), "expected lookup to return true")
		assert.False(t, testLookup.GetBool(prefix+".bool.notexisting"), "expected lookup to return false for not existing value")
	}
}

func TestGetInt(t *testing.T) {
	testLookup := New(backend)
	assert.Equal(t, 5, testLookup.GetInt("key.int.positive"))
	assert.Equal(t, -5, testLookup.GetInt("key.int.negative"))
	assert.Equal(t, 0, testLookup.GetInt("key.int.invalid"))
	assert.Equal(t, 0, testLookup.GetInt("key.int.not.existing"))
}

func TestGetString(t *testing.T) {
	testLookup := New(nil, backend)
	assert.Equal(t, "valid-string", testLookup.GetString("key.string.valid"))
	assert.Equal(t, "VALID-STRING", testLookup.GetUpperString("key.string.mixed.case"))
	assert.Equal(t, "", testLookup.GetString("key.string.not.existing"))
}

func TestGetDuration(t *testing.T) {
	testLookup := New(backend)
	assert.Equal(t, 35*time.Second, testLookup.GetDuration("key.duration.valid.sec"))
	assert.Equal(t, 5*time.Minute, testLookup.GetDuration("key.duration.valid.min"))
	assert.Equal(t, time.Duration(0), testLookup.GetDuration("key.duration.invalid"))
	assert.Equal(t, time.Duration(0), testLookup.GetDuration("key.duration.not.existing"))
}

type testTimeouts struct {
	Commit    time.Duration
	Proposal  time.Duration
	Capacity  int
	HashAlgos string
}

func TestUnmarshalKey(t *testing.T) {
	testLookup := New(backend)

	var timeouts testTimeouts
	require.NoError(t, testLookup.UnmarshalKey("key.timeouts", &timeouts))
	assert.Equal(t, 5*time.Second, timeouts.Commit)
	assert.Equal(t, 30*time.Second, timeouts.Proposal)
	assert.Equal(t, 20, timeouts.Capacity)

	// missing keys leave the target untouched
	untouched := testTimeouts{Capacity: 7}
	require.NoError(t, testLookup.UnmarshalKey("key.missing", &untouched))
	assert.Equal(t, 7, untouched.Capacity)
}

func TestUnmarshalWithHookFunc(t *testing.T) {
	testLookup := New(backend)

	upper := func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() == reflect.String && t.Kind() == reflect.String {
			return strings.ToUpper(data.(string)), nil
		}
		return data, nil
	}

	var timeouts testTimeouts
	err := testLookup.UnmarshalKey("key.timeouts", &timeouts, WithUnmarshalHookFunction(mapstructure.DecodeHookFuncType(upper)))
	require.NoError(t, err)
	assert.Equal(t, "SM3", timeouts.HashAlgos)
}

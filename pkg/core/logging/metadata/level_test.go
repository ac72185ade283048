/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/
package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fabric-stub/fabric-stub-go/pkg/core/logging/api"
)

func TestLogLevels(t *testing.T) {

	mlevel := ModuleLevels{}

	mlevel.SetLevel("module-xyz-info", api.INFO)
	mlevel.SetLevel("module-xyz-debug", api.DEBUG)
	mlevel.SetLevel("module-xyz-error", api.ERROR)
	mlevel.SetLevel("module-xyz-warning", api.WARNING)

	//Run info level checks
	assert.True(t, mlevel.IsEnabledFor("module-xyz-info", api.INFO))
	assert.False(t, mlevel.IsEnabledFor("module-xyz-info", api.DEBUG))
	assert.True(t, mlevel.IsEnabledFor("module-xyz-info", api.ERROR))
	assert.True(t, mlevel.IsEnabledFor("module-xyz-info", api.WARNING))

	//Run debug level checks
	assert.True(t, mlevel.IsEnabledFor("module-xyz-debug", api.INFO))
	assert.True(t, mlevel.IsEnabledFor("module-xyz-debug", api.DEBUG))

	//Run error level checks
	assert.False(t, mlevel.IsEnabledFor("module-xyz-error", api.INFO))
	assert.True(t, mlevel.IsEnabledFor("module-xyz-error", api.ERROR))
	assert.False(t, mlevel.IsEnabledFor("module-xyz-error", api.WARNING))

	//Run warning level checks
	assert.False(t, mlevel.IsEnabledFor("module-xyz-warning", api.INFO))
	assert.True(t, mlevel.IsEnabledFor("module-xyz-warning", api.WARNING))

	//Run default log level check --> which is info currently
	assert.True(t, mlevel.IsEnabledFor("module-xyz-random-module", api.INFO))
	assert.False(t, mlevel.IsEnabledFor("module-xyz-random-module", api.DEBUG))
}

func TestParentModuleLevel(t *testing.T) {
	mlevel := ModuleLevels{}
	mlevel.SetLevel("fabstub", api.ERROR)
	mlevel.SetLevel("fabstub/fab/blocksync", api.DEBUG)

	assert.Equal(t, api.ERROR, mlevel.GetLevel("fabstub/fab/txn"))
	assert.Equal(t, api.DEBUG, mlevel.GetLevel("fabstub/fab/blocksync"))
	assert.Equal(t, api.INFO, mlevel.GetLevel("other"))

	mlevel.SetLevel("", api.WARNING)
	assert.Equal(t, api.WARNING, mlevel.GetLevel("other"))
}

func TestParseLevel(t *testing.T) {
	for name, expected := range map[string]api.Level{
		"critical": api.CRITICAL,
		"ERROR":    api.ERROR,
		"warn":     api.WARNING,
		"Warning":  api.WARNING,
		"info":     api.INFO,
		"DEBUG":    api.DEBUG,
	} {
		l, err := ParseLevel(name)
		assert.NoError(t, err)
		assert.Equal(t, expected, l, name)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)

	assert.Equal(t, "DEBUG", api.DEBUG.String())
	assert.Equal(t, "UNKNOWN", api.Level(42).String())
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/
package logging

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fabric-stub/fabric-stub-go/pkg/core/logging/modlog"
)

var moduleName = "module-xyz"

func TestLoggingForCustomProvider(t *testing.T) {
	var buf bytes.Buffer

	resetLoggerInstance()
	Initialize(modlog.NewProvider(&buf))
	logger := NewLogger(moduleName)

	logger.Infof("brown %s jumps over the lazy %s", "fox", "dog")
	assert.Contains(t, buf.String(), "brown fox jumps over the lazy dog")
	buf.Reset()

	// a second Initialize is ignored
	var other bytes.Buffer
	Initialize(modlog.NewProvider(&other))
	NewLogger(moduleName).Warn("still the first provider")
	assert.Contains(t, buf.String(), "still the first provider")
	assert.Empty(t, other.String())
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer

	resetLoggerInstance()
	Initialize(modlog.NewProvider(&buf))
	logger := NewLogger("module-levels")

	assert.Equal(t, INFO, GetLevel("module-levels"))
	logger.Debug("brown fox jumps over the lazy dog")
	assert.Empty(t, buf.String(), "debug log isn't supposed to show up for info level")

	SetLevel("module-levels", DEBUG)
	assert.True(t, IsEnabledFor("module-levels", DEBUG))
	logger.Debug("brown fox jumps over the lazy dog")
	assert.Contains(t, buf.String(), "DEBUG")

	l, err := LogLevel("warning")
	assert.NoError(t, err)
	assert.Equal(t, WARNING, l)
}

func TestSetLevels(t *testing.T) {
	err := SetLevels(map[string]string{
		"levels-test":         "error",
		"levels-test/verbose": "debug",
	})
	assert.NoError(t, err)
	assert.Equal(t, ERROR, GetLevel("levels-test/quiet"))
	assert.Equal(t, DEBUG, GetLevel("levels-test/verbose/child"))

	err = SetLevels(map[string]string{"levels-test": "info", "levels-test/other": "chatty"})
	assert.Error(t, err)
	assert.Equal(t, ERROR, GetLevel("levels-test"), "a bad entry must not change any level")
}

func TestLoggerSetting(t *testing.T) {
	resetLoggerInstance()
	logger := NewLogger(moduleName)
	assert.Equal(t, moduleName, logger.Module())
	assert.True(t, loggerProviderInstance == nil, "Logger is not supposed to be initialized now")
	logger.Info("brown fox jumps over the lazy dog")
	assert.True(t, loggerProviderInstance != nil, "Logger is supposed to be initialized now")
}

func resetLoggerInstance() {
	loggerProviderInstance = nil
	loggerProviderOnce = sync.Once{}
}

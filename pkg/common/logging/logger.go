/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logging is the module logger facade used by every package in the
// client. Output goes to the provider handed to Initialize; when none is set
// before the first log line, the modlog provider writes to stderr.
//
// Levels are tracked per module and are hierarchical: a level set on
// "fabstub/fab" applies to "fabstub/fab/txn" unless that module has its own.
package logging

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/core/logging/api"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/logging/metadata"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/logging/modlog"
)

// Level is the severity of a log line.
type Level = api.Level

// Log levels, most severe first.
const (
	CRITICAL = api.CRITICAL
	ERROR    = api.ERROR
	WARNING  = api.WARNING
	INFO     = api.INFO
	DEBUG    = api.DEBUG
)

const facadeModule = "fabstub/common/logging"

var (
	loggerProviderInstance api.LoggerProvider
	loggerProviderOnce     sync.Once
)

// Logger logs on behalf of one module. The backing logger is resolved on
// first use so package-level loggers can be declared before Initialize runs.
type Logger struct {
	module string

	resolve sync.Once
	backend api.Logger
}

// NewLogger returns the logger for the given module.
func NewLogger(module string) *Logger {
	return &Logger{module: module}
}

// Module returns the module the logger writes for.
func (l *Logger) Module() string {
	return l.module
}

// Initialize installs the provider that backs every module logger. Only the
// first call, or the first log line if it comes earlier, takes effect.
func Initialize(p api.LoggerProvider) {
	installed := false
	loggerProviderOnce.Do(func() {
		loggerProviderInstance = p
		installed = true
	})
	if installed {
		p.GetLogger(facadeModule).Debug("custom logger provider installed")
	}
}

func provider() api.LoggerProvider {
	loggerProviderOnce.Do(func() {
		loggerProviderInstance = modlog.LoggerProvider()
	})
	return loggerProviderInstance
}

// SetLevel sets the level of a module and, by inheritance, its children.
func SetLevel(module string, level Level) {
	modlog.SetLevel(module, level)
}

// SetLevels applies a module to level-name mapping. Every name is parsed
// before any level is changed, so a bad entry leaves the levels untouched.
func SetLevels(levels map[string]string) error {
	parsed := make(map[string]Level, len(levels))
	for module, name := range levels {
		lvl, err := LogLevel(name)
		if err != nil {
			return errors.WithMessagef(err, "module [%s]", module)
		}
		parsed[module] = lvl
	}

	for module, lvl := range parsed {
		SetLevel(module, lvl)
	}
	return nil
}

// GetLevel returns the effective level of a module.
func GetLevel(module string) Level {
	return modlog.GetLevel(module)
}

// IsEnabledFor reports whether a line at the given level would be written
// for the module.
func IsEnabledFor(module string, level Level) bool {
	return modlog.IsEnabledFor(module, level)
}

// LogLevel parses a level name such as "debug" or "WARNING".
func LogLevel(name string) (Level, error) {
	return metadata.ParseLevel(name)
}

func (l *Logger) backing() api.Logger {
	l.resolve.Do(func() {
		l.backend = provider().GetLogger(l.module)
	})
	return l.backend
}

func (l *Logger) Fatal(args ...interface{})                 { l.backing().Fatal(args...) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.backing().Fatalf(format, args...) }
func (l *Logger) Panic(args ...interface{})                 { l.backing().Panic(args...) }
func (l *Logger) Panicf(format string, args ...interface{}) { l.backing().Panicf(format, args...) }
func (l *Logger) Debug(args ...interface{})                 { l.backing().Debug(args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.backing().Debugf(format, args...) }
func (l *Logger) Info(args ...interface{})                  { l.backing().Info(args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.backing().Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.backing().Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.backing().Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.backing().Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.backing().Errorf(format, args...) }

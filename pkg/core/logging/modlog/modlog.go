/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package modlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/fabric-stub/fabric-stub-go/pkg/core/logging/api"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/logging/metadata"
)

const (
	logPrefixFormatter  = "UTC - %s -> %s "
	callerDepth         = 3
	defaultLoggerFlags  = log.Ldate | log.Ltime | log.LUTC | log.Lshortfile
	defaultLoggerPrefix = ""
)

var (
	rwmutex      = &sync.RWMutex{}
	moduleLevels = &metadata.ModuleLevels{}
)

// Provider is the default logger provider. Every module shares one
// underlying stdlib logger and is filtered by its module level.
type Provider struct {
	out *log.Logger
}

// LoggerProvider returns the default logger provider writing to stdout.
func LoggerProvider() api.LoggerProvider {
	return NewProvider(os.Stdout)
}

// NewProvider returns a provider writing to w.
func NewProvider(w io.Writer) *Provider {
	return &Provider{out: log.New(w, defaultLoggerPrefix, defaultLoggerFlags)}
}

// GetLogger returns the logger for the given module.
func (p *Provider) GetLogger(module string) api.Logger {
	return &Log{deflogger: p.out, module: module}
}

// SetLevel sets the log level for the given module.
func SetLevel(module string, level api.Level) {
	rwmutex.Lock()
	defer rwmutex.Unlock()
	moduleLevels.SetLevel(module, level)
}

// GetLevel returns the log level for the given module.
func GetLevel(module string) api.Level {
	rwmutex.RLock()
	defer rwmutex.RUnlock()
	return moduleLevels.GetLevel(module)
}

// IsEnabledFor returns true if the given level is enabled for the module.
func IsEnabledFor(module string, level api.Level) bool {
	rwmutex.RLock()
	defer rwmutex.RUnlock()
	return moduleLevels.IsEnabledFor(module, level)
}

// Log is the default logger implementation
type Log struct {
	deflogger *log.Logger
	module    string
}

// Fatal logs the message and exits with status 1.
func (l *Log) Fatal(args ...interface{}) {
	l.output(api.CRITICAL, fmt.Sprint(args...))
	os.Exit(1)
}

// Fatalf logs the formatted message and exits with status 1.
func (l *Log) Fatalf(format string, args ...interface{}) {
	l.output(api.CRITICAL, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// Panic logs the message and panics with it.
func (l *Log) Panic(args ...interface{}) {
	msg := fmt.Sprint(args...)
	l.output(api.CRITICAL, msg)
	panic(msg)
}

// Panicf logs the formatted message and panics with it.
func (l *Log) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.output(api.CRITICAL, msg)
	panic(msg)
}

// Debug logs at DEBUG level.
func (l *Log) Debug(args ...interface{}) {
	l.log(api.DEBUG, args...)
}

// Debugf logs at DEBUG level.
func (l *Log) Debugf(format string, args ...interface{}) {
	l.logf(api.DEBUG, format, args...)
}

// Info logs at INFO level.
func (l *Log) Info(args ...interface{}) {
	l.log(api.INFO, args...)
}

// Infof logs at INFO level.
func (l *Log) Infof(format string, args ...interface{}) {
	l.logf(api.INFO, format, args...)
}

// Warn logs at WARNING level.
func (l *Log) Warn(args ...interface{}) {
	l.log(api.WARNING, args...)
}

// Warnf logs at WARNING level.
func (l *Log) Warnf(format string, args ...interface{}) {
	l.logf(api.WARNING, format, args...)
}

// Error logs at ERROR level.
func (l *Log) Error(args ...interface{}) {
	l.log(api.ERROR, args...)
}

// Errorf logs at ERROR level.
func (l *Log) Errorf(format string, args ...interface{}) {
	l.logf(api.ERROR, format, args...)
}

func (l *Log) logf(level api.Level, format string, args ...interface{}) {
	if !IsEnabledFor(l.module, level) {
		return
	}
	l.output(level, fmt.Sprintf(format, args...))
}

func (l *Log) log(level api.Level, args ...interface{}) {
	if !IsEnabledFor(l.module, level) {
		return
	}
	l.output(level, fmt.Sprint(args...))
}

func (l *Log) output(level api.Level, msg string) {
	_ = l.deflogger.Output(callerDepth, fmt.Sprintf(logPrefixFormatter, l.module, level)+msg)
}

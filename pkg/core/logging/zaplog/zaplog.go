/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package zaplog provides a logger provider backed by go.uber.org/zap.
// Module levels are still taken from modlog so that logging.SetLevel
// behaves the same whichever provider is installed.
package zaplog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fabric-stub/fabric-stub-go/pkg/core/logging/api"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/logging/modlog"
)

// Provider creates zap-backed module loggers.
type Provider struct {
	base *zap.Logger
}

// New returns a provider using a production JSON encoder writing to stderr.
func New() (*Provider, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	return &Provider{base: l}, nil
}

// NewWithLogger wraps an existing zap logger.
func NewWithLogger(l *zap.Logger) *Provider {
	return &Provider{base: l.WithOptions(zap.AddCallerSkip(2))}
}

// GetLogger returns the logger for the given module.
func (p *Provider) GetLogger(module string) api.Logger {
	return &logger{module: module, s: p.base.Named(module).Sugar()}
}

// Sync flushes buffered log entries.
func (p *Provider) Sync() error {
	return p.base.Sync()
}

type logger struct {
	module string
	s      *zap.SugaredLogger
}

func (l *logger) enabled(level api.Level) bool {
	return modlog.IsEnabledFor(l.module, level)
}

func (l *logger) Fatal(args ...interface{}) { l.s.Fatal(args...) }

func (l *logger) Fatalf(format string, args ...interface{}) { l.s.Fatalf(format, args...) }

func (l *logger) Panic(args ...interface{}) { l.s.Panic(args...) }

func (l *logger) Panicf(format string, args ...interface{}) { l.s.Panicf(format, args...) }

func (l *logger) Debug(args ...interface{}) {
	if l.enabled(api.DEBUG) {
		l.s.Debug(args...)
	}
}

func (l *logger) Debugf(format string, args ...interface{}) {
	if l.enabled(api.DEBUG) {
		l.s.Debugf(format, args...)
	}
}

func (l *logger) Info(args ...interface{}) {
	if l.enabled(api.INFO) {
		l.s.Info(args...)
	}
}

func (l *logger) Infof(format string, args ...interface{}) {
	if l.enabled(api.INFO) {
		l.s.Infof(format, args...)
	}
}

func (l *logger) Warn(args ...interface{}) {
	if l.enabled(api.WARNING) {
		l.s.Warn(args...)
	}
}

func (l *logger) Warnf(format string, args ...interface{}) {
	if l.enabled(api.WARNING) {
		l.s.Warnf(format, args...)
	}
}

func (l *logger) Error(args ...interface{}) {
	if l.enabled(api.ERROR) {
		l.s.Error(args...)
	}
}

func (l *logger) Errorf(format string, args ...interface{}) {
	if l.enabled(api.ERROR) {
		l.s.Errorf(format, args...)
	}
}

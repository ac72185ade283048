/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config loads client configuration into viper-backed
// core.ConfigBackend values. Environment variables prefixed with
// FABRIC_STUB (dots replaced by underscores) override file values, e.g.
// FABRIC_STUB_TIMEOUTS_COMMIT=10s.
package config

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
)

// logModule is the root of every module logger in this repository; child
// modules inherit its level.
const logModule = "fabstub"

const defaultEnvPrefix = "FABRIC_STUB"

type layer struct {
	data       []byte
	configType string
}

type options struct {
	envPrefix string
	defaults  []layer
}

// Option configures how a backend is loaded.
type Option func(opts *options) error

// WithEnvPrefix replaces the FABRIC_STUB environment prefix.
func WithEnvPrefix(prefix string) Option {
	return func(opts *options) error {
		if prefix == "" {
			return errors.New("environment prefix must not be empty")
		}
		opts.envPrefix = prefix
		return nil
	}
}

// WithDefaults merges a configuration document underneath the caller's one.
// Keys present in both are taken from the caller's document. May be given
// more than once; later defaults win over earlier ones.
func WithDefaults(data []byte, configType string) Option {
	return func(opts *options) error {
		if configType == "" {
			return errors.New("empty config type")
		}
		opts.defaults = append(opts.defaults, layer{data: data, configType: configType})
		return nil
	}
}

// FromReader loads configuration from in. configType is any type viper
// understands, typically "yaml" or "json".
func FromReader(in io.Reader, configType string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		if configType == "" {
			return nil, errors.New("empty config type")
		}
		return load(opts, func(v *viper.Viper) error {
			v.SetConfigType(configType)
			return v.MergeConfig(in)
		})
	}
}

// FromRaw loads configuration from a byte slice.
func FromRaw(configBytes []byte, configType string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		return FromReader(bytes.NewReader(configBytes), configType, opts...)()
	}
}

// FromFile loads configuration from the named file. The type is taken from
// the file extension.
func FromFile(name string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		if name == "" {
			return nil, errors.New("filename is required")
		}
		return load(opts, func(v *viper.Viper) error {
			v.SetConfigFile(name)
			v.SetConfigType(strings.TrimPrefix(filepath.Ext(name), "."))
			return errors.Wrapf(v.MergeInConfig(), "loading config file failed: %s", name)
		})
	}
}

func load(opts []Option, read func(v *viper.Viper) error) ([]core.ConfigBackend, error) {
	o := options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errors.WithMessage(err, "invalid config option")
		}
	}

	v := viper.New()
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for i, d := range o.defaults {
		v.SetConfigType(d.configType)
		if err := v.MergeConfig(bytes.NewReader(d.data)); err != nil {
			return nil, errors.Wrapf(err, "loading defaults [%d] failed", i)
		}
	}
	if err := read(v); err != nil {
		return nil, err
	}

	b := &backend{v: v}
	if err := setLogLevel(b); err != nil {
		return nil, err
	}
	return []core.ConfigBackend{b}, nil
}

type backend struct {
	v *viper.Viper
}

// Lookup returns the value at key. With core.WithUnmarshalType the value is
// decoded into the given target, which is then returned.
func (b *backend) Lookup(key string, opts ...core.LookupOption) (interface{}, bool) {
	lookupOpts := core.LookupOpts{}
	for _, opt := range opts {
		opt(&lookupOpts)
	}

	if target := lookupOpts.UnmarshalType; target != nil {
		if err := b.v.UnmarshalKey(key, target); err != nil {
			return nil, false
		}
		return target, true
	}

	value := b.v.Get(key)
	return value, value != nil
}

// setLogLevel applies client.logging.level to the root module and then any
// per-module overrides under client.logging.modules.
func setLogLevel(b core.ConfigBackend) error {
	logLevel := logging.INFO
	if v, ok := b.Lookup("client.logging.level"); ok {
		var err error
		if logLevel, err = logging.LogLevel(cast.ToString(v)); err != nil {
			return errors.WithMessage(err, "invalid client.logging.level")
		}
	}
	logging.SetLevel(logModule, logLevel)

	if v, ok := b.Lookup("client.logging.modules"); ok {
		if err := logging.SetLevels(cast.ToStringMapString(v)); err != nil {
			return errors.WithMessage(err, "invalid client.logging.modules")
		}
	}
	return nil
}

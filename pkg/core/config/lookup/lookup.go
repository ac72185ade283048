/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package lookup reads typed values out of an ordered list of config
// backends. The first backend holding a key wins; a missing or
// unconvertible value reads as the zero value of the requested type.
package lookup

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
)

// ConfigLookup resolves keys across backends.
type ConfigLookup struct {
	backends []core.ConfigBackend
}

// New returns a lookup over the given backends, searched in order.
func New(backends ...core.ConfigBackend) *ConfigLookup {
	return &ConfigLookup{backends: backends}
}

// UnmarshalOption customises UnmarshalKey.
type UnmarshalOption func(hooks *[]mapstructure.DecodeHookFunc)

// WithUnmarshalHookFunction adds a decode hook, run after the built-in
// string-to-duration conversion.
func WithUnmarshalHookFunction(hook mapstructure.DecodeHookFunc) UnmarshalOption {
	return func(hooks *[]mapstructure.DecodeHookFunc) {
		*hooks = append(*hooks, hook)
	}
}

// Lookup returns the raw value of key from the first backend that has it.
func (c *ConfigLookup) Lookup(key string) (interface{}, bool) {
	for _, b := range c.backends {
		if b == nil {
			continue
		}
		if val, ok := b.Lookup(key); ok {
			return val, true
		}
	}
	return nil, false
}

func get[T any](c *ConfigLookup, key string, conv func(interface{}) T) T {
	if v, ok := c.Lookup(key); ok {
		return conv(v)
	}
	var zero T
	return zero
}

// GetBool returns key as a bool.
func (c *ConfigLookup) GetBool(key string) bool { return get(c, key, cast.ToBool) }

// GetString returns key as a string.
func (c *ConfigLookup) GetString(key string) string { return get(c, key, cast.ToString) }

// GetUpperString returns key as an upper-cased string.
func (c *ConfigLookup) GetUpperString(key string) string {
	return strings.ToUpper(c.GetString(key))
}

// GetInt returns key as an int.
func (c *ConfigLookup) GetInt(key string) int { return get(c, key, cast.ToInt) }

// GetDuration returns key as a duration. Strings use time.ParseDuration
// syntax; bare numbers are nanoseconds.
func (c *ConfigLookup) GetDuration(key string) time.Duration {
	return get(c, key, cast.ToDuration)
}

// UnmarshalKey decodes the value at key into target, which must be a
// pointer. A missing key leaves target untouched.
func (c *ConfigLookup) UnmarshalKey(key string, target interface{}, opts ...UnmarshalOption) error {
	value, ok := c.Lookup(key)
	if !ok {
		return nil
	}

	hooks := []mapstructure.DecodeHookFunc{mapstructure.StringToTimeDurationHookFunc()}
	for _, opt := range opts {
		opt(&hooks)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(hooks...),
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(value)
}

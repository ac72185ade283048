/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metadata

import "github.com/fabric-stub/fabric-stub-go/pkg/core/logging/api"

//ModuleLevels maintains log levels based on module
type ModuleLevels struct {
	levels map[string]api.Level
}

// GetLevel returns the log level for the given module. A module without its
// own setting inherits the level of its closest parent ("fabstub/fab/txn"
// falls back to "fabstub/fab", then "fabstub", then the default "").
func (l *ModuleLevels) GetLevel(module string) api.Level {
	for m := module; ; m = parent(m) {
		if level, exists := l.levels[m]; exists {
			return level
		}
		if m == "" {
			return api.INFO
		}
	}
}

// SetLevel sets the log level for the given module.
func (l *ModuleLevels) SetLevel(module string, level api.Level) {
	if l.levels == nil {
		l.levels = make(map[string]api.Level)
	}
	l.levels[module] = level
}

// IsEnabledFor will return true if logging is enabled for the given module.
func (l *ModuleLevels) IsEnabledFor(module string, level api.Level) bool {
	return level <= l.GetLevel(module)
}

func parent(module string) string {
	for i := len(module) - 1; i >= 0; i-- {
		if module[i] == '/' {
			return module[:i]
		}
	}
	return ""
}

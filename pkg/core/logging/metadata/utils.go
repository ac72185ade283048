/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metadata

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/core/logging/api"
)

// ParseLevel returns the log level named by level, ignoring case.
// "WARN" is accepted as an alias of "WARNING".
func ParseLevel(level string) (api.Level, error) {
	if strings.EqualFold(level, "warn") {
		return api.WARNING, nil
	}
	for _, l := range api.Levels() {
		if strings.EqualFold(l.String(), level) {
			return l, nil
		}
	}
	return api.ERROR, errors.Errorf("logger: invalid log level [%s]", level)
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package options carries functional options that are shared between a
// component and the components it owns. An option only takes effect on
// params implementing the matching setter interface, so one option list
// can be handed to a client and to its dispatcher alike.
package options

// Params is a parameter set that options are applied to
type Params interface{}

// Opt applies one setting to params
type Opt func(p Params)

// Apply applies opts, in order, to each of params. Nil options are skipped.
func Apply(opts []Opt, params ...Params) {
	for _, p := range params {
		for _, opt := range opts {
			if opt != nil {
				opt(p)
			}
		}
	}
}

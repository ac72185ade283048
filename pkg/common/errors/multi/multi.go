/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package multi aggregates the errors of an operation that fans out to
// several nodes, such as a proposal sent to every endorser or a broadcast
// that fails over across orderers.
package multi

import (
	"strconv"
	"strings"
)

// Errors holds one error per failed node, in the order they were recorded.
type Errors []error

// New collects the non-nil errors. It returns nil when there are none and
// the error itself when there is exactly one.
func New(errs ...error) error {
	var m Errors
	for _, err := range errs {
		m = m.add(err)
	}
	return m.ToError()
}

// Append adds err to errs, flattening either side when it is already an
// Errors value.
func Append(errs error, err error) error {
	var m Errors
	return m.add(errs).add(err).ToError()
}

func (errs Errors) add(err error) Errors {
	switch e := err.(type) {
	case nil:
		return errs
	case Errors:
		return append(errs, e...)
	default:
		return append(errs, e)
	}
}

// ToError collapses errs to nil, its only member, or itself.
func (errs Errors) ToError() error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errs
	}
}

// Unwrap lets errors.Is and errors.As inspect every member.
func (errs Errors) Unwrap() []error {
	return errs
}

func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return ""
	case 1:
		return errs[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(strconv.Itoa(len(errs)))
	sb.WriteString(" errors occurred:")
	for i, err := range errs {
		sb.WriteString(" [")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("] ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

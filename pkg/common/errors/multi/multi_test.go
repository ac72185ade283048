/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package multi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	errOrderer1 = errors.New("orderer1 unavailable")
	errOrderer2 = errors.New("orderer2 unavailable")
)

func TestNew(t *testing.T) {
	assert.Nil(t, New())
	assert.Nil(t, New(nil, nil))
	assert.Equal(t, errOrderer1, New(nil, errOrderer1), "a single error is returned as is")
	assert.Equal(t, Errors{errOrderer1, errOrderer2}, New(errOrderer1, nil, errOrderer2))
}

func TestAppend(t *testing.T) {
	assert.Nil(t, Append(nil, nil))
	assert.Equal(t, errOrderer1, Append(nil, errOrderer1))
	assert.Equal(t, errOrderer1, Append(errOrderer1, nil))
	assert.Equal(t, Errors{errOrderer1, errOrderer2}, Append(errOrderer1, errOrderer2))

	errOrderer3 := errors.New("orderer3 unavailable")
	assert.Equal(t, Errors{errOrderer1, errOrderer2, errOrderer3}, Append(Errors{errOrderer1, errOrderer2}, errOrderer3))
	assert.Equal(t, Errors{errOrderer3, errOrderer1, errOrderer2}, Append(errOrderer3, Errors{errOrderer1, errOrderer2}), "both sides are flattened")
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "", Errors{}.Error())
	assert.Equal(t, "orderer1 unavailable", Errors{errOrderer1}.Error())
	assert.Equal(t, "2 errors occurred: [1] orderer1 unavailable [2] orderer2 unavailable", Errors{errOrderer1, errOrderer2}.Error())
}

func TestToError(t *testing.T) {
	var errs Errors
	assert.Nil(t, errs.ToError())

	errs = append(errs, errOrderer1)
	assert.Equal(t, errOrderer1, errs.ToError())

	errs = append(errs, errOrderer2)
	assert.Equal(t, errs, errs.ToError())
}

func TestUnwrap(t *testing.T) {
	target := errors.New("connection refused")
	err := New(errOrderer1, fmt.Errorf("orderer2: %w", target))
	assert.True(t, errors.Is(err, target))
	assert.True(t, errors.Is(err, errOrderer1))
	assert.False(t, errors.Is(err, errOrderer2))
}

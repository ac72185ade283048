/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package endorsement

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/pkg/errors"
)

const (
	gateAnd   = "And"
	gateOr    = "Or"
	gateOutOf = "OutOf"
)

var principalRegex = regexp.MustCompile("^([[:alnum:].-]+)[.](admin|member|client|peer|orderer)$")

// Policy is a client side endorsement policy over endorser MSP IDs. Both
// boolean expressions over MSP IDs (Org1MSP && (Org2MSP || Org3MSP)) and
// Fabric gate syntax (AND('Org1MSP.peer', OutOf(1, 'Org2MSP.member', 'Org3MSP.member')))
// are accepted. Roles are not checked client side.
type Policy struct {
	source string
}

// ParsePolicy parses the given policy expression
func ParsePolicy(expr string) (*Policy, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, errors.New("policy expression is empty")
	}

	// parse once against an empty endorser set to reject malformed expressions early
	p := &Policy{source: expr}
	if _, err := p.Satisfied(map[string]bool{}); err != nil {
		return nil, errors.WithMessagef(err, "invalid policy [%s]", expr)
	}
	return p, nil
}

// String returns the policy expression
func (p *Policy) String() string {
	return p.source
}

// Satisfied evaluates the policy against the set of MSP IDs that endorsed
func (p *Policy) Satisfied(endorsed map[string]bool) (bool, error) {
	truth := func(arg interface{}) (bool, error) {
		switch v := arg.(type) {
		case bool:
			return v, nil
		case string:
			return endorsed[principalMSP(v)], nil
		default:
			return false, errors.Errorf("unexpected argument type %s", reflect.TypeOf(arg))
		}
	}

	outOf := func(args ...interface{}) (interface{}, error) {
		if len(args) < 2 {
			return nil, errors.Errorf("expected at least two arguments to OutOf. Given %d", len(args))
		}
		n, ok := args[0].(float64)
		if !ok {
			return nil, errors.Errorf("unexpected type %s for OutOf threshold", reflect.TypeOf(args[0]))
		}
		count := 0
		for _, arg := range args[1:] {
			t, err := truth(arg)
			if err != nil {
				return nil, err
			}
			if t {
				count++
			}
		}
		return count >= int(n), nil
	}
	and := func(args ...interface{}) (interface{}, error) {
		return outOf(append([]interface{}{float64(len(args))}, args...)...)
	}
	or := func(args ...interface{}) (interface{}, error) {
		return outOf(append([]interface{}{float64(1)}, args...)...)
	}

	functions := map[string]govaluate.ExpressionFunction{}
	for name, fn := range map[string]govaluate.ExpressionFunction{gateAnd: and, gateOr: or, gateOutOf: outOf} {
		functions[name] = fn
		functions[strings.ToLower(name)] = fn
		functions[strings.ToUpper(name)] = fn
	}

	expr, err := govaluate.NewEvaluableExpressionWithFunctions(p.source, functions)
	if err != nil {
		return false, err
	}

	params := make(map[string]interface{})
	for _, v := range expr.Vars() {
		params[v] = endorsed[v]
	}

	result, err := expr.Evaluate(params)
	if err != nil {
		return false, err
	}

	satisfied, ok := result.(bool)
	if !ok {
		return false, errors.Errorf("policy [%s] does not evaluate to a boolean", p.source)
	}
	return satisfied, nil
}

func principalMSP(principal string) string {
	if m := principalRegex.FindStringSubmatch(principal); len(m) == 3 {
		return m[1]
	}
	return principal
}

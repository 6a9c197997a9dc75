package matchmaker

import (
	"fmt"

	"github.com/gossipnet/intentd/types"
)

// Policy decides which intents may follow each other in an exchange cycle.
type Policy interface {
	Name() string
	// MaxCycleLength is the largest number of intents in a cycle.
	MaxCycleLength() int
	// Links reports whether giver's Have satisfies taker's Want. An error
	// is a rule evaluation fault.
	Links(taker, giver *types.Intent) (bool, error)
}

// exactPolicy links intents whose assets match exactly in denom and
// amount. Partial fills are never produced.
type exactPolicy struct {
	name           string
	maxCycleLength int
}

var _ Policy = exactPolicy{}

// NewPolicy returns the builtin exact matching policy for rules.
func NewPolicy(rules *Rules) Policy {
	return exactPolicy{name: rules.Policy, maxCycleLength: rules.MaxCycleLength}
}

func (p exactPolicy) Name() string        { return p.name }
func (p exactPolicy) MaxCycleLength() int { return p.maxCycleLength }

func (p exactPolicy) Links(taker, giver *types.Intent) (bool, error) {
	return giver.Have == taker.Want, nil
}

// RuleError is a fault raised while evaluating a matching policy.
type RuleError struct {
	Policy string
	Err    error
}

func (e RuleError) Error() string {
	return fmt.Sprintf("policy %s: %v", e.Policy, e.Err)
}

func (e RuleError) Unwrap() error { return e.Err }

// links calls p.Links and turns a panic into a RuleError.
func links(p Policy, taker, giver *types.Intent) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, RuleError{Policy: p.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	ok, err = p.Links(taker, giver)
	if err != nil {
		return false, RuleError{Policy: p.Name(), Err: err}
	}
	return ok, nil
}

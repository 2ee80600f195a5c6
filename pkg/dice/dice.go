// Package dice implements the d20 action-outcome mechanic. A roll
// maps to a narrative tier that conditions the next generation only
// through the prompt, never by touching the model's output.
package dice

import (
	"errors"
	"fmt"

	"github.com/megaman333/Clover-Edition/pkg/random"
)

// Sides is the number of faces on the action die.
const Sides = 20

// Tier classifies a roll.
type Tier int

const (
	TierUnspecified Tier = iota
	TierCriticalFailure
	TierFailure
	TierSuccess
	TierCriticalSuccess
)

func (t Tier) String() string {
	switch t {
	case TierCriticalFailure:
		return "critical failure"
	case TierFailure:
		return "failure"
	case TierSuccess:
		return "success"
	case TierCriticalSuccess:
		return "critical success"
	default:
		return "unspecified"
	}
}

// ErrInvalidPolicy indicates tier bounds that do not partition 1..20.
var ErrInvalidPolicy = errors.New("tier bounds must satisfy 1 <= critical-failure-max <= failure-max < success-max < 20")

// Policy carries the configurable tier partition. A roll r maps to:
//
//	r <= CriticalFailureMax  critical failure
//	r <= FailureMax          failure
//	r <= SuccessMax          success
//	otherwise                critical success
type Policy struct {
	CriticalFailureMax int
	FailureMax         int
	SuccessMax         int
}

// DefaultPolicy is the classic partition: 1, 2-9, 10-19, 20.
func DefaultPolicy() Policy {
	return Policy{CriticalFailureMax: 1, FailureMax: 9, SuccessMax: 19}
}

func (p Policy) Validate() error {
	if p.CriticalFailureMax < 1 || p.CriticalFailureMax > p.FailureMax ||
		p.FailureMax >= p.SuccessMax || p.SuccessMax >= Sides {
		return fmt.Errorf("%w: got %d/%d/%d", ErrInvalidPolicy,
			p.CriticalFailureMax, p.FailureMax, p.SuccessMax)
	}
	return nil
}

// Tier maps a roll in [1, Sides] onto the partition.
func (p Policy) Tier(roll int) Tier {
	switch {
	case roll <= p.CriticalFailureMax:
		return TierCriticalFailure
	case roll <= p.FailureMax:
		return TierFailure
	case roll <= p.SuccessMax:
		return TierSuccess
	default:
		return TierCriticalSuccess
	}
}

// Outcome is one resolved roll. It is consumed immediately to tag the
// next prompt, then discarded.
type Outcome struct {
	Roll int
	Tier Tier
}

// Hint returns the framing clause spliced into the next prompt.
func (o Outcome) Hint() string {
	switch o.Tier {
	case TierCriticalFailure:
		return "You fail spectacularly and things go terribly wrong."
	case TierFailure:
		return "Despite your best efforts, you fail."
	case TierSuccess:
		return "You succeed."
	case TierCriticalSuccess:
		return "You succeed brilliantly, beyond all expectation."
	default:
		return ""
	}
}

// Resolver rolls outcomes for user actions.
type Resolver struct {
	enabled bool
	policy  Policy
	rng     random.Source
}

// NewResolver validates the policy and returns a resolver. When
// enabled is false, Resolve always reports no outcome.
func NewResolver(enabled bool, policy Policy, rng random.Source) (*Resolver, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &Resolver{enabled: enabled, policy: policy, rng: rng}, nil
}

// Resolve draws one d20 and maps it to a tier. The second return is
// false when the mechanic is disabled; no random draw is consumed in
// that case.
func (r *Resolver) Resolve() (Outcome, bool) {
	if !r.enabled {
		return Outcome{}, false
	}

	roll := r.rng.Intn(Sides) + 1
	return Outcome{Roll: roll, Tier: r.policy.Tier(roll)}, true
}

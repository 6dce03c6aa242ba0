// Package gate is the afford/deny decision point between the pricing tables
// and a caller-supplied credit balance. It is pure: reading the balance
// beforehand and debiting it afterwards both belong to the caller, so how
// balances are persisted stays decoupled from how much things cost.
package gate

import (
	"github.com/manicinc/synthstack-gateway/internal/pricing"
	"github.com/manicinc/synthstack-gateway/internal/tier"
)

// Decision is an affordability verdict plus the user-facing breakdown.
type Decision struct {
	CanAfford bool   `json:"can_afford"`
	Required  int    `json:"required"`
	Remaining int    `json:"remaining"`
	Deficit   int    `json:"deficit"`
	Breakdown string `json:"breakdown"`
}

// Estimator is the slice of a pricer the gate needs.
type Estimator interface {
	Estimate(operationID string, t tier.Tier, h pricing.Hints) pricing.Breakdown
}

type Gate struct {
	pricer Estimator
}

func New(pricer Estimator) *Gate {
	if pricer == nil {
		pricer = pricing.NewEndpointPricer(nil)
	}
	return &Gate{pricer: pricer}
}

// Check prices the operation and compares it to the current balance.
// Tiers with a zero multiplier estimate to zero and always pass.
func (g *Gate) Check(operationID string, t tier.Tier, currentBalance int, h pricing.Hints) Decision {
	b := g.pricer.Estimate(operationID, t, h)

	remaining := currentBalance
	if remaining < 0 {
		remaining = 0
	}
	deficit := b.TotalCost - remaining
	if deficit < 0 {
		deficit = 0
	}

	return Decision{
		CanAfford: remaining >= b.TotalCost,
		Required:  b.TotalCost,
		Remaining: remaining,
		Deficit:   deficit,
		Breakdown: b.Summary,
	}
}

// Package pricing converts execution telemetry into integer credit charges.
//
// All entry points are pure functions over static tables: unknown operation
// identifiers and tiers degrade to safe defaults, malformed numeric input is
// clamped to zero, and nothing here ever blocks or errors on the request
// path. Estimates and actual charges share one pricing function so the two
// can never drift apart.
package pricing

import (
	"math"

	"github.com/manicinc/synthstack-gateway/internal/tier"
)

const (
	// CostCap is the maximum credits a single operation can charge. Applied
	// after ceiling rounding so a raw total of exactly 100.4 reports capped.
	CostCap = 100

	// durationIntervalMs: one surcharge credit per full 30s of wall clock.
	durationIntervalMs = 30_000

	// nodesPerCredit: one complexity credit per full 10 executed workflow nodes.
	nodesPerCredit = 10
)

// Hints carries optional payload-shape and execution telemetry. Zero values
// mean "not applicable"; negative values are treated as zero.
type Hints struct {
	// Items is the batch size derived from the request payload (e.g. length
	// of an embeddings input array). Scales PerItemCost.
	Items int
	// Tokens is the LLM token count. Scales PerTokenCost.
	Tokens int
	// Nodes is the number of executed workflow sub-units. Workflow strategy only.
	Nodes int
	// Components counts executed premium sub-components by kind
	// (e.g. "ai_agent" -> 2). Workflow strategy only.
	Components map[string]int
}

// Affordability is the result of a pure afford check against a balance.
type Affordability struct {
	CanAfford bool `json:"can_afford"`
	Required  int  `json:"required"`
	Remaining int  `json:"remaining"`
	Deficit   int  `json:"deficit"`
}

// EndpointPricer prices ML endpoint calls: base + item/token scaling, plus a
// duration surcharge on the actual-charge path.
type EndpointPricer struct {
	table *Table
}

func NewEndpointPricer(table *Table) *EndpointPricer {
	if table == nil {
		table = DefaultTable()
	}
	return &EndpointPricer{table: table}
}

// Estimate computes the pre-flight charge for an endpoint call.
func (p *EndpointPricer) Estimate(operationID string, t tier.Tier, h Hints) Breakdown {
	cfg := p.table.Lookup(operationID)
	return finalize(t, cfg.IsPremium, scaledBase(cfg, h), 0, 0, 0)
}

// Actual computes the post-execution charge. Failed operations
// (statusCode >= 400) always cost exactly zero: partial work is never billed.
func (p *EndpointPricer) Actual(operationID string, t tier.Tier, durationMs int64, statusCode int, h Hints) Breakdown {
	cfg := p.table.Lookup(operationID)
	if statusCode >= 400 {
		return failedBreakdown(t, cfg.IsPremium)
	}
	return finalize(t, cfg.IsPremium, scaledBase(cfg, h), durationSurcharge(durationMs), 0, 0)
}

// CanAfford derives an affordability result from the estimate.
func (p *EndpointPricer) CanAfford(operationID string, t tier.Tier, remaining int, h Hints) Affordability {
	return afford(p.Estimate(operationID, t, h).TotalCost, remaining)
}

// WorkflowPricer prices workflow executions: base + duration surcharge +
// complexity surcharge per executed node + flat surcharges for premium
// sub-components. Kept as a separate strategy from EndpointPricer; the two
// product lines price duration and complexity differently on purpose.
type WorkflowPricer struct {
	table      *Table
	components ComponentTable
}

func NewWorkflowPricer(table *Table, components ComponentTable) *WorkflowPricer {
	if table == nil {
		table = DefaultTable()
	}
	if components == nil {
		components = DefaultComponents()
	}
	return &WorkflowPricer{table: table, components: components}
}

// Estimate computes the pre-flight charge for a workflow execution. Duration
// and node counts are unknown before the run, so only the base applies.
func (p *WorkflowPricer) Estimate(operationID string, t tier.Tier, h Hints) Breakdown {
	cfg := p.table.Lookup(operationID)
	return finalize(t, cfg.IsPremium, scaledBase(cfg, h), 0, 0, 0)
}

// Actual computes the post-execution charge from run telemetry.
func (p *WorkflowPricer) Actual(operationID string, t tier.Tier, durationMs int64, statusCode int, h Hints) Breakdown {
	cfg := p.table.Lookup(operationID)
	if statusCode >= 400 {
		return failedBreakdown(t, cfg.IsPremium)
	}

	var premium float64
	for kind, n := range h.Components {
		if n < 0 {
			n = 0
		}
		premium += p.components.Surcharge(kind) * float64(n)
	}

	return finalize(t, cfg.IsPremium, scaledBase(cfg, h), durationSurcharge(durationMs), complexitySurcharge(h.Nodes), premium)
}

// CanAfford derives an affordability result from the estimate.
func (p *WorkflowPricer) CanAfford(operationID string, t tier.Tier, remaining int, h Hints) Affordability {
	return afford(p.Estimate(operationID, t, h).TotalCost, remaining)
}

// scaledBase applies per-item and per-token scaling to the configured base.
// The first item is covered by the base cost.
func scaledBase(cfg EndpointCost, h Hints) float64 {
	base := cfg.BaseCost
	if base < 0 {
		base = 0
	}
	if cfg.PerItemCost > 0 && h.Items > 1 {
		base += float64(h.Items-1) * cfg.PerItemCost
	}
	if cfg.PerTokenCost > 0 && h.Tokens > 0 {
		base += float64(h.Tokens) * cfg.PerTokenCost
	}
	return base
}

// durationSurcharge: one credit per full 30-second interval, floor division.
func durationSurcharge(durationMs int64) float64 {
	if durationMs < 0 {
		durationMs = 0
	}
	return float64(durationMs / durationIntervalMs)
}

// complexitySurcharge: one credit per full 10 executed nodes.
func complexitySurcharge(nodes int) float64 {
	if nodes < 0 {
		nodes = 0
	}
	return float64(nodes / nodesPerCredit)
}

// finalize sums the surcharges, applies the tier multiplier, rounds the
// total up to a whole credit and clamps it to CostCap. Estimate and actual
// paths both end here so the arithmetic cannot diverge.
func finalize(t tier.Tier, isPremium bool, base, duration, complexity, premium float64) Breakdown {
	raw := (base + duration + complexity + premium) * t.Multiplier()

	total := int(math.Ceil(raw))
	capped := total > CostCap
	if capped {
		total = CostCap
	}

	b := Breakdown{
		BaseCost:             base,
		DurationCost:         duration,
		ComplexityCost:       complexity,
		PremiumSurchargeCost: premium,
		TierMultiplier:       t.Multiplier(),
		TotalCost:            total,
		WasCapped:            capped,
		IsPremium:            isPremium,
		Tier:                 t,
	}
	b.Summary = buildSummary(b)
	return b
}

// failedBreakdown is the zero-cost result for failed operations.
func failedBreakdown(t tier.Tier, isPremium bool) Breakdown {
	b := Breakdown{
		TierMultiplier: t.Multiplier(),
		IsPremium:      isPremium,
		Tier:           t,
	}
	b.Summary = "Failed operation: 0 credits"
	return b
}

func afford(required, remaining int) Affordability {
	if remaining < 0 {
		remaining = 0
	}
	deficit := required - remaining
	if deficit < 0 {
		deficit = 0
	}
	return Affordability{
		CanAfford: remaining >= required,
		Required:  required,
		Remaining: remaining,
		Deficit:   deficit,
	}
}

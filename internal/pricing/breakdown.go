package pricing

import (
	"fmt"
	"strings"

	"github.com/manicinc/synthstack-gateway/internal/tier"
)

// Breakdown is the itemized result of a cost calculation. It is a plain
// value: nothing in this package persists it, callers derive ledger rows
// from it if they need a durable record.
type Breakdown struct {
	BaseCost             float64   `json:"base_cost"`
	DurationCost         float64   `json:"duration_cost"`
	ComplexityCost       float64   `json:"complexity_cost"`
	PremiumSurchargeCost float64   `json:"premium_surcharge_cost"`
	TierMultiplier       float64   `json:"tier_multiplier"`
	TotalCost            int       `json:"total_cost"`
	WasCapped            bool      `json:"was_capped"`
	IsPremium            bool      `json:"is_premium"`
	Tier                 tier.Tier `json:"tier"`
	Summary              string    `json:"summary"`
}

// buildSummary renders the human-readable breakdown shown to end users,
// e.g. "Base: 3 credits | Premium endpoint | pro tier: 1.0x multiplier | Total: 3 credits".
func buildSummary(b Breakdown) string {
	parts := []string{fmt.Sprintf("Base: %s credits", trimFloat(b.BaseCost))}

	if b.DurationCost > 0 {
		parts = append(parts, fmt.Sprintf("Duration: +%s credits", trimFloat(b.DurationCost)))
	}
	if b.ComplexityCost > 0 {
		parts = append(parts, fmt.Sprintf("Complexity: +%s credits", trimFloat(b.ComplexityCost)))
	}
	if b.PremiumSurchargeCost > 0 {
		parts = append(parts, fmt.Sprintf("Premium steps: +%s credits", trimFloat(b.PremiumSurchargeCost)))
	}
	if b.IsPremium {
		parts = append(parts, "Premium endpoint")
	}

	parts = append(parts, fmt.Sprintf("%s tier: %sx multiplier", b.Tier, trimFloat(b.TierMultiplier)))

	total := fmt.Sprintf("Total: %d credits", b.TotalCost)
	if b.WasCapped {
		total += " (capped)"
	}
	parts = append(parts, total)

	return strings.Join(parts, " | ")
}

// trimFloat formats a float without trailing zeros (3 not 3.00, 0.3 not 0.30).
func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

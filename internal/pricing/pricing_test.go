package pricing

import (
	"strings"
	"testing"

	"github.com/manicinc/synthstack-gateway/internal/tier"
)

func testTable() *Table {
	return NewTable(
		map[string]EndpointCost{
			"/v1/ml/rag/query":  {BaseCost: 3, IsPremium: true},
			"/v1/ml/embeddings": {BaseCost: 1, PerItemCost: 0.1},
			"/v1/ml/batch":      {BaseCost: 50, PerItemCost: 0.3},
			"/v1/ml/completion": {BaseCost: 3, IsPremium: true, PerTokenCost: 0.001},
		},
		map[string]EndpointCost{
			"/v1/ml/": {BaseCost: 2},
		},
	)
}

func TestEstimate_TierMultipliers(t *testing.T) {
	p := NewEndpointPricer(testTable())

	tests := []struct {
		tier tier.Tier
		want int
	}{
		{tier.Free, 6},       // 3 * 2.0
		{tier.Maker, 5},      // ceil(3 * 1.5) = ceil(4.5)
		{tier.Pro, 3},        // 3 * 1.0
		{tier.Agency, 2},     // ceil(3 * 0.5) = ceil(1.5)
		{tier.Enterprise, 2}, // same as agency
		{tier.Lifetime, 3},   // ceil(3 * 0.75) = ceil(2.25)
		{tier.Unlimited, 0},
		{tier.Admin, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			b := p.Estimate("/v1/ml/rag/query", tt.tier, Hints{})
			if b.TotalCost != tt.want {
				t.Errorf("TotalCost = %d, want %d", b.TotalCost, tt.want)
			}
			if b.WasCapped {
				t.Error("WasCapped = true for a small charge")
			}
		})
	}
}

func TestEstimate_MonotonicTierDiscount(t *testing.T) {
	p := NewEndpointPricer(testTable())

	// agency <= pro <= maker <= free, per the multiplier ordering
	order := []tier.Tier{tier.Agency, tier.Pro, tier.Maker, tier.Free}

	for _, op := range []string{"/v1/ml/rag/query", "/v1/ml/batch", "/unknown/op"} {
		prev := -1
		for _, tr := range order {
			got := p.Estimate(op, tr, Hints{Items: 20}).TotalCost
			if got < prev {
				t.Errorf("%s: cost for %s (%d) < cost for cheaper tier (%d)", op, tr, got, prev)
			}
			prev = got
		}
	}
}

func TestActual_FailedOperationsAreFree(t *testing.T) {
	p := NewEndpointPricer(testTable())
	w := NewWorkflowPricer(testTable(), DefaultComponents())

	for _, status := range []int{400, 402, 429, 500, 503} {
		b := p.Actual("/v1/ml/rag/query", tier.Free, 120_000, status, Hints{Items: 500})
		if b.TotalCost != 0 {
			t.Errorf("endpoint status %d: TotalCost = %d, want 0", status, b.TotalCost)
		}

		wb := w.Actual("/v1/workflows/execute", tier.Free, 600_000, status, Hints{
			Nodes:      100,
			Components: map[string]int{"ai_agent": 5},
		})
		if wb.TotalCost != 0 {
			t.Errorf("workflow status %d: TotalCost = %d, want 0", status, wb.TotalCost)
		}
	}
}

func TestActual_DurationSurcharge(t *testing.T) {
	p := NewEndpointPricer(testTable())

	// free tier, base 3, premium, 65s duration:
	// surcharge = floor(65000/30000) = 2, raw = (3+2)*2.0 = 10
	b := p.Actual("/v1/ml/rag/query", tier.Free, 65_000, 200, Hints{})
	if b.TotalCost != 10 {
		t.Errorf("TotalCost = %d, want 10", b.TotalCost)
	}
	if b.DurationCost != 2 {
		t.Errorf("DurationCost = %v, want 2", b.DurationCost)
	}
	if b.WasCapped {
		t.Error("WasCapped = true, want false")
	}

	t.Run("floor not round", func(t *testing.T) {
		// 29.999s is zero full intervals
		b := p.Actual("/v1/ml/rag/query", tier.Pro, 29_999, 200, Hints{})
		if b.DurationCost != 0 {
			t.Errorf("DurationCost = %v, want 0", b.DurationCost)
		}
	})

	t.Run("negative duration clamps to zero", func(t *testing.T) {
		b := p.Actual("/v1/ml/rag/query", tier.Pro, -5_000, 200, Hints{})
		if b.DurationCost != 0 {
			t.Errorf("DurationCost = %v, want 0", b.DurationCost)
		}
	})
}

func TestEstimate_PerItemScalingAndCap(t *testing.T) {
	p := NewEndpointPricer(testTable())

	// pro tier, base 50, perItem 0.3, 300 items:
	// raw = 50 + 299*0.3 = 139.7, ceil = 140, capped to 100
	b := p.Estimate("/v1/ml/batch", tier.Pro, Hints{Items: 300})
	if b.TotalCost != CostCap {
		t.Errorf("TotalCost = %d, want %d", b.TotalCost, CostCap)
	}
	if !b.WasCapped {
		t.Error("WasCapped = false, want true")
	}

	t.Run("just under the cap", func(t *testing.T) {
		// raw = 50 + 99*0.3 = 79.7, ceil = 80
		b := p.Estimate("/v1/ml/batch", tier.Pro, Hints{Items: 100})
		if b.TotalCost != 80 {
			t.Errorf("TotalCost = %d, want 80", b.TotalCost)
		}
		if b.WasCapped {
			t.Error("WasCapped = true, want false")
		}
	})

	t.Run("single item pays base only", func(t *testing.T) {
		b := p.Estimate("/v1/ml/embeddings", tier.Pro, Hints{Items: 1})
		if b.TotalCost != 1 {
			t.Errorf("TotalCost = %d, want 1", b.TotalCost)
		}
	})
}

func TestEstimate_PerTokenScaling(t *testing.T) {
	p := NewEndpointPricer(testTable())

	// base 3 + 2000*0.001 = 5
	b := p.Estimate("/v1/ml/completion", tier.Pro, Hints{Tokens: 2000})
	if b.TotalCost != 5 {
		t.Errorf("TotalCost = %d, want 5", b.TotalCost)
	}
}

func TestEstimate_UnknownEndpointSafety(t *testing.T) {
	p := NewEndpointPricer(testTable())

	b := p.Estimate("/totally/unknown/path", tier.Pro, Hints{})
	if b.TotalCost != int(DefaultEndpointCost.BaseCost) {
		t.Errorf("TotalCost = %d, want default %v", b.TotalCost, DefaultEndpointCost.BaseCost)
	}
	if b.IsPremium {
		t.Error("unknown endpoint marked premium")
	}

	t.Run("unknown tier uses neutral multiplier", func(t *testing.T) {
		b := p.Estimate("/v1/ml/rag/query", tier.Parse("platinum"), Hints{})
		if b.TierMultiplier != 1.0 {
			t.Errorf("TierMultiplier = %v, want 1.0", b.TierMultiplier)
		}
		if b.TotalCost != 3 {
			t.Errorf("TotalCost = %d, want 3", b.TotalCost)
		}
	})
}

func TestWorkflowPricer_ComplexityAndComponents(t *testing.T) {
	w := NewWorkflowPricer(testTable(), DefaultComponents())

	// unknown workflow op resolves through the /v1/ml/ prefix miss to the
	// default config (base 1). 35 nodes -> 3 complexity credits.
	// components: 2 ai_agent (3 each) + 1 integration (1) + 4 data (0) = 7.
	// raw = (1 + 0 + 3 + 7) * 1.0 = 11
	b := w.Actual("/v1/workflows/run/42", tier.Pro, 10_000, 200, Hints{
		Nodes: 35,
		Components: map[string]int{
			"ai_agent":    2,
			"integration": 1,
			"data":        4,
		},
	})

	if b.ComplexityCost != 3 {
		t.Errorf("ComplexityCost = %v, want 3", b.ComplexityCost)
	}
	if b.PremiumSurchargeCost != 7 {
		t.Errorf("PremiumSurchargeCost = %v, want 7", b.PremiumSurchargeCost)
	}
	if b.TotalCost != 11 {
		t.Errorf("TotalCost = %d, want 11", b.TotalCost)
	}

	t.Run("unknown component kind prices as integration", func(t *testing.T) {
		b := w.Actual("/v1/workflows/run/42", tier.Pro, 0, 200, Hints{
			Components: map[string]int{"mystery": 2},
		})
		if b.PremiumSurchargeCost != 2 {
			t.Errorf("PremiumSurchargeCost = %v, want 2", b.PremiumSurchargeCost)
		}
	})

	t.Run("nine nodes cost nothing extra", func(t *testing.T) {
		b := w.Actual("/v1/workflows/run/42", tier.Pro, 0, 200, Hints{Nodes: 9})
		if b.ComplexityCost != 0 {
			t.Errorf("ComplexityCost = %v, want 0", b.ComplexityCost)
		}
	})
}

func TestEstimateAndActualShareArithmetic(t *testing.T) {
	p := NewEndpointPricer(testTable())

	// With zero duration the actual charge must equal the estimate exactly.
	for _, tr := range []tier.Tier{tier.Free, tier.Maker, tier.Pro, tier.Agency} {
		est := p.Estimate("/v1/ml/batch", tr, Hints{Items: 50})
		act := p.Actual("/v1/ml/batch", tr, 0, 200, Hints{Items: 50})
		if est.TotalCost != act.TotalCost {
			t.Errorf("%s: estimate %d != actual %d", tr, est.TotalCost, act.TotalCost)
		}
	}
}

func TestCanAfford(t *testing.T) {
	p := NewEndpointPricer(testTable())

	t.Run("sufficient balance", func(t *testing.T) {
		a := p.CanAfford("/v1/ml/rag/query", tier.Pro, 10, Hints{})
		if !a.CanAfford || a.Required != 3 || a.Deficit != 0 {
			t.Errorf("got %+v", a)
		}
	})

	t.Run("exact balance", func(t *testing.T) {
		a := p.CanAfford("/v1/ml/rag/query", tier.Pro, 3, Hints{})
		if !a.CanAfford || a.Deficit != 0 {
			t.Errorf("got %+v", a)
		}
	})

	t.Run("insufficient balance", func(t *testing.T) {
		a := p.CanAfford("/v1/ml/rag/query", tier.Free, 2, Hints{})
		if a.CanAfford {
			t.Error("CanAfford = true, want false")
		}
		if a.Required != 6 || a.Deficit != 4 {
			t.Errorf("got %+v", a)
		}
	})

	t.Run("negative balance clamps", func(t *testing.T) {
		a := p.CanAfford("/v1/ml/rag/query", tier.Pro, -5, Hints{})
		if a.Remaining != 0 || a.Deficit != 3 {
			t.Errorf("got %+v", a)
		}
	})
}

func TestBreakdownSummary(t *testing.T) {
	p := NewEndpointPricer(testTable())

	b := p.Estimate("/v1/ml/rag/query", tier.Pro, Hints{})
	want := "Base: 3 credits | Premium endpoint | pro tier: 1x multiplier | Total: 3 credits"
	if b.Summary != want {
		t.Errorf("Summary = %q, want %q", b.Summary, want)
	}

	t.Run("capped summary says so", func(t *testing.T) {
		b := p.Estimate("/v1/ml/batch", tier.Pro, Hints{Items: 300})
		if !strings.Contains(b.Summary, "(capped)") {
			t.Errorf("Summary = %q, expected capped marker", b.Summary)
		}
	})

	t.Run("failed operation summary", func(t *testing.T) {
		b := p.Actual("/v1/ml/rag/query", tier.Pro, 1000, 500, Hints{})
		if b.Summary != "Failed operation: 0 credits" {
			t.Errorf("Summary = %q", b.Summary)
		}
	})
}

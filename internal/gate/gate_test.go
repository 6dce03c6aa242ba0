package gate

import (
	"testing"

	"github.com/manicinc/synthstack-gateway/internal/pricing"
	"github.com/manicinc/synthstack-gateway/internal/tier"
)

type fixedEstimator struct {
	cost    int
	summary string
}

func (f fixedEstimator) Estimate(operationID string, t tier.Tier, h pricing.Hints) pricing.Breakdown {
	return pricing.Breakdown{TotalCost: f.cost, Summary: f.summary}
}

func TestCheck(t *testing.T) {
	t.Run("sufficient balance passes", func(t *testing.T) {
		g := New(fixedEstimator{cost: 5, summary: "five"})
		d := g.Check("/v1/ml/rag/query", tier.Pro, 20, pricing.Hints{})
		if !d.CanAfford || d.Required != 5 || d.Remaining != 20 || d.Deficit != 0 {
			t.Errorf("got %+v", d)
		}
		if d.Breakdown != "five" {
			t.Errorf("Breakdown = %q", d.Breakdown)
		}
	})

	t.Run("exact balance passes", func(t *testing.T) {
		g := New(fixedEstimator{cost: 5})
		d := g.Check("op", tier.Pro, 5, pricing.Hints{})
		if !d.CanAfford || d.Deficit != 0 {
			t.Errorf("got %+v", d)
		}
	})

	t.Run("deficit reported when short", func(t *testing.T) {
		g := New(fixedEstimator{cost: 12})
		d := g.Check("op", tier.Free, 4, pricing.Hints{})
		if d.CanAfford {
			t.Error("CanAfford = true, want false")
		}
		if d.Deficit != 8 {
			t.Errorf("Deficit = %d, want 8", d.Deficit)
		}
	})

	t.Run("negative balance treated as zero", func(t *testing.T) {
		g := New(fixedEstimator{cost: 3})
		d := g.Check("op", tier.Free, -10, pricing.Hints{})
		if d.Remaining != 0 || d.Deficit != 3 || d.CanAfford {
			t.Errorf("got %+v", d)
		}
	})

	t.Run("zero-cost estimate always passes", func(t *testing.T) {
		g := New(fixedEstimator{cost: 0})
		d := g.Check("op", tier.Admin, 0, pricing.Hints{})
		if !d.CanAfford {
			t.Error("zero-cost operation denied")
		}
	})

	t.Run("default pricer for exempt tier", func(t *testing.T) {
		// nil estimator falls back to the real endpoint pricer; an admin
		// user with an empty balance must still pass.
		g := New(nil)
		d := g.Check("/v1/ml/rag/query", tier.Admin, 0, pricing.Hints{})
		if !d.CanAfford || d.Required != 0 {
			t.Errorf("got %+v", d)
		}
	})
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/manicinc/synthstack-gateway/internal/models"
	"github.com/manicinc/synthstack-gateway/internal/pricing"
	"github.com/manicinc/synthstack-gateway/internal/tier"
)

// fakeLedger mimics the repository: balances per user, debit dedup on
// request id, floor at zero.
type fakeLedger struct {
	balances map[uuid.UUID]int
	seen     map[string]bool
	rows     []*models.CreditTransaction
	err      error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[uuid.UUID]int),
		seen:     make(map[string]bool),
	}
}

func (l *fakeLedger) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	return l.balances[userID], nil
}

func (l *fakeLedger) Debit(ctx context.Context, tx *models.CreditTransaction) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.seen[tx.RequestID] {
		return false, nil
	}
	l.seen[tx.RequestID] = true
	l.rows = append(l.rows, tx)

	next := l.balances[tx.UserID] + tx.Amount
	if next < 0 {
		next = 0
	}
	l.balances[tx.UserID] = next
	return true, nil
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"endpoint", StrategyEndpoint},
		{"workflow", StrategyWorkflow},
		{"", StrategyEndpoint},
		{"nonsense", StrategyEndpoint},
	}
	for _, tt := range tests {
		if got := ParseStrategy(tt.in); got != tt.want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBillingCheck(t *testing.T) {
	ledger := newFakeLedger()
	billing := NewBillingService(ledger, nil, nil)
	ctx := context.Background()

	user := uuid.New()
	ledger.balances[user] = 5

	t.Run("affordable", func(t *testing.T) {
		// /v1/ml/rag/query is base 3, pro multiplier 1.0
		d, err := billing.Check(ctx, StrategyEndpoint, "/v1/ml/rag/query", tier.Pro, user, pricing.Hints{})
		if err != nil {
			t.Fatal(err)
		}
		if !d.CanAfford || d.Required != 3 || d.Remaining != 5 {
			t.Errorf("got %+v", d)
		}
	})

	t.Run("insufficient", func(t *testing.T) {
		d, err := billing.Check(ctx, StrategyEndpoint, "/v1/ml/rag/query", tier.Free, user, pricing.Hints{})
		if err != nil {
			t.Fatal(err)
		}
		if d.CanAfford {
			t.Error("CanAfford = true for 6 credits against a balance of 5")
		}
		if d.Deficit != 1 {
			t.Errorf("Deficit = %d, want 1", d.Deficit)
		}
	})

	t.Run("ledger error surfaces", func(t *testing.T) {
		broken := newFakeLedger()
		broken.err = errors.New("db down")
		b := NewBillingService(broken, nil, nil)
		if _, err := b.Check(ctx, StrategyEndpoint, "/v1/ml/rag/query", tier.Pro, user, pricing.Hints{}); err == nil {
			t.Error("expected error from failing ledger")
		}
	})
}

func TestBillingCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("successful charge debits the ledger", func(t *testing.T) {
		ledger := newFakeLedger()
		billing := NewBillingService(ledger, nil, nil)
		user := uuid.New()
		ledger.balances[user] = 50

		b, applied, err := billing.Charge(ctx, ChargeInput{
			RequestID:   "req-1",
			UserID:      user,
			OperationID: "/v1/ml/rag/query",
			Tier:        tier.Pro,
			Strategy:    StrategyEndpoint,
			DurationMs:  1_000,
			StatusCode:  200,
		})
		if err != nil {
			t.Fatal(err)
		}
		if !applied {
			t.Fatal("applied = false for a first charge")
		}
		if b.TotalCost != 3 {
			t.Errorf("TotalCost = %d, want 3", b.TotalCost)
		}
		if got := ledger.balances[user]; got != 47 {
			t.Errorf("balance = %d, want 47", got)
		}
		if len(ledger.rows) != 1 || ledger.rows[0].Amount != -3 {
			t.Errorf("rows = %+v", ledger.rows)
		}
	})

	t.Run("same request id charges once", func(t *testing.T) {
		ledger := newFakeLedger()
		billing := NewBillingService(ledger, nil, nil)
		user := uuid.New()
		ledger.balances[user] = 50

		in := ChargeInput{
			RequestID:   "req-dup",
			UserID:      user,
			OperationID: "/v1/ml/rag/query",
			Tier:        tier.Pro,
			Strategy:    StrategyEndpoint,
			StatusCode:  200,
		}

		if _, applied, err := billing.Charge(ctx, in); err != nil || !applied {
			t.Fatalf("first charge: applied=%v err=%v", applied, err)
		}
		_, applied, err := billing.Charge(ctx, in)
		if err != nil {
			t.Fatal(err)
		}
		if applied {
			t.Error("replay was applied")
		}
		if got := ledger.balances[user]; got != 47 {
			t.Errorf("balance = %d, want 47 after replay", got)
		}
	})

	t.Run("failed operation writes no row", func(t *testing.T) {
		ledger := newFakeLedger()
		billing := NewBillingService(ledger, nil, nil)
		user := uuid.New()
		ledger.balances[user] = 50

		b, applied, err := billing.Charge(ctx, ChargeInput{
			RequestID:   "req-fail",
			UserID:      user,
			OperationID: "/v1/ml/rag/query",
			Tier:        tier.Pro,
			Strategy:    StrategyEndpoint,
			StatusCode:  502,
		})
		if err != nil {
			t.Fatal(err)
		}
		if applied || b.TotalCost != 0 {
			t.Errorf("applied=%v cost=%d, want false/0", applied, b.TotalCost)
		}
		if len(ledger.rows) != 0 {
			t.Errorf("ledger rows = %d, want 0", len(ledger.rows))
		}
		if got := ledger.balances[user]; got != 50 {
			t.Errorf("balance = %d, want untouched 50", got)
		}
	})

	t.Run("exempt tier writes no row", func(t *testing.T) {
		ledger := newFakeLedger()
		billing := NewBillingService(ledger, nil, nil)
		user := uuid.New()

		_, applied, err := billing.Charge(ctx, ChargeInput{
			RequestID:   "req-admin",
			UserID:      user,
			OperationID: "/v1/ml/rag/query",
			Tier:        tier.Admin,
			Strategy:    StrategyEndpoint,
			StatusCode:  200,
		})
		if err != nil {
			t.Fatal(err)
		}
		if applied || len(ledger.rows) != 0 {
			t.Error("exempt tier produced a ledger row")
		}
	})

	t.Run("workflow strategy bills run telemetry", func(t *testing.T) {
		ledger := newFakeLedger()
		billing := NewBillingService(ledger, nil, nil)
		user := uuid.New()
		ledger.balances[user] = 100

		// /v1/workflows/execute: base 2. 95s -> 3 duration credits,
		// 25 nodes -> 2 complexity credits, one ai_agent -> 3.
		// (2+3+2+3) * 1.0 = 10
		b, applied, err := billing.Charge(ctx, ChargeInput{
			RequestID:   "req-wf",
			UserID:      user,
			OperationID: "/v1/workflows/execute",
			Tier:        tier.Pro,
			Strategy:    StrategyWorkflow,
			DurationMs:  95_000,
			StatusCode:  200,
			Hints: pricing.Hints{
				Nodes:      25,
				Components: map[string]int{"ai_agent": 1},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !applied || b.TotalCost != 10 {
			t.Errorf("applied=%v cost=%d, want true/10", applied, b.TotalCost)
		}
		if got := ledger.balances[user]; got != 90 {
			t.Errorf("balance = %d, want 90", got)
		}
	})
}

func TestBillingEstimate(t *testing.T) {
	billing := NewBillingService(newFakeLedger(), nil, nil)

	b := billing.Estimate(StrategyEndpoint, "/v1/ml/embeddings", tier.Free, pricing.Hints{Items: 11})
	// base 1 + 10*0.1 = 2, free multiplier 2.0 -> 4
	if b.TotalCost != 4 {
		t.Errorf("TotalCost = %d, want 4", b.TotalCost)
	}
}
